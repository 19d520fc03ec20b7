// Package check statically analyses a plan and reports what it finds as
// diagnostics.
//
// Run never fails on a questionable plan by itself: every finding goes to
// the listener, and Run stops early only if the listener asks it to.
package check

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/roach88/planir/internal/diag"
	"github.com/roach88/planir/internal/plan"
	"github.com/roach88/planir/internal/ptype"
	"github.com/roach88/planir/internal/value"
)

// Option configures a check run.
type Option func(*checker)

// WithUnsupported reports FEATURE_NOT_SUPPORTED for every operator whose
// plan.Name is one of names, for evaluators that lack those operators.
func WithUnsupported(names ...string) Option {
	return func(c *checker) {
		for _, n := range names {
			c.unsupported[strings.ToLower(strings.TrimSpace(n))] = true
		}
	}
}

// Run analyses the tree rooted at op and reports diagnostics to listener in
// pre-order. It returns the first error the listener returns, or nil.
func Run(op plan.Operator, listener diag.Listener, opts ...Option) error {
	c := &checker{listener: listener, unsupported: make(map[string]bool)}
	c.BaseVisitor = plan.NewBaseVisitor[struct{}, *env](c)
	for _, opt := range opts {
		opt(c)
	}
	c.visit(op, nil)
	return c.err
}

// Collect runs the check with a diag.Collector and returns its findings.
func Collect(op plan.Operator, opts ...Option) []diag.Diagnostic {
	var col diag.Collector
	_ = Run(op, &col, opts...)
	return col.Diagnostics
}

// env is the chain of row scopes visible to an expression. The innermost
// row is scope 0.
type env struct {
	row    ptype.PType
	parent *env
}

func (e *env) push(row ptype.PType) *env {
	return &env{row: row, parent: e}
}

// lookup returns the row type of the given scope.
func (e *env) lookup(scope int) (ptype.PType, bool) {
	for ; e != nil; e = e.parent {
		if scope == 0 {
			return e.row, true
		}
		scope--
	}
	return ptype.PType{}, false
}

type checker struct {
	plan.BaseVisitor[struct{}, *env]
	listener    diag.Listener
	unsupported map[string]bool
	err         error
}

func (c *checker) report(d diag.Diagnostic) {
	if c.err != nil {
		return
	}
	c.err = c.listener.Report(d)
}

func (c *checker) visit(op plan.Operator, e *env) {
	if c.err != nil {
		return
	}
	if name := plan.Name(op); c.unsupported[name] {
		c.report(diag.Unsupported(name))
	}
	plan.Accept[struct{}, *env](c, op, e)
}

func (c *checker) visitAll(rexes []plan.Rex, e *env) {
	for _, r := range rexes {
		c.visit(r, e)
	}
}

func (c *checker) visitCollations(cs []*plan.Collation, e *env) {
	for _, col := range cs {
		c.visit(col.Column(), e)
	}
}

// DefaultVisit is overridden so that children pass through visit.
func (c *checker) DefaultVisit(op plan.Operator, e *env) struct{} {
	for _, child := range op.Children() {
		c.visit(child, e)
	}
	return struct{}{}
}

func (c *checker) DefaultReturn(plan.Operator, *env) struct{} { return struct{}{} }

// Relational operators evaluate their expressions over the input row.

func (c *checker) VisitFilter(n *plan.Filter, e *env) struct{} {
	c.visit(n.Input(), e)
	c.visit(n.Predicate(), e.push(n.Input().Type()))
	return struct{}{}
}

func (c *checker) VisitProject(n *plan.Project, e *env) struct{} {
	c.visit(n.Input(), e)
	c.visitAll(n.Projections(), e.push(n.Input().Type()))
	return struct{}{}
}

func (c *checker) VisitAggregate(n *plan.Aggregate, e *env) struct{} {
	c.visit(n.Input(), e)
	inner := e.push(n.Input().Type())
	for _, m := range n.Measures() {
		c.visitAll(m.Args(), inner)
	}
	c.visitAll(n.Groups(), inner)
	return struct{}{}
}

func (c *checker) VisitSort(n *plan.Sort, e *env) struct{} {
	c.visit(n.Input(), e)
	c.visitCollations(n.Collations(), e.push(n.Input().Type()))
	return struct{}{}
}

func (c *checker) VisitJoin(n *plan.Join, e *env) struct{} {
	c.visit(n.Left(), e)
	c.visit(n.Right(), e)
	if n.Condition() != nil {
		c.visit(n.Condition(), e.push(n.Type()))
	}
	return struct{}{}
}

// VisitCorrelate makes the left row visible to the right side.
func (c *checker) VisitCorrelate(n *plan.Correlate, e *env) struct{} {
	c.visit(n.Left(), e)
	c.visit(n.Right(), e.push(n.Left().Type()))
	return struct{}{}
}

func (c *checker) VisitExclude(n *plan.Exclude, e *env) struct{} {
	c.visit(n.Input(), e)
	inner := e.push(n.Input().Type())
	for _, ex := range n.Exclusions() {
		c.visit(ex.Variable(), inner)
	}
	return struct{}{}
}

func (c *checker) VisitWindow(n *plan.Window, e *env) struct{} {
	c.visit(n.Input(), e)
	inner := e.push(n.Input().Type())
	for _, f := range n.Functions() {
		c.visitAll(f.Args(), inner)
	}
	c.visitAll(n.Partitions(), inner)
	c.visitCollations(n.Sorts(), inner)
	return struct{}{}
}

func (c *checker) VisitSelect(n *plan.Select, e *env) struct{} {
	c.visit(n.Input(), e)
	c.visit(n.Constructor(), e.push(n.Input().Type()))
	return struct{}{}
}

func (c *checker) VisitPivot(n *plan.Pivot, e *env) struct{} {
	c.visit(n.Input(), e)
	inner := e.push(n.Input().Type())
	c.visit(n.Key(), inner)
	c.visit(n.Value(), inner)
	return struct{}{}
}

// VisitSubquery also reports scalar subqueries whose input provably yields
// more than one row.
func (c *checker) VisitSubquery(n *plan.Subquery, e *env) struct{} {
	if n.Scalar() && minRows(n.Input()) > 1 {
		c.report(diag.Cardinality())
	}
	c.visit(n.Input(), e)
	c.visit(n.Constructor(), e.push(n.Input().Type()))
	return struct{}{}
}

func (c *checker) VisitError(n *plan.Error, _ *env) struct{} {
	c.report(diag.Placeholder(n.Message()))
	return struct{}{}
}

func (c *checker) VisitVar(n *plan.Var, e *env) struct{} {
	id := fmt.Sprintf("$%d.%d", n.Scope(), n.Offset())
	row, ok := e.lookup(n.Scope())
	if !ok {
		c.report(diag.NotInScope(id, n.Scope()))
		return struct{}{}
	}
	if n.Offset() < 0 || (row.Kind() == ptype.KindRow && n.Offset() >= len(row.Fields())) {
		c.report(diag.NotInScope(id, n.Scope()))
	}
	return struct{}{}
}

func (c *checker) VisitCall(n *plan.Call, e *env) struct{} {
	args := n.Args()
	if len(args) != len(n.Fn().Params) {
		c.report(diag.NoFunction(n.Fn().ID(), argTypes(args)))
	}
	if n.Fn().NullCall {
		for _, a := range args {
			if l, ok := a.(*plan.Lit); ok {
				if _, missing := l.Value().(value.Missing); missing {
					c.report(diag.Missing())
					break
				}
			}
		}
	}
	return c.DefaultVisit(n, e)
}

// VisitDispatch reports an overload set with no candidate of the right
// arity.
func (c *checker) VisitDispatch(n *plan.Dispatch, e *env) struct{} {
	arity := false
	for _, cand := range n.Candidates() {
		if len(cand.Params) == len(n.Args()) {
			arity = true
			break
		}
	}
	if !arity {
		types := argTypes(n.Args())
		c.report(diag.NoFunction(signature(n.Name(), types), types))
	}
	return c.DefaultVisit(n, e)
}

func (c *checker) VisitCast(n *plan.Cast, e *env) struct{} {
	from, to := n.Operand().Type(), n.Target()
	if !Castable(from, to) {
		c.report(diag.NoCast(from, to))
	} else if l, ok := n.Operand().(*plan.Lit); ok {
		c.checkLiteralCast(l.Value(), to)
	}
	return c.DefaultVisit(n, e)
}

func (c *checker) checkLiteralCast(d value.Datum, to ptype.PType) {
	switch v := d.(type) {
	case value.Int:
		if !fitsInt(int64(v), to) {
			c.report(diag.OutOfRange(to))
		}
	case value.Decimal:
		if !fitsDecimal(v.Decimal, to) {
			c.report(diag.OutOfRange(to))
		}
	case value.String:
		switch to.Kind() {
		case ptype.KindChar, ptype.KindVarchar, ptype.KindClob:
			if n := utf8.RuneCountInString(string(v)); n > to.Length() {
				c.report(diag.Truncation(n, to))
			}
		}
	}
}

func (c *checker) VisitPathKey(n *plan.PathKey, e *env) struct{} {
	t := n.Operand().Type()
	if k, ok := literalString(n.Key()); ok {
		if neverStruct(t) || (t.Kind() == ptype.KindRow && !hasField(t, k, false)) {
			c.report(diag.KeyNeverSucceeds(k, t))
		}
	}
	return c.DefaultVisit(n, e)
}

func (c *checker) VisitPathIndex(n *plan.PathIndex, e *env) struct{} {
	t := n.Operand().Type()
	if !t.Kind().IsOpen() && t.Kind() != ptype.KindArray {
		c.report(diag.IndexNeverSucceeds(t))
	}
	return c.DefaultVisit(n, e)
}

func (c *checker) VisitPathSymbol(n *plan.PathSymbol, e *env) struct{} {
	t := n.Operand().Type()
	if neverStruct(t) || (t.Kind() == ptype.KindRow && !hasField(t, n.Symbol(), true)) {
		c.report(diag.SymbolNeverSucceeds(n.Symbol(), t))
	}
	return c.DefaultVisit(n, e)
}

func argTypes(args []plan.Rex) []ptype.PType {
	out := make([]ptype.PType, len(args))
	for i, a := range args {
		out[i] = a.Type()
	}
	return out
}

func signature(name string, types []ptype.PType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

func literalString(r plan.Rex) (string, bool) {
	l, ok := r.(*plan.Lit)
	if !ok {
		return "", false
	}
	s, ok := l.Value().(value.String)
	return string(s), ok
}

// neverStruct reports whether values of t can never have fields.
func neverStruct(t ptype.PType) bool {
	return !t.Kind().IsOpen() && !t.Kind().IsTuple()
}

func hasField(t ptype.PType, name string, fold bool) bool {
	for _, f := range t.Fields() {
		if f.Name == name || (fold && strings.EqualFold(f.Name, name)) {
			return true
		}
	}
	return false
}

// intRange returns the bounds of an integer kind.
func intRange(k ptype.Kind) (lo, hi int64, ok bool) {
	switch k {
	case ptype.KindTinyInt:
		return math.MinInt8, math.MaxInt8, true
	case ptype.KindSmallInt:
		return math.MinInt16, math.MaxInt16, true
	case ptype.KindInteger:
		return math.MinInt32, math.MaxInt32, true
	case ptype.KindBigInt:
		return math.MinInt64, math.MaxInt64, true
	}
	return 0, 0, false
}

func fitsInt(i int64, to ptype.PType) bool {
	if lo, hi, ok := intRange(to.Kind()); ok {
		return i >= lo && i <= hi
	}
	return fitsDecimal(decimal.NewFromInt(i), to)
}

// fitsDecimal reports whether d, rounded to the target's scale, fits an
// exact numeric target. Other targets always fit.
func fitsDecimal(d decimal.Decimal, to ptype.PType) bool {
	if lo, hi, ok := intRange(to.Kind()); ok {
		r := d.Round(0)
		return !r.LessThan(decimal.NewFromInt(lo)) && !r.GreaterThan(decimal.NewFromInt(hi))
	}
	switch to.Kind() {
	case ptype.KindNumeric, ptype.KindDecimal:
		return wholeDigits(d.Round(int32(to.Scale()))) <= to.Precision()-to.Scale()
	}
	return true
}

// wholeDigits counts the digits left of the decimal point, with zero
// counting as none.
func wholeDigits(d decimal.Decimal) int {
	whole := d.Abs().Truncate(0)
	if whole.IsZero() {
		return 0
	}
	return len(whole.String())
}

// minRows is a lower bound on the rows rel produces.
func minRows(rel plan.Rel) int {
	switch r := rel.(type) {
	case *plan.Scan:
		return literalCollectionSize(r.Source())
	case *plan.Iterate:
		return literalCollectionSize(r.Source())
	case *plan.Project:
		return minRows(r.Input())
	case *plan.Sort:
		return minRows(r.Input())
	case *plan.Limit:
		n := minRows(r.Input())
		if l, ok := r.Count().(*plan.Lit); ok {
			if count, ok := l.Value().(value.Int); ok && int(count) < n {
				return max(int(count), 0)
			}
		}
		return n
	}
	return 0
}

func literalCollectionSize(r plan.Rex) int {
	switch c := r.(type) {
	case *plan.Array:
		return len(c.Values())
	case *plan.Bag:
		return len(c.Values())
	}
	return 0
}
