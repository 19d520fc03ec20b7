package plan

import (
	"fmt"
	"reflect"
)

// RewriteVisitor is the visitor a rewrite dispatches through. Relational
// operators rewrite to relational operators and scalar ones to scalar ones,
// so most shape errors are caught by the compiler. OnError handles the rest:
// a child that rewrote to nil, or to the wrong concrete type where a field
// requires one (an Exclusion variable must stay a *Var).
type RewriteVisitor[C any] interface {
	RelVisitor[Rel, C]
	RexVisitor[Rex, C]
	// OnError is called with the name of the expected type and the operator
	// actually produced. It may return a replacement of the expected type;
	// anything else panics with a *MismatchError.
	OnError(expected string, actual Operator) Operator
}

// MismatchError reports a rewrite that produced an operator of the wrong
// shape. It indicates a bug in a pass, not a problem with the plan's input.
type MismatchError struct {
	Expected string
	Actual   Operator
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("plan: rewrite expected %s, got %T", e.Expected, e.Actual)
}

// RewriteOption configures a Rewriter or Transform.
type RewriteOption func(*rewriteOptions)

type rewriteOptions struct {
	factory Operators
}

// WithOperators replaces the Standard factory used to rebuild nodes.
func WithOperators(ops Operators) RewriteOption {
	return func(o *rewriteOptions) {
		o.factory = ops
	}
}

// rewriter implements every Visit method with the structural-sharing
// algorithm: rewrite each typed child through self, and rebuild the node
// through the factory only if some child reference changed.
type rewriter[C any] struct {
	factory  Operators
	self     RewriteVisitor[C]
	keepType bool
}

// Rewriter is a rewrite that preserves types: every rebuilt node gets the
// type of the node it replaces. Use it only for passes that cannot change
// static types, such as predicate simplification; otherwise use Transform.
//
// Embed *Rewriter and override the Visit methods of interest:
//
//	type renamer struct{ *plan.Rewriter[any] }
//
//	r := &renamer{}
//	r.Rewriter = plan.NewRewriter[any](r)
//	out := r.Rewrite(root, nil)
type Rewriter[C any] struct {
	rewriter[C]
}

// Transform is a rewrite whose rebuilt nodes take the type the factory
// computes from their new children. Use it for passes that may change
// types, such as inserting casts or pushing projections.
type Transform[C any] struct {
	rewriter[C]
}

// NewRewriter returns a Rewriter that dispatches through self. A nil self
// yields the identity rewrite.
func NewRewriter[C any](self RewriteVisitor[C], opts ...RewriteOption) *Rewriter[C] {
	r := &Rewriter[C]{}
	r.init(self, true, opts)
	if self == nil {
		r.self = r
	}
	return r
}

// NewTransform returns a Transform that dispatches through self. A nil self
// yields the identity transform.
func NewTransform[C any](self RewriteVisitor[C], opts ...RewriteOption) *Transform[C] {
	t := &Transform[C]{}
	t.init(self, false, opts)
	if self == nil {
		t.self = t
	}
	return t
}

func (r *rewriter[C]) init(self RewriteVisitor[C], keepType bool, opts []RewriteOption) {
	o := rewriteOptions{factory: Standard}
	for _, opt := range opts {
		opt(&o)
	}
	r.factory = o.factory
	r.self = self
	r.keepType = keepType
}

// Factory returns the factory used to rebuild nodes.
func (r *rewriter[C]) Factory() Operators { return r.factory }

// Rewrite rewrites op and returns the result, which is op itself when
// nothing changed.
func (r *rewriter[C]) Rewrite(op Operator, ctx C) Operator {
	return rewrite[C](r.self, op, ctx)
}

// RewriteRel rewrites a relational operator.
func (r *rewriter[C]) RewriteRel(rel Rel, ctx C) Rel {
	return RewriteAs[Rel, C](r.self, rel, ctx)
}

// RewriteRex rewrites a scalar operator.
func (r *rewriter[C]) RewriteRex(rex Rex, ctx C) Rex {
	return RewriteAs[Rex, C](r.self, rex, ctx)
}

// OnError panics with a *MismatchError.
func (r *rewriter[C]) OnError(expected string, actual Operator) Operator {
	panic(&MismatchError{Expected: expected, Actual: actual})
}

func rewrite[C any](v RewriteVisitor[C], op Operator, ctx C) Operator {
	switch op := op.(type) {
	case Rel:
		return AcceptRel[Rel, C](v, op, ctx)
	case Rex:
		return AcceptRex[Rex, C](v, op, ctx)
	}
	return v.OnError("plan.Operator", op)
}

// RewriteAs rewrites op through v and checks that the result is a T. On a
// mismatch it defers to v.OnError, and panics with a *MismatchError if the
// replacement is not a T either.
func RewriteAs[T Operator, C any](v RewriteVisitor[C], op T, ctx C) T {
	out := rewrite[C](v, op, ctx)
	if t, ok := out.(T); ok {
		return t
	}
	expected := reflect.TypeFor[T]().String()
	if t, ok := v.OnError(expected, out).(T); ok {
		return t
	}
	panic(&MismatchError{Expected: expected, Actual: out})
}

// VisitAll maps every item through mapper. It returns items itself when
// every result is identical to its input; otherwise it returns a copy in
// which only the changed positions differ.
func VisitAll[T comparable, C any](items []T, ctx C, mapper func(T, C) T) []T {
	var out []T
	for i, item := range items {
		m := mapper(item, ctx)
		if out == nil {
			if m == item {
				continue
			}
			out = make([]T, len(items))
			copy(out, items)
		}
		out[i] = m
	}
	if out == nil {
		return items
	}
	return out
}

// same reports whether a and b are the same slice, as returned by VisitAll
// for an unchanged list.
func same[T any](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || &a[0] == &b[0]
}

// finish applies the type policy to a freshly built node.
func finish[T Operator, C any](r *rewriter[C], old Operator, fresh T) T {
	if r.keepType {
		fresh.setType(old.Type())
	}
	return fresh
}

func (r *rewriter[C]) rel(rel Rel, ctx C) Rel {
	return RewriteAs[Rel, C](r.self, rel, ctx)
}

func (r *rewriter[C]) rex(rex Rex, ctx C) Rex {
	return RewriteAs[Rex, C](r.self, rex, ctx)
}

func (r *rewriter[C]) optRex(rex Rex, ctx C) Rex {
	if rex == nil {
		return nil
	}
	return r.rex(rex, ctx)
}

func (r *rewriter[C]) rexes(rexes []Rex, ctx C) []Rex {
	return VisitAll(rexes, ctx, r.rex)
}

func (r *rewriter[C]) collation(c *Collation, ctx C) *Collation {
	column := r.rex(c.column, ctx)
	if column == c.column {
		return c
	}
	return NewCollation(column, c.order, c.nulls)
}

func (r *rewriter[C]) measure(m *Measure, ctx C) *Measure {
	args := r.rexes(m.args, ctx)
	if same(args, m.args) {
		return m
	}
	return NewMeasure(m.agg, args, m.distinct)
}

func (r *rewriter[C]) exclusion(e *Exclusion, ctx C) *Exclusion {
	variable := RewriteAs[*Var, C](r.self, e.variable, ctx)
	if variable == e.variable {
		return e
	}
	return NewExclusion(variable, e.items)
}

func (r *rewriter[C]) windowFunction(w *WindowFunctionNode, ctx C) *WindowFunctionNode {
	args := r.rexes(w.args, ctx)
	if same(args, w.args) {
		return w
	}
	return NewWindowFunction(w.signature, args)
}

func (r *rewriter[C]) caseBranch(b *CaseBranch, ctx C) *CaseBranch {
	condition := r.rex(b.condition, ctx)
	result := r.rex(b.result, ctx)
	if condition == b.condition && result == b.result {
		return b
	}
	return NewCaseBranch(condition, result)
}

func (r *rewriter[C]) structField(f *StructField, ctx C) *StructField {
	key := r.rex(f.key, ctx)
	val := r.rex(f.value, ctx)
	if key == f.key && val == f.value {
		return f
	}
	return NewStructField(key, val)
}

func (r *rewriter[C]) VisitScan(n *Scan, ctx C) Rel {
	source := r.rex(n.source, ctx)
	if source == n.source {
		return n
	}
	return finish(r, n, r.factory.Scan(source))
}

func (r *rewriter[C]) VisitIterate(n *Iterate, ctx C) Rel {
	source := r.rex(n.source, ctx)
	if source == n.source {
		return n
	}
	return finish(r, n, r.factory.Iterate(source))
}

func (r *rewriter[C]) VisitFilter(n *Filter, ctx C) Rel {
	input := r.rel(n.input, ctx)
	predicate := r.rex(n.predicate, ctx)
	if input == n.input && predicate == n.predicate {
		return n
	}
	return finish(r, n, r.factory.Filter(input, predicate))
}

func (r *rewriter[C]) VisitProject(n *Project, ctx C) Rel {
	input := r.rel(n.input, ctx)
	projections := r.rexes(n.projections, ctx)
	if input == n.input && same(projections, n.projections) {
		return n
	}
	return finish(r, n, r.factory.Project(input, projections))
}

func (r *rewriter[C]) VisitAggregate(n *Aggregate, ctx C) Rel {
	input := r.rel(n.input, ctx)
	measures := VisitAll(n.measures, ctx, r.measure)
	groups := r.rexes(n.groups, ctx)
	if input == n.input && same(measures, n.measures) && same(groups, n.groups) {
		return n
	}
	return finish(r, n, r.factory.Aggregate(input, measures, groups))
}

func (r *rewriter[C]) VisitSort(n *Sort, ctx C) Rel {
	input := r.rel(n.input, ctx)
	collations := VisitAll(n.collations, ctx, r.collation)
	if input == n.input && same(collations, n.collations) {
		return n
	}
	return finish(r, n, r.factory.Sort(input, collations))
}

func (r *rewriter[C]) VisitLimit(n *Limit, ctx C) Rel {
	input := r.rel(n.input, ctx)
	count := r.rex(n.count, ctx)
	if input == n.input && count == n.count {
		return n
	}
	return finish(r, n, r.factory.Limit(input, count))
}

func (r *rewriter[C]) VisitOffset(n *Offset, ctx C) Rel {
	input := r.rel(n.input, ctx)
	count := r.rex(n.count, ctx)
	if input == n.input && count == n.count {
		return n
	}
	return finish(r, n, r.factory.Offset(input, count))
}

func (r *rewriter[C]) VisitJoin(n *Join, ctx C) Rel {
	left := r.rel(n.left, ctx)
	right := r.rel(n.right, ctx)
	condition := r.optRex(n.condition, ctx)
	if left == n.left && right == n.right && condition == n.condition {
		return n
	}
	return finish(r, n, r.factory.Join(left, right, condition, n.joinType))
}

func (r *rewriter[C]) VisitCorrelate(n *Correlate, ctx C) Rel {
	left := r.rel(n.left, ctx)
	right := r.rel(n.right, ctx)
	if left == n.left && right == n.right {
		return n
	}
	return finish(r, n, r.factory.Correlate(left, right, n.joinType))
}

func (r *rewriter[C]) VisitUnion(n *Union, ctx C) Rel {
	left := r.rel(n.left, ctx)
	right := r.rel(n.right, ctx)
	if left == n.left && right == n.right {
		return n
	}
	return finish(r, n, r.factory.Union(left, right, n.all))
}

func (r *rewriter[C]) VisitExcept(n *Except, ctx C) Rel {
	left := r.rel(n.left, ctx)
	right := r.rel(n.right, ctx)
	if left == n.left && right == n.right {
		return n
	}
	return finish(r, n, r.factory.Except(left, right, n.all))
}

func (r *rewriter[C]) VisitIntersect(n *Intersect, ctx C) Rel {
	left := r.rel(n.left, ctx)
	right := r.rel(n.right, ctx)
	if left == n.left && right == n.right {
		return n
	}
	return finish(r, n, r.factory.Intersect(left, right, n.all))
}

func (r *rewriter[C]) VisitDistinct(n *Distinct, ctx C) Rel {
	input := r.rel(n.input, ctx)
	if input == n.input {
		return n
	}
	return finish(r, n, r.factory.Distinct(input))
}

func (r *rewriter[C]) VisitExclude(n *Exclude, ctx C) Rel {
	input := r.rel(n.input, ctx)
	exclusions := VisitAll(n.exclusions, ctx, r.exclusion)
	if input == n.input && same(exclusions, n.exclusions) {
		return n
	}
	return finish(r, n, r.factory.Exclude(input, exclusions))
}

func (r *rewriter[C]) VisitUnpivot(n *Unpivot, ctx C) Rel {
	source := r.rex(n.source, ctx)
	if source == n.source {
		return n
	}
	return finish(r, n, r.factory.Unpivot(source))
}

func (r *rewriter[C]) VisitWindow(n *Window, ctx C) Rel {
	input := r.rel(n.input, ctx)
	functions := VisitAll(n.functions, ctx, r.windowFunction)
	partitions := r.rexes(n.partitions, ctx)
	sorts := VisitAll(n.sorts, ctx, r.collation)
	if input == n.input && same(functions, n.functions) &&
		same(partitions, n.partitions) && same(sorts, n.sorts) {
		return n
	}
	return finish(r, n, r.factory.Window(input, functions, partitions, sorts))
}

func (r *rewriter[C]) VisitLit(n *Lit, _ C) Rex     { return n }
func (r *rewriter[C]) VisitVar(n *Var, _ C) Rex     { return n }
func (r *rewriter[C]) VisitTable(n *Table, _ C) Rex { return n }
func (r *rewriter[C]) VisitError(n *Error, _ C) Rex { return n }

func (r *rewriter[C]) VisitPathKey(n *PathKey, ctx C) Rex {
	operand := r.rex(n.operand, ctx)
	key := r.rex(n.key, ctx)
	if operand == n.operand && key == n.key {
		return n
	}
	return finish(r, n, r.factory.PathKey(operand, key))
}

func (r *rewriter[C]) VisitPathIndex(n *PathIndex, ctx C) Rex {
	operand := r.rex(n.operand, ctx)
	index := r.rex(n.index, ctx)
	if operand == n.operand && index == n.index {
		return n
	}
	return finish(r, n, r.factory.PathIndex(operand, index))
}

func (r *rewriter[C]) VisitPathSymbol(n *PathSymbol, ctx C) Rex {
	operand := r.rex(n.operand, ctx)
	if operand == n.operand {
		return n
	}
	return finish(r, n, r.factory.PathSymbol(operand, n.symbol))
}

func (r *rewriter[C]) VisitCall(n *Call, ctx C) Rex {
	args := r.rexes(n.args, ctx)
	if same(args, n.args) {
		return n
	}
	return finish(r, n, r.factory.Call(n.fn, args))
}

func (r *rewriter[C]) VisitDispatch(n *Dispatch, ctx C) Rex {
	args := r.rexes(n.args, ctx)
	if same(args, n.args) {
		return n
	}
	return finish(r, n, r.factory.Dispatch(n.name, n.candidates, args))
}

func (r *rewriter[C]) VisitCase(n *Case, ctx C) Rex {
	match := r.optRex(n.match, ctx)
	branches := VisitAll(n.branches, ctx, r.caseBranch)
	def := r.optRex(n.def, ctx)
	if match == n.match && same(branches, n.branches) && def == n.def {
		return n
	}
	return finish(r, n, r.factory.Case(match, branches, def))
}

func (r *rewriter[C]) VisitCast(n *Cast, ctx C) Rex {
	operand := r.rex(n.operand, ctx)
	if operand == n.operand {
		return n
	}
	return finish(r, n, r.factory.Cast(operand, n.target))
}

func (r *rewriter[C]) VisitCoalesce(n *Coalesce, ctx C) Rex {
	args := r.rexes(n.args, ctx)
	if same(args, n.args) {
		return n
	}
	return finish(r, n, r.factory.Coalesce(args))
}

func (r *rewriter[C]) VisitNullIf(n *NullIf, ctx C) Rex {
	v1 := r.rex(n.v1, ctx)
	v2 := r.rex(n.v2, ctx)
	if v1 == n.v1 && v2 == n.v2 {
		return n
	}
	return finish(r, n, r.factory.NullIf(v1, v2))
}

func (r *rewriter[C]) VisitStruct(n *Struct, ctx C) Rex {
	fields := VisitAll(n.fields, ctx, r.structField)
	if same(fields, n.fields) {
		return n
	}
	return finish(r, n, r.factory.Struct(fields))
}

func (r *rewriter[C]) VisitArray(n *Array, ctx C) Rex {
	values := r.rexes(n.values, ctx)
	if same(values, n.values) {
		return n
	}
	return finish(r, n, r.factory.Array(values))
}

func (r *rewriter[C]) VisitBag(n *Bag, ctx C) Rex {
	values := r.rexes(n.values, ctx)
	if same(values, n.values) {
		return n
	}
	return finish(r, n, r.factory.Bag(values))
}

func (r *rewriter[C]) VisitSelect(n *Select, ctx C) Rex {
	input := r.rel(n.input, ctx)
	constructor := r.rex(n.constructor, ctx)
	if input == n.input && constructor == n.constructor {
		return n
	}
	return finish(r, n, r.factory.Select(input, constructor))
}

func (r *rewriter[C]) VisitPivot(n *Pivot, ctx C) Rex {
	input := r.rel(n.input, ctx)
	key := r.rex(n.key, ctx)
	val := r.rex(n.value, ctx)
	if input == n.input && key == n.key && val == n.value {
		return n
	}
	return finish(r, n, r.factory.Pivot(input, key, val))
}

func (r *rewriter[C]) VisitSpread(n *Spread, ctx C) Rex {
	args := r.rexes(n.args, ctx)
	if same(args, n.args) {
		return n
	}
	return finish(r, n, r.factory.Spread(args))
}

func (r *rewriter[C]) VisitSubquery(n *Subquery, ctx C) Rex {
	input := r.rel(n.input, ctx)
	constructor := r.rex(n.constructor, ctx)
	if input == n.input && constructor == n.constructor {
		return n
	}
	return finish(r, n, r.factory.Subquery(input, constructor, n.scalar))
}

func (r *rewriter[C]) VisitSubqueryComp(n *SubqueryComp, ctx C) Rex {
	input := r.rel(n.input, ctx)
	args := r.rexes(n.args, ctx)
	if input == n.input && same(args, n.args) {
		return n
	}
	return finish(r, n, r.factory.SubqueryComp(input, args, n.comparison, n.quantifier))
}

func (r *rewriter[C]) VisitSubqueryIn(n *SubqueryIn, ctx C) Rex {
	input := r.rel(n.input, ctx)
	args := r.rexes(n.args, ctx)
	if input == n.input && same(args, n.args) {
		return n
	}
	return finish(r, n, r.factory.SubqueryIn(input, args))
}

func (r *rewriter[C]) VisitSubqueryTest(n *SubqueryTest, ctx C) Rex {
	input := r.rel(n.input, ctx)
	if input == n.input {
		return n
	}
	return finish(r, n, r.factory.SubqueryTest(input, n.test))
}
