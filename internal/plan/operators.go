package plan

import (
	"strconv"
	"strings"

	"github.com/roach88/planir/internal/ptype"
	"github.com/roach88/planir/internal/value"
)

// Operators constructs plan nodes. It is the only way to build an operator
// and the hook rewrites use to rebuild a node whose children changed.
//
// Standard computes each node's type from its children. To customize
// construction, embed Operators in a struct and override the methods of
// interest:
//
//	type myOps struct{ plan.Operators }
//
//	func (o myOps) Filter(input plan.Rel, predicate plan.Rex) *plan.Filter {
//		return o.Operators.Filter(input, simplify(predicate))
//	}
//
// Implementations must return a freshly allocated node from every call;
// Rewriter sets the type of the node it gets back.
type Operators interface {
	Scan(source Rex) *Scan
	Iterate(source Rex) *Iterate
	Filter(input Rel, predicate Rex) *Filter
	Project(input Rel, projections []Rex) *Project
	Aggregate(input Rel, measures []*Measure, groups []Rex) *Aggregate
	Sort(input Rel, collations []*Collation) *Sort
	Limit(input Rel, count Rex) *Limit
	Offset(input Rel, count Rex) *Offset
	// Join builds a join; a nil condition joins every pair of rows.
	Join(left, right Rel, condition Rex, joinType JoinType) *Join
	Correlate(left, right Rel, joinType JoinType) *Correlate
	Union(left, right Rel, all bool) *Union
	Except(left, right Rel, all bool) *Except
	Intersect(left, right Rel, all bool) *Intersect
	Distinct(input Rel) *Distinct
	Exclude(input Rel, exclusions []*Exclusion) *Exclude
	Unpivot(source Rex) *Unpivot
	Window(input Rel, functions []*WindowFunctionNode, partitions []Rex, sorts []*Collation) *Window

	Lit(d value.Datum) *Lit
	Var(scope, offset int, typ ptype.PType) *Var
	Table(ref *TableRef) *Table
	Error(message string) *Error
	PathKey(operand, key Rex) *PathKey
	PathIndex(operand, index Rex) *PathIndex
	PathSymbol(operand Rex, symbol string) *PathSymbol
	Call(fn *FnSignature, args []Rex) *Call
	Dispatch(name string, candidates []*FnSignature, args []Rex) *Dispatch
	Case(match Rex, branches []*CaseBranch, def Rex) *Case
	Cast(operand Rex, target ptype.PType) *Cast
	Coalesce(args []Rex) *Coalesce
	NullIf(v1, v2 Rex) *NullIf
	Struct(fields []*StructField) *Struct
	Array(values []Rex) *Array
	Bag(values []Rex) *Bag
	Select(input Rel, constructor Rex) *Select
	Pivot(input Rel, key, value Rex) *Pivot
	Spread(args []Rex) *Spread
	Subquery(input Rel, constructor Rex, scalar bool) *Subquery
	SubqueryComp(input Rel, args []Rex, comparison Comparison, quantifier Quantifier) *SubqueryComp
	SubqueryIn(input Rel, args []Rex) *SubqueryIn
	SubqueryTest(input Rel, test TestKind) *SubqueryTest
}

// Standard is the default factory.
var Standard Operators = standard{}

type standard struct{}

func (standard) Scan(source Rex) *Scan {
	return &Scan{base: base{typ: elementRow(source.Type())}, source: source}
}

func (standard) Iterate(source Rex) *Iterate {
	return &Iterate{base: base{typ: elementRow(source.Type())}, source: source}
}

func (standard) Filter(input Rel, predicate Rex) *Filter {
	return &Filter{base: base{typ: input.Type()}, input: input, predicate: predicate}
}

func (standard) Project(input Rel, projections []Rex) *Project {
	fields := make([]ptype.Field, len(projections))
	for i, p := range projections {
		fields[i] = ptype.F(positional(i), p.Type())
	}
	return &Project{base: base{typ: ptype.Row(fields...)}, input: input, projections: projections}
}

// Aggregate's row holds the measure results followed by the group keys.
func (standard) Aggregate(input Rel, measures []*Measure, groups []Rex) *Aggregate {
	fields := make([]ptype.Field, 0, len(measures)+len(groups))
	for _, m := range measures {
		fields = append(fields, ptype.F(positional(len(fields)), m.agg.Returns))
	}
	for _, g := range groups {
		fields = append(fields, ptype.F(positional(len(fields)), g.Type()))
	}
	return &Aggregate{
		base:     base{typ: ptype.Row(fields...)},
		input:    input,
		measures: measures,
		groups:   groups,
	}
}

func (standard) Sort(input Rel, collations []*Collation) *Sort {
	return &Sort{base: base{typ: input.Type()}, input: input, collations: collations}
}

func (standard) Limit(input Rel, count Rex) *Limit {
	return &Limit{base: base{typ: input.Type()}, input: input, count: count}
}

func (standard) Offset(input Rel, count Rex) *Offset {
	return &Offset{base: base{typ: input.Type()}, input: input, count: count}
}

func (standard) Join(left, right Rel, condition Rex, joinType JoinType) *Join {
	return &Join{
		base:      base{typ: concatRows(left.Type(), right.Type())},
		left:      left,
		right:     right,
		condition: condition,
		joinType:  joinType,
	}
}

func (standard) Correlate(left, right Rel, joinType JoinType) *Correlate {
	return &Correlate{
		base:     base{typ: concatRows(left.Type(), right.Type())},
		left:     left,
		right:    right,
		joinType: joinType,
	}
}

func (standard) Union(left, right Rel, all bool) *Union {
	return &Union{base: base{typ: left.Type()}, left: left, right: right, all: all}
}

func (standard) Except(left, right Rel, all bool) *Except {
	return &Except{base: base{typ: left.Type()}, left: left, right: right, all: all}
}

func (standard) Intersect(left, right Rel, all bool) *Intersect {
	return &Intersect{base: base{typ: left.Type()}, left: left, right: right, all: all}
}

func (standard) Distinct(input Rel) *Distinct {
	return &Distinct{base: base{typ: input.Type()}, input: input}
}

// Exclude keeps the input type; path removal is not tracked in types.
func (standard) Exclude(input Rel, exclusions []*Exclusion) *Exclude {
	return &Exclude{base: base{typ: input.Type()}, input: input, exclusions: exclusions}
}

func (standard) Unpivot(source Rex) *Unpivot {
	typ := ptype.Row(ptype.F("key", ptype.String()), ptype.F("value", ptype.Dynamic()))
	return &Unpivot{base: base{typ: typ}, source: source}
}

// Window appends one field per function, named after the function.
func (standard) Window(input Rel, functions []*WindowFunctionNode, partitions []Rex, sorts []*Collation) *Window {
	typ := ptype.Dynamic()
	if in := input.Type(); in.Kind() == ptype.KindRow {
		fields := in.Fields()
		for _, f := range functions {
			fields = append(fields, ptype.F(strings.ToLower(f.signature.Name), f.signature.Returns))
		}
		typ = ptype.Row(fields...)
	}
	return &Window{
		base:       base{typ: typ},
		input:      input,
		functions:  functions,
		partitions: partitions,
		sorts:      sorts,
	}
}

func (standard) Lit(d value.Datum) *Lit {
	return &Lit{base: base{typ: d.Type()}, value: d}
}

func (standard) Var(scope, offset int, typ ptype.PType) *Var {
	return &Var{base: base{typ: typ}, scope: scope, offset: offset}
}

func (standard) Table(ref *TableRef) *Table {
	return &Table{base: base{typ: ref.Schema}, ref: ref}
}

func (standard) Error(message string) *Error {
	return &Error{base: base{typ: ptype.Dynamic()}, message: message}
}

func (standard) PathKey(operand, key Rex) *PathKey {
	typ := ptype.Dynamic()
	if k, ok := key.(*Lit); ok {
		if s, ok := k.value.(value.String); ok {
			if f, ok := fieldByKey(operand.Type(), string(s)); ok {
				typ = f.Type
			}
		}
	}
	return &PathKey{base: base{typ: typ}, operand: operand, key: key}
}

func (standard) PathIndex(operand, index Rex) *PathIndex {
	typ := ptype.Dynamic()
	if t := operand.Type(); t.Kind() == ptype.KindArray {
		typ = t.TypeParameter()
	}
	return &PathIndex{base: base{typ: typ}, operand: operand, index: index}
}

func (standard) PathSymbol(operand Rex, symbol string) *PathSymbol {
	typ := ptype.Dynamic()
	if f, ok := fieldBySymbol(operand.Type(), symbol); ok {
		typ = f.Type
	}
	return &PathSymbol{base: base{typ: typ}, operand: operand, symbol: symbol}
}

func (standard) Call(fn *FnSignature, args []Rex) *Call {
	return &Call{base: base{typ: fn.Returns}, fn: fn, args: args}
}

// Dispatch is typed by its candidates' common return type.
func (standard) Dispatch(name string, candidates []*FnSignature, args []Rex) *Dispatch {
	returns := make([]ptype.PType, len(candidates))
	for i, c := range candidates {
		returns[i] = c.Returns
	}
	return &Dispatch{
		base:       base{typ: ptype.Common(returns...)},
		name:       name,
		candidates: candidates,
		args:       args,
	}
}

func (standard) Case(match Rex, branches []*CaseBranch, def Rex) *Case {
	results := make([]ptype.PType, 0, len(branches)+1)
	for _, b := range branches {
		results = append(results, b.result.Type())
	}
	if def != nil {
		results = append(results, def.Type())
	}
	return &Case{base: base{typ: ptype.Common(results...)}, match: match, branches: branches, def: def}
}

func (standard) Cast(operand Rex, target ptype.PType) *Cast {
	return &Cast{base: base{typ: target}, operand: operand, target: target}
}

func (standard) Coalesce(args []Rex) *Coalesce {
	return &Coalesce{base: base{typ: commonOf(args)}, args: args}
}

func (standard) NullIf(v1, v2 Rex) *NullIf {
	return &NullIf{base: base{typ: v1.Type()}, v1: v1, v2: v2}
}

// Struct is typed as a ROW when every key is a string literal, and as an
// open STRUCT otherwise.
func (standard) Struct(fields []*StructField) *Struct {
	typ := ptype.Struct()
	row := make([]ptype.Field, 0, len(fields))
	for _, f := range fields {
		k, ok := f.key.(*Lit)
		if !ok {
			break
		}
		s, ok := k.value.(value.String)
		if !ok {
			break
		}
		row = append(row, ptype.F(string(s), f.value.Type()))
	}
	if len(row) == len(fields) {
		typ = ptype.Row(row...)
	}
	return &Struct{base: base{typ: typ}, fields: fields}
}

func (standard) Array(values []Rex) *Array {
	return &Array{base: base{typ: ptype.Array(commonOf(values))}, values: values}
}

func (standard) Bag(values []Rex) *Bag {
	return &Bag{base: base{typ: ptype.Bag(commonOf(values))}, values: values}
}

// Select is an ARRAY when its input is ordered and a BAG otherwise.
func (standard) Select(input Rel, constructor Rex) *Select {
	typ := ptype.Bag(constructor.Type())
	if ordered(input) {
		typ = ptype.Array(constructor.Type())
	}
	return &Select{base: base{typ: typ}, input: input, constructor: constructor}
}

func (standard) Pivot(input Rel, key, value Rex) *Pivot {
	return &Pivot{base: base{typ: ptype.Struct()}, input: input, key: key, value: value}
}

func (standard) Spread(args []Rex) *Spread {
	return &Spread{base: base{typ: ptype.Struct()}, args: args}
}

func (standard) Subquery(input Rel, constructor Rex, scalar bool) *Subquery {
	typ := constructor.Type()
	if !scalar {
		typ = ptype.Bag(typ)
	}
	return &Subquery{base: base{typ: typ}, input: input, constructor: constructor, scalar: scalar}
}

func (standard) SubqueryComp(input Rel, args []Rex, comparison Comparison, quantifier Quantifier) *SubqueryComp {
	return &SubqueryComp{
		base:       base{typ: ptype.Bool()},
		input:      input,
		args:       args,
		comparison: comparison,
		quantifier: quantifier,
	}
}

func (standard) SubqueryIn(input Rel, args []Rex) *SubqueryIn {
	return &SubqueryIn{base: base{typ: ptype.Bool()}, input: input, args: args}
}

func (standard) SubqueryTest(input Rel, test TestKind) *SubqueryTest {
	return &SubqueryTest{base: base{typ: ptype.Bool()}, input: input, test: test}
}

// positional names the i-th unnamed column: _1, _2, ...
func positional(i int) string {
	return "_" + strconv.Itoa(i+1)
}

// elementRow is the row type produced by scanning a value of type t: the
// element type of a collection whose elements are rows, DYNAMIC otherwise.
func elementRow(t ptype.PType) ptype.PType {
	if !t.Kind().IsCollection() {
		return ptype.Dynamic()
	}
	if elem := t.TypeParameter(); elem.Kind() == ptype.KindRow {
		return elem
	}
	return ptype.Dynamic()
}

func concatRows(left, right ptype.PType) ptype.PType {
	if left.Kind() != ptype.KindRow || right.Kind() != ptype.KindRow {
		return ptype.Dynamic()
	}
	return ptype.Row(append(left.Fields(), right.Fields()...)...)
}

func commonOf(rexes []Rex) ptype.PType {
	ts := make([]ptype.PType, len(rexes))
	for i, r := range rexes {
		ts[i] = r.Type()
	}
	return ptype.Common(ts...)
}

// ordered reports whether rel produces rows in a defined order.
func ordered(rel Rel) bool {
	switch r := rel.(type) {
	case *Sort:
		return true
	case *Limit:
		return ordered(r.input)
	case *Offset:
		return ordered(r.input)
	case *Project:
		return ordered(r.input)
	case *Filter:
		return ordered(r.input)
	}
	return false
}

func fieldByKey(t ptype.PType, key string) (ptype.Field, bool) {
	if t.Kind() != ptype.KindRow {
		return ptype.Field{}, false
	}
	for _, f := range t.Fields() {
		if f.Name == key {
			return f, true
		}
	}
	return ptype.Field{}, false
}

// fieldBySymbol matches case-insensitively and succeeds only on a unique
// match.
func fieldBySymbol(t ptype.PType, symbol string) (ptype.Field, bool) {
	if t.Kind() != ptype.KindRow {
		return ptype.Field{}, false
	}
	var found ptype.Field
	n := 0
	for _, f := range t.Fields() {
		if strings.EqualFold(f.Name, symbol) {
			found = f
			n++
		}
	}
	return found, n == 1
}
