package planfile

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/planir/internal/plan"
	"github.com/roach88/planir/internal/ptype"
	"github.com/roach88/planir/internal/value"
)

// decoder turns a node tree into operators. Errors are raised as
// *LoadError panics and recovered by run.
type decoder struct {
	ops    plan.Operators
	file   string
	tables map[string]*plan.TableRef
}

func newDecoder(file string, o options) *decoder {
	return &decoder{ops: o.ops, file: file, tables: make(map[string]*plan.TableRef)}
}

func (d *decoder) run(root *node) (op plan.Operator, err error) {
	defer func() {
		if r := recover(); r != nil {
			le, ok := r.(*LoadError)
			if !ok {
				panic(r)
			}
			err = le
		}
	}()
	return d.operator(root), nil
}

func (d *decoder) fail(n *node, format string, args ...any) {
	panic(&LoadError{
		File:    d.file,
		Line:    n.line,
		Column:  n.column,
		Path:    n.path,
		Message: fmt.Sprintf(format, args...),
	})
}

func (d *decoder) object(n *node, allowed ...string) {
	if n.kind != kindMap {
		d.fail(n, "expected mapping, got %s", n.kind)
	}
	for _, k := range n.keys {
		if !slices.Contains(allowed, k) {
			d.fail(n.fields[k], "unknown field %q", k)
		}
	}
}

func (d *decoder) required(n *node, key string) *node {
	c, ok := n.fields[key]
	if !ok {
		d.fail(n, "missing field %q", key)
	}
	return c
}

func (d *decoder) str(n *node) string {
	s, ok := n.scalar.(string)
	if n.kind != kindScalar || !ok {
		d.fail(n, "expected string")
	}
	return s
}

func (d *decoder) integer(n *node) int {
	i, ok := asInt(n.scalar)
	if n.kind != kindScalar || !ok {
		d.fail(n, "expected integer")
	}
	return i
}

func (d *decoder) boolean(n *node) bool {
	b, ok := n.scalar.(bool)
	if n.kind != kindScalar || !ok {
		d.fail(n, "expected boolean")
	}
	return b
}

func (d *decoder) optBool(n *node, key string) bool {
	c, ok := n.fields[key]
	if !ok {
		return false
	}
	return d.boolean(c)
}

func (d *decoder) list(n *node) []*node {
	if n.kind != kindList {
		d.fail(n, "expected list, got %s", n.kind)
	}
	return n.items
}

// optList treats a missing or null field as an empty list.
func (d *decoder) optList(n *node, key string) []*node {
	c, ok := n.fields[key]
	if !ok || (c.kind == kindScalar && c.scalar == nil) {
		return nil
	}
	return d.list(c)
}

func (d *decoder) typ(n *node) ptype.PType {
	t, err := ptype.Parse(d.str(n))
	if err != nil {
		d.fail(n, "%v", err)
	}
	return t
}

func (d *decoder) types(n *node, key string) []ptype.PType {
	items := d.optList(n, key)
	out := make([]ptype.PType, len(items))
	for i, item := range items {
		out[i] = d.typ(item)
	}
	return out
}

func (d *decoder) rel(n *node) plan.Rel {
	op := d.operator(n)
	rel, ok := op.(plan.Rel)
	if !ok {
		d.fail(n, "expected a relational operator, got %s", plan.Name(op))
	}
	return rel
}

func (d *decoder) rex(n *node) plan.Rex {
	op := d.operator(n)
	rex, ok := op.(plan.Rex)
	if !ok {
		d.fail(n, "expected a scalar operator, got %s", plan.Name(op))
	}
	return rex
}

func (d *decoder) optRex(n *node, key string) plan.Rex {
	c, ok := n.fields[key]
	if !ok {
		return nil
	}
	return d.rex(c)
}

func (d *decoder) rexes(n *node, key string) []plan.Rex {
	items := d.optList(n, key)
	out := make([]plan.Rex, len(items))
	for i, item := range items {
		out[i] = d.rex(item)
	}
	return out
}

// enum matches s against the String of each candidate.
func enum[E fmt.Stringer](d *decoder, n *node, candidates ...E) E {
	s := d.str(n)
	names := make([]string, len(candidates))
	for i, c := range candidates {
		if strings.EqualFold(c.String(), s) {
			return c
		}
		names[i] = c.String()
	}
	d.fail(n, "unknown value %q, want one of %s", s, strings.Join(names, ", "))
	panic("unreachable")
}

func (d *decoder) joinType(n *node) plan.JoinType {
	return enum(d, n, plan.JoinInner, plan.JoinLeft, plan.JoinRight, plan.JoinFull)
}

func (d *decoder) collations(n *node, key string) []*plan.Collation {
	items := d.optList(n, key)
	out := make([]*plan.Collation, len(items))
	for i, item := range items {
		d.object(item, "column", "order", "nulls")
		order, nulls := plan.Asc, plan.NullsLast
		if c, ok := item.fields["order"]; ok {
			order = enum(d, c, plan.Asc, plan.Desc)
		}
		if c, ok := item.fields["nulls"]; ok {
			nulls = enum(d, c, plan.NullsLast, plan.NullsFirst)
		}
		out[i] = plan.NewCollation(d.rex(d.required(item, "column")), order, nulls)
	}
	return out
}

func (d *decoder) fn(n *node) *plan.FnSignature {
	d.object(n, "name", "params", "returns", "null_call")
	return &plan.FnSignature{
		Name:     d.str(d.required(n, "name")),
		Params:   d.types(n, "params"),
		Returns:  d.typ(d.required(n, "returns")),
		NullCall: d.optBool(n, "null_call"),
	}
}

func (d *decoder) measures(n *node) []*plan.Measure {
	items := d.optList(n, "measures")
	out := make([]*plan.Measure, len(items))
	for i, item := range items {
		d.object(item, "agg", "args", "distinct")
		agg := d.required(item, "agg")
		d.object(agg, "name", "params", "returns")
		sig := &plan.AggSignature{
			Name:    d.str(d.required(agg, "name")),
			Params:  d.types(agg, "params"),
			Returns: d.typ(d.required(agg, "returns")),
		}
		out[i] = plan.NewMeasure(sig, d.rexes(item, "args"), d.optBool(item, "distinct"))
	}
	return out
}

func (d *decoder) windowFunctions(n *node) []*plan.WindowFunctionNode {
	items := d.optList(n, "functions")
	out := make([]*plan.WindowFunctionNode, len(items))
	for i, item := range items {
		d.object(item, "fn", "args")
		fn := d.required(item, "fn")
		d.object(fn, "name", "params", "returns", "ignore_nulls")
		sig := &plan.WindowFunctionSignature{
			Name:        d.str(d.required(fn, "name")),
			Params:      d.types(fn, "params"),
			Returns:     d.typ(d.required(fn, "returns")),
			IgnoreNulls: d.optBool(fn, "ignore_nulls"),
		}
		out[i] = plan.NewWindowFunction(sig, d.rexes(item, "args"))
	}
	return out
}

func (d *decoder) exclusions(n *node) []*plan.Exclusion {
	items := d.optList(n, "exclusions")
	out := make([]*plan.Exclusion, len(items))
	for i, item := range items {
		d.object(item, "var", "items")
		vn := d.required(item, "var")
		v, ok := d.rex(vn).(*plan.Var)
		if !ok {
			d.fail(vn, "exclusion root must be a var")
		}
		out[i] = plan.NewExclusion(v, d.exclusionItems(item, "items"))
	}
	return out
}

func (d *decoder) exclusionItems(n *node, key string) []plan.ExclusionItem {
	items := d.optList(n, key)
	out := make([]plan.ExclusionItem, len(items))
	for i, item := range items {
		d.object(item, "key", "symbol", "index", "struct_wildcard", "coll_wildcard", "next")
		next := d.exclusionItems(item, "next")

		var steps []plan.ExclusionItem
		if c, ok := item.fields["key"]; ok {
			steps = append(steps, plan.ExcludeKey{Key: d.str(c), Next: next})
		}
		if c, ok := item.fields["symbol"]; ok {
			steps = append(steps, plan.ExcludeSymbol{Symbol: d.str(c), Next: next})
		}
		if c, ok := item.fields["index"]; ok {
			steps = append(steps, plan.ExcludeIndex{Index: d.integer(c), Next: next})
		}
		if d.optBool(item, "struct_wildcard") {
			steps = append(steps, plan.ExcludeStructWildcard{Next: next})
		}
		if d.optBool(item, "coll_wildcard") {
			steps = append(steps, plan.ExcludeCollWildcard{Next: next})
		}
		if len(steps) != 1 {
			d.fail(item, "exclusion step needs exactly one of key, symbol, index, struct_wildcard or coll_wildcard")
		}
		out[i] = steps[0]
	}
	return out
}

// table interns table references by name, so every mention of a table in
// one plan shares a *plan.TableRef.
func (d *decoder) table(n *node) *plan.TableRef {
	name := d.str(d.required(n, "name"))
	schemaNode := d.required(n, "schema")
	schema := d.typ(schemaNode)
	if ref, ok := d.tables[name]; ok {
		if !ref.Schema.Equal(schema) {
			d.fail(schemaNode, "table %q declared with schema %s and %s", name, ref.Schema, schema)
		}
		return ref
	}
	ref := &plan.TableRef{Name: name, Schema: schema}
	d.tables[name] = ref
	return ref
}

// operator decodes one node by its "op" field. A "type" field other than
// the computed type retypes the node.
func (d *decoder) operator(n *node) plan.Operator {
	if n.kind != kindMap {
		d.fail(n, "expected operator mapping, got %s", n.kind)
	}
	name := d.str(d.required(n, "op"))
	fields, ok := operatorFields[name]
	if !ok {
		d.fail(n.fields["op"], "unknown operator %q", name)
	}
	d.object(n, append([]string{"op", "type"}, fields...)...)

	op := d.build(name, n)
	if tn, ok := n.fields["type"]; ok && name != "var" {
		if t := d.typ(tn); !t.Equal(op.Type()) {
			op = plan.Retype(op, t)
		}
	}
	return op
}

var operatorFields = map[string][]string{
	"scan":          {"source"},
	"iterate":       {"source"},
	"filter":        {"input", "predicate"},
	"project":       {"input", "projections"},
	"aggregate":     {"input", "measures", "groups"},
	"sort":          {"input", "collations"},
	"limit":         {"input", "count"},
	"offset":        {"input", "count"},
	"join":          {"left", "right", "condition", "join_type"},
	"correlate":     {"left", "right", "join_type"},
	"union":         {"left", "right", "all"},
	"except":        {"left", "right", "all"},
	"intersect":     {"left", "right", "all"},
	"distinct":      {"input"},
	"exclude":       {"input", "exclusions"},
	"unpivot":       {"source"},
	"window":        {"input", "functions", "partitions", "sorts"},
	"lit":           {"value"},
	"var":           {"scope", "offset"},
	"table":         {"name", "schema"},
	"error":         {"message"},
	"path_key":      {"operand", "key"},
	"path_index":    {"operand", "index"},
	"path_symbol":   {"operand", "symbol"},
	"call":          {"fn", "args"},
	"dispatch":      {"name", "candidates", "args"},
	"case":          {"match", "branches", "default"},
	"cast":          {"operand", "target"},
	"coalesce":      {"args"},
	"nullif":        {"v1", "v2"},
	"struct":        {"fields"},
	"array":         {"values"},
	"bag":           {"values"},
	"select":        {"input", "constructor"},
	"pivot":         {"input", "key", "value"},
	"spread":        {"args"},
	"subquery":      {"input", "constructor", "scalar"},
	"subquery_comp": {"input", "args", "comparison", "quantifier"},
	"subquery_in":   {"input", "args"},
	"subquery_test": {"input", "test"},
}

func (d *decoder) build(name string, n *node) plan.Operator {
	o := d.ops
	input := func() plan.Rel { return d.rel(d.required(n, "input")) }
	left := func() plan.Rel { return d.rel(d.required(n, "left")) }
	right := func() plan.Rel { return d.rel(d.required(n, "right")) }
	rex := func(key string) plan.Rex { return d.rex(d.required(n, key)) }

	switch name {
	case "scan":
		return o.Scan(rex("source"))
	case "iterate":
		return o.Iterate(rex("source"))
	case "filter":
		return o.Filter(input(), rex("predicate"))
	case "project":
		return o.Project(input(), d.rexes(n, "projections"))
	case "aggregate":
		return o.Aggregate(input(), d.measures(n), d.rexes(n, "groups"))
	case "sort":
		return o.Sort(input(), d.collations(n, "collations"))
	case "limit":
		return o.Limit(input(), rex("count"))
	case "offset":
		return o.Offset(input(), rex("count"))
	case "join":
		jt := plan.JoinInner
		if c, ok := n.fields["join_type"]; ok {
			jt = d.joinType(c)
		}
		return o.Join(left(), right(), d.optRex(n, "condition"), jt)
	case "correlate":
		jt := plan.JoinInner
		if c, ok := n.fields["join_type"]; ok {
			jt = d.joinType(c)
		}
		return o.Correlate(left(), right(), jt)
	case "union":
		return o.Union(left(), right(), d.optBool(n, "all"))
	case "except":
		return o.Except(left(), right(), d.optBool(n, "all"))
	case "intersect":
		return o.Intersect(left(), right(), d.optBool(n, "all"))
	case "distinct":
		return o.Distinct(input())
	case "exclude":
		return o.Exclude(input(), d.exclusions(n))
	case "unpivot":
		return o.Unpivot(rex("source"))
	case "window":
		return o.Window(input(), d.windowFunctions(n), d.rexes(n, "partitions"), d.collations(n, "sorts"))

	case "lit":
		vn := d.required(n, "value")
		v, err := value.FromDocument(vn.plain())
		if err != nil {
			d.fail(vn, "%v", err)
		}
		return o.Lit(v)
	case "var":
		return o.Var(d.integer(d.required(n, "scope")), d.integer(d.required(n, "offset")), d.typ(d.required(n, "type")))
	case "table":
		return o.Table(d.table(n))
	case "error":
		return o.Error(d.str(d.required(n, "message")))
	case "path_key":
		return o.PathKey(rex("operand"), rex("key"))
	case "path_index":
		return o.PathIndex(rex("operand"), rex("index"))
	case "path_symbol":
		return o.PathSymbol(rex("operand"), d.str(d.required(n, "symbol")))
	case "call":
		return o.Call(d.fn(d.required(n, "fn")), d.rexes(n, "args"))
	case "dispatch":
		items := d.optList(n, "candidates")
		candidates := make([]*plan.FnSignature, len(items))
		for i, item := range items {
			candidates[i] = d.fn(item)
		}
		return o.Dispatch(d.str(d.required(n, "name")), candidates, d.rexes(n, "args"))
	case "case":
		items := d.optList(n, "branches")
		branches := make([]*plan.CaseBranch, len(items))
		for i, item := range items {
			d.object(item, "condition", "result")
			branches[i] = plan.NewCaseBranch(d.rex(d.required(item, "condition")), d.rex(d.required(item, "result")))
		}
		return o.Case(d.optRex(n, "match"), branches, d.optRex(n, "default"))
	case "cast":
		return o.Cast(rex("operand"), d.typ(d.required(n, "target")))
	case "coalesce":
		return o.Coalesce(d.rexes(n, "args"))
	case "nullif":
		return o.NullIf(rex("v1"), rex("v2"))
	case "struct":
		items := d.optList(n, "fields")
		fields := make([]*plan.StructField, len(items))
		for i, item := range items {
			d.object(item, "key", "value")
			fields[i] = plan.NewStructField(d.rex(d.required(item, "key")), d.rex(d.required(item, "value")))
		}
		return o.Struct(fields)
	case "array":
		return o.Array(d.rexes(n, "values"))
	case "bag":
		return o.Bag(d.rexes(n, "values"))
	case "select":
		return o.Select(input(), rex("constructor"))
	case "pivot":
		return o.Pivot(input(), rex("key"), rex("value"))
	case "spread":
		return o.Spread(d.rexes(n, "args"))
	case "subquery":
		return o.Subquery(input(), rex("constructor"), d.optBool(n, "scalar"))
	case "subquery_comp":
		comparison := enum(d, d.required(n, "comparison"),
			plan.CompEQ, plan.CompNE, plan.CompLT, plan.CompLE, plan.CompGT, plan.CompGE)
		quantifier := plan.QuantAny
		if c, ok := n.fields["quantifier"]; ok {
			quantifier = enum(d, c, plan.QuantAny, plan.QuantAll, plan.QuantSome)
		}
		return o.SubqueryComp(input(), d.rexes(n, "args"), comparison, quantifier)
	case "subquery_in":
		return o.SubqueryIn(input(), d.rexes(n, "args"))
	case "subquery_test":
		test := plan.TestExists
		if c, ok := n.fields["test"]; ok {
			test = enum(d, c, plan.TestExists, plan.TestUnique)
		}
		return o.SubqueryTest(input(), test)
	}
	d.fail(n, "unknown operator %q", name)
	return nil
}
