package explain

import (
	"github.com/roach88/planir/internal/plan"
	"github.com/roach88/planir/internal/ptype"
	"github.com/roach88/planir/internal/value"
)

// Document converts op to its document form: nested maps of strings, ints,
// bools and slices that canonical JSON accepts. Every node carries "op"
// (its plan.Name) and "type"; the remaining keys are the node's fields.
// Optional children that are absent are omitted. The planfile package
// decodes the same form.
func Document(op plan.Operator) map[string]any {
	return plan.Accept[map[string]any, struct{}](documenter{}, op, struct{}{})
}

type documenter struct{}

func (d documenter) node(op plan.Operator, fields ...any) map[string]any {
	m := map[string]any{"op": plan.Name(op), "type": op.Type().String()}
	for i := 0; i+1 < len(fields); i += 2 {
		m[fields[i].(string)] = fields[i+1]
	}
	return m
}

func (d documenter) doc(op plan.Operator) map[string]any {
	return plan.Accept[map[string]any, struct{}](d, op, struct{}{})
}

func (d documenter) docs(rexes []plan.Rex) []any {
	out := make([]any, len(rexes))
	for i, r := range rexes {
		out[i] = d.doc(r)
	}
	return out
}

func (d documenter) collations(cs []*plan.Collation) []any {
	out := make([]any, len(cs))
	for i, c := range cs {
		out[i] = map[string]any{
			"column": d.doc(c.Column()),
			"order":  c.Order().String(),
			"nulls":  c.Nulls().String(),
		}
	}
	return out
}

func types(ts []ptype.PType) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.String()
	}
	return out
}

func fnDocument(fn *plan.FnSignature) map[string]any {
	return map[string]any{
		"name":      fn.Name,
		"params":    types(fn.Params),
		"returns":   fn.Returns.String(),
		"null_call": fn.NullCall,
	}
}

func exclusionItems(items []plan.ExclusionItem) []any {
	out := make([]any, len(items))
	for i, item := range items {
		var m map[string]any
		switch it := item.(type) {
		case plan.ExcludeKey:
			m = map[string]any{"key": it.Key}
		case plan.ExcludeSymbol:
			m = map[string]any{"symbol": it.Symbol}
		case plan.ExcludeIndex:
			m = map[string]any{"index": it.Index}
		case plan.ExcludeStructWildcard:
			m = map[string]any{"struct_wildcard": true}
		case plan.ExcludeCollWildcard:
			m = map[string]any{"coll_wildcard": true}
		}
		if next := item.Items(); len(next) > 0 {
			m["next"] = exclusionItems(next)
		}
		out[i] = m
	}
	return out
}

func (d documenter) VisitScan(n *plan.Scan, _ struct{}) map[string]any {
	return d.node(n, "source", d.doc(n.Source()))
}

func (d documenter) VisitIterate(n *plan.Iterate, _ struct{}) map[string]any {
	return d.node(n, "source", d.doc(n.Source()))
}

func (d documenter) VisitFilter(n *plan.Filter, _ struct{}) map[string]any {
	return d.node(n, "input", d.doc(n.Input()), "predicate", d.doc(n.Predicate()))
}

func (d documenter) VisitProject(n *plan.Project, _ struct{}) map[string]any {
	return d.node(n, "input", d.doc(n.Input()), "projections", d.docs(n.Projections()))
}

func (d documenter) VisitAggregate(n *plan.Aggregate, _ struct{}) map[string]any {
	measures := make([]any, len(n.Measures()))
	for i, m := range n.Measures() {
		measures[i] = map[string]any{
			"agg": map[string]any{
				"name":    m.Agg().Name,
				"params":  types(m.Agg().Params),
				"returns": m.Agg().Returns.String(),
			},
			"args":     d.docs(m.Args()),
			"distinct": m.Distinct(),
		}
	}
	return d.node(n, "input", d.doc(n.Input()), "measures", measures, "groups", d.docs(n.Groups()))
}

func (d documenter) VisitSort(n *plan.Sort, _ struct{}) map[string]any {
	return d.node(n, "input", d.doc(n.Input()), "collations", d.collations(n.Collations()))
}

func (d documenter) VisitLimit(n *plan.Limit, _ struct{}) map[string]any {
	return d.node(n, "input", d.doc(n.Input()), "count", d.doc(n.Count()))
}

func (d documenter) VisitOffset(n *plan.Offset, _ struct{}) map[string]any {
	return d.node(n, "input", d.doc(n.Input()), "count", d.doc(n.Count()))
}

func (d documenter) VisitJoin(n *plan.Join, _ struct{}) map[string]any {
	m := d.node(n, "left", d.doc(n.Left()), "right", d.doc(n.Right()), "join_type", n.JoinType().String())
	if n.Condition() != nil {
		m["condition"] = d.doc(n.Condition())
	}
	return m
}

func (d documenter) VisitCorrelate(n *plan.Correlate, _ struct{}) map[string]any {
	return d.node(n, "left", d.doc(n.Left()), "right", d.doc(n.Right()), "join_type", n.JoinType().String())
}

func (d documenter) VisitUnion(n *plan.Union, _ struct{}) map[string]any {
	return d.node(n, "left", d.doc(n.Left()), "right", d.doc(n.Right()), "all", n.All())
}

func (d documenter) VisitExcept(n *plan.Except, _ struct{}) map[string]any {
	return d.node(n, "left", d.doc(n.Left()), "right", d.doc(n.Right()), "all", n.All())
}

func (d documenter) VisitIntersect(n *plan.Intersect, _ struct{}) map[string]any {
	return d.node(n, "left", d.doc(n.Left()), "right", d.doc(n.Right()), "all", n.All())
}

func (d documenter) VisitDistinct(n *plan.Distinct, _ struct{}) map[string]any {
	return d.node(n, "input", d.doc(n.Input()))
}

func (d documenter) VisitExclude(n *plan.Exclude, _ struct{}) map[string]any {
	exclusions := make([]any, len(n.Exclusions()))
	for i, e := range n.Exclusions() {
		exclusions[i] = map[string]any{
			"var":   d.doc(e.Variable()),
			"items": exclusionItems(e.Items()),
		}
	}
	return d.node(n, "input", d.doc(n.Input()), "exclusions", exclusions)
}

func (d documenter) VisitUnpivot(n *plan.Unpivot, _ struct{}) map[string]any {
	return d.node(n, "source", d.doc(n.Source()))
}

func (d documenter) VisitWindow(n *plan.Window, _ struct{}) map[string]any {
	functions := make([]any, len(n.Functions()))
	for i, f := range n.Functions() {
		sig := f.Signature()
		functions[i] = map[string]any{
			"fn": map[string]any{
				"name":         sig.Name,
				"params":       types(sig.Params),
				"returns":      sig.Returns.String(),
				"ignore_nulls": sig.IgnoreNulls,
			},
			"args": d.docs(f.Args()),
		}
	}
	return d.node(n,
		"input", d.doc(n.Input()),
		"functions", functions,
		"partitions", d.docs(n.Partitions()),
		"sorts", d.collations(n.Sorts()),
	)
}

func (d documenter) VisitLit(n *plan.Lit, _ struct{}) map[string]any {
	return d.node(n, "value", value.Document(n.Value()))
}

func (d documenter) VisitVar(n *plan.Var, _ struct{}) map[string]any {
	return d.node(n, "scope", n.Scope(), "offset", n.Offset())
}

func (d documenter) VisitTable(n *plan.Table, _ struct{}) map[string]any {
	return d.node(n, "name", n.Ref().Name, "schema", n.Ref().Schema.String())
}

func (d documenter) VisitError(n *plan.Error, _ struct{}) map[string]any {
	return d.node(n, "message", n.Message())
}

func (d documenter) VisitPathKey(n *plan.PathKey, _ struct{}) map[string]any {
	return d.node(n, "operand", d.doc(n.Operand()), "key", d.doc(n.Key()))
}

func (d documenter) VisitPathIndex(n *plan.PathIndex, _ struct{}) map[string]any {
	return d.node(n, "operand", d.doc(n.Operand()), "index", d.doc(n.Index()))
}

func (d documenter) VisitPathSymbol(n *plan.PathSymbol, _ struct{}) map[string]any {
	return d.node(n, "operand", d.doc(n.Operand()), "symbol", n.Symbol())
}

func (d documenter) VisitCall(n *plan.Call, _ struct{}) map[string]any {
	return d.node(n, "fn", fnDocument(n.Fn()), "args", d.docs(n.Args()))
}

func (d documenter) VisitDispatch(n *plan.Dispatch, _ struct{}) map[string]any {
	candidates := make([]any, len(n.Candidates()))
	for i, c := range n.Candidates() {
		candidates[i] = fnDocument(c)
	}
	return d.node(n, "name", n.Name(), "candidates", candidates, "args", d.docs(n.Args()))
}

func (d documenter) VisitCase(n *plan.Case, _ struct{}) map[string]any {
	branches := make([]any, len(n.Branches()))
	for i, b := range n.Branches() {
		branches[i] = map[string]any{"condition": d.doc(b.Condition()), "result": d.doc(b.Result())}
	}
	m := d.node(n, "branches", branches)
	if n.Match() != nil {
		m["match"] = d.doc(n.Match())
	}
	if n.Default() != nil {
		m["default"] = d.doc(n.Default())
	}
	return m
}

func (d documenter) VisitCast(n *plan.Cast, _ struct{}) map[string]any {
	return d.node(n, "operand", d.doc(n.Operand()), "target", n.Target().String())
}

func (d documenter) VisitCoalesce(n *plan.Coalesce, _ struct{}) map[string]any {
	return d.node(n, "args", d.docs(n.Args()))
}

func (d documenter) VisitNullIf(n *plan.NullIf, _ struct{}) map[string]any {
	return d.node(n, "v1", d.doc(n.V1()), "v2", d.doc(n.V2()))
}

func (d documenter) VisitStruct(n *plan.Struct, _ struct{}) map[string]any {
	fields := make([]any, len(n.Fields()))
	for i, f := range n.Fields() {
		fields[i] = map[string]any{"key": d.doc(f.Key()), "value": d.doc(f.Value())}
	}
	return d.node(n, "fields", fields)
}

func (d documenter) VisitArray(n *plan.Array, _ struct{}) map[string]any {
	return d.node(n, "values", d.docs(n.Values()))
}

func (d documenter) VisitBag(n *plan.Bag, _ struct{}) map[string]any {
	return d.node(n, "values", d.docs(n.Values()))
}

func (d documenter) VisitSelect(n *plan.Select, _ struct{}) map[string]any {
	return d.node(n, "input", d.doc(n.Input()), "constructor", d.doc(n.Constructor()))
}

func (d documenter) VisitPivot(n *plan.Pivot, _ struct{}) map[string]any {
	return d.node(n, "input", d.doc(n.Input()), "key", d.doc(n.Key()), "value", d.doc(n.Value()))
}

func (d documenter) VisitSpread(n *plan.Spread, _ struct{}) map[string]any {
	return d.node(n, "args", d.docs(n.Args()))
}

func (d documenter) VisitSubquery(n *plan.Subquery, _ struct{}) map[string]any {
	return d.node(n, "input", d.doc(n.Input()), "constructor", d.doc(n.Constructor()), "scalar", n.Scalar())
}

func (d documenter) VisitSubqueryComp(n *plan.SubqueryComp, _ struct{}) map[string]any {
	return d.node(n,
		"input", d.doc(n.Input()),
		"args", d.docs(n.Args()),
		"comparison", n.Comparison().String(),
		"quantifier", n.Quantifier().String(),
	)
}

func (d documenter) VisitSubqueryIn(n *plan.SubqueryIn, _ struct{}) map[string]any {
	return d.node(n, "input", d.doc(n.Input()), "args", d.docs(n.Args()))
}

func (d documenter) VisitSubqueryTest(n *plan.SubqueryTest, _ struct{}) map[string]any {
	return d.node(n, "input", d.doc(n.Input()), "test", n.Test().String())
}
