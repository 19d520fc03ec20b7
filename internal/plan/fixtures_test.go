package plan

import (
	"github.com/roach88/planir/internal/ptype"
	"github.com/roach88/planir/internal/value"
)

var (
	orderRow = ptype.Row(
		ptype.F("id", ptype.Integer()),
		ptype.F("customer", ptype.String()),
		ptype.F("total", ptype.Decimal(10, 2)),
	)
	ordersRef    = &TableRef{Name: "orders", Schema: ptype.Bag(orderRow)}
	customersRef = &TableRef{Name: "customers", Schema: ptype.Bag(ptype.Row(
		ptype.F("name", ptype.String()),
		ptype.F("tier", ptype.Integer()),
	))}

	absFn = &FnSignature{Name: "abs", Params: []ptype.PType{ptype.Integer()}, Returns: ptype.Integer()}
	gtFn  = &FnSignature{
		Name:    "gt",
		Params:  []ptype.PType{ptype.Integer(), ptype.Integer()},
		Returns: ptype.Bool(),
	}
	upperInt = &FnSignature{Name: "upper", Params: []ptype.PType{ptype.Integer()}, Returns: ptype.String()}
	upperStr = &FnSignature{Name: "upper", Params: []ptype.PType{ptype.String()}, Returns: ptype.String()}
	sumAgg   = &AggSignature{Name: "sum", Params: []ptype.PType{ptype.Decimal(10, 2)}, Returns: ptype.Decimal(38, 2)}
	rankFn   = &WindowFunctionSignature{Name: "RANK", Returns: ptype.BigInt()}
)

func lit(d value.Datum) *Lit { return Standard.Lit(d) }

func str(s string) *Lit { return lit(value.String(s)) }

func num(i int64) *Lit { return lit(value.Int(i)) }

// col is a reference to field offset of the local row.
func col(offset int, t ptype.PType) *Var { return Standard.Var(0, offset, t) }

func scan(ref *TableRef) *Scan { return Standard.Scan(Standard.Table(ref)) }

// everyVariant returns one instance of each Rel and Rex variant, with all
// optional children present.
func everyVariant() []Operator {
	o := Standard
	orders := scan(ordersRef)
	customers := scan(customersRef)
	id := col(0, ptype.Integer())
	total := col(2, ptype.Decimal(10, 2))
	pred := o.Call(gtFn, []Rex{id, num(10)})
	row := o.Var(0, 0, orderRow)

	return []Operator{
		orders,
		o.Iterate(o.Array([]Rex{num(1), num(2)})),
		o.Filter(orders, pred),
		o.Project(orders, []Rex{id, total}),
		o.Aggregate(orders,
			[]*Measure{NewMeasure(sumAgg, []Rex{total}, true)},
			[]Rex{col(1, ptype.String())}),
		o.Sort(orders, []*Collation{
			NewCollation(id, Asc, NullsLast),
			NewCollation(total, Desc, NullsFirst),
		}),
		o.Limit(orders, num(5)),
		o.Offset(orders, num(5)),
		o.Join(orders, customers, pred, JoinLeft),
		o.Correlate(orders, customers, JoinInner),
		o.Union(orders, customers, true),
		o.Except(orders, customers, false),
		o.Intersect(orders, customers, false),
		o.Distinct(orders),
		o.Exclude(orders, []*Exclusion{
			NewExclusion(row, []ExclusionItem{ExcludeKey{Key: "total"}}),
			NewExclusion(o.Var(0, 1, ptype.Dynamic()), []ExclusionItem{
				ExcludeCollWildcard{Next: []ExclusionItem{ExcludeSymbol{Symbol: "x"}}},
			}),
		}),
		o.Unpivot(o.Struct([]*StructField{NewStructField(str("a"), num(1))})),
		o.Window(orders,
			[]*WindowFunctionNode{NewWindowFunction(rankFn, []Rex{total})},
			[]Rex{col(1, ptype.String())},
			[]*Collation{NewCollation(total, Desc, NullsLast)}),

		num(42),
		id,
		o.Table(ordersRef),
		o.Error("unresolved variable x"),
		o.PathKey(row, str("customer")),
		o.PathIndex(o.Array([]Rex{num(1)}), num(0)),
		o.PathSymbol(row, "TOTAL"),
		pred,
		o.Dispatch("upper", []*FnSignature{upperInt, upperStr}, []Rex{col(5, ptype.Dynamic())}),
		o.Case(id, []*CaseBranch{
			NewCaseBranch(num(1), str("one")),
			NewCaseBranch(num(2), str("two")),
		}, str("many")),
		o.Cast(id, ptype.BigInt()),
		o.Coalesce([]Rex{lit(value.Null{}), num(3)}),
		o.NullIf(id, num(0)),
		o.Struct([]*StructField{
			NewStructField(str("a"), num(1)),
			NewStructField(str("b"), str("x")),
		}),
		o.Array([]Rex{num(1), num(2)}),
		o.Bag([]Rex{str("x"), str("y")}),
		o.Select(orders, id),
		o.Pivot(orders, col(1, ptype.String()), total),
		o.Spread([]Rex{row, o.Struct(nil)}),
		o.Subquery(orders, id, true),
		o.SubqueryComp(orders, []Rex{num(1)}, CompGE, QuantAll),
		o.SubqueryIn(orders, []Rex{num(1), num(2)}),
		o.SubqueryTest(orders, TestExists),
	}
}

// viaGetters derives an operator's children from its typed getters alone.
func viaGetters(op Operator) []Operator {
	var out []Operator
	add := func(children ...Operator) {
		for _, c := range children {
			if c != nil {
				out = append(out, c)
			}
		}
	}
	addRex := func(rexes []Rex) {
		for _, r := range rexes {
			add(r)
		}
	}
	addCollations := func(cs []*Collation) {
		for _, c := range cs {
			add(c.Column())
		}
	}

	switch n := op.(type) {
	case *Scan:
		add(n.Source())
	case *Iterate:
		add(n.Source())
	case *Filter:
		add(n.Input(), n.Predicate())
	case *Project:
		add(n.Input())
		addRex(n.Projections())
	case *Aggregate:
		add(n.Input())
		for _, m := range n.Measures() {
			addRex(m.Args())
		}
		addRex(n.Groups())
	case *Sort:
		add(n.Input())
		addCollations(n.Collations())
	case *Limit:
		add(n.Input(), n.Count())
	case *Offset:
		add(n.Input(), n.Count())
	case *Join:
		add(n.Left(), n.Right(), n.Condition())
	case *Correlate:
		add(n.Left(), n.Right())
	case *Union:
		add(n.Left(), n.Right())
	case *Except:
		add(n.Left(), n.Right())
	case *Intersect:
		add(n.Left(), n.Right())
	case *Distinct:
		add(n.Input())
	case *Exclude:
		add(n.Input())
		for _, e := range n.Exclusions() {
			add(e.Variable())
		}
	case *Unpivot:
		add(n.Source())
	case *Window:
		add(n.Input())
		for _, f := range n.Functions() {
			addRex(f.Args())
		}
		addRex(n.Partitions())
		addCollations(n.Sorts())
	case *Lit, *Var, *Table, *Error:
	case *PathKey:
		add(n.Operand(), n.Key())
	case *PathIndex:
		add(n.Operand(), n.Index())
	case *PathSymbol:
		add(n.Operand())
	case *Call:
		addRex(n.Args())
	case *Dispatch:
		addRex(n.Args())
	case *Case:
		add(n.Match())
		for _, b := range n.Branches() {
			add(b.Condition(), b.Result())
		}
		add(n.Default())
	case *Cast:
		add(n.Operand())
	case *Coalesce:
		addRex(n.Args())
	case *NullIf:
		add(n.V1(), n.V2())
	case *Struct:
		for _, f := range n.Fields() {
			add(f.Key(), f.Value())
		}
	case *Array:
		addRex(n.Values())
	case *Bag:
		addRex(n.Values())
	case *Select:
		add(n.Input(), n.Constructor())
	case *Pivot:
		add(n.Input(), n.Key(), n.Value())
	case *Spread:
		addRex(n.Args())
	case *Subquery:
		add(n.Input(), n.Constructor())
	case *SubqueryComp:
		add(n.Input())
		addRex(n.Args())
	case *SubqueryIn:
		add(n.Input())
		addRex(n.Args())
	case *SubqueryTest:
		add(n.Input())
	default:
		panic("viaGetters: unhandled operator")
	}
	return out
}
