// Package testutil holds plan fixtures shared by package tests.
//
// Every fixture function builds a fresh tree on each call, so tests may
// compare node identity without interfering with each other.
package testutil

import (
	"github.com/roach88/planir/internal/plan"
	"github.com/roach88/planir/internal/ptype"
	"github.com/roach88/planir/internal/value"
)

var (
	// OrderRow is the row type of the orders table.
	OrderRow = ptype.Row(
		ptype.F("id", ptype.Integer()),
		ptype.F("customer", ptype.String()),
		ptype.F("total", ptype.Decimal(10, 2)),
	)

	// CustomerRow is the row type of the customers table.
	CustomerRow = ptype.Row(
		ptype.F("name", ptype.String()),
		ptype.F("tier", ptype.Integer()),
	)

	Orders    = &plan.TableRef{Name: "orders", Schema: ptype.Bag(OrderRow)}
	Customers = &plan.TableRef{Name: "customers", Schema: ptype.Bag(CustomerRow)}

	GT = &plan.FnSignature{
		Name:     "gt",
		Params:   []ptype.PType{ptype.Integer(), ptype.Integer()},
		Returns:  ptype.Bool(),
		NullCall: true,
	}
	EQ = &plan.FnSignature{
		Name:     "eq",
		Params:   []ptype.PType{ptype.String(), ptype.String()},
		Returns:  ptype.Bool(),
		NullCall: true,
	}
	Sum = &plan.AggSignature{
		Name:    "sum",
		Params:  []ptype.PType{ptype.Decimal(10, 2)},
		Returns: ptype.Decimal(38, 2),
	}
)

var o = plan.Standard

// Int is an integer literal.
func Int(i int64) *plan.Lit { return o.Lit(value.Int(i)) }

// Str is a string literal.
func Str(s string) *plan.Lit { return o.Lit(value.String(s)) }

// Col references field offset of the innermost row.
func Col(offset int, t ptype.PType) *plan.Var { return o.Var(0, offset, t) }

// ScanOf scans a table.
func ScanOf(ref *plan.TableRef) *plan.Scan { return o.Scan(o.Table(ref)) }

// Record builds a literal-keyed struct from alternating keys and values.
func Record(pairs ...any) *plan.Struct {
	var fields []*plan.StructField
	for i := 0; i+1 < len(pairs); i += 2 {
		fields = append(fields, plan.NewStructField(Str(pairs[i].(string)), pairs[i+1].(plan.Rex)))
	}
	return o.Struct(fields)
}

// BigOrders is
//
//	SELECT VALUE {'id': id, 'total': total}
//	FROM orders WHERE id > 10 ORDER BY total DESC LIMIT 5
func BigOrders() *plan.Select {
	id := Col(0, ptype.Integer())
	total := Col(2, ptype.Decimal(10, 2))
	rel := o.Limit(
		o.Sort(
			o.Filter(ScanOf(Orders), o.Call(GT, []plan.Rex{id, Int(10)})),
			[]*plan.Collation{plan.NewCollation(total, plan.Desc, plan.NullsFirst)},
		),
		Int(5),
	)
	return o.Select(rel, Record("id", id, "total", total))
}

// CustomerTotals is
//
//	SELECT customer, SUM(total) FROM orders GROUP BY customer
//
// joined to customers on name.
func CustomerTotals() *plan.Join {
	agg := o.Aggregate(ScanOf(Orders),
		[]*plan.Measure{plan.NewMeasure(Sum, []plan.Rex{Col(2, ptype.Decimal(10, 2))}, false)},
		[]plan.Rex{Col(1, ptype.String())},
	)
	// The joined row is (sum, customer, name, tier).
	cond := o.Call(EQ, []plan.Rex{Col(1, ptype.String()), Col(2, ptype.String())})
	return o.Join(agg, ScanOf(Customers), cond, plan.JoinLeft)
}

// Broken has one problem of each kind the static check reports most
// often: a placeholder, an undefined cast, a path that cannot match and a
// reference to a scope that does not exist.
func Broken() *plan.Project {
	return o.Project(ScanOf(Orders), []plan.Rex{
		o.Error("unresolved column nope"),
		o.Cast(Col(1, ptype.String()), ptype.Bag(ptype.Integer())),
		o.PathKey(Record("a", Int(1)), Str("b")),
		o.Var(1, 0, ptype.Integer()),
	})
}
