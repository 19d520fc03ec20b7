package plan

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/planir/internal/ptype"
	"github.com/roach88/planir/internal/value"
)

func TestEveryVariantCovered(t *testing.T) {
	seen := make(map[string]bool)
	for _, op := range everyVariant() {
		seen[fmt.Sprintf("%T", op)] = true
	}
	assert.Len(t, seen, 40, "17 rel and 23 rex variants")
}

func TestChildren_MatchGetters(t *testing.T) {
	for _, op := range everyVariant() {
		t.Run(fmt.Sprintf("%T", op), func(t *testing.T) {
			want := viaGetters(op)
			got := op.Children()
			require.Len(t, got, len(want))
			for i := range want {
				assert.Same(t, want[i], got[i], "child %d", i)
			}
		})
	}
}

func TestChildren_OptionalChildrenOmitted(t *testing.T) {
	o := Standard
	searched := o.Case(nil, []*CaseBranch{NewCaseBranch(lit(value.Bool(true)), num(1))}, nil)
	assert.Len(t, searched.Children(), 2)
	assert.Nil(t, searched.Match())
	assert.Nil(t, searched.Default())

	cross := o.Join(scan(ordersRef), scan(customersRef), nil, JoinInner)
	assert.Len(t, cross.Children(), 2)
}

func TestChildren_FreshSliceEachCall(t *testing.T) {
	f := Standard.Filter(scan(ordersRef), lit(value.Bool(true)))
	a := f.Children()
	a[0] = nil
	assert.NotNil(t, f.Children()[0])
}

func TestRelRexPartition(t *testing.T) {
	rels, rexes := 0, 0
	for _, op := range everyVariant() {
		_, isRel := op.(Rel)
		_, isRex := op.(Rex)
		assert.NotEqual(t, isRel, isRex, "%T must be exactly one of Rel or Rex", op)
		if isRel {
			rels++
		} else {
			rexes++
		}
	}
	assert.Equal(t, 17, rels)
	assert.Equal(t, 23, rexes)
}

func TestRetype(t *testing.T) {
	f := Standard.Filter(scan(ordersRef), lit(value.Bool(true)))
	narrowed := ptype.Row(ptype.F("id", ptype.Integer()))

	r := Retype(f, narrowed)

	assert.NotSame(t, f, r)
	assert.True(t, narrowed.Equal(r.Type()))
	assert.True(t, orderRow.Equal(f.Type()), "original is untouched")
	assert.Same(t, f.Input(), r.Input())
	assert.Same(t, f.Predicate(), r.Predicate())
}

func TestWalkAndCount(t *testing.T) {
	orders := scan(ordersRef)
	plan := Standard.Filter(orders, Standard.Call(gtFn, []Rex{col(0, ptype.Integer()), num(10)}))

	var kinds []string
	Walk(plan, func(op Operator) bool {
		kinds = append(kinds, fmt.Sprintf("%T", op))
		return true
	})
	assert.Equal(t, []string{
		"*plan.Filter", "*plan.Scan", "*plan.Table", "*plan.Call", "*plan.Var", "*plan.Lit",
	}, kinds)
	assert.Equal(t, 6, Count(plan))

	visited := 0
	Walk(plan, func(op Operator) bool {
		visited++
		_, isCall := op.(*Call)
		return !isCall
	})
	assert.Equal(t, 4, visited, "call arguments are skipped")
}

func TestShared(t *testing.T) {
	orders := scan(ordersRef)
	pred := Standard.Call(gtFn, []Rex{col(0, ptype.Integer()), num(10)})
	before := Standard.Filter(orders, pred)

	assert.Equal(t, Count(before), Shared(before, before))

	after := Standard.Filter(scan(ordersRef), pred)
	assert.Equal(t, 3, Shared(before, after), "the predicate subtree is reused")
	assert.Equal(t, 0, Shared(before, scan(ordersRef)))
}

func TestTags(t *testing.T) {
	tags := NewTags()
	a := num(1)
	b := num(1)

	tags.Set(a, 7)
	got, ok := tags.Get(a)
	require.True(t, ok)
	assert.Equal(t, 7, got)

	_, ok = tags.Get(b)
	assert.False(t, ok, "tags follow identity, not structure")

	assert.Equal(t, 8, tags.Assign(b))
	assert.Equal(t, 8, tags.Assign(b), "assign is idempotent")

	c := num(2)
	tags.Carry(a, c)
	got, _ = tags.Get(c)
	assert.Equal(t, 7, got)
	assert.Equal(t, 3, tags.Len())
}

func TestTags_AssignAll(t *testing.T) {
	plan := Standard.Limit(scan(ordersRef), num(3))
	tags := NewTags()
	tags.AssignAll(plan)

	assert.Equal(t, Count(plan), tags.Len())
	root, _ := tags.Get(plan)
	assert.Equal(t, 0, root)
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "FULL", JoinFull.String())
	assert.Equal(t, "DESC", Desc.String())
	assert.Equal(t, "FIRST", NullsFirst.String())
	assert.Equal(t, "GE", CompGE.String())
	assert.Equal(t, "SOME", QuantSome.String())
	assert.Equal(t, "UNIQUE", TestUnique.String())
	assert.Equal(t, "JoinType(9)", JoinType(9).String())
}

func TestSignatureID(t *testing.T) {
	assert.Equal(t, "gt(INTEGER, INTEGER)", gtFn.ID())
	assert.Equal(t, "sum(DECIMAL(10,2))", sumAgg.ID())
	assert.Equal(t, "RANK()", rankFn.ID())
}
