package planfile_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/planir/internal/explain"
	"github.com/roach88/planir/internal/plan"
	"github.com/roach88/planir/internal/planfile"
	"github.com/roach88/planir/internal/ptype"
	"github.com/roach88/planir/internal/testutil"
	"github.com/roach88/planir/internal/value"
)

var o = plan.Standard

func assertSamePlan(t *testing.T, want, got plan.Operator) {
	t.Helper()
	if diff := cmp.Diff(explain.Document(want), explain.Document(got)); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
}

// everything builds one node of every variant.
func everything() plan.Operator {
	orders := testutil.ScanOf(testutil.Orders)
	row := o.Var(0, 0, testutil.OrderRow)
	id := testutil.Col(0, ptype.Integer())
	total := testutil.Col(2, ptype.Decimal(10, 2))
	bag := o.Bag([]plan.Rex{testutil.Int(1), o.Lit(value.Null{}), o.Lit(value.Missing{})})

	rank := &plan.WindowFunctionSignature{Name: "rank", Returns: ptype.BigInt(), IgnoreNulls: true}
	window := o.Window(orders,
		[]*plan.WindowFunctionNode{plan.NewWindowFunction(rank, nil)},
		[]plan.Rex{testutil.Col(1, ptype.String())},
		[]*plan.Collation{plan.NewCollation(total, plan.Asc, plan.NullsLast)},
	)
	exclude := o.Exclude(o.Distinct(window), []*plan.Exclusion{
		plan.NewExclusion(row, []plan.ExclusionItem{
			plan.ExcludeKey{Key: "total"},
			plan.ExcludeCollWildcard{Next: []plan.ExclusionItem{
				plan.ExcludeSymbol{Symbol: "x"},
				plan.ExcludeIndex{Index: 2},
			}},
			plan.ExcludeStructWildcard{},
		}),
	})
	sets := o.Intersect(
		o.Union(o.Iterate(bag), o.Unpivot(testutil.Record("a", testutil.Int(1))), true),
		o.Except(o.Offset(orders, testutil.Int(2)), orders, false),
		false,
	)
	correlate := o.Correlate(exclude, sets, plan.JoinRight)

	projections := []plan.Rex{
		o.Case(id, []*plan.CaseBranch{plan.NewCaseBranch(testutil.Int(1), testutil.Str("one"))}, testutil.Str("many")),
		o.Coalesce([]plan.Rex{o.Lit(value.Null{}), o.Lit(value.MustDecimal("12.50"))}),
		o.NullIf(id, testutil.Int(0)),
		o.PathIndex(o.Array([]plan.Rex{testutil.Int(1), testutil.Int(2)}), testutil.Int(0)),
		o.PathSymbol(row, "Total"),
		o.PathKey(row, testutil.Str("id")),
		o.Spread([]plan.Rex{row, testutil.Record("extra", o.Lit(value.Bool(true)))}),
		o.Dispatch("gt", []*plan.FnSignature{testutil.GT, testutil.EQ}, []plan.Rex{id, testutil.Int(10)}),
		o.Cast(id, ptype.BigInt()),
		o.Pivot(orders, testutil.Col(1, ptype.String()), total),
		o.Subquery(orders, id, true),
		o.SubqueryComp(orders, []plan.Rex{id}, plan.CompGE, plan.QuantSome),
		o.SubqueryIn(orders, []plan.Rex{id}),
		o.SubqueryTest(orders, plan.TestUnique),
		o.Error("unresolved"),
	}
	return o.Select(o.Project(correlate, projections), row)
}

func TestFromDocument_RoundTrip(t *testing.T) {
	for name, op := range map[string]plan.Operator{
		"big_orders":      testutil.BigOrders(),
		"customer_totals": testutil.CustomerTotals(),
		"broken":          testutil.Broken(),
		"everything":      everything(),
	} {
		t.Run(name, func(t *testing.T) {
			got, err := planfile.FromDocument(explain.Document(op))
			require.NoError(t, err)
			assertSamePlan(t, op, got)

			want, err := explain.Fingerprint(op)
			require.NoError(t, err)
			fp, err := explain.Fingerprint(got)
			require.NoError(t, err)
			assert.Equal(t, want, fp)
		})
	}
}

func TestDecodeYAML_JSONRoundTrip(t *testing.T) {
	op := everything()
	data, err := explain.JSON(op)
	require.NoError(t, err)

	got, err := planfile.DecodeYAML(data, "everything.json")
	require.NoError(t, err)
	assertSamePlan(t, op, got)
}

func TestLoadFile(t *testing.T) {
	tests := []struct {
		file string
		want plan.Operator
	}{
		{"testdata/big_orders.yaml", testutil.BigOrders()},
		{"testdata/customer_totals.cue", testutil.CustomerTotals()},
		{"testdata/limit_orders.json", o.Limit(testutil.ScanOf(testutil.Orders), testutil.Int(5))},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			got, err := planfile.LoadFile(tt.file)
			require.NoError(t, err)
			assertSamePlan(t, tt.want, got)
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := planfile.LoadFile("testdata/nope.yaml")
	require.Error(t, err)
	assert.False(t, planfile.IsLoadError(err))
}

func TestDecode_SharesTableRefs(t *testing.T) {
	got, err := planfile.LoadFile("testdata/customer_totals.cue")
	require.NoError(t, err)

	refs := map[string]*plan.TableRef{}
	plan.Walk(got, func(op plan.Operator) bool {
		if tbl, ok := op.(*plan.Table); ok {
			if prev, seen := refs[tbl.Ref().Name]; seen {
				assert.Same(t, prev, tbl.Ref())
			}
			refs[tbl.Ref().Name] = tbl.Ref()
		}
		return true
	})
	assert.Len(t, refs, 2)

	self, err := planfile.DecodeYAML([]byte(`
op: union
left: {op: scan, source: {op: table, name: t, schema: "BAG<INTEGER>"}}
right: {op: scan, source: {op: table, name: t, schema: "BAG<INTEGER>"}}
`), "self.yaml")
	require.NoError(t, err)
	u := self.(*plan.Union)
	left := u.Left().(*plan.Scan).Source().(*plan.Table)
	right := u.Right().(*plan.Scan).Source().(*plan.Table)
	assert.Same(t, left.Ref(), right.Ref())
}

func TestDecodeYAML_ExplicitTypeRetypes(t *testing.T) {
	got, err := planfile.DecodeYAML([]byte("{op: lit, value: 7, type: BIGINT}"), "lit.yaml")
	require.NoError(t, err)

	lit := got.(*plan.Lit)
	assert.True(t, lit.Type().Equal(ptype.BigInt()))
	assert.True(t, value.Equal(value.Int(7), lit.Value()))

	same, err := planfile.DecodeYAML([]byte("{op: lit, value: 7, type: INTEGER}"), "lit.yaml")
	require.NoError(t, err)
	assert.True(t, same.Type().Equal(ptype.Integer()))
}

func TestDecodeYAML_Defaults(t *testing.T) {
	got, err := planfile.DecodeYAML([]byte(`
op: join
left: {op: scan, source: {op: table, name: a, schema: "BAG<ROW(x INTEGER)>"}}
right: {op: scan, source: {op: table, name: b, schema: "BAG<ROW(y INTEGER)>"}}
`), "join.yaml")
	require.NoError(t, err)

	j := got.(*plan.Join)
	assert.Equal(t, plan.JoinInner, j.JoinType())
	assert.Nil(t, j.Condition())
	assert.Equal(t, "ROW(x INTEGER, y INTEGER)", j.Type().String())
}

func TestDecodeYAML_EnumsAreCaseInsensitive(t *testing.T) {
	got, err := planfile.DecodeYAML([]byte(`
op: sort
input: {op: scan, source: {op: table, name: a, schema: "BAG<ROW(x INTEGER)>"}}
collations:
  - {column: {op: var, scope: 0, offset: 0, type: int}, order: desc, nulls: first}
`), "sort.yaml")
	require.NoError(t, err)

	c := got.(*plan.Sort).Collations()[0]
	assert.Equal(t, plan.Desc, c.Order())
	assert.Equal(t, plan.NullsFirst, c.Nulls())
}

func TestDecodeYAML_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "syntax",
			src:  "op: [",
			want: "bad.yaml: parse YAML",
		},
		{
			name: "not a mapping",
			src:  "- 1",
			want: "bad.yaml:1:1: expected operator mapping, got list",
		},
		{
			name: "missing op",
			src:  "value: 1",
			want: `bad.yaml:1:1: missing field "op"`,
		},
		{
			name: "unknown operator",
			src:  "op: teleport",
			want: `bad.yaml:1:5: op: unknown operator "teleport"`,
		},
		{
			name: "unknown field",
			src:  "op: lit\nvalue: 1\nvalu: 2",
			want: `bad.yaml:3:7: valu: unknown field "valu"`,
		},
		{
			name: "var without type",
			src:  "op: filter\ninput: {op: scan, source: {op: table, name: a, schema: \"BAG<INTEGER>\"}}\npredicate: {op: var, scope: 0, offset: 0}",
			want: `bad.yaml:3:12: predicate: missing field "type"`,
		},
		{
			name: "bad type",
			src:  "op: cast\noperand: {op: lit, value: 1}\ntarget: WIDGET",
			want: `bad.yaml:3:9: target: parse type "WIDGET"`,
		},
		{
			name: "rex where rel expected",
			src:  "op: distinct\ninput: {op: lit, value: 1}",
			want: "bad.yaml:2:8: input: expected a relational operator, got lit",
		},
		{
			name: "rel where rex expected",
			src:  "op: scan\nsource: {op: distinct, input: {op: scan, source: {op: lit, value: 1}}}",
			want: "bad.yaml:2:9: source: expected a scalar operator, got distinct",
		},
		{
			name: "bad enum",
			src:  "op: subquery_test\ninput: {op: scan, source: {op: lit, value: 1}}\ntest: MAYBE",
			want: `bad.yaml:3:7: test: unknown value "MAYBE", want one of EXISTS, UNIQUE`,
		},
		{
			name: "bad integer",
			src:  "op: var\nscope: zero\noffset: 0\ntype: INTEGER",
			want: "bad.yaml:2:8: scope: expected integer",
		},
		{
			name: "exclusion root not a var",
			src:  "op: exclude\ninput: {op: scan, source: {op: lit, value: 1}}\nexclusions:\n  - var: {op: lit, value: 1}",
			want: "bad.yaml:4:10: exclusions[0].var: exclusion root must be a var",
		},
		{
			name: "ambiguous exclusion step",
			src:  "op: exclude\ninput: {op: scan, source: {op: lit, value: 1}}\nexclusions:\n  - var: {op: var, scope: 0, offset: 0, type: INTEGER}\n    items: [{key: a, symbol: b}]",
			want: "bad.yaml:5:13: exclusions[0].items[0]: exclusion step needs exactly one of",
		},
		{
			name: "conflicting table schemas",
			src:  "op: union\nleft: {op: scan, source: {op: table, name: t, schema: \"BAG<INTEGER>\"}}\nright: {op: scan, source: {op: table, name: t, schema: \"BAG<STRING>\"}}",
			want: `right.source.schema: table "t" declared with schema BAG<INTEGER> and BAG<STRING>`,
		},
		{
			name: "duplicate key",
			src:  "op: lit\nop: lit\nvalue: 1",
			want: "bad.yaml:2:1: op: duplicate key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := planfile.DecodeYAML([]byte(tt.src), "bad.yaml")
			require.Error(t, err)
			assert.True(t, planfile.IsLoadError(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecodeCUE_Errors(t *testing.T) {
	t.Run("incomplete", func(t *testing.T) {
		_, err := planfile.DecodeCUE([]byte("op: \"lit\"\nvalue: int"), "bad.cue")
		require.Error(t, err)
		assert.True(t, planfile.IsLoadError(err))
		assert.Contains(t, err.Error(), "bad.cue")
	})

	t.Run("conflict", func(t *testing.T) {
		_, err := planfile.DecodeCUE([]byte("op: \"lit\"\nop: \"var\""), "bad.cue")
		require.Error(t, err)
		var le *planfile.LoadError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, "bad.cue", le.File)
		assert.Positive(t, le.Line)
	})

	t.Run("decode error carries position", func(t *testing.T) {
		_, err := planfile.DecodeCUE([]byte("op: \"lit\"\nvalue: 1\nextra: true\n"), "bad.cue")
		require.Error(t, err)
		var le *planfile.LoadError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, 3, le.Line)
		assert.Equal(t, "extra", le.Path)
	})
}

func TestWithOperators(t *testing.T) {
	ops := &countingOps{Operators: plan.Standard}
	_, err := planfile.LoadFile("testdata/big_orders.yaml", planfile.WithOperators(ops))
	require.NoError(t, err)
	assert.Equal(t, 1, ops.filters)
}

type countingOps struct {
	plan.Operators
	filters int
}

func (c *countingOps) Filter(input plan.Rel, predicate plan.Rex) *plan.Filter {
	c.filters++
	return c.Operators.Filter(input, predicate)
}
