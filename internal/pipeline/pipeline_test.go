package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/planir/internal/diag"
	"github.com/roach88/planir/internal/pipeline"
	"github.com/roach88/planir/internal/plan"
	"github.com/roach88/planir/internal/plancache"
	"github.com/roach88/planir/internal/testutil"
)

var o = plan.Standard

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func identity() pipeline.Pass {
	return pipeline.Pass{Name: "identity", Apply: func(op plan.Operator) plan.Operator { return op }}
}

// rebuild copies the root on every call, so the plan never settles.
func rebuild() pipeline.Pass {
	return pipeline.Pass{Name: "rebuild", Apply: func(op plan.Operator) plan.Operator {
		return plan.Retype(op, op.Type())
	}}
}

func TestRun_UnchangedPlan(t *testing.T) {
	p := pipeline.New([]pipeline.Pass{identity()},
		pipeline.WithLogger(discard()),
		pipeline.WithRunIDs(pipeline.NewFixedGenerator("run-1")),
	)

	in := testutil.BigOrders()
	res, err := p.Run(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "run-1", res.RunID)
	assert.Same(t, in, res.Plan)
	assert.Equal(t, 1, res.Iterations)
	assert.Empty(t, res.Applied)
	assert.False(t, res.Cached)
}

func TestRun_LogsRunID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	p := pipeline.New([]pipeline.Pass{identity()},
		pipeline.WithLogger(logger),
		pipeline.WithRunIDs(pipeline.NewFixedGenerator("run-42")),
	)
	_, err := p.Run(context.Background(), testutil.BigOrders())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"msg":"pipeline starting"`)
	assert.Contains(t, out, `"msg":"pass applied"`)
	assert.Contains(t, out, `"msg":"pipeline finished"`)
	assert.Contains(t, out, `"run_id":"run-42"`)
}

func TestRenameTables(t *testing.T) {
	p := pipeline.New([]pipeline.Pass{pipeline.RenameTables(map[string]string{"orders": "archived_orders"})},
		pipeline.WithLogger(discard()),
	)

	in := testutil.BigOrders()
	res, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"rename_tables"}, res.Applied)

	out := res.Plan.(*plan.Select)
	assert.NotSame(t, in, out)
	assert.Same(t, in.Constructor(), out.Constructor(), "untouched subtree is shared")

	limit := out.Input().(*plan.Limit)
	assert.Same(t, in.Input().(*plan.Limit).Count(), limit.Count())

	var names []string
	plan.Walk(out, func(op plan.Operator) bool {
		if tbl, ok := op.(*plan.Table); ok {
			names = append(names, tbl.Ref().Name)
		}
		return true
	})
	assert.Equal(t, []string{"archived_orders"}, names)
}

func TestRenameTables_NoMatchKeepsPlan(t *testing.T) {
	pass := pipeline.RenameTables(map[string]string{"nope": "other", "orders": "orders"})
	in := testutil.BigOrders()
	assert.Same(t, in, pass.Apply(in))
}

func TestCollapseDistinct_Fixpoint(t *testing.T) {
	scan := testutil.ScanOf(testutil.Orders)
	in := o.Distinct(o.Distinct(o.Distinct(scan)))

	p := pipeline.New([]pipeline.Pass{pipeline.CollapseDistinct()},
		pipeline.WithLogger(discard()),
		pipeline.WithFixpoint(),
	)
	res, err := p.Run(context.Background(), in)
	require.NoError(t, err)

	out, ok := res.Plan.(*plan.Distinct)
	require.True(t, ok)
	assert.Same(t, scan, out.Input())
	assert.Equal(t, 2, res.Iterations, "one changing round and one settled round")
	assert.Equal(t, []string{"collapse_distinct"}, res.Applied)
}

func TestMergeLimits(t *testing.T) {
	scan := testutil.ScanOf(testutil.Orders)
	three := testutil.Int(3)
	in := o.Limit(o.Limit(scan, testutil.Int(5)), three)

	out := pipeline.MergeLimits().Apply(in).(*plan.Limit)
	assert.Same(t, scan, out.Input())
	assert.Same(t, three, out.Count())
	assert.True(t, out.Type().Equal(in.Type()))
}

func TestMergeLimits_NonLiteralCountUntouched(t *testing.T) {
	in := o.Limit(o.Limit(testutil.ScanOf(testutil.Orders), testutil.Int(5)), testutil.Col(0, testutil.OrderRow))
	assert.Same(t, in, pipeline.MergeLimits().Apply(in))
}

func TestRun_IterationsExceeded(t *testing.T) {
	p := pipeline.New([]pipeline.Pass{rebuild()},
		pipeline.WithLogger(discard()),
		pipeline.WithRunIDs(pipeline.NewFixedGenerator("run-q")),
		pipeline.WithFixpoint(),
		pipeline.WithMaxIterations(3),
	)

	_, err := p.Run(context.Background(), testutil.Int(1))
	require.Error(t, err)
	assert.True(t, pipeline.IsQuotaError(err))

	var ie *pipeline.IterationsExceededError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "run-q", ie.RunID)
	assert.Equal(t, 4, ie.Iterations)
	assert.Equal(t, 3, ie.Limit)
}

func TestRun_WithoutFixpointRunsOnce(t *testing.T) {
	p := pipeline.New([]pipeline.Pass{rebuild(), rebuild()},
		pipeline.WithLogger(discard()),
		pipeline.WithMaxIterations(0),
	)
	res, err := p.Run(context.Background(), testutil.Int(1))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, []string{"rebuild", "rebuild"}, res.Applied)
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := pipeline.New([]pipeline.Pass{identity()}, pipeline.WithLogger(discard()))
	_, err := p.Run(ctx, testutil.Int(1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_PanickingPass(t *testing.T) {
	mismatch := &plan.MismatchError{Expected: "*plan.Var", Actual: testutil.Int(1)}
	tests := []struct {
		name  string
		apply func(plan.Operator) plan.Operator
		check func(t *testing.T, err error)
	}{
		{
			name:  "mismatch",
			apply: func(plan.Operator) plan.Operator { panic(mismatch) },
			check: func(t *testing.T, err error) {
				var me *plan.MismatchError
				require.ErrorAs(t, err, &me)
				assert.Same(t, mismatch, me)
			},
		},
		{
			name:  "non-error panic",
			apply: func(plan.Operator) plan.Operator { panic("oops") },
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "panic: oops")
			},
		},
		{
			name:  "nil plan",
			apply: func(plan.Operator) plan.Operator { return nil },
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "returned no plan")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := pipeline.New([]pipeline.Pass{{Name: "bad", Apply: tt.apply}},
				pipeline.WithLogger(discard()),
				pipeline.WithRunIDs(pipeline.NewFixedGenerator("run-p")),
			)
			_, err := p.Run(context.Background(), testutil.Int(1))
			require.Error(t, err)
			assert.True(t, pipeline.IsPassError(err))

			var pe *pipeline.PassError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, "bad", pe.Pass)
			assert.Equal(t, "run-p", pe.RunID)
			tt.check(t, err)
		})
	}
}

func TestRun_ListenerAborts(t *testing.T) {
	strict := &diag.Strict{}
	p := pipeline.New(nil, pipeline.WithLogger(discard()), pipeline.WithListener(strict))

	_, err := p.Run(context.Background(), testutil.Broken())
	require.Error(t, err)
	assert.True(t, diag.IsAbort(err))
	assert.Len(t, strict.Diagnostics, 1)
}

func TestRun_ListenerCollects(t *testing.T) {
	var c diag.Collector
	p := pipeline.New(nil, pipeline.WithLogger(discard()), pipeline.WithListener(&c))

	_, err := p.Run(context.Background(), testutil.BigOrders())
	require.NoError(t, err)
	assert.False(t, c.HasErrors())
}

func TestRun_Cached(t *testing.T) {
	cache, err := plancache.New(8)
	require.NoError(t, err)

	calls := 0
	counting := pipeline.Pass{Name: "counting", Apply: func(op plan.Operator) plan.Operator {
		calls++
		return op
	}}
	p := pipeline.New([]pipeline.Pass{counting, pipeline.RenameTables(map[string]string{"orders": "o2"})},
		pipeline.WithLogger(discard()),
		pipeline.WithRunIDs(pipeline.NewFixedGenerator("run-a", "run-b")),
		pipeline.WithCache(cache),
	)

	first, err := p.Run(context.Background(), testutil.BigOrders())
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, "run-a", first.RunID)

	second, err := p.Run(context.Background(), testutil.BigOrders())
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, "run-b", second.RunID)
	assert.Same(t, first.Plan, second.Plan)
	assert.Equal(t, 1, calls)
}

func TestRun_CacheKeyIncludesPasses(t *testing.T) {
	cache, err := plancache.New(8)
	require.NoError(t, err)

	a := pipeline.New([]pipeline.Pass{identity()}, pipeline.WithLogger(discard()), pipeline.WithCache(cache))
	b := pipeline.New([]pipeline.Pass{pipeline.CollapseDistinct()}, pipeline.WithLogger(discard()), pipeline.WithCache(cache))

	_, err = a.Run(context.Background(), testutil.BigOrders())
	require.NoError(t, err)
	res, err := b.Run(context.Background(), testutil.BigOrders())
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 2, cache.Len())
}

func TestRun_CacheKeyIncludesPassConfiguration(t *testing.T) {
	cache, err := plancache.New(8)
	require.NoError(t, err)

	tableName := func(op plan.Operator) string {
		var name string
		plan.Walk(op, func(op plan.Operator) bool {
			if tbl, ok := op.(*plan.Table); ok {
				name = tbl.Ref().Name
			}
			return true
		})
		return name
	}

	toA := pipeline.New([]pipeline.Pass{pipeline.RenameTables(map[string]string{"orders": "a"})},
		pipeline.WithLogger(discard()), pipeline.WithCache(cache))
	toB := pipeline.New([]pipeline.Pass{pipeline.RenameTables(map[string]string{"orders": "b"})},
		pipeline.WithLogger(discard()), pipeline.WithCache(cache))

	first, err := toA.Run(context.Background(), testutil.BigOrders())
	require.NoError(t, err)
	assert.Equal(t, "a", tableName(first.Plan))

	second, err := toB.Run(context.Background(), testutil.BigOrders())
	require.NoError(t, err)
	assert.False(t, second.Cached)
	assert.Equal(t, "b", tableName(second.Plan))
	assert.Equal(t, 2, cache.Len())
}

func TestRun_CacheKeyIncludesMaxIterations(t *testing.T) {
	cache, err := plancache.New(8)
	require.NoError(t, err)

	in := o.Distinct(o.Distinct(testutil.ScanOf(testutil.Orders)))
	passes := []pipeline.Pass{pipeline.CollapseDistinct()}

	roomy := pipeline.New(passes, pipeline.WithLogger(discard()), pipeline.WithCache(cache), pipeline.WithFixpoint())
	_, err = roomy.Run(context.Background(), in)
	require.NoError(t, err)

	tight := pipeline.New(passes, pipeline.WithLogger(discard()), pipeline.WithCache(cache),
		pipeline.WithFixpoint(), pipeline.WithMaxIterations(1))
	_, err = tight.Run(context.Background(), in)
	assert.True(t, pipeline.IsQuotaError(err), "got %v", err)
}

func TestPass_ID(t *testing.T) {
	assert.Equal(t, "merge_limits", pipeline.MergeLimits().ID())

	renames := map[string]string{"orders": "a", "customers": "c"}
	pass := pipeline.RenameTables(renames)
	assert.Equal(t, "rename_tables", pass.Name)
	assert.Equal(t, "rename_tables(customers=c,orders=a)", pass.ID())

	renames["orders"] = "z"
	out := pass.Apply(testutil.BigOrders())
	var names []string
	plan.Walk(out, func(op plan.Operator) bool {
		if tbl, ok := op.(*plan.Table); ok {
			names = append(names, tbl.Ref().Name)
		}
		return true
	})
	assert.Equal(t, []string{"a"}, names, "later edits to the map do not change the pass")
}

func TestFixedGenerator_Exhausted(t *testing.T) {
	g := pipeline.NewFixedGenerator("only")
	assert.Equal(t, "only", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}

func TestUUIDv7Generator(t *testing.T) {
	var g pipeline.UUIDv7Generator
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestErrors(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), &pipeline.IterationsExceededError{RunID: "r", Iterations: 2, Limit: 1})
	assert.True(t, pipeline.IsQuotaError(wrapped))
	assert.False(t, pipeline.IsPassError(wrapped))
	assert.Equal(t, "run r exceeded max iterations: 2 rounds > 1 limit",
		(&pipeline.IterationsExceededError{RunID: "r", Iterations: 2, Limit: 1}).Error())
}

func TestString(t *testing.T) {
	p := pipeline.New([]pipeline.Pass{pipeline.CollapseDistinct(), pipeline.MergeLimits()})
	assert.Equal(t, "pipeline(collapse_distinct, merge_limits)", p.String())
	assert.Equal(t, []string{"collapse_distinct", "merge_limits"}, p.Names())
	assert.Equal(t, p.Names(), p.IDs())

	r := pipeline.New([]pipeline.Pass{pipeline.RenameTables(map[string]string{"t": "u"})})
	assert.Equal(t, []string{"rename_tables"}, r.Names())
	assert.Equal(t, []string{"rename_tables(t=u)"}, r.IDs())
	assert.Empty(t, pipeline.New(nil).Names())
}
