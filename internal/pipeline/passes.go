package pipeline

import (
	"maps"
	"sort"
	"strings"

	"github.com/roach88/planir/internal/plan"
	"github.com/roach88/planir/internal/value"
)

// RenameTables returns a pass that replaces references to the tables named
// in renames with references to tables of the new names and the same
// schemas. It runs as a plan.Transform, so every rebuilt ancestor takes the
// type its new children give it. The pass Key lists the renames, sorted,
// as rename_tables(old=new,...).
func RenameTables(renames map[string]string) Pass {
	r := &tableRenamer{renames: maps.Clone(renames)}
	r.Transform = plan.NewTransform[struct{}](r)

	pairs := make([]string, 0, len(renames))
	for from, to := range renames {
		pairs = append(pairs, from+"="+to)
	}
	sort.Strings(pairs)

	return Pass{
		Name:  "rename_tables",
		Key:   "rename_tables(" + strings.Join(pairs, ",") + ")",
		Apply: func(op plan.Operator) plan.Operator { return r.Rewrite(op, struct{}{}) },
	}
}

type tableRenamer struct {
	*plan.Transform[struct{}]
	renames map[string]string
}

func (r *tableRenamer) VisitTable(n *plan.Table, _ struct{}) plan.Rex {
	to, ok := r.renames[n.Ref().Name]
	if !ok || to == n.Ref().Name {
		return n
	}
	ref := *n.Ref()
	ref.Name = to
	return r.Factory().Table(&ref)
}

// CollapseDistinct returns a pass that removes a Distinct whose input is
// already a Distinct.
func CollapseDistinct() Pass {
	r := &distinctCollapser{}
	r.Rewriter = plan.NewRewriter[struct{}](r)
	return Pass{
		Name:  "collapse_distinct",
		Apply: func(op plan.Operator) plan.Operator { return r.Rewrite(op, struct{}{}) },
	}
}

type distinctCollapser struct {
	*plan.Rewriter[struct{}]
}

func (r *distinctCollapser) VisitDistinct(n *plan.Distinct, ctx struct{}) plan.Rel {
	out := r.Rewriter.VisitDistinct(n, ctx).(*plan.Distinct)
	if inner, ok := out.Input().(*plan.Distinct); ok {
		return inner
	}
	return out
}

// MergeLimits returns a pass that folds Limit(Limit(x, a), b) with literal
// integer counts into Limit(x, min(a, b)).
func MergeLimits() Pass {
	r := &limitMerger{}
	r.Rewriter = plan.NewRewriter[struct{}](r)
	return Pass{
		Name:  "merge_limits",
		Apply: func(op plan.Operator) plan.Operator { return r.Rewrite(op, struct{}{}) },
	}
}

type limitMerger struct {
	*plan.Rewriter[struct{}]
}

func (r *limitMerger) VisitLimit(n *plan.Limit, ctx struct{}) plan.Rel {
	out := r.Rewriter.VisitLimit(n, ctx).(*plan.Limit)
	inner, ok := out.Input().(*plan.Limit)
	if !ok {
		return out
	}
	a, okA := intLit(inner.Count())
	b, okB := intLit(out.Count())
	if !okA || !okB {
		return out
	}
	count := inner.Count()
	if b < a {
		count = out.Count()
	}
	return plan.Retype(r.Factory().Limit(inner.Input(), count), out.Type())
}

func intLit(r plan.Rex) (int64, bool) {
	l, ok := r.(*plan.Lit)
	if !ok {
		return 0, false
	}
	i, ok := l.Value().(value.Int)
	return int64(i), ok
}
