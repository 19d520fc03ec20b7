package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/planir/internal/check"
	"github.com/roach88/planir/internal/explain"
	"github.com/roach88/planir/internal/plan"
	"github.com/roach88/planir/internal/planfile"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", event.Seq, formatEvent(event))
		}
	}

	return buf.String()
}

func formatEvent(e TraceEvent) string {
	state := "unchanged"
	if e.Changed {
		state = "changed"
	}
	return fmt.Sprintf("%s %s nodes=%d", e.Pass, state, e.Nodes)
}

// changedPasses lists, in order, the passes that changed the plan.
func changedPasses(trace []TraceEvent) []string {
	var out []string
	for _, e := range trace {
		if e.Changed {
			out = append(out, e.Pass)
		}
	}
	return out
}

// assertTraceContains checks that pass changed the plan at least once.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	if slices.Contains(changedPasses(trace), a.Pass) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("%s changes the plan", a.Pass),
		Actual:   "it never did",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the passes changed the plan in the given
// relative order. Other changes may occur in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	changed := changedPasses(trace)
	next := 0
	for _, name := range changed {
		if next < len(a.Passes) && name == a.Passes[next] {
			next++
		}
	}
	if next == len(a.Passes) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("changes in order [%s]", strings.Join(a.Passes, ", ")),
		Actual:   fmt.Sprintf("changes [%s], %s not found in order", strings.Join(changed, ", "), a.Passes[next]),
		Trace:    trace,
	}
}

// assertTraceCount checks that pass changed the plan exactly Count times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	n := 0
	for _, name := range changedPasses(trace) {
		if name == a.Pass {
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%s changes the plan %d time(s)", a.Pass, a.Count),
		Actual:   fmt.Sprintf("%d time(s)", n),
		Trace:    trace,
	}
}

// assertOpCount checks the number of nodes named Op in the output.
func assertOpCount(op plan.Operator, a Assertion) error {
	want := strings.ToLower(a.Op)
	n := 0
	plan.Walk(op, func(o plan.Operator) bool {
		if plan.Name(o) == want {
			n++
		}
		return true
	})
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertOpCount,
		Expected: fmt.Sprintf("%d %s node(s)", a.Count, want),
		Actual:   fmt.Sprintf("%d in\n%s", n, explain.Tree(op)),
	}
}

// assertDiagnostics checks the codes the static check reports for the
// output, ignoring order.
func assertDiagnostics(op plan.Operator, a Assertion) error {
	var got []string
	for _, d := range check.Collect(op) {
		got = append(got, d.Code.String())
	}
	want := slices.Clone(a.Codes)
	slices.Sort(got)
	slices.Sort(want)
	if slices.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertDiagnostics,
		Expected: fmt.Sprintf("[%s]", strings.Join(want, ", ")),
		Actual:   fmt.Sprintf("[%s]", strings.Join(got, ", ")),
	}
}

// assertSamePlan checks that the output is structurally equal to the plan
// in a.Plan.
func assertSamePlan(op plan.Operator, a Assertion) error {
	want, err := planfile.LoadFile(a.Plan)
	if err != nil {
		return fmt.Errorf("same_plan: %w", err)
	}
	wantFP, err := explain.Fingerprint(want)
	if err != nil {
		return fmt.Errorf("same_plan: %w", err)
	}
	gotFP, err := explain.Fingerprint(op)
	if err != nil {
		return fmt.Errorf("same_plan: %w", err)
	}
	if gotFP == wantFP {
		return nil
	}
	return &AssertionError{
		Type:     AssertSamePlan,
		Expected: fmt.Sprintf("plan of %s:\n%s", a.Plan, explain.Tree(want)),
		Actual:   "\n" + explain.Tree(op),
	}
}

// EvaluateAssertions runs every assertion against result and returns the
// failure messages. Assertions on the output plan fail when the run
// produced no plan.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertOpCount, AssertDiagnostics, AssertSamePlan:
			if result.Plan == nil {
				err = fmt.Errorf("%s: no output plan", a.Type)
				break
			}
			switch a.Type {
			case AssertOpCount:
				err = assertOpCount(result.Plan, a)
			case AssertDiagnostics:
				err = assertDiagnostics(result.Plan, a)
			default:
				err = assertSamePlan(result.Plan, a)
			}
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}
