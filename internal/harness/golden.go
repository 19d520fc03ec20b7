package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/planir/internal/explain"
)

// Snapshot renders a result as text for golden comparison: the trace, the
// outcome and the output plan tree with types.
func Snapshot(name string, result *Result) []byte {
	var buf strings.Builder
	fmt.Fprintf(&buf, "scenario: %s\n", name)
	fmt.Fprintf(&buf, "run: %s\n", result.RunID)
	buf.WriteString("trace:\n")
	for _, event := range result.Trace {
		fmt.Fprintf(&buf, "  [%d] %s\n", event.Seq, formatEvent(event))
	}

	if result.Err != nil {
		fmt.Fprintf(&buf, "error: %v\n", result.Err)
		return []byte(buf.String())
	}

	applied := "none"
	if len(result.Applied) > 0 {
		applied = strings.Join(result.Applied, ", ")
	}
	fmt.Fprintf(&buf, "applied: %s\n", applied)
	fmt.Fprintf(&buf, "iterations: %d\n", result.Iterations)
	buf.WriteString("plan:\n")
	buf.WriteString(explain.Tree(result.Plan, explain.WithTypes()))
	return []byte(buf.String())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can check Pass as well.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, Snapshot(scenario.Name, result))

	return result, nil
}
