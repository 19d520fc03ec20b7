package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/planir/internal/pipeline"
	"github.com/roach88/planir/internal/plan"
	"github.com/roach88/planir/internal/planfile"
)

// newPass builds the pipeline pass a step names.
func newPass(step PassStep) (pipeline.Pass, error) {
	switch step.Name {
	case "rename_tables":
		if len(step.Renames) == 0 {
			return pipeline.Pass{}, errors.New("renames are required for rename_tables")
		}
		return pipeline.RenameTables(step.Renames), nil
	case "collapse_distinct":
		return pipeline.CollapseDistinct(), nil
	case "merge_limits":
		return pipeline.MergeLimits(), nil
	case "":
		return pipeline.Pass{}, errors.New("name is required")
	}
	return pipeline.Pass{}, fmt.Errorf("unknown pass %q", step.Name)
}

// traced wraps p so that every application is added to result's trace.
func traced(p pipeline.Pass, result *Result) pipeline.Pass {
	return pipeline.Pass{
		Name: p.Name,
		Apply: func(op plan.Operator) plan.Operator {
			out := p.Apply(op)
			result.AddTrace(p.Name, out != op, out)
			return out
		},
	}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Load the input plan
// 2. Run the passes with a fixed run id, tracing every application
// 3. Compare the outcome with expect_error, or evaluate the assertions
//
// Errors are returned only when the scenario cannot be executed; a run
// that behaves unexpectedly yields a failed Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	input, err := planfile.LoadFile(scenario.Plan)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}

	result := NewResult()
	passes := make([]pipeline.Pass, len(scenario.Passes))
	for i, step := range scenario.Passes {
		p, err := newPass(step)
		if err != nil {
			return nil, fmt.Errorf("passes[%d]: %w", i, err)
		}
		passes[i] = traced(p, result)
	}

	opts := []pipeline.Option{
		pipeline.WithRunIDs(pipeline.NewFixedGenerator("scenario-" + scenario.Name)),
		pipeline.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
	}
	if scenario.Fixpoint {
		opts = append(opts, pipeline.WithFixpoint())
	}
	if scenario.MaxIterations > 0 {
		opts = append(opts, pipeline.WithMaxIterations(scenario.MaxIterations))
	}

	res, err := pipeline.New(passes, opts...).Run(ctx, input)
	result.RunID = "scenario-" + scenario.Name
	if err != nil {
		result.Err = err
		switch {
		case scenario.ExpectError == "":
			result.AddError(fmt.Sprintf("run failed: %v", err))
		case !strings.Contains(err.Error(), scenario.ExpectError):
			result.AddError(fmt.Sprintf("expected error containing %q, got %v", scenario.ExpectError, err))
		}
		return result, nil
	}

	result.Plan = res.Plan
	result.Applied = res.Applied
	result.Iterations = res.Iterations
	if scenario.ExpectError != "" {
		result.AddError(fmt.Sprintf("expected error containing %q, run succeeded", scenario.ExpectError))
		return result, nil
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}
