package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a rewrite scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Plan is the path of the input plan file.
	Plan string `yaml:"plan"`

	// Passes are run in order.
	Passes []PassStep `yaml:"passes"`

	// Fixpoint repeats the passes until the plan stops changing.
	Fixpoint bool `yaml:"fixpoint,omitempty"`

	// MaxIterations bounds a fixpoint run. Zero uses the pipeline default.
	MaxIterations int `yaml:"max_iterations,omitempty"`

	// ExpectError, when set, is text the run's error must contain.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions validate the trace and the output plan.
	Assertions []Assertion `yaml:"assertions"`
}

// PassStep names a pass and its arguments.
type PassStep struct {
	Name string `yaml:"name"`

	// Renames maps old table names to new ones (used by rename_tables).
	Renames map[string]string `yaml:"renames,omitempty"`
}

// Assertion validates the trace or the output plan.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": pass changed the plan at least once
	// - "trace_order": passes changed the plan in this relative order
	// - "trace_count": pass changed the plan exactly count times
	// - "op_count": output has exactly count nodes named op
	// - "diagnostics": output checks with exactly these codes
	// - "same_plan": output has the fingerprint of plan
	Type string `yaml:"type"`

	// Pass is the pass name (used by trace_contains, trace_count).
	Pass string `yaml:"pass,omitempty"`

	// Passes is the expected order (used by trace_order).
	Passes []string `yaml:"passes,omitempty"`

	// Op is an operator name such as "limit" (used by op_count).
	Op string `yaml:"op,omitempty"`

	// Count is the expected number of occurrences (used by trace_count, op_count).
	Count int `yaml:"count,omitempty"`

	// Codes are diagnostic codes in any order (used by diagnostics).
	// Empty means the output checks clean.
	Codes []string `yaml:"codes,omitempty"`

	// Plan is the path of the expected plan file (used by same_plan).
	Plan string `yaml:"plan,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertOpCount       = "op_count"
	AssertDiagnostics   = "diagnostics"
	AssertSamePlan      = "same_plan"
)

// LoadScenario reads and parses a scenario YAML file, resolving plan paths
// relative to the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	scenario.Plan = resolve(base, scenario.Plan)
	for i := range scenario.Assertions {
		scenario.Assertions[i].Plan = resolve(base, scenario.Assertions[i].Plan)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}

	if s.Description == "" {
		return errors.New("description is required")
	}

	if s.Plan == "" {
		return errors.New("plan is required")
	}
	if _, err := os.Stat(s.Plan); os.IsNotExist(err) {
		return fmt.Errorf("plan file not found: %s", s.Plan)
	}

	if len(s.Passes) == 0 {
		return errors.New("passes list is required and must be non-empty")
	}
	for i, step := range s.Passes {
		if _, err := newPass(step); err != nil {
			return fmt.Errorf("passes[%d]: %w", i, err)
		}
	}

	if s.MaxIterations < 0 {
		return errors.New("max_iterations must be non-negative")
	}

	if s.ExpectError == "" && len(s.Assertions) == 0 {
		return errors.New("assertions list is required unless expect_error is set")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Pass == "" {
			return fmt.Errorf("assertions[%d]: pass is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Passes) == 0 {
			return fmt.Errorf("assertions[%d]: passes list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Pass == "" {
			return fmt.Errorf("assertions[%d]: pass is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertOpCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for op_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for op_count", index)
		}
	case AssertDiagnostics:
	case AssertSamePlan:
		if a.Plan == "" {
			return fmt.Errorf("assertions[%d]: plan is required for same_plan", index)
		}
		if _, err := os.Stat(a.Plan); os.IsNotExist(err) {
			return fmt.Errorf("assertions[%d]: plan file not found: %s", index, a.Plan)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
