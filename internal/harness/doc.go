// Package harness runs rewrite scenarios: a plan file, a list of passes
// and assertions about what the pipeline did to the plan.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	plan: ../plans/nested.yaml
//	passes:
//	  - name: rename_tables
//	    renames: { orders: archive }
//	  - name: collapse_distinct
//	fixpoint: true
//	max_iterations: 10
//	assertions:
//	  - type: trace_order
//	    passes: [rename_tables, collapse_distinct]
//	  - type: op_count
//	    op: distinct
//	    count: 1
//
// Paths are relative to the scenario file.
//
// # Assertion Types
//
//   - trace_contains: A pass changed the plan at least once
//   - trace_order: Passes changed the plan in this relative order
//   - trace_count: A pass changed the plan exactly N times
//   - op_count: The output plan has exactly N nodes of an operator
//   - diagnostics: The static check of the output reports exactly these codes
//   - same_plan: The output plan has the fingerprint of another plan file
//
// A scenario with expect_error passes when the run fails with an error
// containing that text; its assertions are not evaluated.
//
// # Deterministic Testing
//
// Every run uses the run id "scenario-<name>" and discards logs, so the
// trace and the golden files under testdata/golden are reproducible.
package harness
