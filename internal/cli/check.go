package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/planir/internal/check"
	"github.com/roach88/planir/internal/diag"
	"github.com/roach88/planir/internal/ptype"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Unsupported []string // operator names to report as FEATURE_NOT_SUPPORTED
	Strict      bool     // stop at the first ERROR
}

// CheckResult is the JSON payload of the check command.
type CheckResult struct {
	Valid       bool             `json:"valid"`
	Errors      int              `json:"errors"`
	Warnings    int              `json:"warnings"`
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
}

// DiagnosticJSON is a diagnostic with its properties rendered as text.
type DiagnosticJSON struct {
	Code           string            `json:"code"`
	Severity       string            `json:"severity"`
	Classification string            `json:"classification"`
	Properties     map[string]string `json:"properties,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <plan-file>",
		Short: "Run static checks over a plan",
		Long: `Run static checks over a plan and report every diagnostic found.

Exits with status 1 when any ERROR diagnostic is reported.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Unsupported, "unsupported", nil, "operator names to reject (e.g. pivot,window)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "stop at the first error")

	return cmd
}

func runCheck(opts *CheckOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	op, err := loadPlan(formatter, path)
	if err != nil {
		return err
	}

	var checkOpts []check.Option
	if len(opts.Unsupported) > 0 {
		checkOpts = append(checkOpts, check.WithUnsupported(opts.Unsupported...))
	}

	var diags []diag.Diagnostic
	if opts.Strict {
		strict := &diag.Strict{}
		// An abort is the expected outcome; the diagnostics are reported below.
		_ = check.Run(op, strict, checkOpts...)
		diags = strict.Diagnostics
	} else {
		diags = check.Collect(op, checkOpts...)
	}

	result := summarize(diags)
	formatter.VerboseLog("Checked %s: %d error(s), %d warning(s)", path, result.Errors, result.Warnings)

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		for _, d := range diags {
			fmt.Fprintln(formatter.Writer, d)
		}
		if result.Valid {
			fmt.Fprintf(formatter.Writer, "✓ %s: %d warning(s)\n", path, result.Warnings)
		} else {
			fmt.Fprintf(formatter.Writer, "✗ %s: %d error(s), %d warning(s)\n", path, result.Errors, result.Warnings)
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d error(s) in %s", result.Errors, path))
	}
	return nil
}

func summarize(diags []diag.Diagnostic) CheckResult {
	result := CheckResult{Diagnostics: make([]DiagnosticJSON, 0, len(diags))}
	for _, d := range diags {
		if d.IsError() {
			result.Errors++
		} else {
			result.Warnings++
		}
		result.Diagnostics = append(result.Diagnostics, diagnosticJSON(d))
	}
	result.Valid = result.Errors == 0
	return result
}

func diagnosticJSON(d diag.Diagnostic) DiagnosticJSON {
	out := DiagnosticJSON{
		Code:           d.Code.String(),
		Severity:       d.Severity.String(),
		Classification: d.Classification.String(),
	}
	if len(d.Properties) > 0 {
		out.Properties = make(map[string]string, len(d.Properties))
		for k, v := range d.Properties {
			out.Properties[k] = propString(v)
		}
	}
	return out
}

func propString(v any) string {
	if ts, ok := v.([]ptype.PType); ok {
		parts := make([]string, len(ts))
		for i, t := range ts {
			parts[i] = t.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprint(v)
}
