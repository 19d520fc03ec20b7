package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/planir/internal/diag"
	"github.com/roach88/planir/internal/explain"
	"github.com/roach88/planir/internal/pipeline"
	"github.com/roach88/planir/internal/plan"
	"github.com/roach88/planir/internal/store"
)

// RewriteOptions holds flags for the rewrite command.
type RewriteOptions struct {
	*RootOptions
	RenameTables     map[string]string // old name -> new name
	CollapseDistinct bool
	MergeLimits      bool
	Fixpoint         bool
	MaxIterations    int
	Check            bool   // check the result and fail on ERROR diagnostics
	Store            string // record the run in this database
}

// RewriteResult is the JSON payload of the rewrite command.
type RewriteResult struct {
	Plan       map[string]any `json:"plan"`
	Iterations int            `json:"iterations"`
	Applied    []string       `json:"applied"`
	Shared     int            `json:"shared_nodes"`
}

// NewRewriteCommand creates the rewrite command.
func NewRewriteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RewriteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rewrite <plan-file>",
		Short: "Run rewrite passes over a plan",
		Long: `Run rewrite passes over a plan and print the result.

Passes run in the order rename-table, collapse-distinct, merge-limits.
Subtrees a pass leaves alone are shared with the input plan; the text
output reports how many input nodes were reused.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRewrite(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringToStringVar(&opts.RenameTables, "rename-table", nil, "rename a table, as old=new (repeatable)")
	cmd.Flags().BoolVar(&opts.CollapseDistinct, "collapse-distinct", false, "remove DISTINCT directly over DISTINCT")
	cmd.Flags().BoolVar(&opts.MergeLimits, "merge-limits", false, "merge nested literal LIMITs")
	cmd.Flags().BoolVar(&opts.Fixpoint, "fixpoint", false, "repeat the passes until the plan stops changing")
	cmd.Flags().IntVar(&opts.MaxIterations, "max-iterations", pipeline.DefaultMaxIterations, "fixpoint round limit")
	cmd.Flags().BoolVar(&opts.Check, "check", false, "check the rewritten plan and fail on errors")
	cmd.Flags().StringVar(&opts.Store, "store", "", "record the run in a plan store database")

	return cmd
}

func (o *RewriteOptions) passes() []pipeline.Pass {
	var passes []pipeline.Pass
	if len(o.RenameTables) > 0 {
		passes = append(passes, pipeline.RenameTables(o.RenameTables))
	}
	if o.CollapseDistinct {
		passes = append(passes, pipeline.CollapseDistinct())
	}
	if o.MergeLimits {
		passes = append(passes, pipeline.MergeLimits())
	}
	return passes
}

func runRewrite(opts *RewriteOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	for from, to := range opts.RenameTables {
		if from == "" || to == "" {
			return formatter.Fail(ExitCommandError, ErrCodeInvalidFlag,
				fmt.Sprintf("invalid --rename-table %q=%q", from, to), nil)
		}
	}

	op, err := loadPlan(formatter, path)
	if err != nil {
		return err
	}

	pipeOpts := []pipeline.Option{
		pipeline.WithLogger(formatter.Logger()),
		pipeline.WithMaxIterations(opts.MaxIterations),
	}
	if opts.Fixpoint {
		pipeOpts = append(pipeOpts, pipeline.WithFixpoint())
	}
	if opts.Check {
		pipeOpts = append(pipeOpts, pipeline.WithListener(&diag.Strict{}))
	}
	p := pipeline.New(opts.passes(), pipeOpts...)
	formatter.VerboseLog("Running %s", p)

	res, err := p.Run(cmd.Context(), op)
	if err != nil {
		if diag.IsAbort(err) {
			return formatter.Fail(ExitFailure, ErrCodeCheckFailed, "rewritten plan does not check", err)
		}
		return formatter.Fail(ExitFailure, ErrCodeRewrite, "rewrite failed", err)
	}

	if opts.Store != "" {
		if err := recordRun(cmd.Context(), formatter, opts.Store, p, op, res); err != nil {
			return err
		}
	}

	shared := plan.Shared(op, res.Plan)
	if formatter.Format == "json" {
		return formatter.SuccessWithRun(res.RunID, RewriteResult{
			Plan:       explain.Document(res.Plan),
			Iterations: res.Iterations,
			Applied:    append([]string{}, res.Applied...),
			Shared:     shared,
		})
	}

	if err := explain.Fprint(formatter.Writer, res.Plan); err != nil {
		return err
	}
	applied := "none"
	if len(res.Applied) > 0 {
		applied = strings.Join(res.Applied, ", ")
	}
	_, err = fmt.Fprintf(formatter.Writer, "\napplied: %s (%d round(s)); %d of %d node(s) shared with the input\n",
		applied, res.Iterations, shared, plan.Count(res.Plan))
	return err
}

// recordRun writes the input and output plans and the run to the store at
// path.
func recordRun(ctx context.Context, formatter *OutputFormatter, path string, p *pipeline.Pipeline, in plan.Operator, res *pipeline.Result) error {
	s, err := store.Open(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "cannot open plan store", err)
	}
	defer s.Close()

	run, err := s.WriteRun(ctx, store.Run{
		ID:         res.RunID,
		Passes:     p.IDs(),
		Applied:    res.Applied,
		Iterations: res.Iterations,
	}, in, res.Plan)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeStore, "cannot record run", err)
	}
	formatter.VerboseLog("Recorded run %s as #%d in %s", run.ID, run.Seq, path)
	return nil
}
