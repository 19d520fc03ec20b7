package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/planir/internal/explain"
	"github.com/roach88/planir/internal/plan"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	Types bool // print each node's type
	Tags  bool // print pre-order tags
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain <plan-file>",
		Short: "Print a plan as a tree",
		Long: `Print a plan as an indented operator tree.

With --format json the plan is printed as its canonical document, the
same form plan files are written in.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Types, "types", "t", false, "show the type of every node")
	cmd.Flags().BoolVar(&opts.Tags, "tags", false, "show pre-order node tags")

	return cmd
}

func runExplain(opts *ExplainOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	op, err := loadPlan(formatter, path)
	if err != nil {
		return err
	}

	if formatter.Format == "json" {
		return formatter.Success(explain.Document(op))
	}

	var treeOpts []explain.Option
	if opts.Types {
		treeOpts = append(treeOpts, explain.WithTypes())
	}
	if opts.Tags {
		tags := plan.NewTags()
		tags.AssignAll(op)
		treeOpts = append(treeOpts, explain.WithTags(tags))
	}
	return explain.Fprint(formatter.Writer, op, treeOpts...)
}
