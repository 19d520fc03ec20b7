package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/planir/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Store string
}

// RunJSON is a stored run in JSON output.
type RunJSON struct {
	ID         string   `json:"id"`
	Seq        int64    `json:"seq"`
	Input      string   `json:"input"`
	Output     string   `json:"output"`
	Passes     []string `json:"passes"`
	Applied    []string `json:"applied"`
	Iterations int      `json:"iterations"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history --store <db> [fingerprint]",
		Short: "List rewrite runs recorded in a plan store",
		Long: `List the rewrite runs recorded with rewrite --store, oldest first.

Given a plan fingerprint, list only the chain of runs that produced it.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Store, "store", "", "plan store database (required)")
	_ = cmd.MarkFlagRequired("store")

	return cmd
}

func runHistory(opts *HistoryOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	s, err := store.Open(opts.Store)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "cannot open plan store", err)
	}
	defer s.Close()

	var runs []store.Run
	if len(args) == 1 {
		runs, err = s.Lineage(cmd.Context(), args[0])
	} else {
		runs, err = s.Runs(cmd.Context())
	}
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeStore, "cannot read plan store", err)
	}

	if formatter.Format == "json" {
		out := make([]RunJSON, len(runs))
		for i, r := range runs {
			out[i] = RunJSON(r)
		}
		return formatter.Success(out)
	}

	if len(runs) == 0 {
		_, err := fmt.Fprintln(formatter.Writer, "no runs")
		return err
	}
	for _, r := range runs {
		applied := "none"
		if len(r.Applied) > 0 {
			applied = strings.Join(r.Applied, ", ")
		}
		fmt.Fprintf(formatter.Writer, "#%d %s %s -> %s applied: %s\n",
			r.Seq, r.ID, short(r.Input), short(r.Output), applied)
	}
	return nil
}

// short abbreviates a fingerprint for text output.
func short(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
