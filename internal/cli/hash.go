package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/planir/internal/explain"
	"github.com/roach88/planir/internal/plan"
)

// HashResult is the JSON payload of the hash command.
type HashResult struct {
	File        string `json:"file"`
	Fingerprint string `json:"fingerprint"`
	Nodes       int    `json:"nodes"`
}

// NewHashCommand creates the hash command.
func NewHashCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash <plan-file>",
		Short: "Print the content fingerprint of a plan",
		Long: `Print the SHA-256 content fingerprint of a plan.

Two plans have the same fingerprint exactly when their canonical
documents are equal, whatever format they were written in.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHash(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runHash(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	op, err := loadPlan(formatter, path)
	if err != nil {
		return err
	}

	fp, err := explain.Fingerprint(op)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, "cannot fingerprint plan", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(HashResult{File: path, Fingerprint: fp, Nodes: plan.Count(op)})
	}
	return formatter.Success(fp)
}
