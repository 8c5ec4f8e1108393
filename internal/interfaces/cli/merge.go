package cli

import (
	"github.com/spf13/cobra"
)

// newMergeCmd creates the "merge" subcommand: gather the partitions an
// interrupted run left in the partition store and finish calibration without
// re-scoring.
func newMergeCmd() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Gather stored partitions for a run and finish calibration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd, flags, true)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&flags.runID, "run-id", "", "run whose partitions to gather (required)")
	fl.BoolVar(&flags.dryRun, "dry-run", false, "calibrate without writing results")
	fl.BoolVar(&flags.allowPartial, "allow-partial", false, "calibrate even when batches are missing")
	_ = cmd.MarkFlagRequired("run-id")

	return cmd
}
