package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/claidex/risk-engine/internal/application/riskscore"
	"github.com/claidex/risk-engine/internal/config"
	"github.com/claidex/risk-engine/internal/domain/scoring"
)

// runFlags holds per-run overrides; zero values defer to config.
type runFlags struct {
	runID        string
	dryRun       bool
	npis         []string
	batchSize    int
	maxBatches   int
	allowPartial bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.runID, "run-id", "", "run identifier (default: generated)")
	fl.BoolVar(&f.dryRun, "dry-run", false, "score and calibrate without writing results")
	fl.StringSliceVar(&f.npis, "npis", nil, "restrict scoring to these NPIs (comma-separated)")
	fl.IntVar(&f.batchSize, "batch-size", 0, "providers per batch (default: from config)")
	fl.IntVar(&f.maxBatches, "max-batches", 0, "cap on batches scored, 0 for all")
	fl.BoolVar(&f.allowPartial, "allow-partial", false, "calibrate even when batches were skipped")
}

// orchestratorOptions merges config defaults with flag overrides.
func orchestratorOptions(cfg *config.Config, f *runFlags, mergeOnly bool) riskscore.Options {
	opts := riskscore.Options{
		RunID:        f.runID,
		BatchSize:    cfg.Run.BatchSize,
		Concurrency:  cfg.Run.Concurrency,
		MaxRetries:   cfg.Run.MaxRetries,
		RetryBackoff: cfg.Run.RetryBackoff,
		BatchTimeout: cfg.Run.BatchTimeout,
		MaxBatches:   cfg.Run.MaxBatches,
		NPIs:         f.npis,
		DryRun:       f.dryRun,
		MergeOnly:    mergeOnly,
		AllowPartial: f.allowPartial,
		Params:       scoringParams(cfg.Scoring),
	}
	if f.batchSize > 0 {
		opts.BatchSize = f.batchSize
	}
	if f.maxBatches > 0 {
		opts.MaxBatches = f.maxBatches
	}
	return opts
}

func scoringParams(cfg config.ScoringConfig) scoring.Params {
	return scoring.Params{
		DecayAlpha:         cfg.DecayAlpha,
		WindowYears:        cfg.WindowYears,
		ConcentrationYears: cfg.ConcentrationYears,
		PeerMinSize:        cfg.PeerMinSize,
		PeerMinClaims:      cfg.PeerMinClaims,
	}
}

// newRunCmd creates the "run" subcommand: a full scatter/gather scoring run
// over the provider population.
func newRunCmd() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Score the provider population and persist calibrated results",
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd, flags, false)
		},
	}
	flags.register(cmd)

	return cmd
}

// executeRun wires infrastructure, takes the run lock, and drives the
// orchestrator. Shared by run and merge.
func executeRun(cmd *cobra.Command, flags *runFlags, mergeOnly bool) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := buildRuntime(ctx, cliCtx.Config, cliCtx.Logger)
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	acquired, err := rt.lock.TryAcquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring run lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("another scoring run is in progress")
	}
	defer func() {
		if releaseErr := rt.lock.Release(context.Background()); releaseErr != nil {
			cliCtx.Logger.Warn("releasing run lock failed")
		}
	}()

	report, err := rt.orchestrator.Run(ctx, orchestratorOptions(cliCtx.Config, flags, mergeOnly))
	if err != nil {
		return err
	}

	return printJSON(report)
}
