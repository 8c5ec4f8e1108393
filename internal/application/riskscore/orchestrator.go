package riskscore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/claidex/risk-engine/internal/config"
	"github.com/claidex/risk-engine/internal/domain/provider"
	"github.com/claidex/risk-engine/internal/domain/scoring"
	"github.com/claidex/risk-engine/internal/infrastructure/monitoring/logging"
	"github.com/claidex/risk-engine/pkg/errors"
)

// Options controls a single scoring run.
type Options struct {
	// RunID names the run; empty generates one. Merge-only mode requires the
	// ID of the run whose partitions should be gathered.
	RunID string

	BatchSize    int
	Concurrency  int
	MaxRetries   int
	RetryBackoff time.Duration
	BatchTimeout time.Duration

	// MaxBatches caps how many partitions are scored (0 = all); used for
	// smoke runs against a slice of the population.
	MaxBatches int

	// NPIs restricts scoring to an explicit subset. Peer statistics are
	// still computed over the full population.
	NPIs []string

	// DryRun computes and calibrates but skips the result sink and snapshot.
	DryRun bool

	// MergeOnly skips the scatter phase and gathers whatever partitions the
	// store holds for RunID.
	MergeOnly bool

	// AllowPartial permits gathering when some batches were skipped after
	// exhausting retries.
	AllowPartial bool

	Params scoring.Params
}

func (o *Options) normalize() {
	if o.RunID == "" {
		o.RunID = uuid.NewString()
	}
	if o.BatchSize <= 0 {
		o.BatchSize = config.DefaultBatchSize
	}
	if o.Concurrency <= 0 {
		o.Concurrency = config.DefaultConcurrency
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = config.DefaultRetryBackoff
	}
	if o.BatchTimeout <= 0 {
		o.BatchTimeout = config.DefaultBatchTimeout
	}
	if o.Params == (scoring.Params{}) {
		o.Params = scoring.DefaultParams()
	}
}

// Report summarises a finished run.
type Report struct {
	RunID          string        `json:"run_id"`
	Population     int           `json:"population"`
	Batches        int           `json:"batches"`
	SkippedBatches []int         `json:"skipped_batches,omitempty"`
	Scored         int           `json:"scored"`
	SnapshotKey    string        `json:"snapshot_key,omitempty"`
	DryRun         bool          `json:"dry_run"`
	Duration       time.Duration `json:"duration"`
}

// Orchestrator runs the scatter/gather scoring job.
type Orchestrator struct {
	refs     provider.ReferenceRepository
	pipeline *Pipeline
	parts    PartitionStore
	results  ResultRepository
	events   EventPublisher
	snaps    SnapshotWriter
	metrics  Metrics
	log      logging.Logger
}

// NewOrchestrator wires the run driver. events, snaps, and metrics may be
// nil; they degrade to no-ops.
func NewOrchestrator(
	refs provider.ReferenceRepository,
	pipeline *Pipeline,
	parts PartitionStore,
	results ResultRepository,
	events EventPublisher,
	snaps SnapshotWriter,
	metrics Metrics,
	log logging.Logger,
) *Orchestrator {
	if events == nil {
		events = NopPublisher{}
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Orchestrator{
		refs:     refs,
		pipeline: pipeline,
		parts:    parts,
		results:  results,
		events:   events,
		snaps:    snaps,
		metrics:  metrics,
		log:      log,
	}
}

// Run executes a scoring run end to end and returns its report.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Report, error) {
	opts.normalize()
	start := time.Now()

	if opts.MergeOnly {
		return o.mergeOnly(ctx, opts, start)
	}

	ref, err := o.loadReference(ctx, opts.Params)
	if err != nil {
		return nil, err
	}

	targets := ref.NPIs
	if len(opts.NPIs) > 0 {
		targets = restrictTargets(ref.NPIs, opts.NPIs)
	}
	if len(targets) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyPopulation, "no providers to score")
	}

	partitions := partition(targets, opts.BatchSize)
	if opts.MaxBatches > 0 && len(partitions) > opts.MaxBatches {
		partitions = partitions[:opts.MaxBatches]
	}

	o.log.Info("scoring run starting",
		logging.String("run_id", opts.RunID),
		logging.Int("population", len(targets)),
		logging.Int("batches", len(partitions)),
		logging.Int("batch_size", opts.BatchSize),
		logging.Int("concurrency", opts.Concurrency),
		logging.Bool("dry_run", opts.DryRun))
	o.publish(ctx, func(ctx context.Context) error {
		return o.events.RunStarted(ctx, RunStartedEvent{
			RunID:      opts.RunID,
			Population: len(targets),
			Batches:    len(partitions),
			DryRun:     opts.DryRun,
			StartedAt:  start.UTC(),
		})
	})

	skipped, err := o.scatter(ctx, ref, partitions, opts)
	if err != nil {
		return nil, err
	}

	report, err := o.gather(ctx, opts, len(partitions), skipped, start)
	if err != nil {
		return nil, err
	}
	report.Population = len(targets)
	return report, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scatter
// ─────────────────────────────────────────────────────────────────────────────

// scatter fans the partitions out over workers and returns the batch numbers
// that were skipped after exhausting retries.
func (o *Orchestrator) scatter(ctx context.Context, ref *Reference, partitions [][]string, opts Options) ([]int, error) {
	var (
		mu      sync.Mutex
		skipped []int
	)
	sem := semaphore.NewWeighted(int64(opts.Concurrency))
	g, gctx := errgroup.WithContext(ctx)

	for i := range partitions {
		batch, npis := i, partitions[i]
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			if err := o.runBatch(gctx, ref, opts, batch, npis); err != nil {
				o.metrics.BatchFailed()
				o.log.Error("batch skipped after exhausting retries",
					logging.String("run_id", opts.RunID),
					logging.Int("batch", batch),
					logging.Int("attempts", opts.MaxRetries+1),
					logging.Err(err))
				o.publish(gctx, func(ctx context.Context) error {
					return o.events.BatchFailed(ctx, BatchFailedEvent{
						RunID:    opts.RunID,
						Batch:    batch,
						Attempts: opts.MaxRetries + 1,
						Reason:   err.Error(),
						FailedAt: time.Now().UTC(),
					})
				})
				mu.Lock()
				skipped = append(skipped, batch)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "scatter phase aborted")
	}
	sort.Ints(skipped)
	return skipped, nil
}

// runBatch computes and stores one partition, retrying with exponential
// backoff on failure.
func (o *Orchestrator) runBatch(ctx context.Context, ref *Reference, opts Options, batch int, npis []string) error {
	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 0 {
			o.metrics.BatchRetried()
			backoff := opts.RetryBackoff << (attempt - 1)
			o.log.Warn("retrying batch",
				logging.String("run_id", opts.RunID),
				logging.Int("batch", batch),
				logging.Int("attempt", attempt),
				logging.Duration("backoff", backoff),
				logging.Err(lastErr))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		lastErr = o.attemptBatch(ctx, ref, opts, batch, npis)
		if lastErr == nil {
			o.metrics.BatchProcessed()
			return nil
		}
	}
	return lastErr
}

func (o *Orchestrator) attemptBatch(ctx context.Context, ref *Reference, opts Options, batch int, npis []string) error {
	bctx, cancel := context.WithTimeout(ctx, opts.BatchTimeout)
	defer cancel()

	scores, err := o.pipeline.ComputePartition(bctx, ref, npis)
	if err != nil {
		return err
	}
	if err := o.parts.SavePartition(bctx, opts.RunID, batch, scores); err != nil {
		return errors.Wrap(err, errors.ErrCodePartitionStore,
			fmt.Sprintf("storing partition %d", batch))
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Gather
// ─────────────────────────────────────────────────────────────────────────────

// gather merges stored partitions, calibrates globally, and persists.
func (o *Orchestrator) gather(ctx context.Context, opts Options, expected int, skipped []int, start time.Time) (*Report, error) {
	loaded, err := o.parts.LoadPartitions(ctx, opts.RunID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePartitionStore, "loading partitions for merge")
	}

	if len(loaded)+len(skipped) < expected {
		return nil, errors.Newf(errors.ErrCodeCalibrationBarrier,
			"calibration requires all partitions: have %d of %d (skipped %d)",
			len(loaded), expected, len(skipped))
	}
	if len(skipped) > 0 && !opts.AllowPartial {
		return nil, errors.Newf(errors.ErrCodeCalibrationBarrier,
			"%d batches were skipped; re-run or pass allow-partial to calibrate without them",
			len(skipped))
	}

	scores := mergePartitions(loaded)
	if len(scores) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyPopulation, "no partition produced scores")
	}
	scoring.Calibrate(scores)

	report := &Report{
		RunID:          opts.RunID,
		Batches:        expected,
		SkippedBatches: skipped,
		Scored:         len(scores),
		DryRun:         opts.DryRun,
	}

	if !opts.DryRun {
		if err := o.results.BulkUpsert(ctx, scores); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "persisting calibrated scores")
		}
		if o.snaps != nil {
			key, err := o.snaps.WriteSnapshot(ctx, opts.RunID, scores)
			if err != nil {
				// The result sink holds the authoritative data; a lost
				// snapshot is re-exportable and must not fail the run.
				o.log.Warn("snapshot write failed",
					logging.String("run_id", opts.RunID),
					logging.Err(errors.Wrap(err, errors.ErrCodeSnapshotWriteError, "writing run snapshot")))
			} else {
				report.SnapshotKey = key
			}
		}
	}

	report.Duration = time.Since(start)
	o.metrics.ObserveRunDuration(report.Duration)
	o.publish(ctx, func(ctx context.Context) error {
		return o.events.RunCompleted(ctx, RunCompletedEvent{
			RunID:          opts.RunID,
			Scored:         report.Scored,
			SkippedBatches: skipped,
			SnapshotKey:    report.SnapshotKey,
			DryRun:         opts.DryRun,
			CompletedAt:    time.Now().UTC(),
		})
	})
	o.log.Info("scoring run completed",
		logging.String("run_id", opts.RunID),
		logging.Int("scored", report.Scored),
		logging.Int("skipped_batches", len(skipped)),
		logging.Duration("duration", report.Duration))
	return report, nil
}

// mergeOnly re-runs the gather phase against partitions already in the
// store, without recomputing anything.
func (o *Orchestrator) mergeOnly(ctx context.Context, opts Options, start time.Time) (*Report, error) {
	loaded, err := o.parts.LoadPartitions(ctx, opts.RunID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePartitionStore, "loading partitions for merge")
	}
	if len(loaded) == 0 {
		return nil, errors.Newf(errors.ErrCodeRunNotFound,
			"run %s has no stored partitions", opts.RunID)
	}

	scores := mergePartitions(loaded)
	scoring.Calibrate(scores)

	report := &Report{
		RunID:      opts.RunID,
		Batches:    len(loaded),
		Scored:     len(scores),
		Population: len(scores),
		DryRun:     opts.DryRun,
	}
	if !opts.DryRun {
		if err := o.results.BulkUpsert(ctx, scores); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "persisting calibrated scores")
		}
		if o.snaps != nil {
			key, err := o.snaps.WriteSnapshot(ctx, opts.RunID, scores)
			if err != nil {
				o.log.Warn("snapshot write failed",
					logging.String("run_id", opts.RunID),
					logging.Err(err))
			} else {
				report.SnapshotKey = key
			}
		}
	}
	report.Duration = time.Since(start)
	o.metrics.ObserveRunDuration(report.Duration)
	return report, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (o *Orchestrator) loadReference(ctx context.Context, params scoring.Params) (*Reference, error) {
	rows, err := o.refs.LoadPayments(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeReferenceStore, "loading payment rows")
	}
	providers, err := o.refs.LoadProviders(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeReferenceStore, "loading providers")
	}
	exclusions, err := o.refs.LoadExclusions(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeReferenceStore, "loading exclusions")
	}
	return BuildReference(rows, providers, exclusions, params), nil
}

// restrictTargets intersects the requested subset with the known population,
// preserving sorted order and dropping duplicates and unknowns.
func restrictTargets(population, subset []string) []string {
	want := make(map[string]struct{}, len(subset))
	for _, npi := range subset {
		want[npi] = struct{}{}
	}
	out := make([]string, 0, len(want))
	for _, npi := range population {
		if _, ok := want[npi]; ok {
			out = append(out, npi)
		}
	}
	return out
}

func partition(npis []string, size int) [][]string {
	out := make([][]string, 0, (len(npis)+size-1)/size)
	for start := 0; start < len(npis); start += size {
		end := start + size
		if end > len(npis) {
			end = len(npis)
		}
		out = append(out, npis[start:end])
	}
	return out
}

func mergePartitions(loaded map[int][]scoring.RiskScore) []scoring.RiskScore {
	batches := make([]int, 0, len(loaded))
	for b := range loaded {
		batches = append(batches, b)
	}
	sort.Ints(batches)
	var scores []scoring.RiskScore
	for _, b := range batches {
		scores = append(scores, loaded[b]...)
	}
	return scores
}

// publish runs an event emission, logging instead of failing.
func (o *Orchestrator) publish(ctx context.Context, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		o.log.Warn("event publish failed", logging.Err(err))
	}
}
