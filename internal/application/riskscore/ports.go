// Package riskscore drives the population-scale scoring run: it loads the
// reference dataset, scatters partitions across workers, gathers partition
// outputs, performs the single global calibration pass, and persists the
// result. The domain arithmetic lives in internal/domain; this package owns
// orchestration and the contracts to the outside world.
package riskscore

import (
	"context"
	"time"

	"github.com/claidex/risk-engine/internal/domain/ownership"
	"github.com/claidex/risk-engine/internal/domain/scoring"
)

// ResultRepository is the durable result sink. Upserts are idempotent whole
// record replacements keyed by NPI.
type ResultRepository interface {
	BulkUpsert(ctx context.Context, scores []scoring.RiskScore) error
	GetByNPI(ctx context.Context, npi string) (*scoring.RiskScore, error)
}

// PartitionStore is the scatter/gather barrier: workers write completed
// partition outputs here and the gather phase reads them all back. Entries
// are run-scoped and expire, so a crashed run leaves no permanent residue.
type PartitionStore interface {
	SavePartition(ctx context.Context, runID string, batch int, scores []scoring.RiskScore) error

	// LoadPartitions returns every stored partition for the run, keyed by
	// batch number.
	LoadPartitions(ctx context.Context, runID string) (map[int][]scoring.RiskScore, error)
}

// SnapshotWriter persists the final calibrated population for audit/export
// and returns the object key it wrote.
type SnapshotWriter interface {
	WriteSnapshot(ctx context.Context, runID string, scores []scoring.RiskScore) (string, error)
}

// ChainResolver resolves ownership chain statistics for a whole partition in
// a bounded number of graph round-trips.
type ChainResolver interface {
	ResolveBatch(ctx context.Context, seeds []ownership.Seed) (map[string]ownership.ChainStats, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Run lifecycle events
// ─────────────────────────────────────────────────────────────────────────────

// RunStartedEvent announces a new scoring run.
type RunStartedEvent struct {
	RunID      string    `json:"run_id"`
	Population int       `json:"population"`
	Batches    int       `json:"batches"`
	DryRun     bool      `json:"dry_run"`
	StartedAt  time.Time `json:"started_at"`
}

// BatchFailedEvent records a batch that exhausted its retries and was
// skipped; operators follow up on these.
type BatchFailedEvent struct {
	RunID    string    `json:"run_id"`
	Batch    int       `json:"batch"`
	Attempts int       `json:"attempts"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}

// RunCompletedEvent closes a run, successfully or partially.
type RunCompletedEvent struct {
	RunID          string    `json:"run_id"`
	Scored         int       `json:"scored"`
	SkippedBatches []int     `json:"skipped_batches,omitempty"`
	SnapshotKey    string    `json:"snapshot_key,omitempty"`
	DryRun         bool      `json:"dry_run"`
	CompletedAt    time.Time `json:"completed_at"`
}

// EventPublisher emits run lifecycle events. Publishing is best-effort from
// the orchestrator's point of view: failures are logged, never fatal.
type EventPublisher interface {
	RunStarted(ctx context.Context, event RunStartedEvent) error
	BatchFailed(ctx context.Context, event BatchFailedEvent) error
	RunCompleted(ctx context.Context, event RunCompletedEvent) error
}

// Metrics is the orchestrator's view of the metrics collector.
type Metrics interface {
	BatchProcessed()
	BatchRetried()
	BatchFailed()
	GraphDegraded()
	ObserveRunDuration(d time.Duration)
}

// ─────────────────────────────────────────────────────────────────────────────
// No-op implementations for optional wiring
// ─────────────────────────────────────────────────────────────────────────────

// NopPublisher discards all events.
type NopPublisher struct{}

func (NopPublisher) RunStarted(context.Context, RunStartedEvent) error     { return nil }
func (NopPublisher) BatchFailed(context.Context, BatchFailedEvent) error   { return nil }
func (NopPublisher) RunCompleted(context.Context, RunCompletedEvent) error { return nil }

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) BatchProcessed()                  {}
func (NopMetrics) BatchRetried()                    {}
func (NopMetrics) BatchFailed()                     {}
func (NopMetrics) GraphDegraded()                   {}
func (NopMetrics) ObserveRunDuration(time.Duration) {}
