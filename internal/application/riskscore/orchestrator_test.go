package riskscore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claidex/risk-engine/internal/domain/provider"
	"github.com/claidex/risk-engine/internal/domain/scoring"
	"github.com/claidex/risk-engine/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeRefRepo struct {
	rows       []provider.PaymentRow
	providers  []provider.Provider
	exclusions []provider.Exclusion
}

func (r *fakeRefRepo) LoadPayments(context.Context, []string) ([]provider.PaymentRow, error) {
	return r.rows, nil
}
func (r *fakeRefRepo) LoadProviders(context.Context, []string) ([]provider.Provider, error) {
	return r.providers, nil
}
func (r *fakeRefRepo) LoadExclusions(context.Context, []string) ([]provider.Exclusion, error) {
	return r.exclusions, nil
}

type memPartitionStore struct {
	mu sync.Mutex
	// failBatches maps batch number to how many save attempts should fail.
	failBatches map[int]int
	runs        map[string]map[int][]scoring.RiskScore
}

func newMemPartitionStore() *memPartitionStore {
	return &memPartitionStore{
		failBatches: map[int]int{},
		runs:        map[string]map[int][]scoring.RiskScore{},
	}
}

func (s *memPartitionStore) SavePartition(_ context.Context, runID string, batch int, scores []scoring.RiskScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failBatches[batch] > 0 {
		s.failBatches[batch]--
		return fmt.Errorf("redis: connection pool exhausted")
	}
	if s.runs[runID] == nil {
		s.runs[runID] = map[int][]scoring.RiskScore{}
	}
	s.runs[runID][batch] = scores
	return nil
}

func (s *memPartitionStore) LoadPartitions(_ context.Context, runID string) (map[int][]scoring.RiskScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[int][]scoring.RiskScore{}
	for b, sc := range s.runs[runID] {
		out[b] = sc
	}
	return out, nil
}

type memResults struct {
	mu      sync.Mutex
	upserts int
	byNPI   map[string]scoring.RiskScore
}

func newMemResults() *memResults {
	return &memResults{byNPI: map[string]scoring.RiskScore{}}
}

func (r *memResults) BulkUpsert(_ context.Context, scores []scoring.RiskScore) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	for _, s := range scores {
		r.byNPI[s.NPI] = s
	}
	return nil
}

func (r *memResults) GetByNPI(_ context.Context, npi string) (*scoring.RiskScore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byNPI[npi]
	if !ok {
		return nil, errors.NotFound("risk score for " + npi)
	}
	return &s, nil
}

type memEvents struct {
	mu        sync.Mutex
	started   []RunStartedEvent
	failed    []BatchFailedEvent
	completed []RunCompletedEvent
}

func (e *memEvents) RunStarted(_ context.Context, ev RunStartedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.started = append(e.started, ev)
	return nil
}
func (e *memEvents) BatchFailed(_ context.Context, ev BatchFailedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failed = append(e.failed, ev)
	return nil
}
func (e *memEvents) RunCompleted(_ context.Context, ev RunCompletedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.completed = append(e.completed, ev)
	return nil
}

type memSnaps struct {
	mu   sync.Mutex
	keys []string
}

func (s *memSnaps) WriteSnapshot(_ context.Context, runID string, _ []scoring.RiskScore) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := "runs/" + runID + "/scores.json.gz"
	s.keys = append(s.keys, key)
	return key, nil
}

type harness struct {
	refs    *fakeRefRepo
	parts   *memPartitionStore
	results *memResults
	events  *memEvents
	snaps   *memSnaps
	metrics *countingMetrics
	orch    *Orchestrator
}

func newHarness(n int, exclusions []provider.Exclusion) *harness {
	rows, provs := cohortData(n)
	h := &harness{
		refs:    &fakeRefRepo{rows: rows, providers: provs, exclusions: exclusions},
		parts:   newMemPartitionStore(),
		results: newMemResults(),
		events:  &memEvents{},
		snaps:   &memSnaps{},
		metrics: &countingMetrics{},
	}
	h.orch = NewOrchestrator(h.refs, NewPipeline(nil, h.metrics, nil),
		h.parts, h.results, h.events, h.snaps, h.metrics, nil)
	return h
}

func fastOpts() Options {
	return Options{
		BatchSize:    25,
		Concurrency:  4,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
		BatchTimeout: time.Minute,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestRun_EndToEnd(t *testing.T) {
	h := newHarness(100, nil)

	report, err := h.orch.Run(context.Background(), fastOpts())
	require.NoError(t, err)

	assert.Equal(t, 100, report.Population)
	assert.Equal(t, 4, report.Batches)
	assert.Equal(t, 100, report.Scored)
	assert.Empty(t, report.SkippedBatches)
	assert.NotEmpty(t, report.SnapshotKey)
	assert.Len(t, h.results.byNPI, 100)
	assert.Equal(t, 4, h.metrics.processed)

	// Every score calibrated and labelled; population extremes hit 0/100.
	var min, max = 200.0, -1.0
	for _, s := range h.results.byNPI {
		assert.GreaterOrEqual(t, s.RiskScore, 0.0)
		assert.LessOrEqual(t, s.RiskScore, 100.0)
		assert.NotEmpty(t, s.RiskLabel)
		if s.RiskScore < min {
			min = s.RiskScore
		}
		if s.RiskScore > max {
			max = s.RiskScore
		}
	}
	assert.Equal(t, 0.0, min)
	assert.Equal(t, 100.0, max)

	require.Len(t, h.events.started, 1)
	require.Len(t, h.events.completed, 1)
	assert.Equal(t, report.RunID, h.events.started[0].RunID)
	assert.Equal(t, 100, h.events.completed[0].Scored)
}

func TestRun_ThreeProviderCalibration(t *testing.T) {
	// Median provider, a billing outlier, and a directly excluded provider:
	// three distinct raw composites spread to exactly 0/50/100.
	rows, provs := cohortData(60)
	outlier := provs[10].NPI
	excluded := provs[20].NPI
	for i := range rows {
		if rows[i].NPI == outlier {
			rows[i].Payments = 90000
		}
	}
	h := newHarness(0, nil)
	h.refs.rows = rows
	h.refs.providers = provs
	h.refs.exclusions = []provider.Exclusion{{NPI: excluded, ExclDate: "2023-05-01"}}

	opts := fastOpts()
	opts.NPIs = []string{provs[30].NPI, outlier, excluded}
	report, err := h.orch.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Scored)

	scores := map[string]scoring.RiskScore{}
	for npi, s := range h.results.byNPI {
		scores[npi] = s
	}
	// Raw composites order median < billing outlier < directly excluded
	// (exclusion carries weight 0.15 at score 100, billing 0.30 at ~84).
	assert.Equal(t, 0.0, scores[provs[30].NPI].RiskScore)
	assert.Equal(t, "Low", scores[provs[30].NPI].RiskLabel)
	assert.Equal(t, 50.0, scores[outlier].RiskScore)
	assert.Equal(t, "Moderate", scores[outlier].RiskLabel)
	assert.Equal(t, 100.0, scores[excluded].RiskScore)
	assert.Equal(t, "High", scores[excluded].RiskLabel)
}

func TestRun_PartitionInvariance(t *testing.T) {
	single := newHarness(120, nil)
	optsSingle := fastOpts()
	optsSingle.BatchSize = 120
	_, err := single.orch.Run(context.Background(), optsSingle)
	require.NoError(t, err)

	split := newHarness(120, nil)
	optsSplit := fastOpts()
	optsSplit.BatchSize = 7
	_, err = split.orch.Run(context.Background(), optsSplit)
	require.NoError(t, err)

	require.Equal(t, len(single.results.byNPI), len(split.results.byNPI))
	for npi, want := range single.results.byNPI {
		got := split.results.byNPI[npi]
		assert.InDelta(t, want.RiskScore, got.RiskScore, 1e-6, "npi %s", npi)
		assert.InDelta(t, want.RRaw, got.RRaw, 1e-6, "npi %s", npi)
		assert.Equal(t, want.RiskLabel, got.RiskLabel, "npi %s", npi)
	}
}

func TestRun_Idempotent(t *testing.T) {
	h := newHarness(50, nil)
	opts := fastOpts()

	_, err := h.orch.Run(context.Background(), opts)
	require.NoError(t, err)
	first := make(map[string]scoring.RiskScore, len(h.results.byNPI))
	for npi, s := range h.results.byNPI {
		first[npi] = s
	}

	_, err = h.orch.Run(context.Background(), opts)
	require.NoError(t, err)
	for npi, s := range h.results.byNPI {
		assert.InDelta(t, first[npi].RiskScore, s.RiskScore, 1e-6)
		assert.InDelta(t, first[npi].RRaw, s.RRaw, 1e-6)
	}
}

func TestRun_DryRunSkipsPersistence(t *testing.T) {
	h := newHarness(50, nil)
	opts := fastOpts()
	opts.DryRun = true

	report, err := h.orch.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 50, report.Scored)
	assert.True(t, report.DryRun)
	assert.Empty(t, report.SnapshotKey)
	assert.Zero(t, h.results.upserts)
	assert.Empty(t, h.snaps.keys)
}

func TestRun_SubsetKeepsGlobalPeerVisibility(t *testing.T) {
	h := newHarness(80, nil)
	opts := fastOpts()
	opts.NPIs = []string{h.refs.providers[3].NPI, h.refs.providers[9].NPI}

	report, err := h.orch.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Population)
	assert.Len(t, h.results.byNPI, 2)

	s := h.results.byNPI[h.refs.providers[3].NPI]
	assert.Equal(t, 80, s.PeerCount, "peer stats span the full population, not the subset")
}

func TestRun_RetryRecoversTransientFailure(t *testing.T) {
	h := newHarness(50, nil)
	h.parts.failBatches[0] = 1

	report, err := h.orch.Run(context.Background(), fastOpts())
	require.NoError(t, err)
	assert.Empty(t, report.SkippedBatches)
	assert.Equal(t, 1, h.metrics.retried)
	assert.Zero(t, h.metrics.failed)
	assert.Len(t, h.results.byNPI, 50)
}

func TestRun_ExhaustedBatchBlocksCalibration(t *testing.T) {
	h := newHarness(50, nil)
	h.parts.failBatches[1] = 100

	_, err := h.orch.Run(context.Background(), fastOpts())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCalibrationBarrier))
	assert.Equal(t, 1, h.metrics.failed)
	require.Len(t, h.events.failed, 1)
	assert.Equal(t, 1, h.events.failed[0].Batch)
	assert.Equal(t, 3, h.events.failed[0].Attempts)
}

func TestRun_AllowPartialCalibratesWithoutSkippedBatch(t *testing.T) {
	h := newHarness(50, nil)
	h.parts.failBatches[1] = 100

	opts := fastOpts()
	opts.AllowPartial = true
	report, err := h.orch.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, report.SkippedBatches)
	assert.Equal(t, 25, report.Scored, "one of two batches survived")
	assert.Equal(t, []int{1}, h.events.completed[0].SkippedBatches)
}

func TestRun_MergeOnlyReusesStoredPartitions(t *testing.T) {
	h := newHarness(50, nil)
	opts := fastOpts()
	opts.DryRun = true
	report, err := h.orch.Run(context.Background(), opts)
	require.NoError(t, err)
	require.Zero(t, h.results.upserts)

	merge := fastOpts()
	merge.MergeOnly = true
	merge.RunID = report.RunID
	mergeReport, err := h.orch.Run(context.Background(), merge)
	require.NoError(t, err)
	assert.Equal(t, 50, mergeReport.Scored)
	assert.Equal(t, 1, h.results.upserts)
}

func TestRun_MergeOnlyUnknownRun(t *testing.T) {
	h := newHarness(10, nil)
	opts := fastOpts()
	opts.MergeOnly = true
	opts.RunID = "no-such-run"

	_, err := h.orch.Run(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRunNotFound))
}

func TestRun_EmptyPopulation(t *testing.T) {
	h := newHarness(10, nil)
	opts := fastOpts()
	opts.NPIs = []string{"1777777777"} // not in the population

	_, err := h.orch.Run(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeEmptyPopulation))
}

func TestRun_MaxBatchesLimitsScatter(t *testing.T) {
	h := newHarness(100, nil)
	opts := fastOpts()
	opts.MaxBatches = 2
	opts.DryRun = true

	report, err := h.orch.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Batches)
	assert.Equal(t, 50, report.Scored)
}

func TestPartitionHelper(t *testing.T) {
	parts := partition([]string{"a", "b", "c", "d", "e"}, 2)
	require.Len(t, parts, 3)
	assert.Equal(t, []string{"a", "b"}, parts[0])
	assert.Equal(t, []string{"e"}, parts[2])

	assert.Empty(t, partition(nil, 10))
}
