package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claidex/risk-engine/internal/config"
	"github.com/claidex/risk-engine/internal/domain/scoring"
	"github.com/claidex/risk-engine/internal/infrastructure/monitoring/logging"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient(config.RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func samplePartition(npis ...string) []scoring.RiskScore {
	out := make([]scoring.RiskScore, 0, len(npis))
	for i, npi := range npis {
		out = append(out, scoring.RiskScore{
			NPI:       npi,
			RiskScore: float64(10 * i),
			RiskLabel: "Low",
		})
	}
	return out
}

func TestPartitionStore_SaveAndLoad(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewPartitionStore(client, "risk", time.Hour, logging.NewNopLogger())
	ctx := context.Background()

	require.NoError(t, store.SavePartition(ctx, "run-1", 0, samplePartition("1000000001", "1000000002")))
	require.NoError(t, store.SavePartition(ctx, "run-1", 1, samplePartition("1000000003")))

	parts, err := store.LoadPartitions(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], 2)
	assert.Len(t, parts[1], 1)
	assert.Equal(t, "1000000003", parts[1][0].NPI)
}

func TestPartitionStore_RunsAreIsolated(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewPartitionStore(client, "risk", time.Hour, logging.NewNopLogger())
	ctx := context.Background()

	require.NoError(t, store.SavePartition(ctx, "run-a", 0, samplePartition("1000000001")))
	require.NoError(t, store.SavePartition(ctx, "run-b", 0, samplePartition("1000000002")))

	parts, err := store.LoadPartitions(ctx, "run-a")
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, "1000000001", parts[0][0].NPI)
}

func TestPartitionStore_UnknownRunIsEmpty(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewPartitionStore(client, "risk", time.Hour, logging.NewNopLogger())

	parts, err := store.LoadPartitions(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestPartitionStore_OverwriteReplacesBatch(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewPartitionStore(client, "risk", time.Hour, logging.NewNopLogger())
	ctx := context.Background()

	require.NoError(t, store.SavePartition(ctx, "run-1", 0, samplePartition("1000000001")))
	require.NoError(t, store.SavePartition(ctx, "run-1", 0, samplePartition("1000000009")))

	parts, err := store.LoadPartitions(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, parts, 1)
	require.Len(t, parts[0], 1)
	assert.Equal(t, "1000000009", parts[0][0].NPI)
}

func TestPartitionStore_SetsTTL(t *testing.T) {
	client, mr := newTestClient(t)
	store := NewPartitionStore(client, "risk", time.Hour, logging.NewNopLogger())

	require.NoError(t, store.SavePartition(context.Background(), "run-1", 0, samplePartition("1000000001")))
	assert.Equal(t, time.Hour, mr.TTL("risk:run:run-1:batch:0"))
}

func TestPartitionStore_ExpiredPartitionsDisappear(t *testing.T) {
	client, mr := newTestClient(t)
	store := NewPartitionStore(client, "risk", time.Minute, logging.NewNopLogger())
	ctx := context.Background()

	require.NoError(t, store.SavePartition(ctx, "run-1", 0, samplePartition("1000000001")))
	mr.FastForward(2 * time.Minute)

	parts, err := store.LoadPartitions(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestPartitionStore_DeleteRun(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewPartitionStore(client, "risk", time.Hour, logging.NewNopLogger())
	ctx := context.Background()

	require.NoError(t, store.SavePartition(ctx, "run-1", 0, samplePartition("1000000001")))
	require.NoError(t, store.SavePartition(ctx, "run-1", 1, samplePartition("1000000002")))
	require.NoError(t, store.DeleteRun(ctx, "run-1"))

	parts, err := store.LoadPartitions(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestPartitionStore_ManyBatchesSurviveScanPaging(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewPartitionStore(client, "risk", time.Hour, logging.NewNopLogger())
	ctx := context.Background()

	for batch := 0; batch < 250; batch++ {
		require.NoError(t, store.SavePartition(ctx, "run-big", batch, samplePartition("1000000001")))
	}

	parts, err := store.LoadPartitions(ctx, "run-big")
	require.NoError(t, err)
	assert.Len(t, parts, 250)
}
