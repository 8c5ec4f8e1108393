package minio

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claidex/risk-engine/internal/domain/scoring"
	"github.com/claidex/risk-engine/internal/infrastructure/monitoring/logging"
)

type fakeAPI struct {
	objects     map[string][]byte
	contentType map[string]string
	buckets     map[string]bool
	putErr      error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		objects:     make(map[string][]byte),
		contentType: make(map[string]string),
		buckets:     map[string]bool{"risk-snapshots": true},
	}
}

func (f *fakeAPI) BucketExists(_ context.Context, bucket string) (bool, error) {
	return f.buckets[bucket], nil
}

func (f *fakeAPI) MakeBucket(_ context.Context, bucket string, _ miniogo.MakeBucketOptions) error {
	f.buckets[bucket] = true
	return nil
}

func (f *fakeAPI) PutObject(_ context.Context, bucket, object string, reader io.Reader, _ int64, opts miniogo.PutObjectOptions) (miniogo.UploadInfo, error) {
	if f.putErr != nil {
		return miniogo.UploadInfo{}, f.putErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return miniogo.UploadInfo{}, err
	}
	f.objects[bucket+"/"+object] = data
	f.contentType[bucket+"/"+object] = opts.ContentType
	return miniogo.UploadInfo{Bucket: bucket, Key: object, Size: int64(len(data))}, nil
}

func (f *fakeAPI) GetObject(_ context.Context, bucket, object string) (io.ReadCloser, error) {
	data, ok := f.objects[bucket+"/"+object]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func newTestStore(t *testing.T) (*SnapshotStore, *fakeAPI) {
	t.Helper()
	api := newFakeAPI()
	client := NewClientWithAPI(api, "risk-snapshots", logging.NewNopLogger())
	return NewSnapshotStore(client, logging.NewNopLogger()), api
}

func sampleScores() []scoring.RiskScore {
	return []scoring.RiskScore{
		{NPI: "1000000001", RiskScore: 12.5, RiskLabel: "Low"},
		{NPI: "1000000002", RiskScore: 88.0, RiskLabel: "High"},
	}
}

func TestSnapshotStore_WriteAndRead(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	key, err := store.WriteSnapshot(ctx, "run-1", sampleScores())
	require.NoError(t, err)
	assert.Equal(t, "runs/run-1/scores.json.gz", key)

	scores, err := store.ReadSnapshot(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, "1000000001", scores[0].NPI)
	assert.Equal(t, "High", scores[1].RiskLabel)
}

func TestSnapshotStore_ObjectIsGzippedJSON(t *testing.T) {
	store, api := newTestStore(t)

	_, err := store.WriteSnapshot(context.Background(), "run-1", sampleScores())
	require.NoError(t, err)

	raw := api.objects["risk-snapshots/runs/run-1/scores.json.gz"]
	require.NotEmpty(t, raw)
	assert.Equal(t, "application/json", api.contentType["risk-snapshots/runs/run-1/scores.json.gz"])

	gz, err := gzip.NewReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer gz.Close()

	var scores []scoring.RiskScore
	require.NoError(t, json.NewDecoder(gz).Decode(&scores))
	assert.Len(t, scores, 2)
}

func TestSnapshotStore_EmptyPopulation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.WriteSnapshot(ctx, "run-empty", nil)
	require.NoError(t, err)

	scores, err := store.ReadSnapshot(ctx, "run-empty")
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestSnapshotStore_UploadFailure(t *testing.T) {
	store, api := newTestStore(t)
	api.putErr = errors.New("connection reset")

	_, err := store.WriteSnapshot(context.Background(), "run-1", sampleScores())
	require.Error(t, err)
}

func TestSnapshotStore_MissingSnapshot(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.ReadSnapshot(context.Background(), "never-ran")
	require.Error(t, err)
}
