package minio

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"

	"github.com/minio/minio-go/v7"

	"github.com/claidex/risk-engine/internal/domain/scoring"
	"github.com/claidex/risk-engine/internal/infrastructure/monitoring/logging"
	"github.com/claidex/risk-engine/pkg/errors"
)

// SnapshotStore writes the calibrated population of a run as one gzipped
// JSON object. Snapshots are immutable per run; re-running a merge simply
// overwrites the same key.
type SnapshotStore struct {
	client *Client
	logger logging.Logger
}

// NewSnapshotStore constructs a snapshot store on the client's bucket.
func NewSnapshotStore(client *Client, log logging.Logger) *SnapshotStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &SnapshotStore{client: client, logger: log}
}

// SnapshotKey returns the object key for a run's snapshot.
func SnapshotKey(runID string) string {
	return fmt.Sprintf("runs/%s/scores.json.gz", runID)
}

// WriteSnapshot persists the scored population and returns the object key.
func (s *SnapshotStore) WriteSnapshot(ctx context.Context, runID string, scores []scoring.RiskScore) (string, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(scores); err != nil {
		gz.Close() //nolint:errcheck
		return "", errors.Wrap(err, errors.ErrCodeSerialization, "encoding snapshot")
	}
	if err := gz.Close(); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSnapshotWriteError, "compressing snapshot")
	}

	key := SnapshotKey(runID)
	_, err := s.client.api.PutObject(ctx, s.client.bucket, key,
		bytes.NewReader(buf.Bytes()), int64(buf.Len()),
		minio.PutObjectOptions{
			ContentType:     "application/json",
			ContentEncoding: "gzip",
		})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSnapshotWriteError, "uploading snapshot")
	}

	s.logger.Info("snapshot written",
		logging.String("run_id", runID),
		logging.String("key", key),
		logging.Int("scores", len(scores)),
		logging.Int("bytes", buf.Len()),
	)
	return key, nil
}

// ReadSnapshot loads a previously written snapshot.
func (s *SnapshotStore) ReadSnapshot(ctx context.Context, runID string) ([]scoring.RiskScore, error) {
	obj, err := s.client.api.GetObject(ctx, s.client.bucket, SnapshotKey(runID))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSnapshotWriteError, "fetching snapshot")
	}
	defer obj.Close() //nolint:errcheck

	gz, err := gzip.NewReader(obj)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSnapshotWriteError, "decompressing snapshot")
	}
	defer gz.Close() //nolint:errcheck

	var scores []scoring.RiskScore
	if err := json.NewDecoder(gz).Decode(&scores); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decoding snapshot")
	}
	return scores, nil
}
