package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/claidex/risk-engine/internal/domain/scoring"
	"github.com/claidex/risk-engine/internal/infrastructure/monitoring/logging"
	"github.com/claidex/risk-engine/pkg/errors"
)

// scanPageSize bounds how many keys one SCAN iteration may return.
const scanPageSize = 100

// PartitionStore persists per-batch score partitions between the scatter and
// gather phases of a run. Each partition is one JSON value keyed by run and
// batch index, expiring after the configured TTL so abandoned runs clean
// themselves up.
type PartitionStore struct {
	client *Client
	prefix string
	ttl    time.Duration
	logger logging.Logger
}

// NewPartitionStore constructs a partition store with the given key prefix
// and partition TTL.
func NewPartitionStore(client *Client, prefix string, ttl time.Duration, log logging.Logger) *PartitionStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &PartitionStore{client: client, prefix: prefix, ttl: ttl, logger: log}
}

// SavePartition stores one batch's scored records under the run.
func (s *PartitionStore) SavePartition(ctx context.Context, runID string, batch int, scores []scoring.RiskScore) error {
	data, err := json.Marshal(scores)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encoding partition")
	}

	key := s.partitionKey(runID, batch)
	if err := s.client.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodePartitionStore, "saving partition")
	}
	s.logger.Debug("partition saved",
		logging.String("run_id", runID),
		logging.Int("batch", batch),
		logging.Int("scores", len(scores)),
	)
	return nil
}

// LoadPartitions returns every stored partition for the run, keyed by batch
// index. A run with no partitions returns an empty map.
func (s *PartitionStore) LoadPartitions(ctx context.Context, runID string) (map[int][]scoring.RiskScore, error) {
	match := fmt.Sprintf("%s:run:%s:batch:*", s.prefix, runID)

	var keys []string
	var cursor uint64
	for {
		page, next, err := s.client.rdb.Scan(ctx, cursor, match, scanPageSize).Result()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodePartitionStore, "scanning partitions")
		}
		keys = append(keys, page...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	out := make(map[int][]scoring.RiskScore, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	vals, err := s.client.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePartitionStore, "loading partitions")
	}
	for i, v := range vals {
		if v == nil {
			// Expired between SCAN and MGET.
			continue
		}
		raw, ok := v.(string)
		if !ok {
			return nil, errors.Newf(errors.ErrCodePartitionStore, "unexpected value type for key %s", keys[i])
		}
		batch, err := s.batchIndex(keys[i])
		if err != nil {
			return nil, err
		}
		var scores []scoring.RiskScore
		if err := json.Unmarshal([]byte(raw), &scores); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decoding partition")
		}
		out[batch] = scores
	}
	return out, nil
}

// DeleteRun removes every partition stored for the run.
func (s *PartitionStore) DeleteRun(ctx context.Context, runID string) error {
	parts, err := s.LoadPartitions(ctx, runID)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return nil
	}
	keys := make([]string, 0, len(parts))
	for batch := range parts {
		keys = append(keys, s.partitionKey(runID, batch))
	}
	if err := s.client.rdb.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodePartitionStore, "deleting partitions")
	}
	return nil
}

func (s *PartitionStore) partitionKey(runID string, batch int) string {
	return fmt.Sprintf("%s:run:%s:batch:%d", s.prefix, runID, batch)
}

func (s *PartitionStore) batchIndex(key string) (int, error) {
	idx := strings.LastIndex(key, ":")
	if idx < 0 || idx == len(key)-1 {
		return 0, errors.Newf(errors.ErrCodePartitionStore, "malformed partition key %s", key)
	}
	batch, err := strconv.Atoi(key[idx+1:])
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodePartitionStore, "malformed partition key")
	}
	return batch, nil
}
