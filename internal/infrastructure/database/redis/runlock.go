package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/claidex/risk-engine/internal/infrastructure/monitoring/logging"
	"github.com/claidex/risk-engine/pkg/errors"
)

var (
	ErrLockNotAcquired = errors.New(errors.ErrCodeValidation, "failed to acquire run lock")
	ErrLockNotHeld     = errors.New(errors.ErrCodeValidation, "run lock not held by this owner")
)

var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// RunLock is a Redis-backed mutex that serialises scoring runs. Scoring runs
// can outlast any fixed TTL, so the lock renews itself from a watchdog
// goroutine while held.
type RunLock struct {
	client         *Client
	key            string
	value          string
	ttl            time.Duration
	watchdogEvery  time.Duration
	logger         logging.Logger
	watchdogCancel context.CancelFunc
	watchdogDone   chan struct{}
}

// NewRunLock constructs a lock scoped to the key prefix. A zero ttl defaults
// to one minute with renewal every third of the TTL.
func NewRunLock(client *Client, prefix string, ttl time.Duration, log logging.Logger) *RunLock {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if ttl == 0 {
		ttl = time.Minute
	}
	return &RunLock{
		client:        client,
		key:           prefix + ":lock:run",
		value:         uuid.NewString(),
		ttl:           ttl,
		watchdogEvery: ttl / 3,
		logger:        log,
	}
}

// TryAcquire attempts to take the lock without blocking. On success the
// watchdog starts renewing the TTL until Release is called.
func (l *RunLock) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.client.rdb.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodePartitionStore, "acquiring run lock")
	}
	if ok {
		l.startWatchdog()
	}
	return ok, nil
}

// Acquire blocks until the lock is taken or the context is cancelled,
// polling at the given interval.
func (l *RunLock) Acquire(ctx context.Context, retryEvery time.Duration) error {
	for {
		ok, err := l.TryAcquire(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryEvery):
		}
	}
}

// Release drops the lock if still held by this owner.
func (l *RunLock) Release(ctx context.Context) error {
	l.stopWatchdog()
	res, err := unlockScript.Run(ctx, l.client.rdb, []string{l.key}, l.value).Result()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodePartitionStore, "releasing run lock")
	}
	if res.(int64) == 0 {
		return ErrLockNotHeld
	}
	return nil
}

func (l *RunLock) extend(ctx context.Context) (bool, error) {
	res, err := extendScript.Run(ctx, l.client.rdb, []string{l.key}, l.value, l.ttl.Milliseconds()).Result()
	if err != nil {
		return false, err
	}
	return res.(int64) == 1, nil
}

func (l *RunLock) startWatchdog() {
	ctx, cancel := context.WithCancel(context.Background())
	l.watchdogCancel = cancel
	l.watchdogDone = make(chan struct{})

	go func() {
		defer close(l.watchdogDone)
		ticker := time.NewTicker(l.watchdogEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ok, err := l.extend(ctx)
				if err != nil {
					l.logger.Error("run lock renewal failed", logging.Err(err))
					return
				}
				if !ok {
					l.logger.Warn("run lock lost", logging.String("key", l.key))
					return
				}
			}
		}
	}()
}

func (l *RunLock) stopWatchdog() {
	if l.watchdogCancel != nil {
		l.watchdogCancel()
		<-l.watchdogDone
		l.watchdogCancel = nil
	}
}
