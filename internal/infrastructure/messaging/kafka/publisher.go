package kafka

import (
	"context"
	"encoding/json"

	"github.com/claidex/risk-engine/internal/application/riskscore"
	"github.com/claidex/risk-engine/pkg/errors"
)

// LifecyclePublisher emits run lifecycle events. Messages are keyed by run ID
// so one run's events land on one partition, in order.
type LifecyclePublisher struct {
	producer *Producer
	topics   Topics
}

// NewLifecyclePublisher wires the producer to the prefix-qualified topics.
func NewLifecyclePublisher(producer *Producer, topics Topics) *LifecyclePublisher {
	return &LifecyclePublisher{producer: producer, topics: topics}
}

// RunStarted announces a new scoring run.
func (p *LifecyclePublisher) RunStarted(ctx context.Context, event riskscore.RunStartedEvent) error {
	return p.publish(ctx, p.topics.RunStarted, suffixRunStarted, event.RunID, event)
}

// BatchFailed records a batch that exhausted its retries.
func (p *LifecyclePublisher) BatchFailed(ctx context.Context, event riskscore.BatchFailedEvent) error {
	return p.publish(ctx, p.topics.BatchFailed, suffixBatchFailed, event.RunID, event)
}

// RunCompleted closes a run.
func (p *LifecyclePublisher) RunCompleted(ctx context.Context, event riskscore.RunCompletedEvent) error {
	return p.publish(ctx, p.topics.RunCompleted, suffixRunCompleted, event.RunID, event)
}

func (p *LifecyclePublisher) publish(ctx context.Context, topic, eventType, runID string, payload interface{}) error {
	env, err := NewEventEnvelope(eventType, payload)
	if err != nil {
		return err
	}
	value, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encoding event envelope")
	}
	return p.producer.Publish(ctx, topic, []byte(runID), value)
}
