package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claidex/risk-engine/internal/application/riskscore"
	"github.com/claidex/risk-engine/internal/infrastructure/monitoring/logging"
)

type fakeWriter struct {
	messages []kafkago.Message
	writeErr error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.writeErr != nil {
		return w.writeErr
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func newTestPublisher(t *testing.T) (*LifecyclePublisher, *fakeWriter) {
	t.Helper()
	writer := &fakeWriter{}
	producer := NewProducerWithWriter(writer, logging.NewNopLogger())
	t.Cleanup(func() { producer.Close() })
	return NewLifecyclePublisher(producer, TopicsFor("risk")), writer
}

func TestTopicsFor(t *testing.T) {
	topics := TopicsFor("claidex")
	assert.Equal(t, "claidex.run.started", topics.RunStarted)
	assert.Equal(t, "claidex.batch.failed", topics.BatchFailed)
	assert.Equal(t, "claidex.run.completed", topics.RunCompleted)

	assert.Equal(t, "risk.run.started", TopicsFor("").RunStarted)
}

func TestLifecyclePublisher_RunStarted(t *testing.T) {
	pub, writer := newTestPublisher(t)

	event := riskscore.RunStartedEvent{
		RunID:      "run-1",
		Population: 1200,
		Batches:    2,
		StartedAt:  time.Now().UTC(),
	}
	require.NoError(t, pub.RunStarted(context.Background(), event))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "risk.run.started", msg.Topic)
	assert.Equal(t, []byte("run-1"), msg.Key)

	var env EventEnvelope
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.Equal(t, "run.started", env.EventType)
	assert.Equal(t, "risk-engine", env.Source)
	assert.Equal(t, "v1", env.SchemaVersion)
	assert.NotEmpty(t, env.EventID)

	var decoded riskscore.RunStartedEvent
	require.NoError(t, env.DecodePayload(&decoded))
	assert.Equal(t, event.RunID, decoded.RunID)
	assert.Equal(t, event.Population, decoded.Population)
}

func TestLifecyclePublisher_BatchFailed(t *testing.T) {
	pub, writer := newTestPublisher(t)

	event := riskscore.BatchFailedEvent{
		RunID:    "run-2",
		Batch:    7,
		Attempts: 3,
		Reason:   "partition store timeout",
	}
	require.NoError(t, pub.BatchFailed(context.Background(), event))
	require.Len(t, writer.messages, 1)
	assert.Equal(t, "risk.batch.failed", writer.messages[0].Topic)

	var env EventEnvelope
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &env))
	var decoded riskscore.BatchFailedEvent
	require.NoError(t, env.DecodePayload(&decoded))
	assert.Equal(t, 7, decoded.Batch)
	assert.Equal(t, 3, decoded.Attempts)
}

func TestLifecyclePublisher_RunCompleted(t *testing.T) {
	pub, writer := newTestPublisher(t)

	event := riskscore.RunCompletedEvent{
		RunID:          "run-3",
		Scored:         980,
		SkippedBatches: []int{4},
		SnapshotKey:    "runs/run-3/scores.json.gz",
	}
	require.NoError(t, pub.RunCompleted(context.Background(), event))
	require.Len(t, writer.messages, 1)
	assert.Equal(t, "risk.run.completed", writer.messages[0].Topic)
	assert.Equal(t, []byte("run-3"), writer.messages[0].Key)
}

func TestProducer_WriteFailureWrapped(t *testing.T) {
	writer := &fakeWriter{writeErr: errors.New("broker unreachable")}
	producer := NewProducerWithWriter(writer, logging.NewNopLogger())
	pub := NewLifecyclePublisher(producer, TopicsFor("risk"))

	err := pub.RunStarted(context.Background(), riskscore.RunStartedEvent{RunID: "run-1"})
	require.Error(t, err)
}

func TestProducer_ClosedRejectsPublish(t *testing.T) {
	writer := &fakeWriter{}
	producer := NewProducerWithWriter(writer, logging.NewNopLogger())

	require.NoError(t, producer.Close())
	assert.True(t, writer.closed)
	require.NoError(t, producer.Close())

	err := producer.Publish(context.Background(), "risk.run.started", nil, []byte("{}"))
	assert.ErrorIs(t, err, ErrProducerClosed)
}
