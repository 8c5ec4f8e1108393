package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/claidex/risk-engine/pkg/errors"
)

// eventSource identifies this service in event envelopes.
const eventSource = "risk-engine"

// Topic name suffixes. Full names are prefix-qualified per deployment, e.g.
// "risk.run.started".
const (
	suffixRunStarted   = "run.started"
	suffixBatchFailed  = "batch.failed"
	suffixRunCompleted = "run.completed"
)

// Topics holds the fully-qualified topic names for one deployment.
type Topics struct {
	RunStarted   string
	BatchFailed  string
	RunCompleted string
}

// TopicsFor qualifies the lifecycle topics with the deployment prefix.
func TopicsFor(prefix string) Topics {
	if prefix == "" {
		prefix = "risk"
	}
	return Topics{
		RunStarted:   prefix + "." + suffixRunStarted,
		BatchFailed:  prefix + "." + suffixBatchFailed,
		RunCompleted: prefix + "." + suffixRunCompleted,
	}
}

// EventEnvelope standardises event messages across topics.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEventEnvelope wraps a payload in a versioned envelope.
func NewEventEnvelope(eventType string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encoding event payload")
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        eventSource,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the envelope payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, target)
}
