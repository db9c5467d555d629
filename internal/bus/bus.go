// Package bus publishes run lifecycle events so that downstream tooling
// (trainers, dashboards) can react to finished generations and evaluations.
package bus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for event bus implementations.
type Bus interface {
	// Publish publishes an event to a topic.
	Publish(ctx context.Context, topic string, event Event) error

	// Subscribe subscribes to events on a topic.
	Subscribe(ctx context.Context, topic string, handler Handler) error

	// Close closes the bus and releases resources.
	Close() error
}

// Event represents a bus event.
type Event struct {
	// ID is the unique event identifier.
	ID string `json:"id"`

	// Type is the event type, normally the topic it was published on.
	Type string `json:"type"`

	// Source is the command that generated the event.
	Source string `json:"source"`

	// RunID ties the event to a generation or evaluation run.
	RunID string `json:"run_id,omitempty"`

	// Timestamp is when the event was created, in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`

	// Payload contains the encoded event data.
	Payload json.RawMessage `json:"payload"`
}

// Topics for different event types.
const (
	// TopicSessionsGenerated carries an artifact manifest.
	TopicSessionsGenerated = "drift.sessions.generated"

	// TopicEvaluationCompleted carries an evaluation report.
	TopicEvaluationCompleted = "evaluation.completed"
)

// NewEvent creates an event with a time-ordered ID and payload encoded as JSON.
func NewEvent(eventType, source, runID string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:        id.String(),
		Type:      eventType,
		Source:    source,
		RunID:     runID,
		Timestamp: time.Now().UnixMilli(),
		Payload:   data,
	}, nil
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}
