// Package bus provides the telemetry event bus. The orchestrator publishes
// one event per retrieval and per lane execution; downstream consumers
// (dashboards, offline evaluation) subscribe to the topics they care about.
package bus

import (
	"context"
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

	// Type is the event type, matching the topic it is published to.
	Type string `json:"type"`

	// Source is the service that generated the event.
	Source string `json:"source"`

	// Timestamp is when the event was created, in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`

	// Payload contains the event data.
	Payload any `json:"payload"`
}

// NewEvent creates an event with a fresh ID and the current timestamp.
func NewEvent(eventType string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    "fuse-search",
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	}
}

// Telemetry topics.
const (
	// TopicRetrievalPerformed carries one event per completed retrieval.
	TopicRetrievalPerformed = "retrieval.performed"

	// TopicLaneCompleted carries one event per lane execution.
	TopicLaneCompleted = "retrieval.lane.completed"

	// TopicBreakerStateChanged carries circuit breaker transitions.
	TopicBreakerStateChanged = "retrieval.breaker.state_changed"
)
