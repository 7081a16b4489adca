package domain

import (
	"context"
	"time"
)

// SessionEventsTopic carries session lifecycle events. The routing key is the
// session id.
const SessionEventsTopic = "session.events"

type EventType string

const (
	EventSessionStarted   EventType = "session.started"
	EventSessionMessages  EventType = "session.messages"
	EventSessionEvaluated EventType = "session.evaluated"
	EventSessionAbandoned EventType = "session.abandoned"
)

// SessionEvent is published whenever a session changes. Only the payload
// matching Type is set.
type SessionEvent struct {
	Type       EventType `json:"type"`
	SessionID  string    `json:"sessionId"`
	OccurredAt time.Time `json:"occurredAt"`

	Session            *SessionState      `json:"session,omitempty"`
	HiddenRequirements []string           `json:"hiddenRequirements,omitempty"`
	Messages           []Message          `json:"messages,omitempty"`
	Evaluation         *SessionEvaluation `json:"evaluation,omitempty"`
}

// MessageBroker defines the interface for message broker operations
type MessageBroker interface {
	// Publish sends a message to a topic with a routing key.
	Publish(ctx context.Context, topic string, routingKey string, message []byte) error

	// Subscribe listens for messages on a topic. An empty routing key
	// receives every routing key of the topic. The channel is closed when
	// ctx is done or the broker is closed.
	Subscribe(ctx context.Context, topic string, routingKey string) (<-chan Envelope, error)

	// Close closes the message broker connection
	Close() error
}

// Envelope represents a message received from the broker
type Envelope struct {
	Topic      string
	RoutingKey string
	Payload    []byte
	Timestamp  time.Time
}
