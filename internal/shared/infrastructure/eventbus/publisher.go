// Package eventbus publishes audit events (validation attempts, license
// lifecycle changes) to a message broker so downstream consumers can alert
// on failure spikes without polling the audit table.
package eventbus

import (
	"context"
	"time"
)

// Event is the envelope for one audit occurrence. Name doubles as the
// topic routing key, e.g. "license.validation.fail".
type Event struct {
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// NewEvent wraps payload in an envelope stamped with occurredAt.
func NewEvent(name string, occurredAt time.Time, payload any) Event {
	return Event{Name: name, OccurredAt: occurredAt.UTC(), Payload: payload}
}

// Publisher delivers audit events to a broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error

	// Close releases the broker connection.
	Close() error
}
