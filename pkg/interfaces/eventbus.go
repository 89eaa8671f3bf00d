package interfaces

import (
	"context"
)

// Event is a message carried by an EventBus.
type Event interface {
	// EventType returns the subject the event is published on
	EventType() string

	// Timestamp returns when the event occurred, in unix nanoseconds
	Timestamp() int64

	// AggregateID returns the key of the record that produced the event
	AggregateID() string
}

// EventHandler handles events of a specific type.
type EventHandler interface {
	Handle(ctx context.Context, event Event) error
	EventType() string
}

// EventHandlerFunc adapts a function to an EventHandler for one event type.
type EventHandlerFunc struct {
	Type string
	Fn   func(ctx context.Context, event Event) error
}

func (h EventHandlerFunc) Handle(ctx context.Context, event Event) error {
	return h.Fn(ctx, event)
}

func (h EventHandlerFunc) EventType() string {
	return h.Type
}

// EventBus provides pub/sub between catalog components. Transports differ in
// delivery guarantees; handlers must tolerate redelivery.
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, event Event) error

	// Subscribe registers a handler for a specific event type. Handlers
	// must be registered before Start.
	Subscribe(eventType string, handler EventHandler) error

	// Start begins delivering events to handlers
	Start(ctx context.Context) error

	// Stop stops delivery and releases the transport
	Stop() error
}
