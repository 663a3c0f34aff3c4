package outbox

import "context"

// Event is a cart or billing fact named by EventName, e.g. "cart.item_added".
type Event interface {
	EventName() string
}

// Handler reacts to a published event.
type Handler func(ctx context.Context, e Event) error

// Publisher hands events to subscribers after the state change they describe
// has been persisted.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber registers handlers by event name.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
}

// PublishFunc adapts a plain function to Publisher.
type PublishFunc func(ctx context.Context, e Event) error

func (f PublishFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }
