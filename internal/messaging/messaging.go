package messaging

import "context"

// Topics the storefront publishes to.
const (
	TopicOrders    = "orders.events"
	TopicInventory = "inventory.events"
)

// EventTypeHeader carries the event type next to the JSON payload.
const EventTypeHeader = "event_type"

// Publisher defines an interface for publishing events to a message broker.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event any) error
}

// Subscriber defines an interface for subscribing to a message topic.
// Consume blocks until ctx is cancelled.
type Subscriber interface {
	Consume(ctx context.Context, topic string, groupID string, handler Handler) error
}

// Message is a received event.
type Message struct {
	Topic     string
	Key       string
	EventType string
	Payload   []byte
}

// Handler processes one received message.
type Handler func(ctx context.Context, msg Message) error

type typedEvent interface {
	EventType() string
}

// EventType returns the type name of event, or "" when it has none.
func EventType(event any) string {
	if e, ok := event.(typedEvent); ok {
		return e.EventType()
	}
	return ""
}
