package broadcast

import (
	"context"
	"time"
)

// Message wraps a payload of type T published to a topic.
type Message[T any] struct {
	ID        string
	Topic     string
	Payload   T
	Timestamp time.Time
}

// Subscriber receives messages for a single topic.
// Implementations must be safe for concurrent use.
type Subscriber[T any] interface {
	// Messages returns the channel delivering broadcast messages.
	// The channel is closed when the subscriber is closed.
	Messages() <-chan Message[T]

	// Topic returns the subscribed topic name.
	Topic() string

	// Close unsubscribes and releases resources. Idempotent.
	Close() error
}

// Hub is a topic-keyed publish/subscribe fan-out.
//
// Delivery is at-most-once to the subscribers present at publish time: there
// is no durability and no replay. A subscriber created after a message was
// published has missed it and must reconcile from authoritative state, not
// from the hub. Sends are non-blocking; messages are dropped for subscribers
// whose buffers are full.
type Hub[T any] interface {
	// Subscribe registers a new subscriber on the topic. The subscription is
	// cleaned up automatically when ctx is cancelled.
	Subscribe(ctx context.Context, topic string, opts ...SubscribeOption) (Subscriber[T], error)

	// Publish delivers the payload to all current subscribers of the topic.
	// Publishing to a topic with no subscribers is not an error.
	Publish(ctx context.Context, topic string, payload T) error

	// SubscriberCount returns the number of active subscribers on a topic.
	SubscriberCount(topic string) int

	// Close shuts down the hub and closes all subscribers.
	Close() error
}

// SubscribeOption configures a subscription.
type SubscribeOption func(*subscribeConfig)

type subscribeConfig struct {
	bufferSize int
}

// WithBufferSize overrides the subscriber's channel buffer size.
func WithBufferSize(n int) SubscribeOption {
	return func(c *subscribeConfig) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}
