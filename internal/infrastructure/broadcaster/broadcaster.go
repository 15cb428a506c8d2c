// Package broadcaster fans conversation events out to live sessions.
// The Redis implementation crosses process boundaries; the in-memory one
// serves single-instance deployments and tests.
package broadcaster

import (
	"context"

	"skillstream/services/chat-api/internal/domain/chat"
)

// Delivery is one event received on a subscribed channel.
type Delivery struct {
	Channel string
	Event   *chat.Event
}

// Subscription is a dynamic channel membership held by one gateway
// session. Channels can be added and removed while the subscription is
// live, which is how a session follows conversations it joins mid-flight.
type Subscription interface {
	Subscribe(ctx context.Context, channels ...string) error
	Unsubscribe(ctx context.Context, channels ...string) error

	// Deliveries yields events for the currently subscribed channels.
	// The channel closes when the subscription is closed.
	Deliveries() <-chan Delivery

	Close() error
}

// Broadcaster publishes committed events and opens subscriptions for
// gateway sessions.
type Broadcaster interface {
	chat.Publisher

	Open(ctx context.Context) (Subscription, error)
	Close() error
}
