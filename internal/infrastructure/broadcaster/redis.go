package broadcaster

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"skillstream/services/chat-api/internal/domain/chat"
	"skillstream/services/chat-api/internal/infrastructure/metrics"
)

// Redis is the cross-process Broadcaster backed by Redis pub/sub. Every
// API instance publishes here, so a message sent through one instance
// reaches sessions connected to any other.
type Redis struct {
	client redis.UniversalClient
	log    zerolog.Logger
}

var _ Broadcaster = (*Redis)(nil)

func NewRedis(client redis.UniversalClient, log zerolog.Logger) *Redis {
	return &Redis{
		client: client,
		log:    log.With().Str("component", "redis-broadcaster").Logger(),
	}
}

func (r *Redis) Publish(ctx context.Context, channel string, event *chat.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	start := time.Now()
	err = r.client.Publish(ctx, channel, payload).Err()
	metrics.BroadcastDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}
	metrics.EventsPublished.WithLabelValues(string(event.Type)).Inc()
	return nil
}

func (r *Redis) Open(ctx context.Context) (Subscription, error) {
	// Subscribe with no channels yet; the session adds them as it
	// learns its conversation set.
	pubsub := r.client.Subscribe(ctx)

	sub := &redisSubscription{
		pubsub:     pubsub,
		deliveries: make(chan Delivery, deliveryBuffer),
		done:       make(chan struct{}),
		log:        r.log,
	}
	go sub.pump()
	return sub, nil
}

func (r *Redis) Close() error {
	return nil // the shared client is closed by its owner
}

type redisSubscription struct {
	pubsub     *redis.PubSub
	deliveries chan Delivery
	done       chan struct{}
	log        zerolog.Logger
}

func (s *redisSubscription) Subscribe(ctx context.Context, channels ...string) error {
	if len(channels) == 0 {
		return nil
	}
	return s.pubsub.Subscribe(ctx, channels...)
}

func (s *redisSubscription) Unsubscribe(ctx context.Context, channels ...string) error {
	if len(channels) == 0 {
		return nil
	}
	return s.pubsub.Unsubscribe(ctx, channels...)
}

func (s *redisSubscription) Deliveries() <-chan Delivery {
	return s.deliveries
}

func (s *redisSubscription) Close() error {
	err := s.pubsub.Close()
	<-s.done
	return err
}

// pump decodes raw pub/sub payloads into event deliveries. It exits when
// the underlying PubSub is closed.
func (s *redisSubscription) pump() {
	defer close(s.done)
	defer close(s.deliveries)

	for msg := range s.pubsub.Channel() {
		var event chat.Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			s.log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed broadcast payload")
			continue
		}
		select {
		case s.deliveries <- Delivery{Channel: msg.Channel, Event: &event}:
		default:
			s.log.Warn().Str("channel", msg.Channel).Msg("subscription buffer full, dropping event")
		}
	}
}
