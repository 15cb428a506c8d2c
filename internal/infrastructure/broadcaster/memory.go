package broadcaster

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"skillstream/services/chat-api/internal/domain/chat"
	"skillstream/services/chat-api/internal/infrastructure/metrics"
)

// deliveryBuffer sizes the per-subscription queue. The gateway applies
// its own backpressure policy downstream; this buffer only absorbs
// scheduling jitter.
const deliveryBuffer = 256

// Memory is a process-local Broadcaster. Events published here never
// reach other instances, so it is only suitable for single-instance
// deployments and tests.
type Memory struct {
	mu     sync.RWMutex
	subs   map[*memorySubscription]struct{}
	closed bool
	log    zerolog.Logger
}

var _ Broadcaster = (*Memory)(nil)

func NewMemory(log zerolog.Logger) *Memory {
	return &Memory{
		subs: make(map[*memorySubscription]struct{}),
		log:  log.With().Str("component", "memory-broadcaster").Logger(),
	}
}

func (m *Memory) Publish(_ context.Context, channel string, event *chat.Event) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for sub := range m.subs {
		sub.deliver(channel, event)
	}
	metrics.EventsPublished.WithLabelValues(string(event.Type)).Inc()
	return nil
}

func (m *Memory) Open(_ context.Context) (Subscription, error) {
	sub := &memorySubscription{
		parent:     m,
		channels:   make(map[string]struct{}),
		deliveries: make(chan Delivery, deliveryBuffer),
	}

	m.mu.Lock()
	m.subs[sub] = struct{}{}
	m.mu.Unlock()

	return sub, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for sub := range m.subs {
		sub.closeLocked()
		delete(m.subs, sub)
	}
	return nil
}

func (m *Memory) drop(sub *memorySubscription) {
	m.mu.Lock()
	delete(m.subs, sub)
	m.mu.Unlock()
}

type memorySubscription struct {
	parent     *Memory
	mu         sync.Mutex
	channels   map[string]struct{}
	deliveries chan Delivery
	closed     bool
}

func (s *memorySubscription) Subscribe(_ context.Context, channels ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range channels {
		s.channels[ch] = struct{}{}
	}
	return nil
}

func (s *memorySubscription) Unsubscribe(_ context.Context, channels ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range channels {
		delete(s.channels, ch)
	}
	return nil
}

func (s *memorySubscription) Deliveries() <-chan Delivery {
	return s.deliveries
}

func (s *memorySubscription) Close() error {
	s.parent.drop(s)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeInner()
	return nil
}

func (s *memorySubscription) deliver(channel string, event *chat.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, ok := s.channels[channel]; !ok {
		return
	}
	select {
	case s.deliveries <- Delivery{Channel: channel, Event: event}:
	default:
		// A consumer this far behind is better served by the gateway's
		// reconnect path than by blocking every other subscriber.
		s.parent.log.Warn().Str("channel", channel).Msg("subscription buffer full, dropping event")
	}
}

// closeLocked is called by the parent with its own lock held.
func (s *memorySubscription) closeLocked() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeInner()
}

func (s *memorySubscription) closeInner() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.deliveries)
}
