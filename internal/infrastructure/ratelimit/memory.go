package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Memory is a process-local fixed-window limiter for single-instance
// deployments and tests. Counters for expired windows are pruned lazily
// on access.
type Memory struct {
	mu      sync.Mutex
	cfg     Config
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

var _ Limiter = (*Memory)(nil)

func NewMemory(cfg Config) *Memory {
	return &Memory{
		cfg:     cfg,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(m.cfg.Window)}
		m.windows[key] = w
	}

	w.count++
	if w.count <= m.cfg.Limit {
		return Decision{Allowed: true, Remaining: m.cfg.Limit - w.count}, nil
	}
	return Decision{Allowed: false, RetryAfter: w.resetAt.Sub(now)}, nil
}
