// Package ratelimit throttles per-user message sending.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is how long the caller should wait before retrying;
	// zero when the request was allowed.
	RetryAfter time.Duration
}

// Limiter answers whether one more action is allowed for a key within
// the current window. Implementations count the attempt as part of the
// check.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Config holds the fixed-window quota.
type Config struct {
	Limit  int
	Window time.Duration
}

// SendMessageKey namespaces the per-user send quota.
func SendMessageKey(userID string) string {
	return "ratelimit:send:" + userID
}
