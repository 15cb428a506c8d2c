package ratelimit

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Redis is a fixed-window limiter shared across API instances. The
// window is an INCR'd counter with an expiry equal to the window length.
type Redis struct {
	client redis.UniversalClient
	cfg    Config
}

var _ Limiter = (*Redis)(nil)

func NewRedis(client redis.UniversalClient, cfg Config) *Redis {
	return &Redis{client: client, cfg: cfg}
}

func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// NX keeps the window anchored at the first hit; later hits must
	// not push the expiry forward.
	pipe.ExpireNX(ctx, key, r.cfg.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, err
	}

	count := int(incr.Val())
	if count <= r.cfg.Limit {
		return Decision{Allowed: true, Remaining: r.cfg.Limit - count}, nil
	}

	retryAfter, err := r.client.PTTL(ctx, key).Result()
	if err != nil || retryAfter < 0 {
		retryAfter = r.cfg.Window
	}
	return Decision{Allowed: false, RetryAfter: retryAfter}, nil
}
