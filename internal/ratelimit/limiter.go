// Package ratelimit implements a fixed-window per-IP request limiter backed
// by Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultWindow      = 15 * time.Minute
	defaultMaxRequests = 10
)

type Limiter struct {
	client      *redis.Client
	window      time.Duration
	maxRequests int64
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{
		client:      client,
		window:      defaultWindow,
		maxRequests: defaultMaxRequests,
	}
}

// Exceeded reports whether the IP already hit the per-purpose cap in the
// current window.
func (l *Limiter) Exceeded(ctx context.Context, ip, purpose string) (bool, error) {
	count, err := l.client.Get(ctx, limiterKey(ip, purpose)).Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read rate limit counter: %w", err)
	}

	return count >= l.maxRequests, nil
}

// Record counts one request against the IP for the purpose, opening the
// window on first use.
func (l *Limiter) Record(ctx context.Context, ip, purpose string) error {
	key := limiterKey(ip, purpose)

	pipe := l.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record rate limit hit: %w", err)
	}

	return nil
}

func limiterKey(ip, purpose string) string {
	return fmt.Sprintf("ratelimit:%s:%s", purpose, ip)
}
