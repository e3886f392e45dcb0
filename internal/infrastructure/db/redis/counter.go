package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterStore implements the rate limiter's fixed-window counters on
// Redis, so multiple instances share one view of the attempt counts.
// Key layout: ratelimit:<action>:<identity-or-address>.
type CounterStore struct {
	client *redis.Client
}

// NewCounterStore wraps the given Redis client.
func NewCounterStore(client *redis.Client) *CounterStore {
	return &CounterStore{client: client}
}

// Incr atomically increments the counter and starts the window on the
// first attempt. INCR+EXPIRE run in one pipeline; EXPIRE NX only arms the
// TTL when none is set, so later attempts never extend the window.
func (s *CounterStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("counter incr: %w", err)
	}

	remaining := ttl.Val()
	if remaining < 0 {
		remaining = window
	}
	return incr.Val(), remaining, nil
}

// Get reads the counter without touching it. Missing keys read as zero.
func (s *CounterStore) Get(ctx context.Context, key string) (int64, time.Duration, error) {
	pipe := s.client.Pipeline()
	get := pipe.Get(ctx, key)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return 0, 0, fmt.Errorf("counter get: %w", err)
	}

	count, err := get.Int64()
	if err == redis.Nil {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("counter get: %w", err)
	}

	remaining := ttl.Val()
	if remaining < 0 {
		remaining = 0
	}
	return count, remaining, nil
}
