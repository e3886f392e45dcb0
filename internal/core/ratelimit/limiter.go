// Package ratelimit throttles authentication attempts with fixed-window
// counters. Counters live in a CounterStore so the limiter works both
// single-instance (in-memory map) and multi-instance (shared Redis).
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/subtrackr/subscription-tracker/internal/core/domain"
	"github.com/subtrackr/subscription-tracker/internal/core/ports"
)

// Action classifies the throttled operation. Refresh shares the login
// policy family.
type Action string

const (
	ActionLogin    Action = "login"
	ActionRegister Action = "register"
	ActionRefresh  Action = "refresh"
)

// Policy is a fixed-window threshold: at most Attempts within Window.
type Policy struct {
	Attempts int64
	Window   time.Duration
}

// DefaultPolicies holds the design defaults: login 5/15m per identity,
// registration 3/h per originating address, refresh in the login family.
func DefaultPolicies() map[Action]Policy {
	return map[Action]Policy{
		ActionLogin:    {Attempts: 5, Window: 15 * time.Minute},
		ActionRegister: {Attempts: 3, Window: time.Hour},
		ActionRefresh:  {Attempts: 5, Window: 15 * time.Minute},
	}
}

// Limiter gates login, registration, and refresh attempts per key.
type Limiter struct {
	store    ports.CounterStore
	policies map[Action]Policy
}

// NewLimiter builds a Limiter over the given store. A nil policies map
// selects the defaults.
func NewLimiter(store ports.CounterStore, policies map[Action]Policy) *Limiter {
	if policies == nil {
		policies = DefaultPolicies()
	}
	return &Limiter{store: store, policies: policies}
}

// Check returns a *domain.RateLimitError when key has exhausted its
// attempts for the action's current window. It does not count as an
// attempt itself.
func (l *Limiter) Check(ctx context.Context, action Action, key string) error {
	p, ok := l.policies[action]
	if !ok {
		return nil
	}
	count, remaining, err := l.store.Get(ctx, l.key(action, key))
	if err != nil {
		return fmt.Errorf("rate limit check: %w", err)
	}
	if count >= p.Attempts {
		return &domain.RateLimitError{RetryAfter: remaining}
	}
	return nil
}

// Record counts one attempt against key, starting the window if needed.
func (l *Limiter) Record(ctx context.Context, action Action, key string) error {
	p, ok := l.policies[action]
	if !ok {
		return nil
	}
	if _, _, err := l.store.Incr(ctx, l.key(action, key), p.Window); err != nil {
		return fmt.Errorf("rate limit record: %w", err)
	}
	return nil
}

func (l *Limiter) key(action Action, key string) string {
	return fmt.Sprintf("ratelimit:%s:%s", action, key)
}
