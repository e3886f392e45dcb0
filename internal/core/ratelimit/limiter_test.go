package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/subtrackr/subscription-tracker/internal/core/domain"
)

func TestLimiter_BlocksAtThreshold(t *testing.T) {
	store := NewMemoryCounterStore()
	l := NewLimiter(store, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := l.Check(ctx, ActionLogin, "alice@example.com"); err != nil {
			t.Fatalf("attempt %d unexpectedly blocked: %v", i+1, err)
		}
		if err := l.Record(ctx, ActionLogin, "alice@example.com"); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	err := l.Check(ctx, ActionLogin, "alice@example.com")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited after threshold, got %v", err)
	}

	var rl *domain.RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected *RateLimitError, got %T", err)
	}
	if rl.RetryAfter <= 0 || rl.RetryAfter > 15*time.Minute {
		t.Fatalf("unexpected retry-after: %v", rl.RetryAfter)
	}
}

func TestLimiter_WindowExpiryResets(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryCounterStore().WithClock(func() time.Time { return now })
	l := NewLimiter(store, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = l.Record(ctx, ActionLogin, "bob@example.com")
	}
	if err := l.Check(ctx, ActionLogin, "bob@example.com"); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected block, got %v", err)
	}

	now = now.Add(15*time.Minute + time.Second)
	if err := l.Check(ctx, ActionLogin, "bob@example.com"); err != nil {
		t.Fatalf("expected window reset, got %v", err)
	}

	// The first attempt of the new window starts the count from zero.
	count, _, err := store.Incr(ctx, "ratelimit:login:bob@example.com", 15*time.Minute)
	if err != nil {
		t.Fatalf("incr failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected fresh count 1, got %d", count)
	}
}

func TestLimiter_KeysAreIsolated(t *testing.T) {
	store := NewMemoryCounterStore()
	l := NewLimiter(store, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = l.Record(ctx, ActionLogin, "alice@example.com")
	}

	if err := l.Check(ctx, ActionLogin, "carol@example.com"); err != nil {
		t.Fatalf("other key unexpectedly blocked: %v", err)
	}
	if err := l.Check(ctx, ActionRegister, "alice@example.com"); err != nil {
		t.Fatalf("other action unexpectedly blocked: %v", err)
	}
}

func TestLimiter_RegisterPolicy(t *testing.T) {
	store := NewMemoryCounterStore()
	l := NewLimiter(store, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.Check(ctx, ActionRegister, "10.0.0.1"); err != nil {
			t.Fatalf("attempt %d unexpectedly blocked: %v", i+1, err)
		}
		_ = l.Record(ctx, ActionRegister, "10.0.0.1")
	}
	if err := l.Check(ctx, ActionRegister, "10.0.0.1"); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected block after 3 registrations, got %v", err)
	}
}

func TestMemoryCounterStore_ConcurrentIncr(t *testing.T) {
	store := NewMemoryCounterStore()
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				_, _, _ = store.Incr(ctx, "k", time.Minute)
			}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	count, _, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if count != 1000 {
		t.Fatalf("expected 1000 increments, got %d", count)
	}
}
