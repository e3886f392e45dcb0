package ports

import (
	"context"
	"time"
)

// CounterStore backs the rate limiter with fixed-window attempt counters.
// Implementations must make Incr atomic per key: concurrent increments on
// the same key never lose updates. Counters expire with their window and
// restart from zero; they never go negative.
type CounterStore interface {
	// Incr adds one attempt under key, starting a window of the given
	// length if none is active. It returns the post-increment count and
	// the time remaining in the window.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, remaining time.Duration, err error)

	// Get reads the current count and remaining window without
	// incrementing. A missing or expired key reads as zero.
	Get(ctx context.Context, key string) (count int64, remaining time.Duration, err error)
}
