package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	count   int64
	expires time.Time
}

// MemoryCounterStore is a process-local CounterStore for single-instance
// deployments and tests. Expired entries read as zero and are dropped on
// the next touch.
type MemoryCounterStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCounterStore returns an empty in-memory store.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// WithClock replaces the store's time source. Intended for tests.
func (s *MemoryCounterStore) WithClock(now func() time.Time) *MemoryCounterStore {
	s.now = now
	return s
}

func (s *MemoryCounterStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if !ok || !e.expires.After(now) {
		e = memoryEntry{count: 0, expires: now.Add(window)}
	}
	e.count++
	s.entries[key] = e
	return e.count, e.expires.Sub(now), nil
}

func (s *MemoryCounterStore) Get(_ context.Context, key string) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if !ok || !e.expires.After(now) {
		delete(s.entries, key)
		return 0, 0, nil
	}
	return e.count, e.expires.Sub(now), nil
}
