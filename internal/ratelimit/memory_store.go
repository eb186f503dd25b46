package ratelimit

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type counter struct {
	count     int64
	start     time.Time
	expiresAt time.Time
}

// MemoryStore is a process-local CounterStore for single-instance deployments
// and tests. The least recently used counters are evicted past capacity.
type MemoryStore struct {
	mu       sync.Mutex
	counters *lru.Cache[string, counter]
	now      func() time.Time
}

type MemoryOption func(*MemoryStore)

func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(capacity int, opts ...MemoryOption) (*MemoryStore, error) {
	l, err := lru.New[string, counter](capacity)
	if err != nil {
		return nil, err
	}
	s := &MemoryStore{counters: l, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *MemoryStore) IncrementAndGet(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	now := s.now()

	// lru.Cache is safe on its own, but read-modify-write needs the lock.
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters.Get(key)
	if !ok || !now.Before(c.expiresAt) {
		c = counter{start: now, expiresAt: now.Add(window)}
	}
	c.count++
	s.counters.Add(key, c)

	return c.count, c.start, nil
}

func (s *MemoryStore) Peek(_ context.Context, key string) (int64, time.Time, bool, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters.Peek(key)
	if !ok || !now.Before(c.expiresAt) {
		return 0, time.Time{}, false, nil
	}
	return c.count, c.start, true, nil
}

// Len reports live and expired-but-unevicted counters.
func (s *MemoryStore) Len() int {
	return s.counters.Len()
}
