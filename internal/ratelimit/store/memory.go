// Package store implements the sliding window counters behind the rate
// limiter. In-memory and per-instance: each replica enforces its own share
// of the limit, which is acceptable for abuse protection.
package store

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of one counter check.
type Decision struct {
	Allowed   bool
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// MemoryStore tracks request timestamps per key in a sliding window, so a
// burst right before a window boundary cannot double the effective rate.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window

	// now stands in for time.Now in tests.
	now func() time.Time
}

type window struct {
	timestamps []time.Time
	span       time.Duration
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow records one request against key and reports whether it fit under
// limit within the window span.
func (s *MemoryStore) Allow(_ context.Context, key string, limit int, span time.Duration) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w := s.windows[key]
	if w == nil {
		w = &window{span: span}
		s.windows[key] = w
	}
	w.expire(now)

	if len(w.timestamps)+1 > limit {
		return Decision{
			Allowed: false,
			Limit:   limit,
			ResetAt: w.resetAt(now),
		}, nil
	}

	w.timestamps = append(w.timestamps, now)
	return Decision{
		Allowed:   true,
		Remaining: limit - len(w.timestamps),
		Limit:     limit,
		ResetAt:   w.resetAt(now),
	}, nil
}

// Reset clears the counter for a key.
func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

// Prune drops idle keys. Called periodically so the map does not grow with
// every IP ever seen.
func (s *MemoryStore) Prune() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key, w := range s.windows {
		w.expire(now)
		if len(w.timestamps) == 0 {
			delete(s.windows, key)
		}
	}
}

func (w *window) expire(now time.Time) {
	cutoff := now.Add(-w.span)
	i := 0
	for ; i < len(w.timestamps); i++ {
		if w.timestamps[i].After(cutoff) {
			break
		}
	}
	w.timestamps = w.timestamps[i:]
}

// resetAt is when the oldest still-counted request leaves the window.
func (w *window) resetAt(now time.Time) time.Time {
	if len(w.timestamps) == 0 {
		return now.Add(w.span)
	}
	return w.timestamps[0].Add(w.span)
}
