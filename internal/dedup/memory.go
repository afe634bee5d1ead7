package dedup

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps the dedup window in process memory. Expired entries are
// evicted lazily on access, there is no background sweeper.
type MemoryStore struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]Entry
	now     func() time.Time
}

// NewMemoryStore builds an in-memory store with the given window.
func NewMemoryStore(window time.Duration) *MemoryStore {
	if window == 0 {
		window = 7 * 24 * time.Hour
	}
	return &MemoryStore{
		window:  window,
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// AddIfAbsent records the entry unless a live one with the same hash exists.
func (s *MemoryStore) AddIfAbsent(ctx context.Context, e Entry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	if _, ok := s.entries[e.Hash]; ok {
		return false, nil
	}
	s.entries[e.Hash] = e
	return true, nil
}

// Candidates returns every live entry.
func (s *MemoryStore) Candidates(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out, nil
}

func (s *MemoryStore) evictLocked() {
	cutoff := s.now().Add(-s.window)
	for hash, e := range s.entries {
		if e.SeenAt.Before(cutoff) {
			delete(s.entries, hash)
		}
	}
}
