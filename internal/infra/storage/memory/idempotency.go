package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"sawa/internal/app/middleware"
)

// IdempotencyStore keeps replayable command results in a map.
type IdempotencyStore struct {
	mu    sync.RWMutex
	items map[string]middleware.IdempotencyRecord
	ttl   time.Duration
}

func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{items: make(map[string]middleware.IdempotencyRecord), ttl: ttl}
}

func (s *IdempotencyStore) Get(_ context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.items[key]
	return rec, ok, nil
}

// Save keeps the first live record for a key. Records older than the TTL
// relative to rec are dropped first.
func (s *IdempotencyStore) Save(_ context.Context, rec middleware.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ttl > 0 {
		cutoff := rec.OccurredAt.Add(-s.ttl)
		maps.DeleteFunc(s.items, func(_ string, existing middleware.IdempotencyRecord) bool {
			return !existing.OccurredAt.After(cutoff)
		})
	}
	if _, live := s.items[rec.Key]; !live {
		s.items[rec.Key] = rec
	}
	return nil
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
