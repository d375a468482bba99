package ratelimit

import (
	"strings"
	"sync"
	"time"
)

// Limiter admits at most limit calls per key inside each fixed window.
type Limiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time
	mu     sync.Mutex
	store  map[string]entry
}

type entry struct {
	count int
	reset time.Time
}

// New returns nil when limiting is disabled; a nil Limiter allows everything.
func New(limit int, window time.Duration, clock func() time.Time) *Limiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &Limiter{
		limit:  limit,
		window: window,
		clock:  clock,
		store:  make(map[string]entry),
	}
}

// Take reports whether the call is admitted and when the key's window resets.
func (l *Limiter) Take(key string) (bool, time.Time) {
	if l == nil {
		return true, time.Time{}
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}
	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.store[key]
	if !ok || !now.Before(e.reset) {
		e = entry{count: 1, reset: now.Add(l.window)}
		l.store[key] = e
		l.pruneExpiredLocked(now)
		return true, e.reset
	}
	if e.count >= l.limit {
		return false, e.reset
	}
	e.count++
	l.store[key] = e
	return true, e.reset
}

func (l *Limiter) pruneExpiredLocked(now time.Time) {
	for key, e := range l.store {
		if !now.Before(e.reset) {
			delete(l.store, key)
		}
	}
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.store)
}
