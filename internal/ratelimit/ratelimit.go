// Package ratelimit provides a keyed token-bucket store whose idle entries expire.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Store hands out one limiter per key. Entries idle for longer than the TTL are dropped by Sweep.
type Store struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*entry
}

// Option configures a Store
type Option func(*Store)

// WithClock replaces the wall clock, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a store allowing perSecond events per key with the given burst
func New(perSecond float64, burst int, ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// getLimiter gets or creates a limiter for the given key.
func (s *Store) getLimiter(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		e.lastSeen = now
		return e.limiter
	}
	limiter := rate.NewLimiter(s.limit, s.burst)
	s.entries[key] = &entry{limiter: limiter, lastSeen: now}
	return limiter
}

// Allow reports whether an event for key may happen now
func (s *Store) Allow(key string) bool {
	now := s.now()
	return s.getLimiter(key, now).AllowN(now, 1)
}

// Sweep drops entries idle for longer than the TTL and returns how many were removed
func (s *Store) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if now.Sub(e.lastSeen) > s.ttl {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
