// Package memory is an in-process cache.Cache backend.
package memory

import (
	"context"
	"sync"
	"time"
)

// Entry is one cached value. Entries are replaced, never mutated.
type Entry struct {
	Key       string
	Value     []byte
	ExpiresAt time.Time // zero means no expiry
}

func (e *Entry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is a mutex-protected map of entries with lazy expiry.
// It has no size bound; call Sweep periodically in long-running processes.
type Store struct {
	mu      sync.Mutex
	entries map[string]*Entry
	now     func() time.Time
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a copy of the value. Expired entries are evicted and reported as a miss.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if e.expired(s.now()) {
		delete(s.entries, key)
		return nil, false, nil
	}

	return append([]byte(nil), e.Value...), true, nil
}

// Set stores a copy of value. A ttl <= 0 stores the entry without expiry.
func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := &Entry{
		Key:   key,
		Value: append([]byte(nil), value...),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ttl > 0 {
		e.ExpiresAt = s.now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Sweep evicts every expired entry and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for k, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
