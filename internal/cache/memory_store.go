// Media Catalog - Media Server Catalog Synchronization and Query Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mediacatalog

package cache

import (
	"context"
	"sync"
	"time"
)

type tokenEntry struct {
	token     string
	expiresAt time.Time
}

// Stats counts lookups against a MemoryTokenStore.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Keys      int
}

// Option configures a MemoryTokenStore.
type Option func(*MemoryTokenStore)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryTokenStore) { s.now = now }
}

// MemoryTokenStore keeps tokens in a map. Expired entries are dropped on
// lookup and by a sweeper goroutine when cleanupInterval is positive.
type MemoryTokenStore struct {
	mu      sync.Mutex
	entries map[string]tokenEntry
	stats   Stats
	now     func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// NewMemoryTokenStore creates an in-memory token store. Call Close to stop
// the sweeper.
func NewMemoryTokenStore(cleanupInterval time.Duration, opts ...Option) *MemoryTokenStore {
	s := &MemoryTokenStore{
		entries: make(map[string]tokenEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if cleanupInterval > 0 {
		go s.sweepLoop(cleanupInterval)
	}
	return s
}

// Get implements TokenStore. A token is expired at its deadline.
func (s *MemoryTokenStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	switch {
	case !ok:
		s.stats.Misses++
		return "", false, nil
	case !s.now().Before(e.expiresAt):
		delete(s.entries, key)
		s.stats.Misses++
		s.stats.Evictions++
		return "", false, nil
	}
	s.stats.Hits++
	return e.token, true, nil
}

// Set implements TokenStore. A non-positive ttl removes the key.
func (s *MemoryTokenStore) Set(_ context.Context, key, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ttl <= 0 {
		delete(s.entries, key)
		return nil
	}
	s.entries[key] = tokenEntry{token: token, expiresAt: s.now().Add(ttl)}
	return nil
}

// Delete implements TokenStore.
func (s *MemoryTokenStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Close stops the sweeper. Safe to call more than once.
func (s *MemoryTokenStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

// Stats returns a snapshot of the lookup counters.
func (s *MemoryTokenStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Keys = len(s.entries)
	return st
}

func (s *MemoryTokenStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryTokenStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
			s.stats.Evictions++
		}
	}
}
