// Package cache memoises expensive or rate-limited calls with a TTL chosen
// from the quality of each result, and throttles direct upstream calls with
// a per-key minute quota and exponential backoff.
//
// All state lives in an explicitly constructed Store. Wrappers are plain
// higher-order functions over func(context.Context, A) (R, error), so a
// cached, rate-limited upstream call is written as
//
//	fetch := cache.Cached(store, "financials", opts,
//		cache.RateLimited(store, "finnhub.financials", limits, client.GetFinancials))
//
// Caching is the outer wrapper so a cache hit never consumes quota.
package cache

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bobmcallan/stockdash/internal/common"
)

// entry is one memoised result. Exactly one of value or err is meaningful.
type entry struct {
	value    any
	err      *CachedError
	storedAt time.Time
	ttl      time.Duration
	size     int
}

func (e *entry) validAt(now time.Time) bool {
	return now.Sub(e.storedAt) < e.ttl
}

// window is a fixed one-minute call counter for a single rate-limit key.
type window struct {
	start time.Time
	calls int
}

// Store holds the cache entries and rate-limit windows shared by every
// wrapper built on it. A single mutex guards both maps.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	windows map[string]*window
	flight  singleflight.Group

	logger *common.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger
func WithLogger(logger *common.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock replaces the wall clock. Tests use it to step over TTL and window boundaries.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithSleep replaces the backoff sleep. The function must honour ctx cancellation.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Store) {
		s.sleep = sleep
	}
}

// WithJitter replaces the random backoff jitter source.
func WithJitter(jitter func() time.Duration) Option {
	return func(s *Store) {
		s.jitter = jitter
	}
}

// NewStore creates an empty Store
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]*entry),
		windows: make(map[string]*window),
		logger:  common.NewSilentLogger(),
		now:     time.Now,
		sleep:   sleepContext,
		jitter:  defaultJitter,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// maxJitter bounds the random component added to every backoff.
const maxJitter = 3 * time.Second

func defaultJitter() time.Duration {
	return time.Duration(rand.Int64N(int64(maxJitter)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// lookup returns the entry for key if it has not expired.
func (s *Store) lookup(key string) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !e.validAt(s.now()) {
		return nil, false
	}
	return e, true
}

// put stores or overwrites the entry for key.
func (s *Store) put(key string, e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.storedAt = s.now()
	s.entries[key] = e
}

// Clear drops every cache entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*entry)
	s.logger.Info().Msg("Cache cleared")
}

// ClearRateLimits resets every rate-limit window.
func (s *Store) ClearRateLimits() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.windows = make(map[string]*window)
	s.logger.Info().Msg("Rate limits cleared")
}

// Stats summarises the contents of a Store.
type Stats struct {
	EntryCount      int
	EstimatedSize   int // bytes
	OldestEntryAge  time.Duration
	NewestEntryAge  time.Duration
	RateLimitedKeys int
}

// MarshalJSON reports entry ages in seconds.
func (st Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		EntryCount      int     `json:"entry_count"`
		EstimatedSize   int     `json:"estimated_size_bytes"`
		OldestEntryAge  float64 `json:"oldest_entry_age_seconds"`
		NewestEntryAge  float64 `json:"newest_entry_age_seconds"`
		RateLimitedKeys int     `json:"rate_limited_keys"`
	}{
		EntryCount:      st.EntryCount,
		EstimatedSize:   st.EstimatedSize,
		OldestEntryAge:  st.OldestEntryAge.Seconds(),
		NewestEntryAge:  st.NewestEntryAge.Seconds(),
		RateLimitedKeys: st.RateLimitedKeys,
	})
}

// Stats reports entry count, estimated size in bytes and entry ages.
// Expired entries are counted until they are recomputed or cleared.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		EntryCount:      len(s.entries),
		RateLimitedKeys: len(s.windows),
	}

	if len(s.entries) == 0 {
		return stats
	}

	now := s.now()
	var oldest, newest time.Time
	for _, e := range s.entries {
		stats.EstimatedSize += e.size
		if oldest.IsZero() || e.storedAt.Before(oldest) {
			oldest = e.storedAt
		}
		if newest.IsZero() || e.storedAt.After(newest) {
			newest = e.storedAt
		}
	}
	stats.OldestEntryAge = now.Sub(oldest)
	stats.NewestEntryAge = now.Sub(newest)

	return stats
}
