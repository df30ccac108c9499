/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/ppguide/site/lrucache"
)

// DefaultMemoryStoreMaxKeys is the default number of keys kept by MemoryStore.
const DefaultMemoryStoreMaxKeys = 100000

// MemoryStoreOpts represents options for MemoryStore.
type MemoryStoreOpts struct {
	// MaxKeys bounds the number of tracked keys. The least recently used key is evicted on overflow.
	MaxKeys int

	// Now is the clock. time.Now is used if nil.
	Now func() time.Time

	// MetricsCollector collects statistics of the underlying cache. May be nil.
	MetricsCollector lrucache.MetricsCollector
}

// MemoryStore is a process-local Store. Entries expire at their ResetAt,
// Sweep removes expired entries that were not accessed since.
type MemoryStore struct {
	entries *lrucache.LRUCache[string, Entry]
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore(opts MemoryStoreOpts) (*MemoryStore, error) {
	if opts.MaxKeys == 0 {
		opts.MaxKeys = DefaultMemoryStoreMaxKeys
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	entries, err := lrucache.NewWithOpts[string, Entry](
		opts.MaxKeys, opts.MetricsCollector, lrucache.Options{Now: opts.Now})
	if err != nil {
		return nil, fmt.Errorf("new LRU cache for rate limit entries: %w", err)
	}
	return &MemoryStore{entries: entries, now: opts.Now}, nil
}

// Increment implements Store.
func (s *MemoryStore) Increment(_ context.Context, key string, window time.Duration) (Entry, error) {
	entry := s.entries.Update(key, func(cur Entry, exists bool) (Entry, time.Time) {
		now := s.now()
		if !exists || now.After(cur.ResetAt) {
			cur = startWindow(now, window)
		} else {
			cur.Count++
		}
		return cur, cur.ResetAt
	})
	return entry, nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	entry, ok := s.entries.Get(key)
	return entry, ok, nil
}

// Reset implements Store.
func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.entries.Remove(key)
	return nil
}

// Sweep removes entries whose window is over and returns their number.
func (s *MemoryStore) Sweep() int {
	return s.entries.RemoveExpired()
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	return s.entries.Len()
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.entries.Purge()
	return nil
}
