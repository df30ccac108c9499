/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

type cacheEntry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

func (e *cacheEntry[K, V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// LRUCache is a bounded cache. When it is full, adding a new key evicts the least recently used one.
// Expired entries are dropped on access or by RemoveExpired.
type LRUCache[K comparable, V any] struct {
	maxEntries int
	now        func() time.Time

	mu      sync.Mutex
	lruList *list.List
	entries map[K]*list.Element

	metricsCollector MetricsCollector
}

// Options represents options for the cache.
type Options struct {
	// Now is the clock used to check expiration. time.Now is used if nil.
	Now func() time.Time
}

// New creates a new LRUCache with the provided maximum number of entries and metrics collector.
func New[K comparable, V any](maxEntries int, metricsCollector MetricsCollector) (*LRUCache[K, V], error) {
	return NewWithOpts[K, V](maxEntries, metricsCollector, Options{})
}

// NewWithOpts is a more configurable version of New.
// Metrics collector may be nil, in this case metrics are disabled.
func NewWithOpts[K comparable, V any](maxEntries int, metricsCollector MetricsCollector, opts Options) (*LRUCache[K, V], error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("maxEntries must be greater than 0")
	}
	if metricsCollector == nil {
		metricsCollector = disabledMetrics{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &LRUCache[K, V]{
		maxEntries:       maxEntries,
		now:              opts.Now,
		lruList:          list.New(),
		entries:          make(map[K]*list.Element),
		metricsCollector: metricsCollector,
	}, nil
}

// Get returns a not expired value by key.
func (c *LRUCache[K, V]) Get(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := c.lookup(key, c.now())
	if entry == nil {
		c.metricsCollector.IncMisses()
		return value, false
	}
	c.metricsCollector.IncHits()
	return entry.value, true
}

// Add puts a value that never expires.
func (c *LRUCache[K, V]) Add(key K, value V) {
	c.AddWithExpiration(key, value, time.Time{})
}

// AddWithExpiration puts a value that expires after expiresAt. Zero expiresAt means no expiration.
func (c *LRUCache[K, V]) AddWithExpiration(key K, value V, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(key, value, expiresAt)
}

// UpdateFunc receives the current value (exists is false if there is no live entry)
// and returns the value to store together with its expiration time.
type UpdateFunc[V any] func(current V, exists bool) (newValue V, expiresAt time.Time)

// Update runs fn and stores its result under the cache lock,
// so concurrent updates of the same key are serialized.
func (c *LRUCache[K, V]) Update(key K, fn UpdateFunc[V]) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	var current V
	entry := c.lookup(key, c.now())
	if entry != nil {
		current = entry.value
		c.metricsCollector.IncHits()
	} else {
		c.metricsCollector.IncMisses()
	}
	newValue, expiresAt := fn(current, entry != nil)
	c.put(key, newValue, expiresAt)
	return newValue
}

// Remove deletes a value by key.
func (c *LRUCache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeElement(elem)
	c.metricsCollector.SetAmount(len(c.entries))
	return true
}

// RemoveExpired deletes all expired entries and returns how many were removed.
func (c *LRUCache[K, V]) RemoveExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for elem := c.lruList.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*cacheEntry[K, V]).expired(now) {
			c.removeElement(elem)
			removed++
		}
		elem = prev
	}
	c.metricsCollector.SetAmount(len(c.entries))
	return removed
}

// Purge clears the cache. Removed entries are not counted as evictions.
func (c *LRUCache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]*list.Element)
	c.lruList.Init()
	c.metricsCollector.SetAmount(0)
}

// Len returns the number of entries, including expired ones not yet removed.
func (c *LRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *LRUCache[K, V]) lookup(key K, now time.Time) *cacheEntry[K, V] {
	elem, ok := c.entries[key]
	if !ok {
		return nil
	}
	entry := elem.Value.(*cacheEntry[K, V])
	if entry.expired(now) {
		c.removeElement(elem)
		c.metricsCollector.SetAmount(len(c.entries))
		return nil
	}
	c.lruList.MoveToFront(elem)
	return entry
}

func (c *LRUCache[K, V]) put(key K, value V, expiresAt time.Time) {
	if elem, ok := c.entries[key]; ok {
		elem.Value = &cacheEntry[K, V]{key: key, value: value, expiresAt: expiresAt}
		c.lruList.MoveToFront(elem)
		return
	}
	c.entries[key] = c.lruList.PushFront(&cacheEntry[K, V]{key: key, value: value, expiresAt: expiresAt})
	if len(c.entries) > c.maxEntries {
		c.removeElement(c.lruList.Back())
		c.metricsCollector.AddEvictions(1)
	}
	c.metricsCollector.SetAmount(len(c.entries))
}

func (c *LRUCache[K, V]) removeElement(elem *list.Element) {
	c.lruList.Remove(elem)
	delete(c.entries, elem.Value.(*cacheEntry[K, V]).key)
}
