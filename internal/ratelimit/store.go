/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"time"
)

// Entry is the fixed window counter of a single key.
type Entry struct {
	Count   int64
	ResetAt time.Time
}

// Store keeps fixed window counters.
//
// Increment performs the whole window step atomically: when there is no entry for the key
// or now is strictly after its ResetAt, the entry becomes {1, now+window}; otherwise Count is incremented.
// Get reports only entries whose window is not over.
type Store interface {
	Increment(ctx context.Context, key string, window time.Duration) (Entry, error)
	Get(ctx context.Context, key string) (Entry, bool, error)
	Reset(ctx context.Context, key string) error
	Close() error
}

// StoreType is a kind of Store backend.
type StoreType string

// Supported store backends.
const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

func startWindow(now time.Time, window time.Duration) Entry {
	return Entry{Count: 1, ResetAt: now.Add(window)}
}
