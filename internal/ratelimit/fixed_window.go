/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// FixedWindowLimiterOpts represents options for FixedWindowLimiter.
type FixedWindowLimiterOpts struct {
	// Now is used to compute retryAfter. It should be the same clock the store uses.
	Now func() time.Time
}

// FixedWindowLimiter allows at most rate.Count requests per key in each window of rate.Duration.
type FixedWindowLimiter struct {
	store Store
	rate  Rate
	now   func() time.Time
}

var _ Limiter = (*FixedWindowLimiter)(nil)

// NewFixedWindowLimiter creates a new fixed window limiter on top of the store.
func NewFixedWindowLimiter(store Store, rate Rate, opts FixedWindowLimiterOpts) *FixedWindowLimiter {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &FixedWindowLimiter{store: store, rate: rate, now: opts.Now}
}

// Allow counts the request and reports whether it fits into the current window.
// For a rejected request retryAfter is the time left until the window is over.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (allow bool, retryAfter time.Duration, err error) {
	entry, err := l.store.Increment(ctx, key, l.rate.Duration)
	if err != nil {
		return false, 0, fmt.Errorf("increment rate limit counter: %w", err)
	}
	if entry.Count <= int64(l.rate.Count) {
		return true, 0, nil
	}
	if retryAfter = entry.ResetAt.Sub(l.now()); retryAfter < 0 {
		retryAfter = 0
	}
	return false, retryAfter, nil
}
