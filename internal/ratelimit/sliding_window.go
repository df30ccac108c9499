/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/RussellLuo/slidingwindow"

	"github.com/ppguide/site/lrucache"
)

// SlidingWindowLimiter implements the sliding window algorithm, one window per key.
type SlidingWindowLimiter struct {
	windows *lrucache.LRUCache[string, *slidingwindow.Limiter]
	maxRate Rate
}

var _ Limiter = (*SlidingWindowLimiter)(nil)

// NewSlidingWindowLimiter creates a new sliding window rate limiter tracking at most maxKeys keys.
func NewSlidingWindowLimiter(maxRate Rate, maxKeys int) (*SlidingWindowLimiter, error) {
	windows, err := lrucache.New[string, *slidingwindow.Limiter](maxKeys, nil)
	if err != nil {
		return nil, fmt.Errorf("new LRU in-memory store for keys: %w", err)
	}
	return &SlidingWindowLimiter{windows: windows, maxRate: maxRate}, nil
}

// Allow implements Limiter.
func (l *SlidingWindowLimiter) Allow(_ context.Context, key string) (allow bool, retryAfter time.Duration, err error) {
	lim := l.windows.Update(key, func(cur *slidingwindow.Limiter, exists bool) (*slidingwindow.Limiter, time.Time) {
		if !exists {
			cur, _ = slidingwindow.NewLimiter(l.maxRate.Duration, int64(l.maxRate.Count),
				func() (slidingwindow.Window, slidingwindow.StopFunc) {
					return slidingwindow.NewLocalWindow()
				})
		}
		return cur, time.Time{}
	})
	if lim.Allow() {
		return true, 0, nil
	}
	now := time.Now()
	return false, now.Truncate(l.maxRate.Duration).Add(l.maxRate.Duration).Sub(now), nil
}
