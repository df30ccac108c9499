/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

package ratelimit

import (
	"fmt"
	"time"
)

// NewLimiterFromConfig creates the limiter of the configured algorithm.
// store is used by the fixed window algorithm only and may be nil for the others.
func NewLimiterFromConfig(cfg *Config, store Store, now func() time.Time) (Limiter, error) {
	switch cfg.Alg {
	case AlgFixedWindow, "":
		if store == nil {
			return nil, fmt.Errorf("%s rate limiting requires a store", AlgFixedWindow)
		}
		return NewFixedWindowLimiter(store, cfg.Rate(), FixedWindowLimiterOpts{Now: now}), nil
	case AlgLeakyBucket:
		return NewLeakyBucketLimiter(cfg.Rate(), cfg.Limit-1, cfg.Memory.MaxKeys)
	case AlgSlidingWindow:
		return NewSlidingWindowLimiter(cfg.Rate(), cfg.Memory.MaxKeys)
	default:
		return nil, fmt.Errorf("unknown rate limiting algorithm %q", cfg.Alg)
	}
}
