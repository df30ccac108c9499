/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type failingStore struct {
	Store
	err error
}

func (s *failingStore) Increment(context.Context, string, time.Duration) (Entry, error) {
	return Entry{}, s.err
}

func TestFixedWindowLimiter_Allow(t *testing.T) {
	clock := newFakeClock()
	store, err := NewMemoryStore(MemoryStoreOpts{Now: clock.Now})
	require.NoError(t, err)
	limiter := NewFixedWindowLimiter(store, Rate{Count: 5, Duration: time.Minute}, FixedWindowLimiterOpts{Now: clock.Now})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allow, retryAfter, allowErr := limiter.Allow(ctx, "203.0.113.7")
		require.NoError(t, allowErr)
		require.True(t, allow, "request #%d", i+1)
		require.Zero(t, retryAfter)
		clock.Advance(time.Second)
	}

	allow, retryAfter, err := limiter.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	require.False(t, allow)
	require.Equal(t, 55*time.Second, retryAfter)

	// Other clients are not affected.
	allow, _, err = limiter.Allow(ctx, "unknown")
	require.NoError(t, err)
	require.True(t, allow)

	// Still rejected exactly at the window end.
	clock.Advance(55 * time.Second)
	allow, retryAfter, err = limiter.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	require.False(t, allow)
	require.Zero(t, retryAfter)

	clock.Advance(time.Millisecond)
	allow, _, err = limiter.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	require.True(t, allow)
	entry, found, err := store.Get(ctx, "203.0.113.7")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(1), entry.Count)
}

func TestFixedWindowLimiter_StoreError(t *testing.T) {
	storeErr := errors.New("connection reset by peer")
	limiter := NewFixedWindowLimiter(&failingStore{err: storeErr}, Rate{Count: 5, Duration: time.Minute},
		FixedWindowLimiterOpts{})
	allow, _, err := limiter.Allow(context.Background(), "k")
	require.ErrorIs(t, err, storeErr)
	require.False(t, allow)
}

func TestNewLimiterFromConfig(t *testing.T) {
	store, err := NewMemoryStore(MemoryStoreOpts{})
	require.NoError(t, err)
	cfg := &Config{Limit: 2, Window: 60000000000, Memory: MemoryConfig{MaxKeys: 10}}

	for _, tt := range []struct {
		alg     Alg
		want    interface{}
		wantErr string
	}{
		{alg: AlgFixedWindow, want: &FixedWindowLimiter{}},
		{alg: AlgLeakyBucket, want: &LeakyBucketLimiter{}},
		{alg: AlgSlidingWindow, want: &SlidingWindowLimiter{}},
		{alg: "token_bucket", wantErr: `unknown rate limiting algorithm "token_bucket"`},
	} {
		cfg.Alg = tt.alg
		limiter, limErr := NewLimiterFromConfig(cfg, store, nil)
		if tt.wantErr != "" {
			require.EqualError(t, limErr, tt.wantErr)
			continue
		}
		require.NoError(t, limErr)
		require.IsType(t, tt.want, limiter)
	}

	cfg.Alg = AlgFixedWindow
	_, err = NewLimiterFromConfig(cfg, nil, nil)
	require.Error(t, err)
}
