/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ppguide/site/log"
	"github.com/ppguide/site/log/logtest"
)

func TestSweeper(t *testing.T) {
	clock := newFakeClock()
	store, err := NewMemoryStore(MemoryStoreOpts{Now: clock.Now})
	require.NoError(t, err)
	_, err = store.Increment(context.Background(), "198.51.100.1", time.Minute)
	require.NoError(t, err)
	clock.Advance(time.Minute + time.Second)

	logRecorder := logtest.NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewSweeper(store, time.Millisecond*10, logRecorder).Run(ctx) }()

	require.Eventually(t, func() bool {
		_, found := logRecorder.FindEntry("expired rate limit entries removed")
		return found
	}, time.Second, time.Millisecond*10)
	cancel()
	require.NoError(t, <-done)

	entry, _ := logRecorder.FindEntry("expired rate limit entries removed")
	require.Equal(t, log.LevelDebug, entry.Level)
	removed, ok := entry.FindField("removed")
	require.True(t, ok)
	require.Equal(t, int64(1), removed.Int)
	require.Zero(t, store.Len())
}
