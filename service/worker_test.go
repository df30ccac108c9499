/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/ppguide/site/log"
	"github.com/ppguide/site/log/logtest"
)

func TestPeriodicWorker_Run(t *testing.T) {
	t.Run("run and stop by context timeout", func(t *testing.T) {
		var runs atomic.Int32
		pw := NewPeriodicWorker(WorkerFunc(func(ctx context.Context) error {
			runs.Inc()
			return nil
		}), time.Millisecond*20, log.NewDisabledLogger())

		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*110)
		defer cancel()
		require.NoError(t, pw.Run(ctx))
		require.GreaterOrEqual(t, runs.Load(), int32(3))
	})

	t.Run("run and stop by error", func(t *testing.T) {
		var runs atomic.Int32
		pw := NewPeriodicWorker(WorkerFunc(func(ctx context.Context) error {
			if runs.Inc() == 2 {
				return ErrPeriodicWorkerStop
			}
			return nil
		}), time.Millisecond*10, log.NewDisabledLogger())

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		require.NoError(t, pw.Run(ctx))
		require.Equal(t, int32(2), runs.Load())
	})

	t.Run("worker error is logged and loop goes on", func(t *testing.T) {
		logRecorder := logtest.NewRecorder()
		var runs atomic.Int32
		pw := NewPeriodicWorker(WorkerFunc(func(ctx context.Context) error {
			if runs.Inc() == 3 {
				return ErrPeriodicWorkerStop
			}
			return errors.New("sweep failed")
		}), time.Millisecond*10, logRecorder)

		require.NoError(t, pw.Run(context.Background()))
		require.Equal(t, int32(3), runs.Load())
		entry, found := logRecorder.FindEntry("periodically running worker finished with error")
		require.True(t, found)
		require.Equal(t, log.LevelError, entry.Level)
	})
}

func TestWorkerUnit(t *testing.T) {
	t.Run("graceful stop", func(t *testing.T) {
		var stopped atomic.Bool
		unit := NewWorkerUnit(WorkerFunc(func(ctx context.Context) error {
			<-ctx.Done()
			stopped.Store(true)
			return nil
		}))
		fatalErr := make(chan error, 1)
		go unit.Start(fatalErr)
		require.Eventually(t, unit.started.Load, time.Second, time.Millisecond*5)
		require.NoError(t, unit.Stop(true))
		require.True(t, stopped.Load())
		require.Len(t, fatalErr, 0)
	})

	t.Run("stop timeout exceeded", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		unit := NewWorkerUnitWithOpts(WorkerFunc(func(ctx context.Context) error {
			<-release
			return nil
		}), WorkerUnitOpts{GracefulStopTimeout: time.Millisecond * 20})
		go unit.Start(make(chan error, 1))
		require.Eventually(t, unit.started.Load, time.Second, time.Millisecond*5)
		require.ErrorIs(t, unit.Stop(true), ErrWorkerUnitStopTimeoutExceeded)
	})

	t.Run("worker error is fatal", func(t *testing.T) {
		runErr := errors.New("redis unreachable")
		unit := NewWorkerUnit(WorkerFunc(func(ctx context.Context) error {
			return runErr
		}))
		fatalErr := make(chan error, 1)
		unit.Start(fatalErr)
		require.ErrorIs(t, <-fatalErr, runErr)
	})

	t.Run("stop without start", func(t *testing.T) {
		unit := NewWorkerUnit(WorkerFunc(func(ctx context.Context) error { return nil }))
		require.NoError(t, unit.Stop(true))
	})
}
