/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"time"

	"github.com/ppguide/site/log"
	"github.com/ppguide/site/service"
)

// NewSweeper returns a worker that periodically drops expired entries from the memory store.
func NewSweeper(store *MemoryStore, interval time.Duration, logger log.FieldLogger) *service.PeriodicWorker {
	sweep := service.WorkerFunc(func(ctx context.Context) error {
		if removed := store.Sweep(); removed > 0 {
			logger.Debug("expired rate limit entries removed",
				log.Int("removed", removed), log.Int("remaining", store.Len()))
		}
		return nil
	})
	return service.NewPeriodicWorkerWithOpts(sweep, interval, logger, service.PeriodicWorkerOpts{InitialDelay: interval})
}
