/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package profserver runs an optional pprof HTTP endpoint next to the site server.
package profserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ppguide/site/httpserver/middleware"
	"github.com/ppguide/site/log"
	"github.com/ppguide/site/service"
)

const (
	readHeaderTimeout = 5 * time.Second

	// ProfilerPath is where pprof handlers are mounted.
	ProfilerPath = "/debug"
)

// ProfServer serves pprof handlers under ProfilerPath. It is a service.Unit.
type ProfServer struct {
	// URL is the base URL of the server, e.g. "http://127.0.0.1:6060".
	URL string

	server *http.Server
	logger log.FieldLogger
	done   chan struct{}
}

var _ service.Unit = (*ProfServer)(nil)

// New creates a ProfServer listening on cfg.Address. Requests are logged once they start.
func New(cfg *Config, logger log.FieldLogger) *ProfServer {
	logger = logger.With(log.String("address", cfg.Address))

	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.LoggingWithOpts(logger, middleware.LoggingOpts{RequestStart: true}))
	r.Mount(ProfilerPath, chimiddleware.Profiler())

	return &ProfServer{
		URL:    "http://" + cfg.Address,
		server: &http.Server{Addr: cfg.Address, Handler: r, ReadHeaderTimeout: readHeaderTimeout},
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start blocks until the server is closed. A listen or serve failure is sent to fatalError.
func (s *ProfServer) Start(fatalError chan<- error) {
	defer close(s.done)

	s.logger.Info("starting profiling HTTP server...")
	err := s.server.ListenAndServe()
	switch {
	case errors.Is(err, http.ErrServerClosed):
		s.logger.Info("profiling HTTP server closed")
	case err != nil:
		s.logger.Error("profiling HTTP server error", log.Error(err))
		fatalError <- err
	}
}

// Stop closes the server immediately; in-flight profiles are cut off regardless of gracefully.
func (s *ProfServer) Stop(gracefully bool) error {
	s.logger.Info("closing profiling HTTP server...")
	if err := s.server.Close(); err != nil {
		s.logger.Error("profiling HTTP server closing error", log.Error(err))
		return err
	}
	<-s.done
	return nil
}
