/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package service runs long-lived application components (HTTP server, background workers)
// and stops them gracefully on OS signals.
package service

// Unit is a component with its own lifecycle.
type Unit interface {
	// Start runs the unit. It may block for the unit's whole lifetime.
	// A failure is reported by writing to fatalErr; on success nothing is written,
	// and the channel is not used after Start returns.
	Start(fatalErr chan<- error)

	// Stop halts the unit. It may be called even if Start failed or was never called.
	Stop(gracefully bool) error
}

// MetricsRegisterer is implemented by units that own Prometheus metrics.
type MetricsRegisterer interface {
	MustRegisterMetrics()
	UnregisterMetrics()
}
