/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package httpclient builds HTTP clients for outgoing requests. Each client is a chain of
// round trippers (logging, Prometheus metrics, rate limiting, User-Agent and request id propagation)
// configured with Config.
package httpclient
