/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package middleware contains HTTP middlewares used by the site server:
// request IDs, access logging, panic recovery, Prometheus metrics, request body limiting,
// per-client rate limiting and static response headers.
package middleware
