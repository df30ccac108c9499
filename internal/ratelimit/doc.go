/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package ratelimit limits how often a client (identified by a string key) may call an endpoint.
//
// The default algorithm is a fixed window counter: the first request of a key opens a window
// of the configured duration, every further request in the window increments the counter,
// and requests above the limit are rejected until the window is over.
// Counters live in a Store, either process-local (MemoryStore) or shared between
// processes (RedisStore). Leaky bucket (GCRA) and sliding window algorithms are also
// available for single-process deployments.
package ratelimit
