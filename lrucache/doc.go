/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package lrucache provides a bounded in-memory cache with LRU eviction, per-entry expiration,
// an atomic read-modify-write step and Prometheus metrics.
package lrucache
