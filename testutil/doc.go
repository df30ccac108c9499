/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package testutil contains helpers shared by tests of HTTP handlers, servers and metrics.
package testutil

type tHelper interface {
	Helper()
}
