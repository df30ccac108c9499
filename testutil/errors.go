/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import "github.com/stretchr/testify/require"

// RequireNoErrorInChannel asserts that there is no error in a buffered channel.
func RequireNoErrorInChannel(t require.TestingT, c <-chan error, msgAndArgs ...interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	var err error
	select {
	case err = <-c:
	default:
	}
	require.NoError(t, err, msgAndArgs...)
}
