/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

package subscribe

import "errors"

// Client-facing messages for invalid input.
const (
	MessageEmailRequired = "Email is required"
	MessageInvalidEmail  = "Please enter a valid email address"
)

// ErrCodeInvalidInput identifies invalid input errors in logs and metrics.
const ErrCodeInvalidInput = "invalidInput"

// ErrNullRequest is returned by DecodeRequest when the body is the JSON null literal.
var ErrNullRequest = errors.New("request body is null")

// ErrForwarderNotConfigured is wrapped by Forwarder errors caused by missing credentials.
var ErrForwarderNotConfigured = errors.New("subscriber forwarder is not configured")

// ErrPartiallyForwarded is wrapped by Forwarder errors returned after the subscriber was created
// but could not be enrolled. Nothing is rolled back.
var ErrPartiallyForwarded = errors.New("subscriber was created but not enrolled")

// InvalidInputError is returned by Request.Validate.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Message
}
