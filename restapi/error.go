/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import "encoding/json"

// Error is an error returned to the client as {"error": "<message>"}.
// Code is never sent, it identifies the error in logs and metrics.
type Error struct {
	Code    string
	Message string
}

// Error codes.
// We are using "var" here because some services may want to use different error codes.
var (
	ErrCodeInternal         = "internalError"
	ErrCodeNotFound         = "notFound"
	ErrCodeMethodNotAllowed = "methodNotAllowed"
	ErrCodeBodyTooLarge     = "requestEntityTooLarge"
	ErrCodeTooManyRequests  = "tooManyRequests"
)

// Error messages.
var (
	ErrMessageInternal         = "Something went wrong. Please try again."
	ErrMessageNotFound         = "Not found."
	ErrMessageMethodNotAllowed = "Method not allowed."
	ErrMessageBodyTooLarge     = "Request body too large."
	ErrMessageTooManyRequests  = "Too many requests. Try again in a minute."
)

// NewError creates a new Error.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewInternalError creates the generic internal error.
func NewInternalError() *Error {
	return NewError(ErrCodeInternal, ErrMessageInternal)
}

// Error implements error.
func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// MarshalJSON encodes the error in the flat client-facing shape.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Error string `json:"error"`
	}{e.Message})
}
