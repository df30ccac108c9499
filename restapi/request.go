/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"code.cloudfoundry.org/bytefmt"
)

// RequestBodyTooLargeError is returned when the request body exceeds the configured limit.
type RequestBodyTooLargeError struct {
	MaxSizeBytes uint64
	Err          error
}

// Error returns a string representation of RequestBodyTooLargeError.
func (e *RequestBodyTooLargeError) Error() string {
	return fmt.Sprintf("request body is larger than %s: %v", bytefmt.ByteSize(e.MaxSizeBytes), e.Err)
}

// Unwrap returns the underlying error.
func (e *RequestBodyTooLargeError) Unwrap() error {
	return e.Err
}

type maxBytesReader struct {
	io.ReadCloser
	n uint64
}

func (r *maxBytesReader) Read(p []byte) (n int, err error) {
	n, err = r.ReadCloser.Read(p)
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		err = &RequestBodyTooLargeError{r.n, err}
	}
	return
}

// SetRequestMaxBodySize wraps request body with a reader which limits the number of bytes to read.
// RequestBodyTooLargeError is returned by Read when maxSizeBytes is exceeded.
func SetRequestMaxBodySize(w http.ResponseWriter, r *http.Request, maxSizeBytes uint64) {
	r.Body = &maxBytesReader{ReadCloser: http.MaxBytesReader(w, r.Body, int64(maxSizeBytes)), n: maxSizeBytes}
}

// ErrMalformedJSON is returned by DecodeJSON when the body is not a single JSON value.
var ErrMalformedJSON = errors.New("malformed JSON")

// DecodeJSON decodes exactly one JSON value from body into dst.
// Syntax errors and trailing data are reported as ErrMalformedJSON,
// an exceeded body limit as *RequestBodyTooLargeError.
func DecodeJSON(body io.Reader, dst interface{}) error {
	decoder := json.NewDecoder(body)
	decoder.UseNumber()
	if err := decoder.Decode(dst); err != nil {
		var tooLargeErr *RequestBodyTooLargeError
		if errors.As(err, &tooLargeErr) {
			return tooLargeErr
		}
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
			errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
		}
		return err
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		var tooLargeErr *RequestBodyTooLargeError
		if errors.As(err, &tooLargeErr) {
			return tooLargeErr
		}
		return fmt.Errorf("%w: body must contain a single JSON value", ErrMalformedJSON)
	}
	return nil
}
