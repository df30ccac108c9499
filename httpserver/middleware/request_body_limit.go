/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"

	"github.com/ppguide/site/restapi"
)

type requestBodyLimitHandler struct {
	next         http.Handler
	maxSizeBytes uint64
}

// RequestBodyLimit is a middleware that sets the maximum allowed size for a request body.
// A request with a larger Content-Length is rejected with 413 at once.
// Otherwise the body is wrapped, and reading past the limit returns *restapi.RequestBodyTooLargeError
// which the handler is expected to map to 413.
func RequestBodyLimit(maxSizeBytes uint64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return &requestBodyLimitHandler{next, maxSizeBytes}
	}
}

func (h *requestBodyLimitHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if r.ContentLength > int64(h.maxSizeBytes) { //nolint:gosec // maxSizeBytes is a reasonable value
		restapi.RespondError(rw, http.StatusRequestEntityTooLarge,
			restapi.NewError(restapi.ErrCodeBodyTooLarge, restapi.ErrMessageBodyTooLarge), GetLoggerFromContext(r.Context()))
		return
	}
	if r.Body != nil && r.Body != http.NoBody {
		restapi.SetRequestMaxBodySize(rw, r, h.maxSizeBytes)
	}
	h.next.ServeHTTP(rw, r)
}
