/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/vasayxtx/go-glob"
)

// RoutePatternGetterFunc is a function for getting route pattern from the request. Used in multiple middlewares.
//
// With chi it usually looks like:
//
//	func getChiRoutePattern(r *http.Request) string {
//		if chiCtx := chi.RouteContext(r.Context()); chiCtx != nil {
//			return chiCtx.RoutePattern()
//		}
//		return ""
//	}
type RoutePatternGetterFunc func(r *http.Request) string

// WrapResponseWriter is a proxy around an http.ResponseWriter that allows to get the status code
// and the number of written bytes.
type WrapResponseWriter = chimw.WrapResponseWriter

// WrapResponseWriterIfNeeded wraps an http.ResponseWriter (if it is not already wrapped).
func WrapResponseWriterIfNeeded(rw http.ResponseWriter, protoMajor int) WrapResponseWriter {
	if wrw, ok := rw.(WrapResponseWriter); ok {
		return wrw
	}
	return chimw.NewWrapResponseWriter(rw, protoMajor)
}

// endpointMatcher matches URL paths against glob patterns (e.g. "/metrics", "/static/*").
type endpointMatcher []func(s string) bool

func newEndpointMatcher(patterns []string) endpointMatcher {
	m := make(endpointMatcher, 0, len(patterns))
	for _, p := range patterns {
		m = append(m, glob.Compile(p))
	}
	return m
}

func (m endpointMatcher) match(urlPath string) bool {
	for i := range m {
		if m[i](urlPath) {
			return true
		}
	}
	return false
}
