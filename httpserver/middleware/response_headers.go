/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

package middleware

import "net/http"

// ResponseHeaders is a middleware that sets the given headers on every response
// before the next handler runs, so error responses carry them too.
func ResponseHeaders(headers map[string]string) func(next http.Handler) http.Handler {
	canonical := make(http.Header, len(headers))
	for name, value := range headers {
		canonical.Set(name, value)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			dst := rw.Header()
			for name, values := range canonical {
				dst[name] = append([]string(nil), values...)
			}
			next.ServeHTTP(rw, r)
		})
	}
}
