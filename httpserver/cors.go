/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"

	"github.com/ppguide/site/httpserver/middleware"
)

// CORS returns a middleware that answers preflight requests and sets CORS headers for the configured origins.
// If no origins are configured, the returned middleware passes requests through unchanged.
func CORS(cfg CORSConfig) func(next http.Handler) http.Handler {
	if len(cfg.AllowedOrigins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.HeaderRequestID},
		ExposedHeaders: []string{middleware.HeaderRequestID},
		MaxAge:         int(time.Duration(cfg.MaxAge).Seconds()),
	})
}
