/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

package site

// SecurityHeaders returns the headers set on every response.
func SecurityHeaders() map[string]string {
	return map[string]string{
		"X-Frame-Options":           "DENY",
		"X-Content-Type-Options":    "nosniff",
		"Strict-Transport-Security": "max-age=63072000; includeSubDomains; preload",
		"Referrer-Policy":           "strict-origin-when-cross-origin",
		"Permissions-Policy":        "camera=(), microphone=(), geolocation=()",
	}
}
