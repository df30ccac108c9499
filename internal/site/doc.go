/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

// Package site contains the public site metadata and the endpoints served for crawlers:
// the sitemap and robots.txt. It also defines the security headers set on every response.
package site
