/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

package site

// Robots returns the robots.txt content: crawling is allowed everywhere.
func Robots(baseURL string) string {
	return "User-agent: *\nAllow: /\n\nSitemap: " + baseURL + "/sitemap.xml\n"
}
