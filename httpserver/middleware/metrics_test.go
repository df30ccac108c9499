/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/ppguide/site/testutil"
)

func TestHTTPRequestMetrics(t *testing.T) {
	getRoutePattern := func(r *http.Request) string { return r.URL.Path }
	durationsOf := func(c *HTTPRequestMetricsCollector, method, route, uaType, status string) prometheus.Histogram {
		return c.Durations.With(prometheus.Labels{
			httpRequestMetricsLabelMethod:        method,
			httpRequestMetricsLabelRoutePattern:  route,
			httpRequestMetricsLabelUserAgentType: uaType,
			httpRequestMetricsLabelStatusCode:    status,
		}).(prometheus.Histogram)
	}

	t.Run("requests are measured", func(t *testing.T) {
		collector := NewHTTPRequestMetricsCollector()
		browserInFlight := collector.InFlight.With(prometheus.Labels{
			httpRequestMetricsLabelMethod:        http.MethodPost,
			httpRequestMetricsLabelRoutePattern:  "/api/subscribe",
			httpRequestMetricsLabelUserAgentType: userAgentTypeBrowser,
		})
		var inFlight float64
		next := http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			if determineUserAgentType(r) == userAgentTypeBrowser {
				inFlight = promtestutil.ToFloat64(browserInFlight)
			}
			rw.WriteHeader(http.StatusTooManyRequests)
		})
		h := HTTPRequestMetrics(collector, getRoutePattern)(next)

		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodPost, "/api/subscribe", nil)
			req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")
			h.ServeHTTP(httptest.NewRecorder(), req)
		}
		req := httptest.NewRequest(http.MethodPost, "/api/subscribe", nil)
		req.Header.Set("User-Agent", "curl/8.5.0")
		h.ServeHTTP(httptest.NewRecorder(), req)

		require.Equal(t, 1.0, inFlight)
		require.Equal(t, 0.0, promtestutil.ToFloat64(browserInFlight))
		testutil.RequireSamplesCountInHistogram(t,
			durationsOf(collector, http.MethodPost, "/api/subscribe", userAgentTypeBrowser, "429"), 3)
		testutil.RequireSamplesCountInHistogram(t,
			durationsOf(collector, http.MethodPost, "/api/subscribe", userAgentTypeHTTPClient, "429"), 1)
	})

	t.Run("status defaults to 200", func(t *testing.T) {
		collector := NewHTTPRequestMetricsCollector()
		h := HTTPRequestMetrics(collector, getRoutePattern)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/robots.txt", nil))
		testutil.RequireSamplesCountInHistogram(t,
			durationsOf(collector, http.MethodGet, "/robots.txt", userAgentTypeHTTPClient, "200"), 1)
	})

	t.Run("panic is counted as 500", func(t *testing.T) {
		collector := NewHTTPRequestMetricsCollector()
		h := HTTPRequestMetrics(collector, getRoutePattern)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))
		require.Panics(t, func() {
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sitemap.xml", nil))
		})
		testutil.RequireSamplesCountInHistogram(t,
			durationsOf(collector, http.MethodGet, "/sitemap.xml", userAgentTypeHTTPClient, "500"), 1)
	})

	t.Run("excluded endpoints", func(t *testing.T) {
		collector := NewHTTPRequestMetricsCollector()
		h := HTTPRequestMetricsWithOpts(collector, getRoutePattern, HTTPRequestMetricsOpts{
			ExcludedEndpoints: []string{"/metrics", "/healthz"},
		})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, 0, promtestutil.CollectAndCount(collector.Durations))
	})

	t.Run("nil route pattern getter", func(t *testing.T) {
		require.Panics(t, func() { HTTPRequestMetrics(NewHTTPRequestMetricsCollector(), nil) })
	})
}
