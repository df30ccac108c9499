/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	httpRequestMetricsLabelMethod        = "method"
	httpRequestMetricsLabelRoutePattern  = "route_pattern"
	httpRequestMetricsLabelUserAgentType = "user_agent_type"
	httpRequestMetricsLabelStatusCode    = "status_code"
)

const (
	userAgentTypeBrowser    = "browser"
	userAgentTypeHTTPClient = "http-client"
)

// DefaultHTTPRequestDurationBuckets are the histogram buckets (in seconds) used when none are configured.
// Site requests are short, so the buckets end at one minute.
var DefaultHTTPRequestDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// HTTPRequestMetricsCollectorOpts represents an options for HTTPRequestMetricsCollector.
type HTTPRequestMetricsCollectorOpts struct {
	// Namespace is prepended to the metric names.
	Namespace string

	// DurationBuckets overrides DefaultHTTPRequestDurationBuckets.
	DurationBuckets []float64

	// ConstLabels are attached to every metric.
	ConstLabels prometheus.Labels
}

// HTTPRequestMetricsCollector holds the Prometheus collectors for incoming HTTP requests.
type HTTPRequestMetricsCollector struct {
	Durations *prometheus.HistogramVec
	InFlight  *prometheus.GaugeVec
}

// NewHTTPRequestMetricsCollector creates a new metrics collector without namespace.
func NewHTTPRequestMetricsCollector() *HTTPRequestMetricsCollector {
	return NewHTTPRequestMetricsCollectorWithOpts(HTTPRequestMetricsCollectorOpts{})
}

// NewHTTPRequestMetricsCollectorWithOpts is a more configurable version of NewHTTPRequestMetricsCollector.
func NewHTTPRequestMetricsCollectorWithOpts(opts HTTPRequestMetricsCollectorOpts) *HTTPRequestMetricsCollector {
	if opts.DurationBuckets == nil {
		opts.DurationBuckets = DefaultHTTPRequestDurationBuckets
	}
	requestLabels := []string{
		httpRequestMetricsLabelMethod, httpRequestMetricsLabelRoutePattern, httpRequestMetricsLabelUserAgentType,
	}
	return &HTTPRequestMetricsCollector{
		Durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "http_request_duration_seconds",
			Help:        "Duration of served HTTP requests.",
			Buckets:     opts.DurationBuckets,
			ConstLabels: opts.ConstLabels,
		}, append(requestLabels, httpRequestMetricsLabelStatusCode)),
		InFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests being served.",
			ConstLabels: opts.ConstLabels,
		}, requestLabels),
	}
}

// MustRegister registers the collectors in Prometheus and panics if any error occurs.
func (c *HTTPRequestMetricsCollector) MustRegister() {
	prometheus.MustRegister(c.Durations, c.InFlight)
}

// Unregister cancels registration of the collectors in Prometheus.
func (c *HTTPRequestMetricsCollector) Unregister() {
	prometheus.Unregister(c.Durations)
	prometheus.Unregister(c.InFlight)
}

// observe records the duration of a finished request.
func (c *HTTPRequestMetricsCollector) observe(method, routePattern, userAgentType string, status int, elapsed time.Duration) {
	c.Durations.WithLabelValues(method, routePattern, userAgentType, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// UserAgentTypeGetterFunc is a function for getting user agent type from the request.
// The set of return values must be finite.
type UserAgentTypeGetterFunc func(r *http.Request) string

// HTTPRequestMetricsOpts represents an options for HTTPRequestMetrics middleware.
type HTTPRequestMetricsOpts struct {
	GetUserAgentType UserAgentTypeGetterFunc
	// ExcludedEndpoints are glob patterns of URL paths that are not measured (e.g. "/metrics").
	ExcludedEndpoints []string
}

type httpRequestMetricsHandler struct {
	next            http.Handler
	collector       *HTTPRequestMetricsCollector
	getRoutePattern RoutePatternGetterFunc
	opts            HTTPRequestMetricsOpts
	excludedMatcher endpointMatcher
}

// HTTPRequestMetrics is a middleware that collects metrics for incoming HTTP requests using Prometheus data types.
func HTTPRequestMetrics(
	collector *HTTPRequestMetricsCollector, getRoutePattern RoutePatternGetterFunc,
) func(next http.Handler) http.Handler {
	return HTTPRequestMetricsWithOpts(collector, getRoutePattern, HTTPRequestMetricsOpts{})
}

// HTTPRequestMetricsWithOpts is a more configurable version of HTTPRequestMetrics middleware.
func HTTPRequestMetricsWithOpts(
	collector *HTTPRequestMetricsCollector,
	getRoutePattern RoutePatternGetterFunc,
	opts HTTPRequestMetricsOpts,
) func(next http.Handler) http.Handler {
	if getRoutePattern == nil {
		panic("function for getting route pattern cannot be nil")
	}
	if opts.GetUserAgentType == nil {
		opts.GetUserAgentType = determineUserAgentType
	}
	excludedMatcher := newEndpointMatcher(opts.ExcludedEndpoints)
	return func(next http.Handler) http.Handler {
		return &httpRequestMetricsHandler{
			next: next, collector: collector, getRoutePattern: getRoutePattern, opts: opts, excludedMatcher: excludedMatcher,
		}
	}
}

func (h *httpRequestMetricsHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if h.excludedMatcher.match(r.URL.Path) {
		h.next.ServeHTTP(rw, r)
		return
	}

	startTime := GetRequestStartTimeFromContext(r.Context())
	if startTime.IsZero() {
		startTime = time.Now()
		r = r.WithContext(NewContextWithRequestStartTime(r.Context(), startTime))
	}

	method, userAgentType := r.Method, h.opts.GetUserAgentType(r)
	routePattern := h.getRoutePattern(r)

	inFlight := h.collector.InFlight.WithLabelValues(method, routePattern, userAgentType)
	inFlight.Inc()
	defer inFlight.Dec()

	wrw := WrapResponseWriterIfNeeded(rw, r.ProtoMajor)
	defer func() {
		// chi sets the route pattern during routing.
		if routePattern == "" {
			routePattern = h.getRoutePattern(r)
		}
		status := wrw.Status()
		if p := recover(); p != nil {
			if p != http.ErrAbortHandler {
				h.collector.observe(method, routePattern, userAgentType, http.StatusInternalServerError, time.Since(startTime))
			}
			panic(p)
		}
		if status == 0 {
			status = http.StatusOK
		}
		h.collector.observe(method, routePattern, userAgentType, status, time.Since(startTime))
	}()

	h.next.ServeHTTP(wrw, r)
}

func determineUserAgentType(r *http.Request) string {
	if strings.Contains(strings.ToLower(r.UserAgent()), "mozilla") {
		return userAgentTypeBrowser
	}
	return userAgentTypeHTTPClient
}
