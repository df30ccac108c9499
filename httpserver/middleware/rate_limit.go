/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ppguide/site/internal/ratelimit"
	"github.com/ppguide/site/log"
	"github.com/ppguide/site/restapi"
)

// RateLimitLogFieldKey it is the name of the logged field that contains a key for the requests rate limiter.
const RateLimitLogFieldKey = "rate_limit_key"

// RateLimitUnknownKey is used as the rate limiting key when the client cannot be identified.
const RateLimitUnknownKey = "unknown"

// RateLimitParams contains data that relates to the rate limiting procedure
// and could be used for rejecting or handling an occurred error.
type RateLimitParams struct {
	Key                 string
	EstimatedRetryAfter time.Duration
}

// RateLimitGetKeyFunc is a function that is called for getting key for rate limiting.
// When bypass is true, the request is not limited.
type RateLimitGetKeyFunc func(r *http.Request) (key string, bypass bool, err error)

// RateLimitOnRejectFunc is a function that is called for rejecting HTTP request when the rate limit is exceeded.
type RateLimitOnRejectFunc func(rw http.ResponseWriter, r *http.Request, params RateLimitParams, logger log.FieldLogger)

// RateLimitOnErrorFunc is a function that is called when the rate limiter fails.
type RateLimitOnErrorFunc func(
	rw http.ResponseWriter, r *http.Request, params RateLimitParams, err error, logger log.FieldLogger)

// RateLimitMetricsCollector counts rejected requests.
type RateLimitMetricsCollector interface {
	IncRejects(dryRun bool)
}

// RateLimitOpts represents an options for the RateLimit middleware.
type RateLimitOpts struct {
	// GetKey returns the client identifier. GetRateLimitKeyByForwardedFor is used by default.
	GetKey RateLimitGetKeyFunc
	// DryRun makes the middleware log rejects and pass the requests through.
	DryRun           bool
	OnReject         RateLimitOnRejectFunc
	OnError          RateLimitOnErrorFunc
	MetricsCollector RateLimitMetricsCollector
}

type rateLimitHandler struct {
	next    http.Handler
	limiter ratelimit.Limiter
	opts    RateLimitOpts
}

// RateLimit is a middleware that limits the rate of HTTP requests per client.
// The limit is checked before the next handler reads the request body.
func RateLimit(limiter ratelimit.Limiter) func(next http.Handler) http.Handler {
	return RateLimitWithOpts(limiter, RateLimitOpts{})
}

// RateLimitWithOpts is a more configurable version of RateLimit.
func RateLimitWithOpts(limiter ratelimit.Limiter, opts RateLimitOpts) func(next http.Handler) http.Handler {
	if opts.GetKey == nil {
		opts.GetKey = GetRateLimitKeyByForwardedFor
	}
	if opts.OnReject == nil {
		opts.OnReject = DefaultRateLimitOnReject
	}
	if opts.OnError == nil {
		opts.OnError = DefaultRateLimitOnError
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledRateLimitMetrics{}
	}
	return func(next http.Handler) http.Handler {
		return &rateLimitHandler{next: next, limiter: limiter, opts: opts}
	}
}

func (h *rateLimitHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromContext(r.Context())

	key, bypass, err := h.opts.GetKey(r)
	if err != nil {
		h.opts.OnError(rw, r, RateLimitParams{}, err, logger)
		return
	}
	if bypass {
		h.next.ServeHTTP(rw, r)
		return
	}

	allow, retryAfter, err := h.limiter.Allow(r.Context(), key)
	params := RateLimitParams{Key: key, EstimatedRetryAfter: retryAfter}
	if err != nil {
		h.opts.OnError(rw, r, params, err, logger)
		return
	}
	if allow {
		h.next.ServeHTTP(rw, r)
		return
	}

	h.opts.MetricsCollector.IncRejects(h.opts.DryRun)
	if h.opts.DryRun {
		if logger != nil {
			logger.Warn("too many requests, serving anyway in dry run mode", log.String(RateLimitLogFieldKey, key))
		}
		h.next.ServeHTTP(rw, r)
		return
	}
	h.opts.OnReject(rw, r, params, logger)
}

// GetRateLimitKeyByForwardedFor uses the raw X-Forwarded-For header value as the key,
// or RateLimitUnknownKey when there is no such header.
// Multiple header lines are joined with ", " like they are by most proxies.
func GetRateLimitKeyByForwardedFor(r *http.Request) (key string, bypass bool, err error) {
	values := r.Header.Values(headerForwardedFor)
	if len(values) == 0 {
		return RateLimitUnknownKey, false, nil
	}
	return strings.Join(values, ", "), false, nil
}

// DefaultRateLimitOnReject sends 429 with the "too many requests" message.
// Retry-After header is not sent.
func DefaultRateLimitOnReject(rw http.ResponseWriter, r *http.Request, params RateLimitParams, logger log.FieldLogger) {
	if logger != nil {
		logger = logger.With(log.String(RateLimitLogFieldKey, params.Key))
		logger.Warn("too many requests, request is rejected", log.Duration("estimated_retry_after", params.EstimatedRetryAfter))
	}
	restapi.RespondError(rw, http.StatusTooManyRequests,
		restapi.NewError(restapi.ErrCodeTooManyRequests, restapi.ErrMessageTooManyRequests), logger)
}

// DefaultRateLimitOnError sends the generic 500 error.
func DefaultRateLimitOnError(
	rw http.ResponseWriter, r *http.Request, params RateLimitParams, err error, logger log.FieldLogger,
) {
	if logger != nil {
		logger.Error("error while rate limiting", log.String(RateLimitLogFieldKey, params.Key), log.Error(err))
	}
	restapi.RespondInternalError(rw, logger)
}

// RateLimitPrometheusMetrics counts rejected requests in Prometheus.
type RateLimitPrometheusMetrics struct {
	RejectsTotal *prometheus.CounterVec
}

var _ RateLimitMetricsCollector = (*RateLimitPrometheusMetrics)(nil)

// NewRateLimitPrometheusMetrics creates a new RateLimitPrometheusMetrics.
func NewRateLimitPrometheusMetrics(namespace string) *RateLimitPrometheusMetrics {
	return &RateLimitPrometheusMetrics{
		RejectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejects_total",
			Help:      "Number of requests rejected by the rate limiter.",
		}, []string{"dry_run"}),
	}
}

// IncRejects implements RateLimitMetricsCollector.
func (m *RateLimitPrometheusMetrics) IncRejects(dryRun bool) {
	dryRunLabel := "no"
	if dryRun {
		dryRunLabel = "yes"
	}
	m.RejectsTotal.WithLabelValues(dryRunLabel).Inc()
}

// MustRegister registers the metrics in the default Prometheus registry.
func (m *RateLimitPrometheusMetrics) MustRegister() {
	prometheus.MustRegister(m.RejectsTotal)
}

// Unregister removes the metrics from the default Prometheus registry.
func (m *RateLimitPrometheusMetrics) Unregister() {
	prometheus.Unregister(m.RejectsTotal)
}

type disabledRateLimitMetrics struct{}

func (disabledRateLimitMetrics) IncRejects(bool) {}
