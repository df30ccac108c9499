/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

package subscribe

import "github.com/prometheus/client_golang/prometheus"

// Outcome is the result of handling a subscription request.
type Outcome string

// Request outcomes.
const (
	OutcomeSuccess         Outcome = "success"
	OutcomeInvalidInput    Outcome = "invalid_input"
	OutcomeConfigError     Outcome = "config_error"
	OutcomeUpstreamError   Outcome = "upstream_error"
	OutcomeUpstreamPartial Outcome = "upstream_partial"
	OutcomeInternalError   Outcome = "internal_error"
)

// MetricsCollector counts handled subscription requests.
type MetricsCollector interface {
	IncRequests(outcome Outcome)
}

// PrometheusMetrics is a MetricsCollector based on Prometheus.
type PrometheusMetrics struct {
	RequestsTotal *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	return &PrometheusMetrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscribe_requests_total",
			Help:      "Number of subscription requests by outcome.",
		}, []string{"outcome"}),
	}
}

// IncRequests increments the counter for the outcome.
func (pm *PrometheusMetrics) IncRequests(outcome Outcome) {
	pm.RequestsTotal.WithLabelValues(string(outcome)).Inc()
}

// MustRegister registers metrics in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.RequestsTotal)
}

// Unregister cancels registration of metrics in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.RequestsTotal)
}

type disabledMetrics struct{}

func (disabledMetrics) IncRequests(Outcome) {}
