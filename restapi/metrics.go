/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsLabelStatus    = "status"
	metricsLabelErrorCode = "code"
)

// errorResponses counts error responses by HTTP status and error code. Nil until registered.
var errorResponses *prometheus.CounterVec

// MustInitAndRegisterMetrics creates the error responses counter and registers it in the default registry.
// It panics if a collector with the same name is already registered.
func MustInitAndRegisterMetrics(namespace string) {
	errorResponses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_error_responses_total",
		Help:      "Number of JSON error responses sent to clients.",
	}, []string{metricsLabelStatus, metricsLabelErrorCode})
	prometheus.MustRegister(errorResponses)
}

// UnregisterMetrics removes the error responses counter from the default registry.
func UnregisterMetrics() {
	if errorResponses == nil {
		return
	}
	prometheus.Unregister(errorResponses)
	errorResponses = nil
}

func countErrorResponse(status int, code string) {
	if errorResponses != nil {
		errorResponses.WithLabelValues(strconv.Itoa(status), code).Inc()
	}
}
