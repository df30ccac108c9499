/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/ppguide/site/testutil"
)

func TestMetricsRoundTripper(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	collector := NewPrometheusMetricsCollector("ppg")
	client := &http.Client{Transport: NewMetricsRoundTripperWithOpts(http.DefaultTransport, MetricsRoundTripperOpts{
		Collector: collector,
	})}

	for _, reqType := range []string{"", "kit_upsert", "kit_upsert"} {
		ctx := context.Background()
		if reqType != "" {
			ctx = NewContextWithRequestType(ctx, reqType)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, server.URL, nil)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
	}

	host := server.Listener.Addr().String()
	histogram := func(reqType string) prometheus.Histogram {
		return collector.Durations.With(prometheus.Labels{
			"type": reqType, "remote_address": host, "summary": "POST " + reqType, "status": "401",
		}).(prometheus.Histogram)
	}
	testutil.RequireSamplesCountInHistogram(t, histogram(DefaultRequestType), 1)
	testutil.RequireSamplesCountInHistogram(t, histogram("kit_upsert"), 2)
}
