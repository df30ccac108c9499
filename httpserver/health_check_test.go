/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ppguide/site/httpserver/middleware"
	"github.com/ppguide/site/log/logtest"
	"github.com/ppguide/site/restapi"
	"github.com/ppguide/site/testutil"
)

func TestHealthCheckHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name         string
		healthCheck  HealthCheck
		wantCode     int
		wantRespBody string
	}{
		{
			name:         "no components",
			wantCode:     http.StatusOK,
			wantRespBody: `{"components":{}}`,
		},
		{
			name: "redis is healthy",
			healthCheck: func(ctx context.Context) (HealthCheckResult, error) {
				return HealthCheckResult{"redis": HealthCheckStatusOK}, nil
			},
			wantCode:     http.StatusOK,
			wantRespBody: `{"components":{"redis":true}}`,
		},
		{
			name: "redis is unreachable",
			healthCheck: func(ctx context.Context) (HealthCheckResult, error) {
				return HealthCheckResult{"redis": HealthCheckStatusFail}, nil
			},
			wantCode:     http.StatusServiceUnavailable,
			wantRespBody: `{"components":{"redis":false}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			resp := httptest.NewRecorder()
			NewHealthCheckHandler(tt.healthCheck).ServeHTTP(resp, req)
			require.Equal(t, tt.wantCode, resp.Code)
			testutil.RequireStringJSONInRecorder(t, resp, tt.wantRespBody)
		})
	}
}

func TestHealthCheckHandler_Errors(t *testing.T) {
	t.Run("health check error", func(t *testing.T) {
		logRecorder := logtest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req = req.WithContext(middleware.NewContextWithLogger(req.Context(), logRecorder))
		resp := httptest.NewRecorder()
		NewHealthCheckHandler(func(ctx context.Context) (HealthCheckResult, error) {
			return nil, errors.New("internal error")
		}).ServeHTTP(resp, req)

		testutil.RequireErrorInRecorder(t, resp, http.StatusInternalServerError, restapi.ErrMessageInternal)
		_, found := logRecorder.FindEntry("error while checking health")
		require.True(t, found)
	})

	t.Run("client closed request", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil).WithContext(ctx)
		resp := httptest.NewRecorder()
		NewHealthCheckHandler(nil).ServeHTTP(resp, req)
		require.Equal(t, StatusClientClosedRequest, resp.Code)
	})
}
