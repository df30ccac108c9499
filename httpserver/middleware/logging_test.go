/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ppguide/site/log"
	"github.com/ppguide/site/log/logtest"
)

type mockLoggingNextHandler struct {
	called                   int
	lastContextLogger        log.FieldLogger
	lastContextLoggingParams *LoggingParams
	respStatusCode           int
}

func (h *mockLoggingNextHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	h.called++
	h.lastContextLogger = GetLoggerFromContext(r.Context())
	h.lastContextLoggingParams = GetLoggingParamsFromContext(r.Context())
	rw.WriteHeader(h.respStatusCode)
	_, _ = rw.Write([]byte(http.StatusText(h.respStatusCode)))
}

func requireLogFieldString(t *testing.T, logEntry logtest.RecordedEntry, key, want string) {
	t.Helper()
	_, found := logEntry.FindField(key)
	require.True(t, found, "field %q not found", key)
	require.Equal(t, want, logEntry.FieldString(key))
}

func requireLogFieldInt(t *testing.T, logEntry logtest.RecordedEntry, key string, want int) {
	t.Helper()
	logField, found := logEntry.FindField(key)
	require.True(t, found, "field %q not found", key)
	require.Equal(t, int64(want), logField.Int)
}

func TestLoggingHandler_ServeHTTP(t *testing.T) {
	const (
		extReqID    = "external-request-id"
		intReqID    = "internal-request-id"
		userAgent   = "Mozilla/5.0"
		urlPath     = "/api/subscribe"
		bodyContent = `{"email":"a@b.c"}`
	)

	newRequest := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, urlPath, bytes.NewReader([]byte(bodyContent)))
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		req.Header.Set("Origin", "https://privatepracticeguide.com.au")
		ctx := NewContextWithRequestID(req.Context(), extReqID)
		return req.WithContext(NewContextWithInternalRequestID(ctx, intReqID))
	}

	tests := []struct {
		name             string
		opts             LoggingOpts
		statusCode       int
		wantEntries      int
		wantLoggedHeader bool
	}{
		{name: "defaults", statusCode: http.StatusOK, wantEntries: 1},
		{name: "request start", opts: LoggingOpts{RequestStart: true}, statusCode: http.StatusBadRequest, wantEntries: 2},
		{
			name:             "request headers",
			opts:             LoggingOpts{RequestHeaders: map[string]string{"Origin": "origin"}},
			statusCode:       http.StatusTooManyRequests,
			wantEntries:      1,
			wantLoggedHeader: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			logger := logtest.NewRecorder()
			next := &mockLoggingNextHandler{respStatusCode: tt.statusCode}
			resp := httptest.NewRecorder()
			LoggingWithOpts(logger, tt.opts)(next).ServeHTTP(resp, newRequest())

			require.Equal(t, 1, next.called)
			require.NotNil(t, next.lastContextLogger)
			require.NotNil(t, next.lastContextLoggingParams)
			require.Equal(t, tt.statusCode, resp.Code)
			require.Len(t, logger.Entries(), tt.wantEntries)

			if tt.opts.RequestStart {
				startEntry, found := logger.FindEntry("request started")
				require.True(t, found)
				requireLogFieldString(t, startEntry, "uri", urlPath)
			}

			logEntry, found := logger.FindEntryByPrefix("response completed in ")
			require.True(t, found)
			require.Equal(t, log.LevelInfo, logEntry.Level)
			requireLogFieldString(t, logEntry, "request_id", extReqID)
			requireLogFieldString(t, logEntry, "int_request_id", intReqID)
			requireLogFieldString(t, logEntry, "method", http.MethodPost)
			requireLogFieldString(t, logEntry, "uri", urlPath)
			requireLogFieldString(t, logEntry, "user_agent", userAgent)
			requireLogFieldString(t, logEntry, "origin_addr", "203.0.113.7")
			requireLogFieldInt(t, logEntry, "content_length", len(bodyContent))
			requireLogFieldInt(t, logEntry, "status", tt.statusCode)
			requireLogFieldInt(t, logEntry, "bytes_sent", len(http.StatusText(tt.statusCode)))
			if tt.wantLoggedHeader {
				requireLogFieldString(t, logEntry, "origin", "https://privatepracticeguide.com.au")
			}
		})
	}
}

func TestLoggingHandler_ExcludedEndpoints(t *testing.T) {
	opts := LoggingOpts{ExcludedEndpoints: []string{"/healthz", "/assets/*"}}

	for _, tt := range []struct {
		path       string
		statusCode int
		wantLogged bool
	}{
		{path: "/healthz", statusCode: http.StatusOK},
		{path: "/assets/logo.svg", statusCode: http.StatusOK},
		{path: "/healthz", statusCode: http.StatusServiceUnavailable, wantLogged: true},
		{path: "/robots.txt", statusCode: http.StatusOK, wantLogged: true},
	} {
		logger := logtest.NewRecorder()
		next := &mockLoggingNextHandler{respStatusCode: tt.statusCode}
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		LoggingWithOpts(logger, opts)(next).ServeHTTP(httptest.NewRecorder(), req)
		require.Equal(t, 1, next.called)
		require.Equal(t, tt.wantLogged, len(logger.Entries()) == 1, "path %s, status %d", tt.path, tt.statusCode)
	}
}

func TestLoggingHandler_SecretQueryParams(t *testing.T) {
	logger := logtest.NewRecorder()
	next := &mockLoggingNextHandler{respStatusCode: http.StatusOK}
	req := httptest.NewRequest(http.MethodGet, "/sitemap.xml?token=abc&page=2", nil)
	LoggingWithOpts(logger, LoggingOpts{SecretQueryParams: []string{"token"}})(next).ServeHTTP(httptest.NewRecorder(), req)

	logEntry, found := logger.FindEntryByPrefix("response completed in ")
	require.True(t, found)
	uri := logEntry.FieldString("uri")
	require.True(t, strings.HasPrefix(uri, "/sitemap.xml?"))
	require.Contains(t, uri, "token="+LoggingSecretQueryPlaceholder)
	require.NotContains(t, uri, "abc")
}

func TestLoggingHandler_TimeSlots(t *testing.T) {
	logger := logtest.NewRecorder()
	next := http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		lp := GetLoggingParamsFromContext(r.Context())
		lp.AddTimeSlotDurationInMs("external_request_kit_ms", 15*time.Millisecond)
		lp.ExtendFields(log.String("subscribe_outcome", "success"))
		time.Sleep(5 * time.Millisecond)
		rw.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodPost, "/api/subscribe", nil)
	LoggingWithOpts(logger, LoggingOpts{SlowRequestThreshold: time.Millisecond})(next).ServeHTTP(httptest.NewRecorder(), req)

	logEntry, found := logger.FindEntryByPrefix("response completed in ")
	require.True(t, found)
	requireLogFieldString(t, logEntry, "subscribe_outcome", "success")
	timeSlots, found := logEntry.FindField("time_slots")
	require.True(t, found)
	require.Equal(t, loggableIntMap{"external_request_kit_ms": 15}, timeSlots.Any)
}
