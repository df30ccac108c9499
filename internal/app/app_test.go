/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ppguide/site/httpserver/middleware"
	"github.com/ppguide/site/internal/ratelimit"
	"github.com/ppguide/site/internal/subscribe"
	"github.com/ppguide/site/log"
	"github.com/ppguide/site/log/logtest"
	"github.com/ppguide/site/restapi"
	"github.com/ppguide/site/testutil"
)

type mockForwarder struct {
	err   error
	calls []subscribe.Subscription
}

func (f *mockForwarder) Forward(_ context.Context, sub subscribe.Subscription) error {
	f.calls = append(f.calls, sub)
	return f.err
}

func newTestConfig(t *testing.T, yamlData string) *Config {
	t.Helper()
	clearKitEnv(t)
	cfg, err := LoadConfigFromReader(strings.NewReader(yamlData))
	require.NoError(t, err)
	return cfg
}

type AppTestSuite struct {
	suite.Suite
	now       time.Time
	forwarder *mockForwarder
	logger    *logtest.Recorder
	app       *App
}

func TestApp(t *testing.T) {
	suite.Run(t, new(AppTestSuite))
}

func (s *AppTestSuite) SetupTest() {
	s.now = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	s.forwarder = &mockForwarder{}
	s.logger = logtest.NewRecorder()
	cfg := newTestConfig(s.T(), `
server:
  cors:
    allowedOrigins: ["https://privatepracticeguide.com.au"]
`)
	var err error
	s.app, err = New(context.Background(), cfg, s.logger, Opts{
		Forwarder: s.forwarder,
		Now:       func() time.Time { return s.now },
	})
	s.Require().NoError(err)
}

func (s *AppTestSuite) TearDownTest() {
	s.Require().NoError(s.app.Stop(false))
}

func (s *AppTestSuite) do(method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	s.app.HTTPServer.HTTPRouter.ServeHTTP(resp, req)
	return resp
}

func (s *AppTestSuite) subscribe(body, forwardedFor string) *httptest.ResponseRecorder {
	headers := map[string]string{"Content-Type": "application/json"}
	if forwardedFor != "" {
		headers["X-Forwarded-For"] = forwardedFor
	}
	return s.do(http.MethodPost, "/api/subscribe", body, headers)
}

func (s *AppTestSuite) requireSecurityHeaders(resp *httptest.ResponseRecorder) {
	s.Require().Equal("DENY", resp.Header().Get("X-Frame-Options"))
	s.Require().Equal("nosniff", resp.Header().Get("X-Content-Type-Options"))
	s.Require().Equal("max-age=63072000; includeSubDomains; preload", resp.Header().Get("Strict-Transport-Security"))
	s.Require().Equal("strict-origin-when-cross-origin", resp.Header().Get("Referrer-Policy"))
	s.Require().Equal("camera=(), microphone=(), geolocation=()", resp.Header().Get("Permissions-Policy"))
}

func (s *AppTestSuite) TestSubscribe() {
	resp := s.subscribe(`{"email":"a@b.c"}`, "203.0.113.7")
	testutil.RequireStringJSONInRecorder(s.T(), resp, `{"success":true}`)
	s.requireSecurityHeaders(resp)
	s.Require().Len(s.forwarder.calls, 1)
	s.Require().Equal(subscribe.Subscription{Email: "a@b.c", Source: json.RawMessage(`"unknown"`)}, s.forwarder.calls[0])

	resp = s.subscribe(`{"email":"not-an-email"}`, "203.0.113.7")
	testutil.RequireErrorInRecorder(s.T(), resp, http.StatusBadRequest, subscribe.MessageInvalidEmail)
	s.requireSecurityHeaders(resp)

	resp = s.subscribe(`{"source":"home"}`, "203.0.113.7")
	testutil.RequireErrorInRecorder(s.T(), resp, http.StatusBadRequest, subscribe.MessageEmailRequired)
	s.Require().Len(s.forwarder.calls, 1)
}

func (s *AppTestSuite) TestSubscribe_UpstreamFailure() {
	s.forwarder.err = errors.New("kit subscribers: unexpected status code 502")
	resp := s.subscribe(`{"email":"a@b.c","source":"footer"}`, "")
	testutil.RequireErrorInRecorder(s.T(), resp, http.StatusInternalServerError, restapi.ErrMessageInternal)
	_, found := s.logger.FindEntry("failed to forward subscription")
	s.Require().True(found)
}

func (s *AppTestSuite) TestSubscribe_RateLimit() {
	for i := 0; i < ratelimit.DefaultLimit; i++ {
		resp := s.subscribe(`{"email":"a@b.c"}`, "198.51.100.1")
		s.Require().Equal(http.StatusOK, resp.Code, "request #%d", i+1)
	}

	resp := s.subscribe(`{"email":"a@b.c"}`, "198.51.100.1")
	testutil.RequireErrorInRecorder(s.T(), resp, http.StatusTooManyRequests, restapi.ErrMessageTooManyRequests)
	s.Require().Empty(resp.Header().Get("Retry-After"))
	s.requireSecurityHeaders(resp)
	s.Require().Len(s.forwarder.calls, ratelimit.DefaultLimit)
	entry, found := s.logger.FindEntry("too many requests, request is rejected")
	s.Require().True(found)
	s.Require().Equal(log.LevelWarn, entry.Level)
	s.Require().Equal("198.51.100.1", entry.FieldString(middleware.RateLimitLogFieldKey))

	// Another client has its own window.
	resp = s.subscribe(`{"email":"a@b.c"}`, "198.51.100.2")
	s.Require().Equal(http.StatusOK, resp.Code)

	// Clients without X-Forwarded-For share one window.
	for i := 0; i < ratelimit.DefaultLimit; i++ {
		s.Require().Equal(http.StatusOK, s.subscribe(`{"email":"a@b.c"}`, "").Code)
	}
	s.Require().Equal(http.StatusTooManyRequests, s.subscribe(`{"email":"a@b.c"}`, "").Code)

	// The window resets strictly after ResetAt.
	s.now = s.now.Add(ratelimit.DefaultWindow)
	s.Require().Equal(http.StatusTooManyRequests, s.subscribe(`{"email":"a@b.c"}`, "198.51.100.1").Code)
	s.now = s.now.Add(time.Millisecond)
	s.Require().Equal(http.StatusOK, s.subscribe(`{"email":"a@b.c"}`, "198.51.100.1").Code)
}

func (s *AppTestSuite) TestSubscribe_RateLimitBeforeBodyParsing() {
	for i := 0; i < ratelimit.DefaultLimit; i++ {
		s.Require().Equal(http.StatusInternalServerError, s.subscribe(`{`, "192.0.2.10").Code)
	}
	resp := s.subscribe(`{`, "192.0.2.10")
	s.Require().Equal(http.StatusTooManyRequests, resp.Code)
}

func (s *AppTestSuite) TestSubscribe_RateLimitCountsPostOnly() {
	const client = "192.0.2.20"
	xff := map[string]string{"X-Forwarded-For": client}
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		for i := 0; i < ratelimit.DefaultLimit; i++ {
			resp := s.do(method, "/api/subscribe", "", xff)
			s.Require().Equal(http.StatusMethodNotAllowed, resp.Code, method)
		}
	}
	for i := 0; i < ratelimit.DefaultLimit; i++ {
		s.do(http.MethodOptions, "/api/subscribe", "", xff)
	}
	_, found := s.logger.FindEntry("too many requests, request is rejected")
	s.Require().False(found)

	for i := 0; i < ratelimit.DefaultLimit; i++ {
		resp := s.subscribe(`{"email":"a@b.c"}`, client)
		s.Require().Equal(http.StatusOK, resp.Code, "request #%d", i+1)
	}
	s.Require().Equal(http.StatusTooManyRequests, s.subscribe(`{"email":"a@b.c"}`, client).Code)
}

func (s *AppTestSuite) TestSubscribe_MethodNotAllowed() {
	resp := s.do(http.MethodGet, "/api/subscribe", "", nil)
	testutil.RequireErrorInRecorder(s.T(), resp, http.StatusMethodNotAllowed, restapi.ErrMessageMethodNotAllowed)
}

func (s *AppTestSuite) TestCORSPreflight() {
	resp := s.do(http.MethodOptions, "/api/subscribe", "", map[string]string{
		"Origin":                        "https://privatepracticeguide.com.au",
		"Access-Control-Request-Method": http.MethodPost,
	})
	s.Require().Equal("https://privatepracticeguide.com.au", resp.Header().Get("Access-Control-Allow-Origin"))
	s.Require().Empty(s.forwarder.calls)

	resp = s.do(http.MethodOptions, "/api/subscribe", "", map[string]string{
		"Origin":                        "https://evil.example",
		"Access-Control-Request-Method": http.MethodPost,
	})
	s.Require().Empty(resp.Header().Get("Access-Control-Allow-Origin"))
}

func (s *AppTestSuite) TestSitemapAndRobots() {
	resp := s.do(http.MethodGet, "/sitemap.xml", "", nil)
	s.Require().Equal(http.StatusOK, resp.Code)
	s.Require().Contains(resp.Body.String(), "<loc>https://privatepracticeguide.com.au/guides/cdm-billing</loc>")
	s.Require().Contains(resp.Body.String(), "<lastmod>2025-05-01T09:00:00Z</lastmod>")
	s.requireSecurityHeaders(resp)

	resp = s.do(http.MethodGet, "/robots.txt", "", nil)
	s.Require().Equal(http.StatusOK, resp.Code)
	s.Require().Contains(resp.Body.String(), "Sitemap: https://privatepracticeguide.com.au/sitemap.xml")
}

func (s *AppTestSuite) TestHealthCheck() {
	resp := s.do(http.MethodGet, "/healthz", "", nil)
	testutil.RequireStringJSONInRecorder(s.T(), resp, `{"components":{}}`)
}

func (s *AppTestSuite) TestMetricsRegistration() {
	s.app.MustRegisterMetrics()
	defer s.app.UnregisterMetrics()

	s.subscribe(`{"email":"a@b.c"}`, "")
	resp := s.do(http.MethodGet, "/metrics", "", nil)
	s.Require().Equal(http.StatusOK, resp.Code)
	body := resp.Body.String()
	s.Require().Contains(body, `subscribe_requests_total{outcome="success"} 1`)
	s.Require().Contains(body, "build_info")
}

func TestApp_KitNotConfigured(t *testing.T) {
	logger := logtest.NewRecorder()
	app, err := New(context.Background(), newTestConfig(t, ""), logger, Opts{})
	require.NoError(t, err)
	defer func() { require.NoError(t, app.Stop(false)) }()

	entry, found := logger.FindEntry("subscriptions will fail until Kit credentials are configured")
	require.True(t, found)
	require.Equal(t, log.LevelWarn, entry.Level)

	req := httptest.NewRequest(http.MethodPost, "/api/subscribe", strings.NewReader(`{"email":"a@b.c"}`))
	resp := httptest.NewRecorder()
	app.HTTPServer.HTTPRouter.ServeHTTP(resp, req)
	testutil.RequireErrorInRecorder(t, resp, http.StatusInternalServerError, restapi.ErrMessageInternal)
	entry, found = logger.FindEntry("subscriber forwarder is not configured")
	require.True(t, found)
	require.Equal(t, log.LevelError, entry.Level)
}

func TestApp_KitUpstream(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	kitServer := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		rw.Header().Set("Content-Type", "application/json")
		_, _ = rw.Write([]byte(`{}`))
	}))
	defer kitServer.Close()

	clearKitEnv(t)
	t.Setenv("KIT_API_KEY", "test-api-key")
	t.Setenv("KIT_FORM_ID", "42")
	cfg, err := LoadConfigFromReader(strings.NewReader("kit:\n  baseURL: " + kitServer.URL + "/v4\n"))
	require.NoError(t, err)

	app, err := New(context.Background(), cfg, logtest.NewRecorder(), Opts{})
	require.NoError(t, err)
	defer func() { require.NoError(t, app.Stop(false)) }()

	req := httptest.NewRequest(http.MethodPost, "/api/subscribe", strings.NewReader(`{"email":"a@b.c"}`))
	resp := httptest.NewRecorder()
	app.HTTPServer.HTTPRouter.ServeHTTP(resp, req)
	testutil.RequireStringJSONInRecorder(t, resp, `{"success":true}`)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"/v4/subscribers", "/v4/forms/42/subscribers"}, paths)
}

func TestApp_RedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := newTestConfig(t, `
rateLimit:
  store: redis
  redis:
    address: `+mr.Addr()+`
    connectAttempts: 1
`)
	app, err := New(context.Background(), cfg, logtest.NewRecorder(), Opts{Forwarder: &mockForwarder{}})
	require.NoError(t, err)
	defer func() { require.NoError(t, app.Stop(false)) }()

	serve := func(method, target, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		resp := httptest.NewRecorder()
		app.HTTPServer.HTTPRouter.ServeHTTP(resp, req)
		return resp
	}

	for i := 0; i < ratelimit.DefaultLimit; i++ {
		require.Equal(t, http.StatusOK, serve(http.MethodPost, "/api/subscribe", `{"email":"a@b.c"}`).Code)
	}
	require.Equal(t, http.StatusTooManyRequests, serve(http.MethodPost, "/api/subscribe", `{"email":"a@b.c"}`).Code)

	testutil.RequireStringJSONInRecorder(t, serve(http.MethodGet, "/healthz", ""), `{"components":{"redis":true}}`)

	mr.Close()
	resp := serve(http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	require.JSONEq(t, `{"components":{"redis":false}}`, resp.Body.String())
}

func TestApp_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	cfg := newTestConfig(t, `
rateLimit:
  store: redis
  redis:
    address: `+addr+`
    connectAttempts: 1
    connectBackoff: 10ms
`)
	_, err := New(context.Background(), cfg, logtest.NewRecorder(), Opts{})
	require.ErrorContains(t, err, "open rate limit store")
}
