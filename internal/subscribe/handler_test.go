/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

package subscribe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/ppguide/site/httpserver/middleware"
	"github.com/ppguide/site/log"
	"github.com/ppguide/site/log/logtest"
	"github.com/ppguide/site/restapi"
	"github.com/ppguide/site/testutil"
)

type mockForwarder struct {
	err   error
	calls []Subscription
}

func (f *mockForwarder) Forward(_ context.Context, sub Subscription) error {
	f.calls = append(f.calls, sub)
	return f.err
}

type HandlerTestSuite struct {
	suite.Suite
	forwarder *mockForwarder
	metrics   *PrometheusMetrics
	logger    *logtest.Recorder
	handler   *Handler
}

func TestHandler(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) SetupTest() {
	s.forwarder = &mockForwarder{}
	s.metrics = NewPrometheusMetrics("")
	s.logger = logtest.NewRecorder()
	s.handler = NewHandler(s.forwarder, log.NewDisabledLogger(), HandlerOpts{MetricsCollector: s.metrics})
}

func (s *HandlerTestSuite) serve(body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/subscribe", strings.NewReader(body))
	req = req.WithContext(middleware.NewContextWithLogger(req.Context(), s.logger))
	resp := httptest.NewRecorder()
	s.handler.ServeHTTP(resp, req)
	return resp
}

func (s *HandlerTestSuite) requireOutcome(outcome Outcome, want float64) {
	testutil.RequireCounterValue(s.T(), s.metrics.RequestsTotal.WithLabelValues(string(outcome)), want)
}

func (s *HandlerTestSuite) TestSuccess() {
	resp := s.serve(`{"email":"a@b.c"}`)
	testutil.RequireStringJSONInRecorder(s.T(), resp, `{"success":true}`)
	s.Require().Equal(http.StatusOK, resp.Code)
	s.Require().Equal([]Subscription{{Email: "a@b.c", Source: defaultSourceJSON}}, s.forwarder.calls)
	s.requireOutcome(OutcomeSuccess, 1)

	entry, found := s.logger.FindEntry("subscription forwarded")
	s.Require().True(found)
	s.Require().Equal(DefaultSource, entry.FieldString("source"))
	for _, e := range s.logger.Entries() {
		s.Require().NotContains(e.Text, "a@b.c")
	}
}

func (s *HandlerTestSuite) TestInvalidInput() {
	resp := s.serve(`{"source":"home"}`)
	testutil.RequireErrorInRecorder(s.T(), resp, http.StatusBadRequest, MessageEmailRequired)

	resp = s.serve(`{"email":"not-an-email"}`)
	testutil.RequireErrorInRecorder(s.T(), resp, http.StatusBadRequest, MessageInvalidEmail)

	s.Require().Empty(s.forwarder.calls)
	s.requireOutcome(OutcomeInvalidInput, 2)
}

func (s *HandlerTestSuite) TestMalformedBody() {
	for _, body := range []string{`{"email":`, `null`} {
		resp := s.serve(body)
		testutil.RequireErrorInRecorder(s.T(), resp, http.StatusInternalServerError, restapi.ErrMessageInternal)
	}
	s.Require().Empty(s.forwarder.calls)
	s.requireOutcome(OutcomeInternalError, 2)
	_, found := s.logger.FindEntry("failed to decode subscription request")
	s.Require().True(found)
}

func (s *HandlerTestSuite) TestBodyTooLarge() {
	req := httptest.NewRequest(http.MethodPost, "/api/subscribe",
		strings.NewReader(`{"email":"`+strings.Repeat("a", 100)+`@b.c"}`))
	resp := httptest.NewRecorder()
	restapi.SetRequestMaxBodySize(resp, req, 16)
	s.handler.ServeHTTP(resp, req)

	testutil.RequireErrorInRecorder(s.T(), resp, http.StatusRequestEntityTooLarge, restapi.ErrMessageBodyTooLarge)
	s.Require().Empty(s.forwarder.calls)
}

func (s *HandlerTestSuite) TestForwardErrors() {
	tests := []struct {
		name        string
		err         error
		wantOutcome Outcome
		wantLog     string
	}{
		{
			name:        "not configured",
			err:         fmt.Errorf("kit: %w", ErrForwarderNotConfigured),
			wantOutcome: OutcomeConfigError,
			wantLog:     "subscriber forwarder is not configured",
		},
		{
			name:        "upstream error",
			err:         errors.New("upsert subscriber: unexpected status code 422"),
			wantOutcome: OutcomeUpstreamError,
			wantLog:     "failed to forward subscription",
		},
		{
			name:        "partial failure",
			err:         fmt.Errorf("%w: enroll subscriber: unexpected status code 404", ErrPartiallyForwarded),
			wantOutcome: OutcomeUpstreamPartial,
			wantLog:     "subscriber created but not enrolled",
		},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			s.forwarder.err = tt.err

			resp := s.serve(`{"email":"a@b.c","source":"checklist"}`)

			testutil.RequireErrorInRecorder(s.T(), resp, http.StatusInternalServerError, restapi.ErrMessageInternal)
			s.requireOutcome(tt.wantOutcome, 1)
			entry, found := s.logger.FindEntry(tt.wantLog)
			s.Require().True(found)
			s.Require().Equal(log.LevelError, entry.Level)
			if tt.wantOutcome == OutcomeUpstreamPartial {
				s.Require().Equal("enroll", entry.FieldString("stage"))
			}
		})
	}
}

func (s *HandlerTestSuite) TestLoggerFallback() {
	logger := logtest.NewRecorder()
	handler := NewHandler(s.forwarder, logger, HandlerOpts{})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/subscribe", strings.NewReader(`{"email":"a@b.c"}`)))
	s.Require().Equal(http.StatusOK, resp.Code)
	_, found := logger.FindEntry("subscription forwarded")
	s.Require().True(found)
}
