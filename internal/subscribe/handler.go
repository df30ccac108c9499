/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

package subscribe

import (
	"context"
	"errors"
	"net/http"

	"github.com/ppguide/site/httpserver/middleware"
	"github.com/ppguide/site/log"
	"github.com/ppguide/site/restapi"
)

// Forwarder relays a validated subscription to the newsletter provider.
type Forwarder interface {
	Forward(ctx context.Context, sub Subscription) error
}

// HandlerOpts represents options for Handler.
type HandlerOpts struct {
	MetricsCollector MetricsCollector
}

// Handler serves POST /api/subscribe.
type Handler struct {
	forwarder Forwarder
	logger    log.FieldLogger
	metrics   MetricsCollector
}

var _ http.Handler = (*Handler)(nil)

type successResponse struct {
	Success bool `json:"success"`
}

// NewHandler creates a new Handler. logger is used when the request context has no logger.
func NewHandler(forwarder Forwarder, logger log.FieldLogger, opts HandlerOpts) *Handler {
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &Handler{forwarder: forwarder, logger: logger, metrics: opts.MetricsCollector}
}

// ServeHTTP decodes and validates the request and forwards the subscription.
// The rate limit is checked by a middleware before the body is read.
func (h *Handler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLoggerFromContext(r.Context())
	if logger == nil {
		logger = h.logger
	}

	req, err := DecodeRequest(r.Body)
	if err != nil {
		var tooLargeErr *restapi.RequestBodyTooLargeError
		if errors.As(err, &tooLargeErr) {
			h.metrics.IncRequests(OutcomeInvalidInput)
			restapi.RespondError(rw, http.StatusRequestEntityTooLarge,
				restapi.NewError(restapi.ErrCodeBodyTooLarge, restapi.ErrMessageBodyTooLarge), logger)
			return
		}
		logger.Error("failed to decode subscription request", log.Error(err))
		h.metrics.IncRequests(OutcomeInternalError)
		restapi.RespondInternalError(rw, logger)
		return
	}

	sub, err := req.Validate()
	if err != nil {
		var invalidErr *InvalidInputError
		if !errors.As(err, &invalidErr) {
			logger.Error("failed to validate subscription request", log.Error(err))
			h.metrics.IncRequests(OutcomeInternalError)
			restapi.RespondInternalError(rw, logger)
			return
		}
		h.metrics.IncRequests(OutcomeInvalidInput)
		restapi.RespondError(rw, http.StatusBadRequest, restapi.NewError(ErrCodeInvalidInput, invalidErr.Message), logger)
		return
	}

	if err = h.forwarder.Forward(r.Context(), *sub); err != nil {
		switch {
		case errors.Is(err, ErrForwarderNotConfigured):
			logger.Error("subscriber forwarder is not configured", log.Error(err))
			h.metrics.IncRequests(OutcomeConfigError)
		case errors.Is(err, ErrPartiallyForwarded):
			logger.Error("subscriber created but not enrolled", log.String("stage", "enroll"), log.Error(err))
			h.metrics.IncRequests(OutcomeUpstreamPartial)
		default:
			logger.Error("failed to forward subscription", log.Error(err))
			h.metrics.IncRequests(OutcomeUpstreamError)
		}
		restapi.RespondInternalError(rw, logger)
		return
	}

	logger.Info("subscription forwarded", log.String("source", sub.SourceText()))
	h.metrics.IncRequests(OutcomeSuccess)
	restapi.RespondJSON(rw, successResponse{Success: true}, logger)
}
