/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

package site

import (
	"io"
	"net/http"
	"time"

	"github.com/ppguide/site/httpserver/middleware"
	"github.com/ppguide/site/log"
	"github.com/ppguide/site/restapi"
)

// Content types of the site endpoints.
const (
	ContentTypeXML  = "application/xml; charset=utf-8"
	ContentTypeText = "text/plain; charset=utf-8"
)

// SitemapHandler serves GET /sitemap.xml.
type SitemapHandler struct {
	baseURL string
	now     func() time.Time
}

// NewSitemapHandler creates a new SitemapHandler. A nil now defaults to time.Now.
func NewSitemapHandler(cfg *Config, now func() time.Time) *SitemapHandler {
	if now == nil {
		now = time.Now
	}
	return &SitemapHandler{baseURL: cfg.BaseURL, now: now}
}

func (h *SitemapHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLoggerFromContext(r.Context())
	data, err := NewSitemap(h.baseURL, h.now()).Marshal()
	if err != nil {
		if logger != nil {
			logger.Error("error while marshaling sitemap", log.Error(err))
		}
		restapi.RespondInternalError(rw, logger)
		return
	}
	rw.Header().Set("Content-Type", ContentTypeXML)
	rw.WriteHeader(http.StatusOK)
	if _, err = rw.Write(data); err != nil && logger != nil {
		logger.Error("error while writing response body", log.Error(err))
	}
}

// NewRobotsHandler creates a handler serving GET /robots.txt.
func NewRobotsHandler(cfg *Config) http.Handler {
	robots := Robots(cfg.BaseURL)
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", ContentTypeText)
		rw.WriteHeader(http.StatusOK)
		if _, err := io.WriteString(rw, robots); err != nil {
			if logger := middleware.GetLoggerFromContext(r.Context()); logger != nil {
				logger.Error("error while writing response body", log.Error(err))
			}
		}
	})
}
