/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

package kit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ppguide/site/httpclient"
	"github.com/ppguide/site/internal/subscribe"
)

// HeaderAPIKey carries the Kit API key.
const HeaderAPIKey = "X-Kit-Api-Key"

// RequestType labels outgoing Kit requests in logs and metrics.
const RequestType = "kit"

const maxResponseBodySize = 64 * 1024

// ErrNotConfigured is returned by Client.Forward when the API key or the form id is missing.
var ErrNotConfigured = fmt.Errorf("kit: %w", subscribe.ErrForwarderNotConfigured)

// Stage identifies one of the two Kit calls made for a subscription.
type Stage string

// Subscription stages.
const (
	StageUpsert Stage = "upsert"
	StageEnroll Stage = "enroll"
)

// APIError is returned when Kit responds with a non-2xx status code or a body that is not JSON.
type APIError struct {
	Stage      Stage
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.StatusCode >= 200 && e.StatusCode < 300 {
		return fmt.Sprintf("kit %s: response body is not valid JSON (status code %d)", e.Stage, e.StatusCode)
	}
	return fmt.Sprintf("kit %s: unexpected status code %d", e.Stage, e.StatusCode)
}

// Client talks to the Kit API v4. It implements subscribe.Forwarder.
// Calls are not retried.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	formID     string
}

var _ subscribe.Forwarder = (*Client)(nil)

// NewClient creates a new Client. httpClient is expected to be built with the httpclient package.
func NewClient(cfg *Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		formID:     cfg.FormID,
	}
}

// Configured reports whether the API key and the form id are set.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.formID != ""
}

type upsertSubscriberRequest struct {
	EmailAddress string                     `json:"email_address"`
	Fields       map[string]json.RawMessage `json:"fields"`
}

type enrollSubscriberRequest struct {
	EmailAddress string `json:"email_address"`
}

// Forward creates (or updates) the subscriber with the subscription fields and adds it to the form.
// If the second call fails, the returned error wraps subscribe.ErrPartiallyForwarded.
func (c *Client) Forward(ctx context.Context, sub subscribe.Subscription) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	if err := c.post(ctx, StageUpsert, "/subscribers",
		upsertSubscriberRequest{EmailAddress: sub.Email, Fields: sub.Fields()}); err != nil {
		return err
	}
	if err := c.post(ctx, StageEnroll, "/forms/"+url.PathEscape(c.formID)+"/subscribers",
		enrollSubscriberRequest{EmailAddress: sub.Email}); err != nil {
		return fmt.Errorf("%w: %w", subscribe.ErrPartiallyForwarded, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, stage Stage, path string, reqData interface{}) error {
	reqBody, err := json.Marshal(reqData)
	if err != nil {
		return fmt.Errorf("kit %s: marshal request: %w", stage, err)
	}

	ctx = httpclient.NewContextWithRequestType(ctx, RequestType+"_"+string(stage))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("kit %s: create request: %w", stage, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderAPIKey, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("kit %s: do request: %w", stage, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return fmt.Errorf("kit %s: read response body: %w", stage, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !json.Valid(respBody) {
		return &APIError{Stage: stage, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return nil
}
