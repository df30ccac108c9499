/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Default parameter values for RateLimitingRoundTripper.
const (
	DefaultRateLimitingBurst       = 1
	DefaultRateLimitingWaitTimeout = 15 * time.Second
)

// RateLimitingRoundTripperAdaptation makes the round tripper lower its limit to the value
// the upstream returns in ResponseHeaderName, minus SlackPercent.
type RateLimitingRoundTripperAdaptation struct {
	ResponseHeaderName string
	SlackPercent       int
}

// RateLimitingRoundTripperOpts represents an options for RateLimitingRoundTripper.
type RateLimitingRoundTripperOpts struct {
	Burst       int
	WaitTimeout time.Duration
	Adaptation  RateLimitingRoundTripperAdaptation
}

// RateLimitingRoundTripper limits the rate of outgoing requests (requests per second) with a token bucket.
// A request waits for a token at most WaitTimeout.
type RateLimitingRoundTripper struct {
	Delegate    http.RoundTripper
	RateLimit   int
	Burst       int
	WaitTimeout time.Duration
	Adaptation  RateLimitingRoundTripperAdaptation

	limiter *rate.Limiter
}

// NewRateLimitingRoundTripperWithOpts creates a new RateLimitingRoundTripper.
// Zero options are replaced with defaults.
func NewRateLimitingRoundTripperWithOpts(
	delegate http.RoundTripper, rateLimit int, opts RateLimitingRoundTripperOpts,
) (*RateLimitingRoundTripper, error) {
	if rateLimit <= 0 {
		return nil, errors.New("rate limit must be positive")
	}
	if opts.Burst < 0 {
		return nil, errors.New("burst cannot be negative")
	}
	if opts.Burst == 0 {
		opts.Burst = DefaultRateLimitingBurst
	}
	if opts.WaitTimeout == 0 {
		opts.WaitTimeout = DefaultRateLimitingWaitTimeout
	}
	if opts.Adaptation.SlackPercent < 0 || opts.Adaptation.SlackPercent > 100 {
		return nil, errors.New("slack percent must be in range [0..100]")
	}
	return &RateLimitingRoundTripper{
		Delegate:    delegate,
		RateLimit:   rateLimit,
		Burst:       opts.Burst,
		WaitTimeout: opts.WaitTimeout,
		Adaptation:  opts.Adaptation,
		limiter:     rate.NewLimiter(rate.Limit(rateLimit), opts.Burst),
	}, nil
}

// RoundTrip waits for the limiter and passes the request to the delegate.
func (rt *RateLimitingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	waitCtx, cancel := context.WithTimeout(r.Context(), rt.WaitTimeout)
	defer cancel()

	if err := rt.limiter.Wait(waitCtx); err != nil {
		if r.Body != nil {
			_ = r.Body.Close() // Per RoundTripper contract.
		}
		if ctxErr := r.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &RateLimitingWaitError{Inner: err}
	}

	resp, err := rt.Delegate.RoundTrip(r)
	if err == nil && rt.Adaptation.ResponseHeaderName != "" {
		rt.adaptLimit(resp)
	}
	return resp, err
}

func (rt *RateLimitingRoundTripper) adaptLimit(resp *http.Response) {
	newLimit := rt.RateLimit
	if respLimit, err := strconv.Atoi(resp.Header.Get(rt.Adaptation.ResponseHeaderName)); err == nil && respLimit > 0 {
		respLimit = respLimit * (100 - rt.Adaptation.SlackPercent) / 100
		if respLimit == 0 {
			respLimit = 1
		}
		if respLimit < newLimit {
			newLimit = respLimit
		}
	}
	if rt.limiter.Limit() != rate.Limit(newLimit) {
		rt.limiter.SetLimit(rate.Limit(newLimit))
	}
}

// RateLimitingWaitError is returned by RateLimitingRoundTripper when the request could not get a token in time.
type RateLimitingWaitError struct {
	Inner error
}

func (e *RateLimitingWaitError) Error() string {
	return fmt.Sprintf("wait due to client side rate limiting: %v", e.Inner)
}

// Unwrap returns the next error in the error chain.
func (e *RateLimitingWaitError) Unwrap() error {
	return e.Inner
}
