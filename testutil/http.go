/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/stretchr/testify/require"
)

const contentTypeAppJSON = "application/json"

// RequireErrorInRecorder asserts that the recorded response has the status code and the {"error": msg} body.
func RequireErrorInRecorder(t require.TestingT, resp *httptest.ResponseRecorder, wantHTTPCode int, wantMessage string) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	requireErrorInResponse(t, resp.Code, resp.Header(), resp.Body, wantHTTPCode, wantMessage)
}

// RequireErrorInResponse asserts that the response has the status code and the {"error": msg} body.
func RequireErrorInResponse(t require.TestingT, resp *http.Response, wantHTTPCode int, wantMessage string) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	requireErrorInResponse(t, resp.StatusCode, resp.Header, resp.Body, wantHTTPCode, wantMessage)
}

func requireErrorInResponse(
	t require.TestingT, code int, header http.Header, body io.Reader, wantHTTPCode int, wantMessage string,
) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	require.Equal(t, wantHTTPCode, code)
	require.Equal(t, contentTypeAppJSON, header.Get("Content-Type"))
	var errResp map[string]interface{}
	require.NoError(t, json.NewDecoder(body).Decode(&errResp))
	require.Equal(t, map[string]interface{}{"error": wantMessage}, errResp)
}

// RequireJSONInRecorder asserts that the recorded response body is JSON equal to want.
func RequireJSONInRecorder(t require.TestingT, resp *httptest.ResponseRecorder, want string) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	require.Equal(t, contentTypeAppJSON, resp.Header().Get("Content-Type"))
	require.JSONEq(t, want, resp.Body.String())
}

// RequireStringJSONInRecorder asserts that the recorded response body is exactly the JSON string.
func RequireStringJSONInRecorder(t require.TestingT, resp *httptest.ResponseRecorder, want string) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	require.Equal(t, contentTypeAppJSON, resp.Header().Get("Content-Type"))
	require.Equal(t, want, resp.Body.String())
}
