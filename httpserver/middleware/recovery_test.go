/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ppguide/site/log"
	"github.com/ppguide/site/log/logtest"
	"github.com/ppguide/site/testutil"
)

func TestRecovery(t *testing.T) {
	t.Run("panic is recovered", func(t *testing.T) {
		logger := logtest.NewRecorder()
		next := http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			panic("forwarder is nil")
		})
		req := httptest.NewRequest(http.MethodPost, "/api/subscribe", nil)
		req = req.WithContext(NewContextWithLogger(req.Context(), logger))
		resp := httptest.NewRecorder()
		Recovery()(next).ServeHTTP(resp, req)

		testutil.RequireErrorInRecorder(t, resp, http.StatusInternalServerError, "Something went wrong. Please try again.")
		logEntry, found := logger.FindEntry("Panic: forwarder is nil")
		require.True(t, found)
		require.Equal(t, log.LevelError, logEntry.Level)
		require.NotEmpty(t, logEntry.FieldString("stack"))
	})

	t.Run("no stack when disabled", func(t *testing.T) {
		logger := logtest.NewRecorder()
		next := http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) { panic(42) })
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(NewContextWithLogger(req.Context(), logger))
		resp := httptest.NewRecorder()
		RecoveryWithOpts(RecoveryOpts{})(next).ServeHTTP(resp, req)

		require.Equal(t, http.StatusInternalServerError, resp.Code)
		logEntry, found := logger.FindEntry("Panic: 42")
		require.True(t, found)
		_, found = logEntry.FindField("stack")
		require.False(t, found)
	})

	t.Run("abort handler panic is propagated", func(t *testing.T) {
		next := http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) { panic(http.ErrAbortHandler) })
		require.PanicsWithValue(t, http.ErrAbortHandler, func() {
			Recovery()(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		})
	})
}
