/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ppguide/site/log"
)

func TestGetLoggerFromContext(t *testing.T) {
	require.Nil(t, GetLoggerFromContext(context.Background()))
	logger := log.NewDisabledLogger()
	require.Equal(t, logger, GetLoggerFromContext(NewContextWithLogger(context.Background(), logger)))
}

func TestGetRequestIDsFromContext(t *testing.T) {
	require.Empty(t, GetRequestIDFromContext(context.Background()))
	require.Empty(t, GetInternalRequestIDFromContext(context.Background()))

	ctx := NewContextWithRequestID(context.Background(), "external-request-id")
	ctx = NewContextWithInternalRequestID(ctx, "internal-request-id")
	require.Equal(t, "external-request-id", GetRequestIDFromContext(ctx))
	require.Equal(t, "internal-request-id", GetInternalRequestIDFromContext(ctx))
}

func TestGetRequestStartTimeFromContext(t *testing.T) {
	require.True(t, GetRequestStartTimeFromContext(context.Background()).IsZero())
	startTime := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.Equal(t, startTime, GetRequestStartTimeFromContext(NewContextWithRequestStartTime(context.Background(), startTime)))
}
