/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import "context"

type ctxKey int

const ctxKeyRequestType ctxKey = iota

// NewContextWithRequestType creates a new context with request type.
// The request type from the context overrides the one the client was created with,
// so a single client may label its calls differently (e.g. "kit_upsert", "kit_enroll").
func NewContextWithRequestType(ctx context.Context, requestType string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestType, requestType)
}

// GetRequestTypeFromContext extracts request type from the context.
func GetRequestTypeFromContext(ctx context.Context) string {
	value, _ := ctx.Value(ctxKeyRequestType).(string)
	return value
}

func requestTypeOf(ctx context.Context, defaultType string) string {
	if reqType := GetRequestTypeFromContext(ctx); reqType != "" {
		return reqType
	}
	return defaultType
}
