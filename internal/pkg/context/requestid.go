// Package context provides request-scoped context utilities.
package context

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

// requestIDKey is the context key for the per-request identifier.
const requestIDKey contextKey = "request_id"

// NewRequestID generates a fresh request identifier.
func NewRequestID() string {
	return uuid.NewString()
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID retrieves the request ID from context.
// Returns empty string if not set.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
