// Package middleware provides HTTP middleware for the Gin framework.
package middleware

import "context"

// idKey keys the request-scoped identifiers forwarded to the Command service.
type idKey int

const (
	requestIDKey idKey = iota
	correlationIDKey
)

func idFromContext(ctx context.Context, key idKey) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(key).(string)

	return id
}

// RequestIDFromContext returns the inbound request ID, or "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	return idFromContext(ctx, requestIDKey)
}

// CorrelationIDFromContext returns the correlation ID, or "" outside a request.
func CorrelationIDFromContext(ctx context.Context) string {
	return idFromContext(ctx, correlationIDKey)
}

// ContextWithRequestID stores a request ID for outbound clients.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// ContextWithCorrelationID stores a correlation ID for outbound clients.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}
