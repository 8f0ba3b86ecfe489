package logging

import (
	"context"
)

// contextKey is a type for context keys to avoid collisions.
type contextKey string

const (
	loggerContextKey    = contextKey("pgcache.logger")
	requestIDContextKey = contextKey("pgcache.request_id")
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// FromContext extracts a logger from the context, tagged with the request ID
// when one is present. Without a stored logger it returns fallback, or a
// no-op logger when fallback is nil.
func FromContext(ctx context.Context, fallback *Logger) *Logger {
	logger, ok := ctx.Value(loggerContextKey).(*Logger)
	if !ok {
		logger = fallback
	}
	if logger == nil {
		logger = NewNop()
	}

	if requestID := GetRequestID(ctx); requestID != "" {
		return logger.WithFields(map[string]interface{}{RequestID: requestID})
	}
	return logger
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDContextKey).(string); ok {
		return requestID
	}
	return ""
}
