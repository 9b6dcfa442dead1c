package logger

import (
	"context"

	"github.com/sirupsen/logrus"
)

// correlationKey is an unexported context key type to avoid collisions.
type correlationKey struct{}

// SetCorrelationID stores a correlation ID in the context for request tracing.
func SetCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the correlation ID stored in the context, or an
// empty string if none is present.
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey{}).(string); ok {
		return id
	}
	return ""
}

// WithCorrelationID returns a log entry annotated with the context's
// correlation ID when one is present.
func WithCorrelationID(ctx context.Context, logger *logrus.Logger) *logrus.Entry {
	if id := CorrelationID(ctx); id != "" {
		return logger.WithField("correlation_id", id)
	}
	return logrus.NewEntry(logger)
}
