package logger

import (
	"context"
	"log/slog"
	"os"
)

var defaultLogger *slog.Logger

func init() {
	defaultLogger = New(os.Getenv("ENV") == "production")
	slog.SetDefault(defaultLogger)
}

// New builds the process logger: JSON in production, text for development.
func New(production bool) *slog.Logger {
	var handler slog.Handler
	if production {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}
	return slog.New(handler)
}

// Context keys
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	alertIDKey   contextKey = "alert_id"
	officeIDKey  contextKey = "office_id"
)

// WithRequestID adds request ID to context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithAlertID adds the alert being processed to context
func WithAlertID(ctx context.Context, alertID string) context.Context {
	return context.WithValue(ctx, alertIDKey, alertID)
}

// WithOfficeID adds the office whose rate changed to context
func WithOfficeID(ctx context.Context, officeID string) context.Context {
	return context.WithValue(ctx, officeIDKey, officeID)
}

// FromContext returns a logger with context values
func FromContext(ctx context.Context) *slog.Logger {
	return attach(ctx, defaultLogger)
}

// With returns l enriched with the context values, falling back to the default logger.
func With(ctx context.Context, l *slog.Logger) *slog.Logger {
	if l == nil {
		l = defaultLogger
	}
	return attach(ctx, l)
}

func attach(ctx context.Context, l *slog.Logger) *slog.Logger {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		l = l.With("request_id", requestID)
	}
	if officeID, ok := ctx.Value(officeIDKey).(string); ok && officeID != "" {
		l = l.With("office_id", officeID)
	}
	if alertID, ok := ctx.Value(alertIDKey).(string); ok && alertID != "" {
		l = l.With("alert_id", alertID)
	}
	return l
}
