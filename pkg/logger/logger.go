package logger

import (
	"context"
	"log/slog"
	"os"
)

// Log is the global logger instance. It falls back to slog's default until Setup runs.
var Log = slog.Default()

type ctxKey struct{}

// Setup initializes the global logger based on the environment
func Setup(env string) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if env == "development" {
		opts.Level = slog.LevelDebug
	}

	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	Log = slog.New(handler)
	slog.SetDefault(Log)
}

// WithRequestID stores a request id that FromContext attaches to every record
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, requestID)
}

// FromContext returns the global logger enriched with the request id, if any
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return Log
	}
	if id, ok := ctx.Value(ctxKey{}).(string); ok && id != "" {
		return Log.With("request_id", id)
	}
	return Log
}

// Info logs an info message
func Info(msg string, args ...any) {
	Log.Info(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	Log.Error(msg, args...)
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	Log.Debug(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	Log.Warn(msg, args...)
}
