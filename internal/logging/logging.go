package logging

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// WithLogger stores logger in ctx. A nil logger leaves ctx untouched.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// With replaces the logger carried by ctx with one that adds args to every
// record. Contexts without a logger are returned as is.
func With(ctx context.Context, args ...any) context.Context {
	logger := FromContext(ctx)
	if logger == nil || len(args) == 0 {
		return ctx
	}
	return WithLogger(ctx, logger.With(args...))
}

// FromContext returns the logger stored by WithLogger, or nil.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(loggerKey{}).(*slog.Logger)
	return logger
}

// Resolve picks the request logger from ctx, then fallback, then slog.Default.
func Resolve(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger := FromContext(ctx); logger != nil {
		return logger
	}
	return OrDefault(fallback)
}

func OrDefault(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}
