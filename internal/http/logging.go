package http

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/shift-scheduler/internal/application"
	"github.com/example/shift-scheduler/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	return logging.OrDefault(logger)
}

// handlerLogger prefers the request scoped logger so request ids and the
// principal flow into handler records.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	pairs := []any{"handler", handlerName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	pairs = append(pairs, attrs...)
	return logging.Resolve(ctx, fallback).With(pairs...)
}

// logFailure records a failed service call. Partial batch failures are logged
// as warnings since the successful records were kept.
func logFailure(ctx context.Context, logger *slog.Logger, message string, err error) {
	level := slog.LevelError
	if errors.Is(err, application.ErrPartialFailure) {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, message, "error", err, "error_kind", application.ErrorKind(err))
}
