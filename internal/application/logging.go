package application

import (
	"context"
	"log/slog"

	"github.com/example/shift-scheduler/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	return logging.OrDefault(logger)
}

// serviceLogger tags records with the service and operation on top of the
// request logger when the caller carries one.
func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	pairs := make([]any, 0, 4+len(attrs))
	pairs = append(pairs, "service", serviceName)
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	return logging.Resolve(ctx, base).With(append(pairs, attrs...)...)
}
