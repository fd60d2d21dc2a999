package http

import (
	"context"
	"log/slog"

	"github.com/example/barcamp-slotplanner/internal/logging"
)

// ContextWithLogger attaches the request scoped logger to the context. It is
// stored under the shared logging key so services see the same logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts a request scoped logger from the context if present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	return logging.Scoped(ctx, fallback, "handler", handlerName, operation, attrs...)
}
