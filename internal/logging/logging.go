// Package logging carries a request-scoped slog.Logger through contexts and
// derives component-annotated loggers from it. The request middleware attaches
// a logger once; handlers and services scope it with their own component and
// operation labels instead of keeping separate context keys per layer.
package logging

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// ContextWithLogger returns a derived context that carries the provided logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext extracts a logger previously attached to the context.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(contextKey{}).(*slog.Logger)
	return logger
}

// Scoped resolves the logger for one operation: the request-scoped logger from
// ctx when present, otherwise fallback, otherwise slog.Default. The result is
// annotated with the component under the given label key ("service", "handler")
// and, when non-empty, the operation name plus any extra attrs.
func Scoped(ctx context.Context, fallback *slog.Logger, labelKey, component, operation string, attrs ...any) *slog.Logger {
	logger := FromContext(ctx)
	if logger == nil {
		logger = fallback
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{labelKey, component}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}
