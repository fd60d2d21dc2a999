package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/barcamp-slotplanner/internal/grid"
	"github.com/example/barcamp-slotplanner/internal/logging"
	"github.com/example/barcamp-slotplanner/internal/scheduler"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	return logging.Scoped(ctx, base, "service", serviceName, operation, attrs...)
}

// ErrorKind maps sentinel, conflict, and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound), errors.Is(err, scheduler.ErrSessionNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, scheduler.ErrSessionExists):
		return "already_exists"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, ErrTooManyAttempts):
		return "too_many_attempts"
	case errors.Is(err, scheduler.ErrAlreadyWithdrawn):
		return "already_withdrawn"
	case errors.Is(err, scheduler.ErrSessionWithdrawn):
		return "session_withdrawn"
	case errors.Is(err, grid.ErrUnknownRoom), errors.Is(err, grid.ErrUnknownSlot):
		return "unknown_grid_target"
	case errors.Is(err, grid.ErrOutOfBounds):
		return "out_of_bounds"
	}

	var slotErr *scheduler.SlotConflictError
	if errors.As(err, &slotErr) {
		return "slot_conflict"
	}
	var speakerErr *scheduler.SpeakerConflictError
	if errors.As(err, &speakerErr) {
		return "speaker_conflict"
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}
