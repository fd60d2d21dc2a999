package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/barcamp-slotplanner/internal/application"
	"github.com/example/barcamp-slotplanner/internal/grid"
	"github.com/example/barcamp-slotplanner/internal/scheduler"
)

var (
	errBadRequestBody      = errors.New("the request body is not valid")
	errInvalidSessionID    = errors.New("a session id is required")
	errMissingSessionToken = errors.New("a session token is required")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError translates service layer failures into HTTP responses.
// Conflict responses always name the session already holding the contested
// resource so callers can resolve the collision.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var (
		slotConflict    *scheduler.SlotConflictError
		speakerConflict *scheduler.SpeakerConflictError
		vErr            *application.ValidationError
	)

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   "you are not allowed to perform this operation",
		})
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_INVALID_CREDENTIALS",
			Message:   "the password is not correct",
		})
	case errors.Is(err, application.ErrSessionExpired):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_SESSION_EXPIRED",
			Message:   "the session has expired, log in again",
		})
	case errors.Is(err, application.ErrTooManyAttempts):
		r.writeJSON(ctx, w, http.StatusTooManyRequests, errorResponse{
			ErrorCode: "AUTH_TOO_MANY_ATTEMPTS",
			Message:   "too many failed login attempts, try again later",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "the requested resource was not found"})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "RESOURCE_EXISTS",
			Message:   "a resource with that identifier already exists",
		})
	case errors.As(err, &slotConflict):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode:     "SLOT_CONFLICT",
			Message:       slotConflict.Error(),
			ConflictsWith: slotConflict.HeldBy,
		})
	case errors.As(err, &speakerConflict):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode:     "SPEAKER_CONFLICT",
			Message:       speakerConflict.Error(),
			ConflictsWith: speakerConflict.HeldBy,
		})
	case errors.Is(err, scheduler.ErrAlreadyWithdrawn), errors.Is(err, scheduler.ErrSessionWithdrawn):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "SESSION_WITHDRAWN",
			Message:   err.Error(),
		})
	case errors.Is(err, grid.ErrUnknownRoom), errors.Is(err, grid.ErrUnknownSlot), errors.Is(err, grid.ErrOutOfBounds):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "INVALID_PLACEMENT_TARGET",
			Message:   err.Error(),
		})
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			Message: "the submitted fields are not valid",
			Errors:  vErr.FieldErrors,
		})
	default:
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "an internal error occurred"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode     string            `json:"error_code,omitempty"`
	Message       string            `json:"message"`
	ConflictsWith string            `json:"conflicts_with,omitempty"`
	Errors        map[string]string `json:"errors,omitempty"`
}
