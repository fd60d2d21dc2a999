package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/barcamp-slotplanner/internal/application"
)

type sessionService interface {
	ProposeSession(ctx context.Context, params application.ProposeSessionParams) (application.Session, error)
	GetSession(ctx context.Context, sessionID string) (application.Session, error)
	ListSessions(ctx context.Context) ([]application.Session, error)
	WithdrawSession(ctx context.Context, sessionID string) (application.Session, error)
}

type SessionHandler struct {
	service   sessionService
	responder responder
	logger    *slog.Logger
}

func NewSessionHandler(service sessionService, logger *slog.Logger) *SessionHandler {
	base := defaultLogger(logger)
	return &SessionHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *SessionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SessionHandler", operation, attrs...)
}

// Create accepts a new talk proposal. Submission is open to anyone; no
// authentication is required.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req proposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode proposal", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "title", strings.TrimSpace(req.Title))

	session, err := h.service.ProposeSession(r.Context(), application.ProposeSessionParams{
		Title:    req.Title,
		Speakers: req.Speakers,
		Duration: req.Duration,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "proposal rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("session_id", session.ID).InfoContext(r.Context(), "session proposed")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")

	sessions, err := h.service.ListSessions(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to list sessions", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]sessionDTO, 0, len(sessions))
	for _, session := range sessions {
		dtos = append(dtos, toSessionDTO(session))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionListResponse{Sessions: dtos})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.log(r.Context(), "Get", "error_kind", "bad_request").ErrorContext(r.Context(), "missing session id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	logger := h.log(r.Context(), "Get", "session_id", sessionID)

	session, err := h.service.GetSession(r.Context(), sessionID)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to fetch session", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

// Delete withdraws a proposal. Withdrawal is terminal; the session stays
// visible in listings but can never be placed again.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing session id for withdrawal")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	logger := h.log(r.Context(), "Delete", "session_id", sessionID)

	session, err := h.service.WithdrawSession(r.Context(), sessionID)
	if err != nil {
		logger.ErrorContext(r.Context(), "withdrawal failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "session withdrawn")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

type proposeRequest struct {
	Title    string   `json:"title"`
	Speakers []string `json:"speakers"`
	Duration int      `json:"duration"`
}

type sessionResponse struct {
	Session sessionDTO `json:"session"`
}

type sessionListResponse struct {
	Sessions []sessionDTO `json:"sessions"`
}

type sessionDTO struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Speakers  []string      `json:"speakers"`
	Duration  int           `json:"duration"`
	State     string        `json:"state"`
	Placement *placementDTO `json:"placement,omitempty"`
}

type placementDTO struct {
	RoomID      string    `json:"room_id"`
	StartSlotID string    `json:"start_slot_id"`
	Slots       []slotDTO `json:"slots"`
}

type slotDTO struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func toSessionDTO(session application.Session) sessionDTO {
	dto := sessionDTO{
		ID:       session.ID,
		Title:    session.Title,
		Speakers: session.Speakers,
		Duration: session.Duration,
		State:    session.State,
	}
	if session.Placement != nil {
		dto.Placement = &placementDTO{
			RoomID:      session.Placement.RoomID,
			StartSlotID: session.Placement.StartSlotID,
			Slots:       toSlotDTOs(session.Placement.Slots),
		}
	}
	return dto
}

func toSlotDTOs(slots []application.TimeSlot) []slotDTO {
	dtos := make([]slotDTO, 0, len(slots))
	for _, slot := range slots {
		dtos = append(dtos, slotDTO{
			ID:    slot.ID,
			Index: slot.Index,
			Start: slot.Start.UTC().Format(time.RFC3339),
			End:   slot.End.UTC().Format(time.RFC3339),
		})
	}
	return dtos
}
