package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/barcamp-slotplanner/internal/application"
)

type placementService interface {
	PlaceSession(ctx context.Context, params application.PlaceSessionParams) (application.Session, error)
	UnplaceSession(ctx context.Context, sessionID string) (application.Session, error)
	SuggestSlots(ctx context.Context, params application.SuggestSlotsParams) ([]application.Candidate, error)
}

type PlacementHandler struct {
	service   placementService
	responder responder
	logger    *slog.Logger
}

func NewPlacementHandler(service placementService, logger *slog.Logger) *PlacementHandler {
	base := defaultLogger(logger)
	return &PlacementHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *PlacementHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "PlacementHandler", operation, attrs...)
}

// Put places a proposed session or moves a placed one. Both cases are a
// single atomic assignment; a placed session keeps its current span when the
// new target is rejected.
func (h *PlacementHandler) Put(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.log(r.Context(), "Put", "error_kind", "bad_request").ErrorContext(r.Context(), "missing session id for placement")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req placementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Put", "session_id", sessionID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode placement request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Put", "session_id", sessionID, "room_id", req.RoomID, "start_slot_id", req.StartSlotID)

	session, err := h.service.PlaceSession(r.Context(), application.PlaceSessionParams{
		SessionID:   sessionID,
		RoomID:      req.RoomID,
		StartSlotID: req.StartSlotID,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "placement failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "session placed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

// Delete releases a session's placement, returning it to the proposed state.
func (h *PlacementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing session id for unplace")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	logger := h.log(r.Context(), "Delete", "session_id", sessionID)

	session, err := h.service.UnplaceSession(r.Context(), sessionID)
	if err != nil {
		logger.ErrorContext(r.Context(), "unplace failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "session unplaced")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

// Suggestions lists every start slot where the session would currently fit,
// in deterministic grid order. An optional repeated `room` query parameter
// narrows the search to specific rooms.
func (h *PlacementHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.log(r.Context(), "Suggestions", "error_kind", "bad_request").ErrorContext(r.Context(), "missing session id for suggestions")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	rooms := r.URL.Query()["room"]
	logger := h.log(r.Context(), "Suggestions", "session_id", sessionID, "room_filter", rooms)

	candidates, err := h.service.SuggestSlots(r.Context(), application.SuggestSlotsParams{
		SessionID: sessionID,
		RoomIDs:   rooms,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "suggestion query failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]candidateDTO, 0, len(candidates))
	for _, candidate := range candidates {
		dtos = append(dtos, candidateDTO{
			RoomID:      candidate.RoomID,
			StartSlotID: candidate.StartSlotID,
			Slots:       toSlotDTOs(candidate.Slots),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, suggestionsResponse{Candidates: dtos})
}

type placementRequest struct {
	RoomID      string `json:"room_id"`
	StartSlotID string `json:"start_slot_id"`
}

type suggestionsResponse struct {
	Candidates []candidateDTO `json:"candidates"`
}

type candidateDTO struct {
	RoomID      string    `json:"room_id"`
	StartSlotID string    `json:"start_slot_id"`
	Slots       []slotDTO `json:"slots"`
}
