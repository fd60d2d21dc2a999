package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/barcamp-slotplanner/internal/application"
)

type scheduleService interface {
	ScheduleView(ctx context.Context) ([]application.ScheduleEntry, error)
}

type ScheduleHandler struct {
	service   scheduleService
	responder responder
	logger    *slog.Logger
}

func NewScheduleHandler(service scheduleService, logger *slog.Logger) *ScheduleHandler {
	base := defaultLogger(logger)
	return &ScheduleHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ScheduleHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ScheduleHandler", operation, attrs...)
}

// Get returns the canonical schedule: every placed session ordered by room
// configuration order, then by start slot.
func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "Get")

	entries, err := h.service.ScheduleView(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to build schedule view", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]scheduleEntryDTO, 0, len(entries))
	for _, entry := range entries {
		dtos = append(dtos, scheduleEntryDTO{
			Room:    toRoomDTO(entry.Room),
			Slots:   toSlotDTOs(entry.Slots),
			Session: toSessionDTO(entry.Session),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, scheduleResponse{Entries: dtos})
}

type scheduleResponse struct {
	Entries []scheduleEntryDTO `json:"entries"`
}

type scheduleEntryDTO struct {
	Room    roomDTO    `json:"room"`
	Slots   []slotDTO  `json:"slots"`
	Session sessionDTO `json:"session"`
}
