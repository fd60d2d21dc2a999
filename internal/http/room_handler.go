package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/barcamp-slotplanner/internal/application"
)

type roomService interface {
	Rooms(ctx context.Context) ([]application.Room, error)
	SlotsFor(ctx context.Context, roomID string) ([]application.TimeSlot, error)
}

type RoomHandler struct {
	service   roomService
	responder responder
	logger    *slog.Logger
}

func NewRoomHandler(service roomService, logger *slog.Logger) *RoomHandler {
	base := defaultLogger(logger)
	return &RoomHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RoomHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RoomHandler", operation, attrs...)
}

// List returns the fixed room catalog with each room's slot grid.
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")

	rooms, err := h.service.Rooms(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to list rooms", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]roomWithSlotsDTO, 0, len(rooms))
	for _, room := range rooms {
		slots, err := h.service.SlotsFor(r.Context(), room.ID)
		if err != nil {
			logger.ErrorContext(r.Context(), "failed to resolve room slots", "room_id", room.ID, "error", err, "error_kind", application.ErrorKind(err))
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
		dtos = append(dtos, roomWithSlotsDTO{
			Room:  toRoomDTO(room),
			Slots: toSlotDTOs(slots),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomListResponse{Rooms: dtos})
}

type roomListResponse struct {
	Rooms []roomWithSlotsDTO `json:"rooms"`
}

type roomWithSlotsDTO struct {
	Room  roomDTO   `json:"room"`
	Slots []slotDTO `json:"slots"`
}

type roomDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

func toRoomDTO(room application.Room) roomDTO {
	return roomDTO{ID: room.ID, Name: room.Name, Capacity: room.Capacity}
}
