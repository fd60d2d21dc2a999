package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/example/barcamp-slotplanner/internal/grid"
	"github.com/example/barcamp-slotplanner/internal/scheduler"
)

// SnapshotStore persists the committed schedule state after each mutation.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot scheduler.Snapshot) error
}

// PlannerService serializes all access to the shared schedule. Mutating
// operations run one at a time under the write lock; readers share the read
// lock and only ever observe fully committed state. Persistence happens after
// the in-memory commit, outside the critical section, so no I/O ever runs
// while the schedule is locked.
type PlannerService struct {
	mu          sync.RWMutex
	plan        *scheduler.Plan
	seq         uint64
	store       SnapshotStore
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger

	// persistMu serializes snapshot writes; persisted is the sequence number
	// of the last snapshot written and is guarded by persistMu, not mu.
	persistMu sync.Mutex
	persisted uint64
}

// NewPlannerService wires dependencies for schedule operations.
func NewPlannerService(plan *scheduler.Plan, store SnapshotStore, idGenerator func() string, now func() time.Time) *PlannerService {
	return NewPlannerServiceWithLogger(plan, store, idGenerator, now, nil)
}

// NewPlannerServiceWithLogger constructs a PlannerService with a specified logger.
func NewPlannerServiceWithLogger(plan *scheduler.Plan, store SnapshotStore, idGenerator func() string, now func() time.Time, logger *slog.Logger) *PlannerService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &PlannerService{
		plan:        plan,
		store:       store,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *PlannerService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "PlannerService", operation, attrs...)
}

// ProposeSession registers a new session in the Proposed state and returns it.
func (s *PlannerService) ProposeSession(ctx context.Context, params ProposeSessionParams) (Session, error) {
	if s == nil || s.plan == nil {
		return Session{}, fmt.Errorf("PlannerService is not configured")
	}

	logger := s.loggerWith(ctx, "ProposeSession", "title", params.Title)

	vErr := &ValidationError{}
	if strings.TrimSpace(params.Title) == "" {
		vErr.add("title", "title is required")
	}
	if params.Duration < 1 {
		vErr.add("duration", "duration must be at least one slot")
	}
	if len(normalizeInput(params.Speakers)) == 0 {
		vErr.add("speakers", "at least one speaker is required")
	}
	if vErr.HasErrors() {
		return Session{}, vErr
	}

	id := s.idGenerator()

	s.mu.Lock()
	session, err := s.plan.Propose(id, params.Title, params.Speakers, params.Duration)
	if err != nil {
		s.mu.Unlock()
		logger.ErrorContext(ctx, "proposal rejected", "error", err, "error_kind", ErrorKind(err))
		return Session{}, mapPlanError(err)
	}
	s.seq++
	seq := s.seq
	snapshot := s.plan.Snapshot()
	s.mu.Unlock()

	s.persist(ctx, logger, seq, snapshot)
	logger.With("session_id", session.ID).InfoContext(ctx, "session proposed")
	return toSession(session), nil
}

// PlaceSession binds a session to a room and start slot. Re-placing an
// already placed session is an atomic replace.
func (s *PlannerService) PlaceSession(ctx context.Context, params PlaceSessionParams) (Session, error) {
	return s.place(ctx, "PlaceSession", params)
}

// MoveSession relocates an already placed session; it shares PlaceSession's
// replace-atomically contract.
func (s *PlannerService) MoveSession(ctx context.Context, params PlaceSessionParams) (Session, error) {
	return s.place(ctx, "MoveSession", params)
}

func (s *PlannerService) place(ctx context.Context, operation string, params PlaceSessionParams) (Session, error) {
	if s == nil || s.plan == nil {
		return Session{}, fmt.Errorf("PlannerService is not configured")
	}

	logger := s.loggerWith(ctx, operation,
		"session_id", params.SessionID,
		"room_id", params.RoomID,
		"start_slot_id", params.StartSlotID,
	)

	s.mu.Lock()
	session, err := s.plan.Place(params.SessionID, params.RoomID, params.StartSlotID)
	if err != nil {
		s.mu.Unlock()
		logger.ErrorContext(ctx, "placement rejected", "error", err, "error_kind", ErrorKind(err))
		return Session{}, mapPlanError(err)
	}
	s.seq++
	seq := s.seq
	snapshot := s.plan.Snapshot()
	s.mu.Unlock()

	s.persist(ctx, logger, seq, snapshot)
	logger.InfoContext(ctx, "session placed")
	return toSession(session), nil
}

// UnplaceSession releases a session's placement, returning it to Proposed.
func (s *PlannerService) UnplaceSession(ctx context.Context, sessionID string) (Session, error) {
	if s == nil || s.plan == nil {
		return Session{}, fmt.Errorf("PlannerService is not configured")
	}

	logger := s.loggerWith(ctx, "UnplaceSession", "session_id", sessionID)

	s.mu.Lock()
	session, err := s.plan.Unplace(sessionID)
	if err != nil {
		s.mu.Unlock()
		logger.ErrorContext(ctx, "unplace rejected", "error", err, "error_kind", ErrorKind(err))
		return Session{}, mapPlanError(err)
	}
	s.seq++
	seq := s.seq
	snapshot := s.plan.Snapshot()
	s.mu.Unlock()

	s.persist(ctx, logger, seq, snapshot)
	logger.InfoContext(ctx, "session unplaced")
	return toSession(session), nil
}

// WithdrawSession releases any placement and marks the session Withdrawn.
func (s *PlannerService) WithdrawSession(ctx context.Context, sessionID string) (Session, error) {
	if s == nil || s.plan == nil {
		return Session{}, fmt.Errorf("PlannerService is not configured")
	}

	logger := s.loggerWith(ctx, "WithdrawSession", "session_id", sessionID)

	s.mu.Lock()
	session, err := s.plan.Withdraw(sessionID)
	if err != nil {
		s.mu.Unlock()
		logger.ErrorContext(ctx, "withdraw rejected", "error", err, "error_kind", ErrorKind(err))
		return Session{}, mapPlanError(err)
	}
	s.seq++
	seq := s.seq
	snapshot := s.plan.Snapshot()
	s.mu.Unlock()

	s.persist(ctx, logger, seq, snapshot)
	logger.InfoContext(ctx, "session withdrawn")
	return toSession(session), nil
}

// GetSession returns the identified session.
func (s *PlannerService) GetSession(ctx context.Context, sessionID string) (Session, error) {
	if s == nil || s.plan == nil {
		return Session{}, fmt.Errorf("PlannerService is not configured")
	}

	s.mu.RLock()
	session, err := s.plan.Get(sessionID)
	s.mu.RUnlock()
	if err != nil {
		return Session{}, mapPlanError(err)
	}
	return toSession(session), nil
}

// ListSessions enumerates all sessions ordered by identifier.
func (s *PlannerService) ListSessions(ctx context.Context) ([]Session, error) {
	if s == nil || s.plan == nil {
		return nil, fmt.Errorf("PlannerService is not configured")
	}

	s.mu.RLock()
	sessions := s.plan.Sessions()
	s.mu.RUnlock()

	out := make([]Session, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, toSession(session))
	}
	return out, nil
}

// SuggestSlots enumerates every placement candidate for the session in
// deterministic grid order. Results are recomputed fresh on every call.
func (s *PlannerService) SuggestSlots(ctx context.Context, params SuggestSlotsParams) ([]Candidate, error) {
	if s == nil || s.plan == nil {
		return nil, fmt.Errorf("PlannerService is not configured")
	}

	s.mu.RLock()
	candidates, err := s.plan.SuggestSlots(params.SessionID, params.RoomIDs)
	s.mu.RUnlock()
	if err != nil {
		return nil, mapPlanError(err)
	}

	out := make([]Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		out = append(out, Candidate{
			RoomID:      candidate.RoomID,
			StartSlotID: candidate.StartSlotID,
			Slots:       toTimeSlots(candidate.Slots),
		})
	}
	return out, nil
}

// ScheduleView returns all placed sessions ordered by room then start slot.
func (s *PlannerService) ScheduleView(ctx context.Context) ([]ScheduleEntry, error) {
	if s == nil || s.plan == nil {
		return nil, fmt.Errorf("PlannerService is not configured")
	}

	s.mu.RLock()
	entries := s.plan.Schedule()
	s.mu.RUnlock()

	out := make([]ScheduleEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, ScheduleEntry{
			Room:    toRoom(entry.Room),
			Slots:   toTimeSlots(entry.Slots),
			Session: toSession(entry.Session),
		})
	}
	return out, nil
}

// Occupant reports which session currently holds the (room, slot) pair.
func (s *PlannerService) Occupant(ctx context.Context, roomID, slotID string) (string, bool, error) {
	if s == nil || s.plan == nil {
		return "", false, fmt.Errorf("PlannerService is not configured")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	sessionID, ok := s.plan.Occupant(roomID, slotID)
	return sessionID, ok, nil
}

// SpeakerBusyAt reports whether the speaker holds any commitment overlapping
// the [start, end) interval, across all rooms.
func (s *PlannerService) SpeakerBusyAt(ctx context.Context, speaker string, start, end time.Time) (bool, error) {
	if s == nil || s.plan == nil {
		return false, fmt.Errorf("PlannerService is not configured")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plan.SpeakerBusyAt(speaker, start, end), nil
}

// Rooms returns the event's fixed room set in grid order.
func (s *PlannerService) Rooms(ctx context.Context) ([]Room, error) {
	if s == nil || s.plan == nil {
		return nil, fmt.Errorf("PlannerService is not configured")
	}

	rooms := s.plan.Grid().Rooms()
	out := make([]Room, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, toRoom(room))
	}
	return out, nil
}

// SlotsFor returns the room's slot sequence in ascending order.
func (s *PlannerService) SlotsFor(ctx context.Context, roomID string) ([]TimeSlot, error) {
	if s == nil || s.plan == nil {
		return nil, fmt.Errorf("PlannerService is not configured")
	}

	slots, err := s.plan.Grid().SlotsFor(roomID)
	if err != nil {
		return nil, mapPlanError(err)
	}
	return toTimeSlots(slots), nil
}

// persist writes the committed snapshot. Snapshots carry the sequence number
// taken inside the write lock; writes are serialized and a snapshot older
// than the last one written is discarded, so two racing mutations can never
// leave the store holding the earlier state. A persistence failure is logged
// but never rolls back the in-memory commit: the schedule stays authoritative
// and the next successful mutation rewrites the full state.
func (s *PlannerService) persist(ctx context.Context, logger *slog.Logger, seq uint64, snapshot scheduler.Snapshot) {
	if s.store == nil {
		return
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if seq <= s.persisted {
		logger.InfoContext(ctx, "skipping stale snapshot", "seq", seq, "persisted", s.persisted)
		return
	}
	if err := s.store.Save(ctx, snapshot); err != nil {
		logger.ErrorContext(ctx, "failed to persist snapshot", "error", err)
		return
	}
	s.persisted = seq
}

func mapPlanError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, scheduler.ErrSessionNotFound):
		return ErrNotFound
	case errors.Is(err, scheduler.ErrSessionExists):
		return ErrAlreadyExists
	case errors.Is(err, scheduler.ErrInvalidDuration):
		vErr := &ValidationError{}
		vErr.add("duration", "duration must be at least one slot")
		return vErr
	case errors.Is(err, scheduler.ErrNoSpeaker):
		vErr := &ValidationError{}
		vErr.add("speakers", "at least one speaker is required")
		return vErr
	}
	return err
}

func normalizeInput(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			out = append(out, strings.TrimSpace(value))
		}
	}
	return out
}

func toRoom(room grid.Room) Room {
	return Room{ID: room.ID, Name: room.Name, Capacity: room.Capacity}
}

func toTimeSlots(slots []grid.TimeSlot) []TimeSlot {
	out := make([]TimeSlot, 0, len(slots))
	for _, slot := range slots {
		out = append(out, TimeSlot{ID: slot.ID, Index: slot.Index, Start: slot.Start, End: slot.End})
	}
	return out
}

func toSession(session scheduler.Session) Session {
	out := Session{
		ID:       session.ID,
		Title:    session.Title,
		Speakers: append([]string(nil), session.Speakers...),
		Duration: session.Duration,
		State:    string(session.State),
	}
	if session.Placement != nil {
		out.Placement = &Placement{
			RoomID:      session.Placement.RoomID,
			StartSlotID: session.Placement.StartSlotID,
			Slots:       toTimeSlots(session.Placement.Slots),
		}
	}
	return out
}
