// Package scheduler implements the barcamp scheduling core: the session
// registry, the derived conflict index, and the placement engine operating on
// an immutable room/slot grid.
//
// A Plan is not safe for concurrent use; callers serialize mutations and
// guard reads (see internal/application).
package scheduler

import (
	"sort"
	"strings"
	"time"

	"github.com/example/barcamp-slotplanner/internal/grid"
)

// Plan owns the session registry and conflict index for one scheduling run.
type Plan struct {
	grid     *grid.Grid
	sessions map[string]*Session
	index    *conflictIndex
}

// NewPlan creates an empty plan over the supplied grid.
func NewPlan(g *grid.Grid) *Plan {
	return &Plan{
		grid:     g,
		sessions: make(map[string]*Session),
		index:    newConflictIndex(),
	}
}

// Grid exposes the immutable room/slot universe the plan schedules against.
func (p *Plan) Grid() *grid.Grid {
	return p.grid
}

// Propose registers a new session in the Proposed state.
func (p *Plan) Propose(id, title string, speakers []string, duration int) (Session, error) {
	if duration < 1 {
		return Session{}, ErrInvalidDuration
	}
	speakers = normalizeSpeakers(speakers)
	if len(speakers) == 0 {
		return Session{}, ErrNoSpeaker
	}
	if _, ok := p.sessions[id]; ok {
		return Session{}, ErrSessionExists
	}

	session := &Session{
		ID:       id,
		Title:    strings.TrimSpace(title),
		Speakers: speakers,
		Duration: duration,
		State:    StateProposed,
	}
	p.sessions[id] = session
	return cloneSession(session), nil
}

// Get returns a copy of the identified session.
func (p *Plan) Get(id string) (Session, error) {
	session, ok := p.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return cloneSession(session), nil
}

// Sessions returns copies of all registered sessions ordered by identifier.
func (p *Plan) Sessions() []Session {
	out := make([]Session, 0, len(p.sessions))
	for _, session := range p.sessions {
		out = append(out, cloneSession(session))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Place binds the session to the room and slot span starting at startSlotID.
// A session that is already Placed is atomically re-placed: on success it
// holds exactly the new placement, on any failure exactly the prior one.
func (p *Plan) Place(id, roomID, startSlotID string) (Session, error) {
	session, ok := p.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if session.State == StateWithdrawn {
		return Session{}, ErrSessionWithdrawn
	}

	span, err := p.grid.Span(roomID, startSlotID, session.Duration)
	if err != nil {
		return Session{}, err
	}

	if err := p.index.reserve(session, roomID, span); err != nil {
		return Session{}, err
	}

	session.Placement = &Placement{RoomID: roomID, StartSlotID: startSlotID, Slots: span}
	session.State = StatePlaced
	return cloneSession(session), nil
}

// Move relocates an already placed session. It shares Place's
// replace-atomically contract and exists as the natural name for that case.
func (p *Plan) Move(id, roomID, startSlotID string) (Session, error) {
	return p.Place(id, roomID, startSlotID)
}

// Unplace releases the session's placement and returns it to Proposed.
// Releasing a session without a placement is a no-op.
func (p *Plan) Unplace(id string) (Session, error) {
	session, ok := p.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if session.State == StateWithdrawn {
		return Session{}, ErrSessionWithdrawn
	}

	p.index.release(session)
	session.Placement = nil
	session.State = StateProposed
	return cloneSession(session), nil
}

// Withdraw releases any placement and marks the session Withdrawn. The state
// is terminal; later placements fail with ErrSessionWithdrawn.
func (p *Plan) Withdraw(id string) (Session, error) {
	session, ok := p.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if session.State == StateWithdrawn {
		return Session{}, ErrAlreadyWithdrawn
	}

	p.index.release(session)
	session.Placement = nil
	session.State = StateWithdrawn
	return cloneSession(session), nil
}

// Occupant reports which session holds the (room, slot) pair, if any.
func (p *Plan) Occupant(roomID, slotID string) (string, bool) {
	return p.index.occupant(roomID, slotID)
}

// SpeakerBusyAt reports whether the speaker holds any commitment overlapping
// the [start, end) interval, across all rooms.
func (p *Plan) SpeakerBusyAt(speaker string, start, end time.Time) bool {
	return p.index.speakerBusyDuring(speaker, start, end)
}

// Candidate is one (room, startSlot) pair where placing a session would succeed.
type Candidate struct {
	RoomID      string
	StartSlotID string
	Slots       []grid.TimeSlot
}

// SuggestSlots enumerates every candidate placement for the session, rooms in
// grid order then ascending start slot. The result is recomputed fresh on
// every call and never mutates the plan; identical schedule state always
// yields the identical ordered list.
func (p *Plan) SuggestSlots(id string, roomFilter []string) ([]Candidate, error) {
	session, ok := p.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.State == StateWithdrawn {
		return nil, ErrSessionWithdrawn
	}

	var allowed map[string]struct{}
	if len(roomFilter) > 0 {
		allowed = make(map[string]struct{}, len(roomFilter))
		for _, roomID := range roomFilter {
			allowed[roomID] = struct{}{}
		}
	}

	candidates := make([]Candidate, 0)
	for _, room := range p.grid.Rooms() {
		if allowed != nil {
			if _, ok := allowed[room.ID]; !ok {
				continue
			}
		}
		slots, err := p.grid.SlotsFor(room.ID)
		if err != nil {
			return nil, err
		}
		for start := 0; start+session.Duration <= len(slots); start++ {
			span := slots[start : start+session.Duration]
			if p.index.check(session, room.ID, span) != nil {
				continue
			}
			candidate := Candidate{RoomID: room.ID, StartSlotID: slots[start].ID}
			candidate.Slots = make([]grid.TimeSlot, len(span))
			copy(candidate.Slots, span)
			candidates = append(candidates, candidate)
		}
	}
	return candidates, nil
}

// Entry is one row of the canonical schedule view.
type Entry struct {
	Room    grid.Room
	Slots   []grid.TimeSlot
	Session Session
}

// Schedule returns all placed sessions ordered by room (grid order) then
// start slot. Proposed and withdrawn sessions never appear.
func (p *Plan) Schedule() []Entry {
	byRoom := make(map[string][]*Session)
	for _, session := range p.sessions {
		if session.State != StatePlaced || session.Placement == nil {
			continue
		}
		byRoom[session.Placement.RoomID] = append(byRoom[session.Placement.RoomID], session)
	}

	entries := make([]Entry, 0, len(p.sessions))
	for _, room := range p.grid.Rooms() {
		placed := byRoom[room.ID]
		sort.Slice(placed, func(i, j int) bool {
			return placed[i].Placement.Slots[0].Index < placed[j].Placement.Slots[0].Index
		})
		for _, session := range placed {
			entry := Entry{Room: room, Session: cloneSession(session)}
			entry.Slots = make([]grid.TimeSlot, len(session.Placement.Slots))
			copy(entry.Slots, session.Placement.Slots)
			entries = append(entries, entry)
		}
	}
	return entries
}
