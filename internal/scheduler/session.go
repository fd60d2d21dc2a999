package scheduler

import (
	"errors"
	"strings"

	"github.com/example/barcamp-slotplanner/internal/grid"
)

var (
	// ErrSessionNotFound is returned when the referenced session does not exist.
	ErrSessionNotFound = errors.New("scheduler: session not found")
	// ErrSessionExists is returned when a proposed session identifier is already taken.
	ErrSessionExists = errors.New("scheduler: session already exists")
	// ErrInvalidDuration is returned when a proposal requests fewer than one slot.
	ErrInvalidDuration = errors.New("scheduler: duration must be at least one slot")
	// ErrNoSpeaker is returned when a proposal carries no speakers.
	ErrNoSpeaker = errors.New("scheduler: at least one speaker is required")
	// ErrAlreadyWithdrawn is returned for a redundant withdrawal.
	ErrAlreadyWithdrawn = errors.New("scheduler: session already withdrawn")
	// ErrSessionWithdrawn is returned when a placement targets a withdrawn
	// session. Withdrawn is terminal; a new session must be proposed instead.
	ErrSessionWithdrawn = errors.New("scheduler: session is withdrawn")
)

// State describes where a session sits in its lifecycle.
type State string

const (
	// StateProposed marks a session awaiting placement.
	StateProposed State = "proposed"
	// StatePlaced marks a session bound to a room and slot span.
	StatePlaced State = "placed"
	// StateWithdrawn marks a session permanently removed from scheduling.
	StateWithdrawn State = "withdrawn"
)

// Placement binds a session to a contiguous slot run within one room.
type Placement struct {
	RoomID      string
	StartSlotID string
	Slots       []grid.TimeSlot
}

// Session is a proposed talk. A session owns exactly one placement while
// Placed and none otherwise.
type Session struct {
	ID        string
	Title     string
	Speakers  []string
	Duration  int
	State     State
	Placement *Placement
}

func clonePlacement(p *Placement) *Placement {
	if p == nil {
		return nil
	}
	clone := Placement{RoomID: p.RoomID, StartSlotID: p.StartSlotID}
	clone.Slots = make([]grid.TimeSlot, len(p.Slots))
	copy(clone.Slots, p.Slots)
	return &clone
}

func cloneSession(s *Session) Session {
	clone := *s
	clone.Speakers = make([]string, len(s.Speakers))
	copy(clone.Speakers, s.Speakers)
	clone.Placement = clonePlacement(s.Placement)
	return clone
}

// normalizeSpeakers trims whitespace and drops empty or repeated entries
// while preserving first-seen order.
func normalizeSpeakers(speakers []string) []string {
	seen := make(map[string]struct{}, len(speakers))
	out := make([]string, 0, len(speakers))
	for _, speaker := range speakers {
		speaker = strings.TrimSpace(speaker)
		if speaker == "" {
			continue
		}
		if _, ok := seen[speaker]; ok {
			continue
		}
		seen[speaker] = struct{}{}
		out = append(out, speaker)
	}
	return out
}
