package scheduler

import (
	"fmt"
	"sort"

	"github.com/example/barcamp-slotplanner/internal/grid"
)

// SessionRecord is the value-copy form of a session used for persistence.
type SessionRecord struct {
	ID        string
	Title     string
	Speakers  []string
	Duration  int
	State     State
	Placement *PlacementRecord
}

// PlacementRecord captures the durable part of a placement; the slot span is
// recomputed from the grid on restore.
type PlacementRecord struct {
	RoomID      string
	StartSlotID string
}

// Snapshot is the durable view of a plan's sessions and placements.
type Snapshot struct {
	Sessions []SessionRecord
}

// Snapshot exports the plan's sessions ordered by identifier.
func (p *Plan) Snapshot() Snapshot {
	records := make([]SessionRecord, 0, len(p.sessions))
	for _, session := range p.sessions {
		record := SessionRecord{
			ID:       session.ID,
			Title:    session.Title,
			Duration: session.Duration,
			State:    session.State,
		}
		record.Speakers = make([]string, len(session.Speakers))
		copy(record.Speakers, session.Speakers)
		if session.Placement != nil {
			record.Placement = &PlacementRecord{
				RoomID:      session.Placement.RoomID,
				StartSlotID: session.Placement.StartSlotID,
			}
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return Snapshot{Sessions: records}
}

// RestorePlan rebuilds a plan from a snapshot, revalidating every placement
// against the grid and the conflict index so a corrupted or stale snapshot
// cannot introduce double bookings.
func RestorePlan(g *grid.Grid, snapshot Snapshot) (*Plan, error) {
	plan := NewPlan(g)

	for _, record := range snapshot.Sessions {
		switch record.State {
		case StateProposed, StatePlaced, StateWithdrawn:
		default:
			return nil, fmt.Errorf("scheduler: session %s has unknown state %q", record.ID, record.State)
		}

		if record.State == StateWithdrawn {
			// Withdrawn sessions carry no placement but stay on record so
			// their identifiers are never reused.
			speakers := normalizeSpeakers(record.Speakers)
			if len(speakers) == 0 {
				return nil, fmt.Errorf("scheduler: session %s: %w", record.ID, ErrNoSpeaker)
			}
			if record.Duration < 1 {
				return nil, fmt.Errorf("scheduler: session %s: %w", record.ID, ErrInvalidDuration)
			}
			if _, ok := plan.sessions[record.ID]; ok {
				return nil, fmt.Errorf("scheduler: session %s: %w", record.ID, ErrSessionExists)
			}
			plan.sessions[record.ID] = &Session{
				ID:       record.ID,
				Title:    record.Title,
				Speakers: speakers,
				Duration: record.Duration,
				State:    StateWithdrawn,
			}
			continue
		}

		if _, err := plan.Propose(record.ID, record.Title, record.Speakers, record.Duration); err != nil {
			return nil, fmt.Errorf("scheduler: session %s: %w", record.ID, err)
		}
		if record.State == StatePlaced {
			if record.Placement == nil {
				return nil, fmt.Errorf("scheduler: session %s is placed but has no placement", record.ID)
			}
			if _, err := plan.Place(record.ID, record.Placement.RoomID, record.Placement.StartSlotID); err != nil {
				return nil, fmt.Errorf("scheduler: session %s: %w", record.ID, err)
			}
		}
	}

	return plan, nil
}
