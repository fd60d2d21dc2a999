package persistence

import "time"

// Session is the durable form of a talk proposal, with its placement when placed.
type Session struct {
	ID        string
	Title     string
	Speakers  []string
	Duration  int
	State     string
	Placement *Placement
}

// Placement records which room and start slot a placed session occupies. The
// full slot span is derived from the grid on load.
type Placement struct {
	RoomID      string
	StartSlotID string
}

// Snapshot is the complete persisted schedule state written after every
// committed mutation.
type Snapshot struct {
	SavedAt  time.Time
	Sessions []Session
}
