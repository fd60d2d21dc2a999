package application

import "time"

// Principal represents the authenticated organizer invoking a service method.
type Principal struct {
	SessionID string
	IsAdmin   bool
}

// ProposeSessionParams captures caller provided proposal fields.
type ProposeSessionParams struct {
	Title    string
	Speakers []string
	Duration int
}

// PlaceSessionParams identifies the target of a place or move operation.
type PlaceSessionParams struct {
	SessionID   string
	RoomID      string
	StartSlotID string
}

// SuggestSlotsParams narrows a suggestion query.
type SuggestSlotsParams struct {
	SessionID string
	RoomIDs   []string
}

// Room mirrors the grid's room catalog entry for transport layers.
type Room struct {
	ID       string
	Name     string
	Capacity int
}

// TimeSlot mirrors one grid slot for transport layers.
type TimeSlot struct {
	ID    string
	Index int
	Start time.Time
	End   time.Time
}

// Placement describes the room and slot span a placed session occupies.
type Placement struct {
	RoomID      string
	StartSlotID string
	Slots       []TimeSlot
}

// Session is the service level view of a talk proposal.
type Session struct {
	ID        string
	Title     string
	Speakers  []string
	Duration  int
	State     string
	Placement *Placement
}

// ScheduleEntry is one row of the canonical schedule view.
type ScheduleEntry struct {
	Room    Room
	Slots   []TimeSlot
	Session Session
}

// Candidate is one (room, startSlot) pair where a placement would succeed.
type Candidate struct {
	RoomID      string
	StartSlotID string
	Slots       []TimeSlot
}

// AuthSession represents an issued admin session token.
type AuthSession struct {
	ID        string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
