// Package grid models the immutable universe of rooms and time slots for a
// single scheduling run. A Grid is built once from event configuration and is
// safe for concurrent reads; rooms may carry differing slot counts and slot
// timings.
package grid

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrUnknownRoom is returned when a room outside the fixed set is referenced.
	ErrUnknownRoom = errors.New("grid: unknown room")
	// ErrUnknownSlot is returned when a slot identifier is not part of the room's grid.
	ErrUnknownSlot = errors.New("grid: unknown slot")
	// ErrOutOfBounds is returned when a slot span would extend past the room's last slot.
	ErrOutOfBounds = errors.New("grid: span out of bounds")
)

// Room is a catalog entry for a space sessions can be placed into.
type Room struct {
	ID       string
	Name     string
	Capacity int
}

// TimeSlot is one discrete unit of a room's schedule grid. Index is the
// zero-based position within the owning room's slot sequence.
type TimeSlot struct {
	ID    string
	Index int
	Start time.Time
	End   time.Time
}

// RoomSchedule pairs a room with its ordered slot sequence for grid construction.
type RoomSchedule struct {
	Room  Room
	Slots []TimeSlot
}

// Grid is the fixed room/slot universe for one event.
type Grid struct {
	rooms     []Room
	slots     map[string][]TimeSlot
	slotIndex map[string]map[string]int
}

// New validates the supplied room schedules and builds an immutable grid.
// Room order is preserved and becomes the deterministic enumeration order for
// all grid queries.
func New(schedules []RoomSchedule) (*Grid, error) {
	if len(schedules) == 0 {
		return nil, fmt.Errorf("grid: at least one room is required")
	}

	g := &Grid{
		rooms:     make([]Room, 0, len(schedules)),
		slots:     make(map[string][]TimeSlot, len(schedules)),
		slotIndex: make(map[string]map[string]int, len(schedules)),
	}

	for _, schedule := range schedules {
		room := schedule.Room
		if strings.TrimSpace(room.ID) == "" {
			return nil, fmt.Errorf("grid: room id is required")
		}
		if _, ok := g.slots[room.ID]; ok {
			return nil, fmt.Errorf("grid: duplicate room id %q", room.ID)
		}
		if len(schedule.Slots) == 0 {
			return nil, fmt.Errorf("grid: room %q has no slots", room.ID)
		}

		slots := make([]TimeSlot, len(schedule.Slots))
		index := make(map[string]int, len(schedule.Slots))
		for i, slot := range schedule.Slots {
			if strings.TrimSpace(slot.ID) == "" {
				return nil, fmt.Errorf("grid: room %q slot %d: slot id is required", room.ID, i)
			}
			if _, ok := index[slot.ID]; ok {
				return nil, fmt.Errorf("grid: room %q: duplicate slot id %q", room.ID, slot.ID)
			}
			if !slot.Start.Before(slot.End) {
				return nil, fmt.Errorf("grid: room %q slot %q: start must be before end", room.ID, slot.ID)
			}
			if i > 0 && slot.Start.Before(slots[i-1].End) {
				return nil, fmt.Errorf("grid: room %q slot %q overlaps previous slot", room.ID, slot.ID)
			}
			slot.Index = i
			slots[i] = slot
			index[slot.ID] = i
		}

		g.rooms = append(g.rooms, room)
		g.slots[room.ID] = slots
		g.slotIndex[room.ID] = index
	}

	return g, nil
}

// Rooms returns the fixed room set in configuration order.
func (g *Grid) Rooms() []Room {
	rooms := make([]Room, len(g.rooms))
	copy(rooms, g.rooms)
	return rooms
}

// Room resolves a room by identifier.
func (g *Grid) Room(roomID string) (Room, error) {
	for _, room := range g.rooms {
		if room.ID == roomID {
			return room, nil
		}
	}
	return Room{}, ErrUnknownRoom
}

// HasRoom reports whether the room is part of the fixed set.
func (g *Grid) HasRoom(roomID string) bool {
	_, ok := g.slots[roomID]
	return ok
}

// SlotsFor returns the room's slot sequence in ascending index order.
func (g *Grid) SlotsFor(roomID string) ([]TimeSlot, error) {
	slots, ok := g.slots[roomID]
	if !ok {
		return nil, ErrUnknownRoom
	}
	out := make([]TimeSlot, len(slots))
	copy(out, slots)
	return out, nil
}

// Slot resolves a single slot within a room.
func (g *Grid) Slot(roomID, slotID string) (TimeSlot, error) {
	index, ok := g.slotIndex[roomID]
	if !ok {
		return TimeSlot{}, ErrUnknownRoom
	}
	i, ok := index[slotID]
	if !ok {
		return TimeSlot{}, ErrUnknownSlot
	}
	return g.slots[roomID][i], nil
}

// Span returns the contiguous run of duration slots starting at startSlotID
// within the room. ErrOutOfBounds is returned when the run would extend past
// the room's last slot.
func (g *Grid) Span(roomID, startSlotID string, duration int) ([]TimeSlot, error) {
	index, ok := g.slotIndex[roomID]
	if !ok {
		return nil, ErrUnknownRoom
	}
	start, ok := index[startSlotID]
	if !ok {
		return nil, ErrUnknownSlot
	}
	if duration < 1 {
		return nil, fmt.Errorf("grid: duration must be at least 1")
	}
	slots := g.slots[roomID]
	if start+duration > len(slots) {
		return nil, ErrOutOfBounds
	}
	span := make([]TimeSlot, duration)
	copy(span, slots[start:start+duration])
	return span, nil
}
