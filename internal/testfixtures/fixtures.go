package testfixtures

import (
	"fmt"
	"testing"
	"time"

	"github.com/example/barcamp-slotplanner/internal/grid"
)

// SlotRun builds count consecutive slots of the given length starting at start.
func SlotRun(prefix string, start time.Time, count int, length time.Duration) []grid.TimeSlot {
	slots := make([]grid.TimeSlot, 0, count)
	for i := 0; i < count; i++ {
		slots = append(slots, grid.TimeSlot{
			ID:    fmt.Sprintf("%s%d", prefix, i),
			Start: start.Add(time.Duration(i) * length),
			End:   start.Add(time.Duration(i+1) * length),
		})
	}
	return slots
}

// TwoRoomGrid builds the standard fixture grid: rooms r1 and r2 with three
// hourly slots each (s0..s2 and w0..w2), sharing start times.
func TwoRoomGrid(t *testing.T) *grid.Grid {
	t.Helper()
	g, err := grid.New([]grid.RoomSchedule{
		{Room: grid.Room{ID: "r1", Name: "Main Hall", Capacity: 80}, Slots: SlotRun("s", ReferenceTime(), 3, time.Hour)},
		{Room: grid.Room{ID: "r2", Name: "Workshop", Capacity: 25}, Slots: SlotRun("w", ReferenceTime(), 3, time.Hour)},
	})
	if err != nil {
		t.Fatalf("building fixture grid: %v", err)
	}
	return g
}
