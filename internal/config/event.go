package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/barcamp-slotplanner/internal/grid"
)

// EventConfig describes the event layout loaded from a YAML file: the rooms
// available to the planner and the time slots each room offers.
type EventConfig struct {
	Name  string       `yaml:"name"`
	Rooms []RoomConfig `yaml:"rooms"`
}

// RoomConfig is one room entry in the event file.
type RoomConfig struct {
	ID       string       `yaml:"id"`
	Name     string       `yaml:"name"`
	Capacity int          `yaml:"capacity"`
	Slots    []SlotConfig `yaml:"slots"`
}

// SlotConfig is one time slot entry in a room's slot list.
type SlotConfig struct {
	ID    string    `yaml:"id"`
	Start time.Time `yaml:"start"`
	End   time.Time `yaml:"end"`
}

// LoadEvent reads and parses the event layout file at path.
func LoadEvent(path string) (EventConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EventConfig{}, fmt.Errorf("read event file: %w", err)
	}

	var event EventConfig
	if err := yaml.Unmarshal(data, &event); err != nil {
		return EventConfig{}, fmt.Errorf("parse event file: %w", err)
	}
	if len(event.Rooms) == 0 {
		return EventConfig{}, fmt.Errorf("event file %s declares no rooms", path)
	}

	return event, nil
}

// RoomSchedules converts the event layout into the schedules expected by the
// planning grid.
func (e EventConfig) RoomSchedules() []grid.RoomSchedule {
	schedules := make([]grid.RoomSchedule, 0, len(e.Rooms))
	for _, room := range e.Rooms {
		schedule := grid.RoomSchedule{
			Room: grid.Room{
				ID:       room.ID,
				Name:     room.Name,
				Capacity: room.Capacity,
			},
			Slots: make([]grid.TimeSlot, 0, len(room.Slots)),
		}
		for i, slot := range room.Slots {
			schedule.Slots = append(schedule.Slots, grid.TimeSlot{
				ID:    slot.ID,
				Index: i,
				Start: slot.Start,
				End:   slot.End,
			})
		}
		schedules = append(schedules, schedule)
	}
	return schedules
}
