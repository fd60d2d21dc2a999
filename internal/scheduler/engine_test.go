package scheduler

import (
	"errors"
	"reflect"
	"testing"

	"github.com/example/barcamp-slotplanner/internal/grid"
)

func TestPropose(t *testing.T) {
	p := NewPlan(testGrid(t))

	t.Run("defaults", func(t *testing.T) {
		session, err := p.Propose("a", "  Intro to Go  ", []string{" alice ", "alice", ""}, 1)
		if err != nil {
			t.Fatalf("Propose returned error: %v", err)
		}
		if session.Title != "Intro to Go" {
			t.Fatalf("title not trimmed: %q", session.Title)
		}
		if !reflect.DeepEqual(session.Speakers, []string{"alice"}) {
			t.Fatalf("speakers not normalized: %v", session.Speakers)
		}
		if session.State != StateProposed || session.Placement != nil {
			t.Fatalf("new session not proposed/unplaced: %+v", session)
		}
	})

	t.Run("invalid duration", func(t *testing.T) {
		if _, err := p.Propose("b", "Talk", []string{"bob"}, 0); !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("expected ErrInvalidDuration, got %v", err)
		}
	})

	t.Run("no speaker", func(t *testing.T) {
		if _, err := p.Propose("b", "Talk", []string{"  "}, 1); !errors.Is(err, ErrNoSpeaker) {
			t.Fatalf("expected ErrNoSpeaker, got %v", err)
		}
	})

	t.Run("duplicate id", func(t *testing.T) {
		if _, err := p.Propose("a", "Again", []string{"bob"}, 1); !errors.Is(err, ErrSessionExists) {
			t.Fatalf("expected ErrSessionExists, got %v", err)
		}
	})

	t.Run("unknown session lookup", func(t *testing.T) {
		if _, err := p.Get("missing"); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})
}

// The three-slot scenario from the planning notes: speaker alice proposes two
// talks; the second cannot share her slot but fits the next one.
func TestPlaceSequence(t *testing.T) {
	p := NewPlan(testGrid(t))
	mustPropose(t, p, "a", "Talk A", []string{"alice"}, 1)
	mustPlace(t, p, "a", "r1", "s0")

	mustPropose(t, p, "b", "Talk B", []string{"alice"}, 1)

	_, err := p.Place("b", "r1", "s0")
	var slotErr *SlotConflictError
	if !errors.As(err, &slotErr) || slotErr.HeldBy != "a" {
		t.Fatalf("expected slot conflict naming a, got %v", err)
	}

	mustPlace(t, p, "b", "r1", "s1")

	if holder, ok := p.Occupant("r1", "s1"); !ok || holder != "b" {
		t.Fatalf("Occupant(r1, s1) = %q, %v", holder, ok)
	}
}

func TestPlaceOutOfBounds(t *testing.T) {
	p := NewPlan(testGrid(t))
	mustPropose(t, p, "c", "Double Length", []string{"alice", "bob"}, 2)

	// A two-slot span starting at the final slot would need a fourth slot.
	if _, err := p.Place("c", "r1", "s2"); !errors.Is(err, grid.ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}

	// The same span fits one slot earlier.
	mustPlace(t, p, "c", "r1", "s1")
}

func TestAtomicReplace(t *testing.T) {
	t.Run("successful move holds exactly the new placement", func(t *testing.T) {
		p := NewPlan(testGrid(t))
		mustPropose(t, p, "a", "Talk A", []string{"alice"}, 1)
		mustPlace(t, p, "a", "r1", "s0")

		session, err := p.Move("a", "r2", "w1")
		if err != nil {
			t.Fatalf("Move returned error: %v", err)
		}
		if session.Placement == nil || session.Placement.RoomID != "r2" || session.Placement.StartSlotID != "w1" {
			t.Fatalf("unexpected placement after move: %+v", session.Placement)
		}
		if _, ok := p.Occupant("r1", "s0"); ok {
			t.Fatal("old slot still occupied after move")
		}
	})

	t.Run("failed move leaves the prior placement untouched", func(t *testing.T) {
		p := NewPlan(testGrid(t))
		mustPropose(t, p, "a", "Talk A", []string{"alice"}, 1)
		mustPropose(t, p, "b", "Talk B", []string{"bob"}, 1)
		mustPlace(t, p, "a", "r1", "s0")
		mustPlace(t, p, "b", "r2", "w1")

		if _, err := p.Move("a", "r2", "w1"); err == nil {
			t.Fatal("expected conflict moving onto b's slot")
		}

		session, err := p.Get("a")
		if err != nil {
			t.Fatalf("Get returned error: %v", err)
		}
		if session.State != StatePlaced || session.Placement == nil || session.Placement.RoomID != "r1" || session.Placement.StartSlotID != "s0" {
			t.Fatalf("prior placement lost after failed move: %+v", session)
		}
		if holder, ok := p.Occupant("r1", "s0"); !ok || holder != "a" {
			t.Fatalf("index lost a's entry: %q, %v", holder, ok)
		}
	})

	t.Run("re-placing onto an overlapping span of itself succeeds", func(t *testing.T) {
		p := NewPlan(testGrid(t))
		mustPropose(t, p, "c", "Double Length", []string{"alice"}, 2)
		mustPlace(t, p, "c", "r1", "s0")

		// New span s1-s2 overlaps the current s0-s1; the session must not
		// collide with its own reservation.
		mustPlace(t, p, "c", "r1", "s1")

		if _, ok := p.Occupant("r1", "s0"); ok {
			t.Fatal("stale entry for s0 after shifting the span")
		}
		for _, slotID := range []string{"s1", "s2"} {
			if holder, ok := p.Occupant("r1", slotID); !ok || holder != "c" {
				t.Fatalf("slot %s not held by c: %q, %v", slotID, holder, ok)
			}
		}
	})
}

func TestWithdraw(t *testing.T) {
	p := NewPlan(testGrid(t))
	mustPropose(t, p, "a", "Talk A", []string{"alice"}, 1)
	mustPlace(t, p, "a", "r1", "s0")

	t.Run("withdraw frees the slot", func(t *testing.T) {
		session, err := p.Withdraw("a")
		if err != nil {
			t.Fatalf("Withdraw returned error: %v", err)
		}
		if session.State != StateWithdrawn || session.Placement != nil {
			t.Fatalf("withdrawn session still holds state: %+v", session)
		}
		if _, ok := p.Occupant("r1", "s0"); ok {
			t.Fatal("slot still occupied after withdraw")
		}
	})

	t.Run("freed slot is placeable again", func(t *testing.T) {
		mustPropose(t, p, "b2", "Replacement", []string{"alice"}, 1)
		mustPlace(t, p, "b2", "r1", "s0")
	})

	t.Run("withdraw is terminal", func(t *testing.T) {
		if _, err := p.Withdraw("a"); !errors.Is(err, ErrAlreadyWithdrawn) {
			t.Fatalf("expected ErrAlreadyWithdrawn, got %v", err)
		}
		if _, err := p.Place("a", "r2", "w0"); !errors.Is(err, ErrSessionWithdrawn) {
			t.Fatalf("expected ErrSessionWithdrawn, got %v", err)
		}
		if _, err := p.Unplace("a"); !errors.Is(err, ErrSessionWithdrawn) {
			t.Fatalf("expected ErrSessionWithdrawn, got %v", err)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		if _, err := p.Withdraw("missing"); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestSuggestSlots(t *testing.T) {
	p := NewPlan(testGrid(t))
	mustPropose(t, p, "a", "Talk A", []string{"alice"}, 1)
	mustPropose(t, p, "b", "Talk B", []string{"alice"}, 1)
	mustPlace(t, p, "a", "r1", "s0")

	t.Run("grid order, conflicts excluded", func(t *testing.T) {
		candidates, err := p.SuggestSlots("b", nil)
		if err != nil {
			t.Fatalf("SuggestSlots returned error: %v", err)
		}
		// r1/s0 is taken outright and r2/w0 collides with alice's commitment.
		want := []struct{ room, slot string }{
			{"r1", "s1"}, {"r1", "s2"}, {"r2", "w1"}, {"r2", "w2"},
		}
		if len(candidates) != len(want) {
			t.Fatalf("got %d candidates, want %d: %+v", len(candidates), len(want), candidates)
		}
		for i, expected := range want {
			if candidates[i].RoomID != expected.room || candidates[i].StartSlotID != expected.slot {
				t.Fatalf("candidate %d = %s/%s, want %s/%s", i, candidates[i].RoomID, candidates[i].StartSlotID, expected.room, expected.slot)
			}
		}
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		first, err := p.SuggestSlots("b", nil)
		if err != nil {
			t.Fatalf("SuggestSlots returned error: %v", err)
		}
		second, err := p.SuggestSlots("b", nil)
		if err != nil {
			t.Fatalf("SuggestSlots returned error: %v", err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("suggestions differ across calls:\n%+v\n%+v", first, second)
		}
	})

	t.Run("room filter", func(t *testing.T) {
		candidates, err := p.SuggestSlots("b", []string{"r2"})
		if err != nil {
			t.Fatalf("SuggestSlots returned error: %v", err)
		}
		for _, candidate := range candidates {
			if candidate.RoomID != "r2" {
				t.Fatalf("candidate outside filter: %+v", candidate)
			}
		}
	})

	t.Run("multi-slot sessions only start where the span fits", func(t *testing.T) {
		mustPropose(t, p, "c", "Double Length", []string{"carol"}, 2)
		candidates, err := p.SuggestSlots("c", []string{"r1"})
		if err != nil {
			t.Fatalf("SuggestSlots returned error: %v", err)
		}
		// s0 is taken, s1 begins the only free two-slot run, s2 cannot fit.
		if len(candidates) != 1 || candidates[0].StartSlotID != "s1" {
			t.Fatalf("unexpected candidates: %+v", candidates)
		}
	})

	t.Run("does not mutate state", func(t *testing.T) {
		before := p.Schedule()
		if _, err := p.SuggestSlots("b", nil); err != nil {
			t.Fatalf("SuggestSlots returned error: %v", err)
		}
		after := p.Schedule()
		if !reflect.DeepEqual(before, after) {
			t.Fatal("SuggestSlots mutated the schedule")
		}
	})
}

func TestSchedule(t *testing.T) {
	p := NewPlan(testGrid(t))
	mustPropose(t, p, "a", "Talk A", []string{"alice"}, 1)
	mustPropose(t, p, "b", "Talk B", []string{"bob"}, 1)
	mustPropose(t, p, "c", "Talk C", []string{"carol"}, 1)
	mustPropose(t, p, "d", "Talk D", []string{"dave"}, 1)
	mustPlace(t, p, "b", "r2", "w0")
	mustPlace(t, p, "a", "r1", "s1")
	mustPlace(t, p, "c", "r1", "s0")
	if _, err := p.Withdraw("d"); err != nil {
		t.Fatalf("Withdraw returned error: %v", err)
	}

	entries := p.Schedule()
	got := make([]string, 0, len(entries))
	for _, entry := range entries {
		got = append(got, entry.Room.ID+"/"+entry.Session.ID)
	}
	want := []string{"r1/c", "r1/a", "r2/b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("schedule order = %v, want %v", got, want)
	}

	for _, entry := range entries {
		if entry.Session.State != StatePlaced {
			t.Fatalf("non-placed session in schedule: %+v", entry.Session)
		}
	}
}
