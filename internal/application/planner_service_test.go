package application_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/barcamp-slotplanner/internal/application"
	"github.com/example/barcamp-slotplanner/internal/scheduler"
	"github.com/example/barcamp-slotplanner/internal/testfixtures"
)

func newPlannerService(t *testing.T) (*application.PlannerService, *testfixtures.SnapshotRecorder) {
	t.Helper()
	plan := scheduler.NewPlan(testfixtures.TwoRoomGrid(t))
	recorder := testfixtures.NewSnapshotRecorder()
	ids := testfixtures.NewIDGenerator("session")
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	service := application.NewPlannerService(plan, recorder, ids.NextFunc(), clock.NowFunc())
	return service, recorder
}

func proposeTalk(t *testing.T, service *application.PlannerService, title, speaker string, duration int) application.Session {
	t.Helper()
	session, err := service.ProposeSession(context.Background(), application.ProposeSessionParams{
		Title:    title,
		Speakers: []string{speaker},
		Duration: duration,
	})
	if err != nil {
		t.Fatalf("ProposeSession(%s) failed: %v", title, err)
	}
	return session
}

func TestProposeSession(t *testing.T) {
	t.Run("valid proposal is persisted", func(t *testing.T) {
		service, recorder := newPlannerService(t)

		session := proposeTalk(t, service, "Intro to Go", "alice", 1)
		if session.State != "proposed" {
			t.Fatalf("state = %q, want proposed", session.State)
		}
		if recorder.Saves() != 1 {
			t.Fatalf("saves = %d, want 1", recorder.Saves())
		}
		last, ok := recorder.Last()
		if !ok || len(last.Sessions) != 1 || last.Sessions[0].ID != session.ID {
			t.Fatalf("snapshot does not reflect the proposal: %+v", last)
		}
	})

	t.Run("validation failures persist nothing", func(t *testing.T) {
		service, recorder := newPlannerService(t)

		_, err := service.ProposeSession(context.Background(), application.ProposeSessionParams{
			Title:    "  ",
			Speakers: nil,
			Duration: 0,
		})
		var vErr *application.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"title", "speakers", "duration"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("missing field error for %q: %+v", field, vErr.FieldErrors)
			}
		}
		if recorder.Saves() != 0 {
			t.Fatalf("saves = %d, want 0", recorder.Saves())
		}
	})
}

func TestPlaceSession(t *testing.T) {
	t.Run("conflicts pass through with the colliding session", func(t *testing.T) {
		service, _ := newPlannerService(t)
		a := proposeTalk(t, service, "Talk A", "alice", 1)
		b := proposeTalk(t, service, "Talk B", "bob", 1)

		if _, err := service.PlaceSession(context.Background(), application.PlaceSessionParams{SessionID: a.ID, RoomID: "r1", StartSlotID: "s0"}); err != nil {
			t.Fatalf("PlaceSession failed: %v", err)
		}

		_, err := service.PlaceSession(context.Background(), application.PlaceSessionParams{SessionID: b.ID, RoomID: "r1", StartSlotID: "s0"})
		var slotErr *scheduler.SlotConflictError
		if !errors.As(err, &slotErr) || slotErr.HeldBy != a.ID {
			t.Fatalf("expected slot conflict naming %s, got %v", a.ID, err)
		}
	})

	t.Run("unknown session maps to not found", func(t *testing.T) {
		service, _ := newPlannerService(t)
		_, err := service.PlaceSession(context.Background(), application.PlaceSessionParams{SessionID: "missing", RoomID: "r1", StartSlotID: "s0"})
		if !errors.Is(err, application.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("failed placement persists nothing", func(t *testing.T) {
		service, recorder := newPlannerService(t)
		a := proposeTalk(t, service, "Talk A", "alice", 1)
		b := proposeTalk(t, service, "Talk B", "bob", 1)
		if _, err := service.PlaceSession(context.Background(), application.PlaceSessionParams{SessionID: a.ID, RoomID: "r1", StartSlotID: "s0"}); err != nil {
			t.Fatalf("PlaceSession failed: %v", err)
		}
		saves := recorder.Saves()

		if _, err := service.PlaceSession(context.Background(), application.PlaceSessionParams{SessionID: b.ID, RoomID: "r1", StartSlotID: "s0"}); err == nil {
			t.Fatal("expected conflict")
		}
		if recorder.Saves() != saves {
			t.Fatalf("failed mutation persisted a snapshot: %d -> %d", saves, recorder.Saves())
		}
	})

	t.Run("persistence failure does not roll back the commit", func(t *testing.T) {
		service, recorder := newPlannerService(t)
		a := proposeTalk(t, service, "Talk A", "alice", 1)

		recorder.FailWith(errors.New("disk full"))
		session, err := service.PlaceSession(context.Background(), application.PlaceSessionParams{SessionID: a.ID, RoomID: "r1", StartSlotID: "s0"})
		if err != nil {
			t.Fatalf("PlaceSession failed: %v", err)
		}
		if session.Placement == nil {
			t.Fatal("placement missing despite committed mutation")
		}

		fetched, err := service.GetSession(context.Background(), a.ID)
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if fetched.State != "placed" {
			t.Fatalf("state = %q, want placed", fetched.State)
		}
	})
}

func TestAtomicReplaceThroughService(t *testing.T) {
	service, _ := newPlannerService(t)
	a := proposeTalk(t, service, "Talk A", "alice", 1)
	b := proposeTalk(t, service, "Talk B", "bob", 1)
	ctx := context.Background()

	if _, err := service.PlaceSession(ctx, application.PlaceSessionParams{SessionID: a.ID, RoomID: "r1", StartSlotID: "s0"}); err != nil {
		t.Fatalf("PlaceSession failed: %v", err)
	}
	if _, err := service.PlaceSession(ctx, application.PlaceSessionParams{SessionID: b.ID, RoomID: "r2", StartSlotID: "w0"}); err != nil {
		t.Fatalf("PlaceSession failed: %v", err)
	}

	if _, err := service.MoveSession(ctx, application.PlaceSessionParams{SessionID: a.ID, RoomID: "r2", StartSlotID: "w0"}); err == nil {
		t.Fatal("expected conflict moving onto b's slot")
	}

	fetched, err := service.GetSession(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if fetched.Placement == nil || fetched.Placement.RoomID != "r1" || fetched.Placement.StartSlotID != "s0" {
		t.Fatalf("prior placement lost after failed move: %+v", fetched.Placement)
	}
}

func TestScheduleViewReflectsPlacedSessionsOnly(t *testing.T) {
	service, _ := newPlannerService(t)
	ctx := context.Background()
	a := proposeTalk(t, service, "Talk A", "alice", 1)
	proposeTalk(t, service, "Talk B", "bob", 1)
	c := proposeTalk(t, service, "Talk C", "carol", 1)

	if _, err := service.PlaceSession(ctx, application.PlaceSessionParams{SessionID: a.ID, RoomID: "r1", StartSlotID: "s0"}); err != nil {
		t.Fatalf("PlaceSession failed: %v", err)
	}
	if _, err := service.PlaceSession(ctx, application.PlaceSessionParams{SessionID: c.ID, RoomID: "r2", StartSlotID: "w1"}); err != nil {
		t.Fatalf("PlaceSession failed: %v", err)
	}
	if _, err := service.WithdrawSession(ctx, c.ID); err != nil {
		t.Fatalf("WithdrawSession failed: %v", err)
	}

	entries, err := service.ScheduleView(ctx)
	if err != nil {
		t.Fatalf("ScheduleView failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Session.ID != a.ID {
		t.Fatalf("unexpected schedule view: %+v", entries)
	}

	occupant, ok, err := service.Occupant(ctx, "r2", "w1")
	if err != nil {
		t.Fatalf("Occupant failed: %v", err)
	}
	if ok {
		t.Fatalf("withdrawn session still occupies slot: %s", occupant)
	}
}

// Concurrent organizers race for the same slot; exactly one placement can win
// and the final state must satisfy the occupancy invariants.
func TestConcurrentPlacement(t *testing.T) {
	service, _ := newPlannerService(t)
	ctx := context.Background()

	const contenders = 16
	ids := make([]string, 0, contenders)
	for i := 0; i < contenders; i++ {
		session := proposeTalk(t, service, fmt.Sprintf("Talk %d", i), fmt.Sprintf("speaker-%d", i), 1)
		ids = append(ids, session.ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = service.PlaceSession(ctx, application.PlaceSessionParams{SessionID: id, RoomID: "r1", StartSlotID: "s0"})
		}(i, id)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		var slotErr *scheduler.SlotConflictError
		if !errors.As(err, &slotErr) {
			t.Fatalf("unexpected error kind: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}

	entries, err := service.ScheduleView(ctx)
	if err != nil {
		t.Fatalf("ScheduleView failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("schedule has %d entries, want 1", len(entries))
	}
}

// A storm of mixed mutations must leave a consistent schedule: every placed
// session occupies its slots exclusively and nothing else appears.
func TestConcurrentMixedMutations(t *testing.T) {
	service, _ := newPlannerService(t)
	ctx := context.Background()

	const talks = 12
	ids := make([]string, 0, talks)
	for i := 0; i < talks; i++ {
		session := proposeTalk(t, service, fmt.Sprintf("Talk %d", i), fmt.Sprintf("speaker-%d", i), 1)
		ids = append(ids, session.ID)
	}

	slots := []struct{ room, slot string }{
		{"r1", "s0"}, {"r1", "s1"}, {"r1", "s2"},
		{"r2", "w0"}, {"r2", "w1"}, {"r2", "w2"},
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			target := slots[i%len(slots)]
			_, _ = service.PlaceSession(ctx, application.PlaceSessionParams{SessionID: id, RoomID: target.room, StartSlotID: target.slot})
			if i%3 == 0 {
				_, _ = service.WithdrawSession(ctx, id)
			}
			if i%4 == 1 {
				_, _ = service.UnplaceSession(ctx, id)
			}
		}(i, id)
	}
	wg.Wait()

	entries, err := service.ScheduleView(ctx)
	if err != nil {
		t.Fatalf("ScheduleView failed: %v", err)
	}

	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.Session.State != "placed" {
			t.Fatalf("non-placed session in schedule: %+v", entry.Session)
		}
		for _, slot := range entry.Slots {
			key := entry.Room.ID + "/" + slot.ID
			if holder, ok := seen[key]; ok {
				t.Fatalf("slot %s held by both %s and %s", key, holder, entry.Session.ID)
			}
			seen[key] = entry.Session.ID

			occupant, ok, err := service.Occupant(ctx, entry.Room.ID, slot.ID)
			if err != nil {
				t.Fatalf("Occupant failed: %v", err)
			}
			if !ok || occupant != entry.Session.ID {
				t.Fatalf("index disagrees with schedule for %s: %q, %v", key, occupant, ok)
			}
		}
	}
}

// stallingSnapshotStore blocks one armed Save until released so a second
// mutation can overtake the first one's write.
type stallingSnapshotStore struct {
	mu      sync.Mutex
	stall   chan struct{}
	started chan struct{}
	armed   bool
	history []scheduler.Snapshot
}

func newStallingSnapshotStore() *stallingSnapshotStore {
	return &stallingSnapshotStore{
		stall:   make(chan struct{}),
		started: make(chan struct{}),
	}
}

func (s *stallingSnapshotStore) arm() {
	s.mu.Lock()
	s.armed = true
	s.mu.Unlock()
}

func (s *stallingSnapshotStore) Save(_ context.Context, snapshot scheduler.Snapshot) error {
	s.mu.Lock()
	armed := s.armed
	s.armed = false
	s.mu.Unlock()
	if armed {
		close(s.started)
		<-s.stall
	}
	s.mu.Lock()
	s.history = append(s.history, snapshot)
	s.mu.Unlock()
	return nil
}

func (s *stallingSnapshotStore) last() (scheduler.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return scheduler.Snapshot{}, false
	}
	return s.history[len(s.history)-1], true
}

// A slow snapshot write must never overwrite the snapshot of a later
// mutation: the durable store has to end up holding the newest state.
func TestSnapshotWritesKeepMutationOrder(t *testing.T) {
	store := newStallingSnapshotStore()
	plan := scheduler.NewPlan(testfixtures.TwoRoomGrid(t))
	ids := testfixtures.NewIDGenerator("session")
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	service := application.NewPlannerService(plan, store, ids.NextFunc(), clock.NowFunc())
	ctx := context.Background()

	session, err := service.ProposeSession(ctx, application.ProposeSessionParams{
		Title:    "Slow Storage",
		Speakers: []string{"alice"},
		Duration: 1,
	})
	if err != nil {
		t.Fatalf("ProposeSession failed: %v", err)
	}

	store.arm()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := service.PlaceSession(ctx, application.PlaceSessionParams{SessionID: session.ID, RoomID: "r1", StartSlotID: "s0"}); err != nil {
			t.Errorf("PlaceSession failed: %v", err)
		}
	}()
	<-store.started

	go func() {
		defer wg.Done()
		if _, err := service.WithdrawSession(ctx, session.ID); err != nil {
			t.Errorf("WithdrawSession failed: %v", err)
		}
	}()
	waitForState(t, service, session.ID, "withdrawn")

	close(store.stall)
	wg.Wait()

	last, ok := store.last()
	if !ok || len(last.Sessions) != 1 {
		t.Fatalf("unexpected final snapshot: %+v", last)
	}
	if got := last.Sessions[0].State; got != scheduler.StateWithdrawn {
		t.Fatalf("stored state = %q, want %q", got, scheduler.StateWithdrawn)
	}
}

func waitForState(t *testing.T, service *application.PlannerService, id, state string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		session, err := service.GetSession(context.Background(), id)
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if session.State == state {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("session %s never reached state %q", id, state)
}

func TestProposeSessionIDCollision(t *testing.T) {
	plan := scheduler.NewPlan(testfixtures.TwoRoomGrid(t))
	recorder := testfixtures.NewSnapshotRecorder()
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	service := application.NewPlannerService(plan, recorder, func() string { return "session-1" }, clock.NowFunc())
	ctx := context.Background()

	if _, err := service.ProposeSession(ctx, application.ProposeSessionParams{
		Title:    "Talk A",
		Speakers: []string{"alice"},
		Duration: 1,
	}); err != nil {
		t.Fatalf("ProposeSession failed: %v", err)
	}

	_, err := service.ProposeSession(ctx, application.ProposeSessionParams{
		Title:    "Talk B",
		Speakers: []string{"bob"},
		Duration: 1,
	})
	if !errors.Is(err, application.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if recorder.Saves() != 1 {
		t.Fatalf("saves = %d, want 1", recorder.Saves())
	}
}

func TestSuggestSlotsDeterminismThroughService(t *testing.T) {
	service, _ := newPlannerService(t)
	ctx := context.Background()
	a := proposeTalk(t, service, "Talk A", "alice", 1)
	b := proposeTalk(t, service, "Talk B", "alice", 1)

	if _, err := service.PlaceSession(ctx, application.PlaceSessionParams{SessionID: a.ID, RoomID: "r1", StartSlotID: "s0"}); err != nil {
		t.Fatalf("PlaceSession failed: %v", err)
	}

	first, err := service.SuggestSlots(ctx, application.SuggestSlotsParams{SessionID: b.ID})
	if err != nil {
		t.Fatalf("SuggestSlots failed: %v", err)
	}
	second, err := service.SuggestSlots(ctx, application.SuggestSlotsParams{SessionID: b.ID})
	if err != nil {
		t.Fatalf("SuggestSlots failed: %v", err)
	}

	if len(first) == 0 || len(first) != len(second) {
		t.Fatalf("suggestion lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].RoomID != second[i].RoomID || first[i].StartSlotID != second[i].StartSlotID {
			t.Fatalf("suggestions differ at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}
