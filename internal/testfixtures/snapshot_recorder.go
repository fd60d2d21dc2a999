package testfixtures

import (
	"context"
	"sync"

	"github.com/example/barcamp-slotplanner/internal/scheduler"
)

// SnapshotRecorder is an in-memory SnapshotStore that records every save,
// optionally failing with a configured error.
type SnapshotRecorder struct {
	mu        sync.Mutex
	snapshots []scheduler.Snapshot
	failWith  error
}

// NewSnapshotRecorder constructs an empty recorder.
func NewSnapshotRecorder() *SnapshotRecorder {
	return &SnapshotRecorder{}
}

// Save records the snapshot, or returns the configured failure.
func (r *SnapshotRecorder) Save(ctx context.Context, snapshot scheduler.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	r.snapshots = append(r.snapshots, snapshot)
	return nil
}

// FailWith makes subsequent saves return err. Pass nil to restore success.
func (r *SnapshotRecorder) FailWith(err error) {
	r.mu.Lock()
	r.failWith = err
	r.mu.Unlock()
}

// Saves returns the number of recorded snapshots.
func (r *SnapshotRecorder) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

// Last returns the most recently recorded snapshot.
func (r *SnapshotRecorder) Last() (scheduler.Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return scheduler.Snapshot{}, false
	}
	return r.snapshots[len(r.snapshots)-1], true
}
