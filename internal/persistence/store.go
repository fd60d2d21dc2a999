package persistence

import "context"

// SnapshotStore durably records the schedule after each committed mutation
// and reconstructs it at startup.
type SnapshotStore interface {
	// Save replaces the stored snapshot with the supplied one.
	Save(ctx context.Context, snapshot Snapshot) error
	// Load returns the most recently saved snapshot, or ErrNotFound when
	// nothing has been persisted yet.
	Load(ctx context.Context) (Snapshot, error)
}
