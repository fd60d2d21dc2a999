package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// migrations holds the ordered schema steps. Each entry runs at most once;
// applied versions are tracked in schema_migrations.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id       TEXT PRIMARY KEY,
		title    TEXT NOT NULL,
		duration INTEGER NOT NULL,
		state    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS session_speakers (
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		position   INTEGER NOT NULL,
		speaker    TEXT NOT NULL,
		PRIMARY KEY (session_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS placements (
		session_id    TEXT PRIMARY KEY REFERENCES sessions(id) ON DELETE CASCADE,
		room_id       TEXT NOT NULL,
		start_slot_id TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS snapshot_meta (
		id       INTEGER PRIMARY KEY CHECK (id = 1),
		saved_at TEXT NOT NULL
	)`,
}

// Migrate brings the schema up to the current version.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("sqlite: create schema_migrations: %w", err)
	}

	return s.withTransaction(ctx, func(tx *sql.Tx) error {
		var current int
		row := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`)
		if err := row.Scan(&current); err != nil {
			return fmt.Errorf("sqlite: read schema version: %w", err)
		}

		for version := current; version < len(migrations); version++ {
			if _, err := tx.ExecContext(ctx, migrations[version]); err != nil {
				return fmt.Errorf("sqlite: apply migration %d: %w", version+1, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
				version+1, time.Now().UTC().Format(time.RFC3339),
			); err != nil {
				return fmt.Errorf("sqlite: record migration %d: %w", version+1, err)
			}
		}
		return nil
	})
}
