package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/barcamp-slotplanner/internal/persistence"
)

// Save replaces the stored snapshot with the supplied one in a single
// transaction. The previous snapshot is fully discarded; the store always
// holds exactly the latest committed schedule state.
func (s *Store) Save(ctx context.Context, snapshot persistence.Snapshot) error {
	savedAt := snapshot.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	}

	return s.withTransaction(ctx, func(tx *sql.Tx) error {
		// Clearing sessions cascades to speakers and placements.
		if _, err := tx.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
			return fmt.Errorf("sqlite: clear sessions: %w", err)
		}

		for _, session := range snapshot.Sessions {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO sessions (id, title, duration, state) VALUES (?, ?, ?, ?)`,
				session.ID, session.Title, session.Duration, session.State,
			); err != nil {
				return fmt.Errorf("sqlite: insert session %s: %w", session.ID, err)
			}

			for position, speaker := range session.Speakers {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO session_speakers (session_id, position, speaker) VALUES (?, ?, ?)`,
					session.ID, position, speaker,
				); err != nil {
					return fmt.Errorf("sqlite: insert speaker for session %s: %w", session.ID, err)
				}
			}

			if session.Placement != nil {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO placements (session_id, room_id, start_slot_id) VALUES (?, ?, ?)`,
					session.ID, session.Placement.RoomID, session.Placement.StartSlotID,
				); err != nil {
					return fmt.Errorf("sqlite: insert placement for session %s: %w", session.ID, err)
				}
			}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO snapshot_meta (id, saved_at) VALUES (1, ?)
			 ON CONFLICT (id) DO UPDATE SET saved_at = excluded.saved_at`,
			savedAt.Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("sqlite: update snapshot_meta: %w", err)
		}
		return nil
	})
}

// Load reassembles the most recently saved snapshot. persistence.ErrNotFound
// is returned when no snapshot was ever saved.
func (s *Store) Load(ctx context.Context) (persistence.Snapshot, error) {
	var snapshot persistence.Snapshot

	var savedAt string
	row := s.db.QueryRowContext(ctx, `SELECT saved_at FROM snapshot_meta WHERE id = 1`)
	if err := row.Scan(&savedAt); err != nil {
		if err == sql.ErrNoRows {
			return persistence.Snapshot{}, persistence.ErrNotFound
		}
		return persistence.Snapshot{}, fmt.Errorf("sqlite: read snapshot_meta: %w", err)
	}
	parsed, err := time.Parse(time.RFC3339, savedAt)
	if err != nil {
		return persistence.Snapshot{}, fmt.Errorf("sqlite: parse saved_at %q: %w", savedAt, err)
	}
	snapshot.SavedAt = parsed

	sessions, err := s.loadSessions(ctx)
	if err != nil {
		return persistence.Snapshot{}, err
	}
	snapshot.Sessions = sessions
	return snapshot, nil
}

func (s *Store) loadSessions(ctx context.Context) ([]persistence.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.title, s.duration, s.state, p.room_id, p.start_slot_id
		FROM sessions s
		LEFT JOIN placements p ON p.session_id = s.id
		ORDER BY s.id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]persistence.Session, 0)
	byID := make(map[string]int)
	for rows.Next() {
		var session persistence.Session
		var roomID, startSlotID sql.NullString
		if err := rows.Scan(&session.ID, &session.Title, &session.Duration, &session.State, &roomID, &startSlotID); err != nil {
			return nil, fmt.Errorf("sqlite: scan session: %w", err)
		}
		if roomID.Valid && startSlotID.Valid {
			session.Placement = &persistence.Placement{RoomID: roomID.String, StartSlotID: startSlotID.String}
		}
		byID[session.ID] = len(sessions)
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate sessions: %w", err)
	}

	speakerRows, err := s.db.QueryContext(ctx, `
		SELECT session_id, speaker
		FROM session_speakers
		ORDER BY session_id, position`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query speakers: %w", err)
	}
	defer speakerRows.Close()

	for speakerRows.Next() {
		var sessionID, speaker string
		if err := speakerRows.Scan(&sessionID, &speaker); err != nil {
			return nil, fmt.Errorf("sqlite: scan speaker: %w", err)
		}
		i, ok := byID[sessionID]
		if !ok {
			return nil, fmt.Errorf("sqlite: speaker row references unknown session %s", sessionID)
		}
		sessions[i].Speakers = append(sessions[i].Speakers, speaker)
	}
	if err := speakerRows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate speakers: %w", err)
	}

	return sessions, nil
}
