package scheduler

import (
	"fmt"
	"time"

	"github.com/example/barcamp-slotplanner/internal/grid"
)

// SlotConflictError reports a target (room, slot) already held by another session.
type SlotConflictError struct {
	RoomID string
	SlotID string
	HeldBy string
}

// Error implements the error interface.
func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("scheduler: slot %s/%s is held by session %s", e.RoomID, e.SlotID, e.HeldBy)
}

// SpeakerConflictError reports a speaker already committed to an overlapping
// time interval elsewhere.
type SpeakerConflictError struct {
	Speaker string
	HeldBy  string
}

// Error implements the error interface.
func (e *SpeakerConflictError) Error() string {
	return fmt.Sprintf("scheduler: speaker %s is busy with session %s", e.Speaker, e.HeldBy)
}

type slotKey struct {
	roomID string
	slotID string
}

// speakerCommitment records one slot interval a speaker is bound to. Speaker
// comparisons work on wall-clock intervals rather than slot indices so rooms
// with offset grids cannot hide double bookings.
type speakerCommitment struct {
	sessionID string
	start     time.Time
	end       time.Time
}

// conflictIndex is the materialized occupancy view derived from all placed
// sessions. It is updated transactionally with every mutation and never
// written to directly by callers.
type conflictIndex struct {
	byRoomSlot map[slotKey]string
	bySpeaker  map[string][]speakerCommitment
}

func newConflictIndex() *conflictIndex {
	return &conflictIndex{
		byRoomSlot: make(map[slotKey]string),
		bySpeaker:  make(map[string][]speakerCommitment),
	}
}

func (idx *conflictIndex) occupant(roomID, slotID string) (string, bool) {
	sessionID, ok := idx.byRoomSlot[slotKey{roomID: roomID, slotID: slotID}]
	return sessionID, ok
}

func (idx *conflictIndex) speakerBusyDuring(speaker string, start, end time.Time) bool {
	for _, commitment := range idx.bySpeaker[speaker] {
		if intervalsOverlap(commitment.start, commitment.end, start, end) {
			return true
		}
	}
	return false
}

// check validates that reserving the span for the session would succeed,
// without mutating the index. Entries held by the session itself are treated
// as free so an atomic replace never collides with its own placement.
func (idx *conflictIndex) check(session *Session, roomID string, span []grid.TimeSlot) error {
	for _, slot := range span {
		holder, ok := idx.byRoomSlot[slotKey{roomID: roomID, slotID: slot.ID}]
		if ok && holder != session.ID {
			return &SlotConflictError{RoomID: roomID, SlotID: slot.ID, HeldBy: holder}
		}
	}
	for _, speaker := range session.Speakers {
		for _, commitment := range idx.bySpeaker[speaker] {
			if commitment.sessionID == session.ID {
				continue
			}
			for _, slot := range span {
				if intervalsOverlap(commitment.start, commitment.end, slot.Start, slot.End) {
					return &SpeakerConflictError{Speaker: speaker, HeldBy: commitment.sessionID}
				}
			}
		}
	}
	return nil
}

// reserve atomically replaces the session's index entries with the new span.
// Reservation is all-or-nothing: the index is untouched when any target slot
// or speaker interval is already taken.
func (idx *conflictIndex) reserve(session *Session, roomID string, span []grid.TimeSlot) error {
	if err := idx.check(session, roomID, span); err != nil {
		return err
	}

	idx.release(session)

	for _, slot := range span {
		idx.byRoomSlot[slotKey{roomID: roomID, slotID: slot.ID}] = session.ID
	}
	for _, speaker := range session.Speakers {
		for _, slot := range span {
			idx.bySpeaker[speaker] = append(idx.bySpeaker[speaker], speakerCommitment{
				sessionID: session.ID,
				start:     slot.Start,
				end:       slot.End,
			})
		}
	}
	return nil
}

// release removes all index entries for the session's current placement.
// No-op when the session holds none.
func (idx *conflictIndex) release(session *Session) {
	if session.Placement == nil {
		return
	}
	for _, slot := range session.Placement.Slots {
		delete(idx.byRoomSlot, slotKey{roomID: session.Placement.RoomID, slotID: slot.ID})
	}
	for _, speaker := range session.Speakers {
		commitments := idx.bySpeaker[speaker]
		kept := commitments[:0]
		for _, commitment := range commitments {
			if commitment.sessionID != session.ID {
				kept = append(kept, commitment)
			}
		}
		if len(kept) == 0 {
			delete(idx.bySpeaker, speaker)
		} else {
			idx.bySpeaker[speaker] = kept
		}
	}
}

// intervalsOverlap reports whether the half-open intervals [aStart,aEnd) and
// [bStart,bEnd) share any instant.
func intervalsOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
