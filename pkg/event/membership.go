package event

import "github.com/google/uuid"

// CanJoin reports why userId may not join e, or nil when a ticket can be taken.
// Membership is checked before capacity, so a member of a full event gets ErrAlreadyJoined.
func CanJoin(e Event, userId uuid.UUID) error {
	if e.HasAttendee(userId) {
		return ErrAlreadyJoined
	}
	if e.IsFull() {
		return ErrEventFull
	}
	return nil
}

func CanLeave(e Event, userId uuid.UUID) error {
	if !e.HasAttendee(userId) {
		return ErrNotAttendee
	}
	return nil
}
