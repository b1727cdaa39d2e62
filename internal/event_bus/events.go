package event_bus

import "github.com/google/uuid"

const (
	EventUpdatedType           EventType = "event.updated"
	EventDeletedType           EventType = "event.deleted"
	EventAttendanceChangedType EventType = "event.attendance.changed"
)

type EventUpdated struct {
	EventId uuid.UUID
	OwnerId uuid.UUID
}

type EventDeleted struct {
	EventId uuid.UUID
	OwnerId uuid.UUID
}

type EventAttendanceChanged struct {
	EventId     uuid.UUID
	UserId      uuid.UUID
	Joined      bool
	TicketsSold int
}
