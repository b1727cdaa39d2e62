package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	Id           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	// EventsOwned and EventsJoined are derived from events.owner_id and the attendance relation.
	EventsOwned  []uuid.UUID
	EventsJoined []uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type SignupRequest struct {
	Name           string
	Email          string
	Password       string
	RetypePassword string
}
