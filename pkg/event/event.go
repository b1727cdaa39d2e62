package event

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxCapacity and MaxTicketPrice match the INTEGER and NUMERIC(12,2) columns.
	MaxCapacity    = math.MaxInt32
	MaxTicketPrice = 1e10
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrNotOwner      = errors.New("user is not the owner of the event")
	ErrAlreadyJoined = errors.New("user has already joined the event")
	ErrEventFull     = errors.New("event is full")
	ErrNotAttendee   = errors.New("user is not an attendee of the event")
	ErrInvalidEvent  = errors.New("invalid event")
	// ErrMissingDetails is an ErrInvalidEvent raised when a required field is absent on creation.
	ErrMissingDetails = fmt.Errorf("%w: missing required details", ErrInvalidEvent)
	ErrInvalidDate    = fmt.Errorf("%w: invalid date", ErrInvalidEvent)
)

type Owner struct {
	Id    uuid.UUID
	Name  string
	Email string
}

type Event struct {
	Id          uuid.UUID
	Title       string
	Description string
	Date        time.Time
	Owner       Owner
	Location    string
	Capacity    int
	TicketPrice float64
	ImageUrls   []string
	ContactInfo string
	TicketsSold int
	// Attendees is ordered by join time and always has TicketsSold entries.
	Attendees []uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EventUpdate carries the fields of a partial update. Nil means "keep the current value".
// EventUpdate carries the fields a PUT provided. Date stays raw so it is only parsed once
// the caller is known to own the event.
type EventUpdate struct {
	Title       *string
	Description *string
	Date        *string
	Location    *string
	Capacity    *int
	TicketPrice *float64
	ImageUrls   *[]string
	ContactInfo *string
}

func (e Event) IsOwnedBy(userId uuid.UUID) bool {
	return e.Owner.Id == userId
}

func (e Event) HasAttendee(userId uuid.UUID) bool {
	return slices.Contains(e.Attendees, userId)
}

func (e Event) IsFull() bool {
	return e.TicketsSold >= e.Capacity
}

// Apply copies every non-nil field of u onto e.
func (e *Event) Apply(u EventUpdate) error {
	if u.Date != nil {
		date, err := ParseEventDate(*u.Date)
		if err != nil {
			return err
		}
		e.Date = date
	}
	if u.Title != nil {
		e.Title = *u.Title
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.Location != nil {
		e.Location = *u.Location
	}
	if u.Capacity != nil {
		e.Capacity = *u.Capacity
	}
	if u.TicketPrice != nil {
		e.TicketPrice = *u.TicketPrice
	}
	if u.ImageUrls != nil {
		e.ImageUrls = slices.Clone(*u.ImageUrls)
	}
	if u.ContactInfo != nil {
		e.ContactInfo = *u.ContactInfo
	}
	return nil
}

// Validate checks the stored-field constraints shared by create and update.
func (e Event) Validate() error {
	required := []struct{ name, value string }{
		{"title", e.Title},
		{"description", e.Description},
		{"location", e.Location},
		{"contact_info", e.ContactInfo},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%w: %s must not be blank", ErrInvalidEvent, field.name)
		}
	}
	if e.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidEvent)
	}
	if e.Capacity < 0 {
		return fmt.Errorf("%w: capacity must not be negative", ErrInvalidEvent)
	}
	if e.Capacity > MaxCapacity {
		return fmt.Errorf("%w: capacity must not exceed %d", ErrInvalidEvent, MaxCapacity)
	}
	if math.IsNaN(e.TicketPrice) || math.IsInf(e.TicketPrice, 0) {
		return fmt.Errorf("%w: ticket_price must be a number", ErrInvalidEvent)
	}
	if e.TicketPrice < 0 {
		return fmt.Errorf("%w: ticket_price must not be negative", ErrInvalidEvent)
	}
	if e.TicketPrice >= MaxTicketPrice {
		return fmt.Errorf("%w: ticket_price must be below %.0f", ErrInvalidEvent, MaxTicketPrice)
	}
	if decimalPlaces(e.TicketPrice) > 2 {
		return fmt.Errorf("%w: ticket_price must have at most 2 decimal places", ErrInvalidEvent)
	}
	if len(e.ImageUrls) == 0 {
		return fmt.Errorf("%w: at least one image url is required", ErrInvalidEvent)
	}
	for _, url := range e.ImageUrls {
		if strings.TrimSpace(url) == "" {
			return fmt.Errorf("%w: image urls must not be blank", ErrInvalidEvent)
		}
	}
	return nil
}

// decimalPlaces counts the fractional digits of the shortest decimal that round-trips to v.
func decimalPlaces(v float64) int {
	formatted := strconv.FormatFloat(v, 'f', -1, 64)
	if dot := strings.IndexByte(formatted, '.'); dot >= 0 {
		return len(formatted) - dot - 1
	}
	return 0
}

// ParseEventDate accepts an RFC 3339 timestamp or a plain YYYY-MM-DD date (midnight UTC).
func ParseEventDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
}
