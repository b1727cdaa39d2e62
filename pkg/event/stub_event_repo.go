package event

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type stubState struct {
	mu         sync.Mutex
	events     map[uuid.UUID]Event
	attendance map[uuid.UUID][]uuid.UUID
}

// StubRepository keeps events in memory. WithTransaction holds a repository-wide lock and restores
// the previous state when fn fails, which stands in for row locks and rollback.
type StubRepository struct {
	state *stubState
	inTx  bool
}

func NewStubRepository() *StubRepository {
	return &StubRepository{state: &stubState{
		events:     map[uuid.UUID]Event{},
		attendance: map[uuid.UUID][]uuid.UUID{},
	}}
}

func (s *StubRepository) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.state.mu.Lock()
	return s.state.mu.Unlock
}

func (s *StubRepository) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	if s.inTx {
		return fn(s)
	}
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	eventsSnapshot := maps.Clone(s.state.events)
	attendanceSnapshot := make(map[uuid.UUID][]uuid.UUID, len(s.state.attendance))
	for id, users := range s.state.attendance {
		attendanceSnapshot[id] = slices.Clone(users)
	}

	if err := fn(&StubRepository{state: s.state, inTx: true}); err != nil {
		s.state.events = eventsSnapshot
		s.state.attendance = attendanceSnapshot
		return err
	}
	return nil
}

func (s *StubRepository) Store(_ context.Context, event Event) (Event, error) {
	defer s.lock()()
	if event.Id == uuid.Nil {
		event.Id = uuid.New()
	}
	now := time.Now().UTC()
	event.TicketsSold = 0
	event.Attendees = nil
	event.ImageUrls = slices.Clone(event.ImageUrls)
	event.CreatedAt = now
	event.UpdatedAt = now
	s.state.events[event.Id] = event
	return s.view(event.Id), nil
}

func (s *StubRepository) GetById(_ context.Context, id uuid.UUID) (Event, error) {
	defer s.lock()()
	if _, ok := s.state.events[id]; !ok {
		return Event{}, ErrEventNotFound
	}
	return s.view(id), nil
}

func (s *StubRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (Event, error) {
	return s.GetById(ctx, id)
}

func (s *StubRepository) Update(_ context.Context, event Event) (Event, error) {
	defer s.lock()()
	stored, ok := s.state.events[event.Id]
	if !ok {
		return Event{}, ErrEventNotFound
	}
	stored.Title = event.Title
	stored.Description = event.Description
	stored.Date = event.Date
	stored.Location = event.Location
	stored.Capacity = event.Capacity
	stored.TicketPrice = event.TicketPrice
	stored.ImageUrls = slices.Clone(event.ImageUrls)
	stored.ContactInfo = event.ContactInfo
	stored.UpdatedAt = time.Now().UTC()
	s.state.events[event.Id] = stored
	return s.view(event.Id), nil
}

func (s *StubRepository) Delete(_ context.Context, id uuid.UUID) error {
	defer s.lock()()
	if _, ok := s.state.events[id]; !ok {
		return ErrEventNotFound
	}
	delete(s.state.events, id)
	delete(s.state.attendance, id)
	return nil
}

func (s *StubRepository) FindForUser(_ context.Context, userId uuid.UUID, period Period) ([]Event, error) {
	defer s.lock()()
	return s.filter(func(e Event) bool {
		return period.Contains(e.Date) && (e.IsOwnedBy(userId) || e.HasAttendee(userId))
	}), nil
}

func (s *StubRepository) ListAll(_ context.Context) ([]Event, error) {
	defer s.lock()()
	return s.filter(func(Event) bool { return true }), nil
}

func (s *StubRepository) ListOwned(_ context.Context, userId uuid.UUID) ([]Event, error) {
	defer s.lock()()
	return s.filter(func(e Event) bool { return e.IsOwnedBy(userId) }), nil
}

func (s *StubRepository) ListAttending(_ context.Context, userId uuid.UUID) ([]Event, error) {
	defer s.lock()()
	return s.filter(func(e Event) bool { return e.HasAttendee(userId) }), nil
}

func (s *StubRepository) AddAttendee(_ context.Context, eventId, userId uuid.UUID) (int, error) {
	defer s.lock()()
	stored, ok := s.state.events[eventId]
	if !ok {
		return 0, ErrEventNotFound
	}
	if slices.Contains(s.state.attendance[eventId], userId) {
		return 0, ErrAlreadyJoined
	}
	if stored.TicketsSold >= stored.Capacity {
		return 0, ErrEventFull
	}
	s.state.attendance[eventId] = append(s.state.attendance[eventId], userId)
	stored.TicketsSold++
	s.state.events[eventId] = stored
	return stored.TicketsSold, nil
}

func (s *StubRepository) RemoveAttendee(_ context.Context, eventId, userId uuid.UUID) (int, error) {
	defer s.lock()()
	stored, ok := s.state.events[eventId]
	if !ok {
		return 0, ErrEventNotFound
	}
	idx := slices.Index(s.state.attendance[eventId], userId)
	if idx < 0 {
		return 0, ErrNotAttendee
	}
	s.state.attendance[eventId] = slices.Delete(s.state.attendance[eventId], idx, idx+1)
	stored.TicketsSold = max(stored.TicketsSold-1, 0)
	s.state.events[eventId] = stored
	return stored.TicketsSold, nil
}

// Reset drops all stored events.
func (s *StubRepository) Reset() {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.events = map[uuid.UUID]Event{}
	s.state.attendance = map[uuid.UUID][]uuid.UUID{}
}

func (s *StubRepository) view(id uuid.UUID) Event {
	e := s.state.events[id]
	e.ImageUrls = slices.Clone(e.ImageUrls)
	e.Attendees = slices.Clone(s.state.attendance[id])
	return e
}

func (s *StubRepository) filter(keep func(Event) bool) []Event {
	result := make([]Event, 0)
	for id := range s.state.events {
		e := s.view(id)
		if keep(e) {
			result = append(result, e)
		}
	}
	slices.SortFunc(result, func(a, b Event) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return slices.Compare(a.Id[:], b.Id[:])
	})
	return result
}
