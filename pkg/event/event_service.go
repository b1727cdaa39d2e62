package event

import (
	"context"
	"fmt"

	"github.com/eventmate/eventmate/internal/event_bus"
	"github.com/eventmate/eventmate/internal/utils"
	"github.com/eventmate/eventmate/pkg/user"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	Today(ctx context.Context) ([]Event, error)
	InPeriod(ctx context.Context, period Period) ([]Event, error)
	Details(ctx context.Context, id uuid.UUID) (Event, error)
	Create(ctx context.Context, event Event) (Event, error)
	Update(ctx context.Context, id uuid.UUID, update EventUpdate) (Event, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Join(ctx context.Context, id uuid.UUID) error
	Leave(ctx context.Context, id uuid.UUID) error
	All(ctx context.Context) ([]Event, error)
	Mine(ctx context.Context) ([]Event, error)
	Attending(ctx context.Context) ([]Event, error)
}

type ServiceImpl struct {
	repo     Repository
	cache    Cache
	eventBus *event_bus.EventBus
	clock    utils.Clock
}

func NewService(repo Repository, cache Cache, eventBus *event_bus.EventBus, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{repo: repo, cache: cache, eventBus: eventBus, clock: clock}
}

func (s *ServiceImpl) Today(ctx context.Context) ([]Event, error) {
	return s.InPeriod(ctx, TodayPeriod(s.clock.Now()))
}

func (s *ServiceImpl) InPeriod(ctx context.Context, period Period) ([]Event, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.FindForUser(ctx, userId, period)
}

func (s *ServiceImpl) Details(ctx context.Context, id uuid.UUID) (Event, error) {
	cached, ok, err := s.cache.Get(ctx, id)
	if err != nil {
		log.Warnf("event cache read failed, falling back to database: %v", err)
	} else if ok {
		return cached, nil
	}

	generation, genErr := s.cache.Generation(ctx, id)
	if genErr != nil {
		log.Warnf("event cache generation read failed, not caching %s: %v", id, genErr)
	}

	event, err := s.repo.GetById(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if genErr == nil {
		if err := s.cache.Fill(ctx, event, generation); err != nil {
			log.Warnf("failed to cache event %s: %v", id, err)
		}
	}
	return event, nil
}

func (s *ServiceImpl) Create(ctx context.Context, event Event) (Event, error) {
	owner, err := user.CurrentUser(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("failed to get current user: %w", err)
	}
	event.Id = uuid.New()
	event.Owner = Owner{Id: owner.Id, Name: owner.Name, Email: owner.Email}
	event.Date = event.Date.UTC()
	event.TicketsSold = 0
	event.Attendees = nil
	if err := event.Validate(); err != nil {
		return Event{}, err
	}

	created, err := s.repo.Store(ctx, event)
	if err != nil {
		return Event{}, err
	}
	log.Debugf("User %s created event %s", owner.Id, created.Id)
	return created, nil
}

// Update applies the partial update under a row lock. Only the owner may update.
func (s *ServiceImpl) Update(ctx context.Context, id uuid.UUID, update EventUpdate) (Event, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("failed to get current user: %w", err)
	}

	var updated Event
	err = s.repo.WithTransaction(ctx, func(repo Repository) error {
		current, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !current.IsOwnedBy(userId) {
			return ErrNotOwner
		}
		if err := current.Apply(update); err != nil {
			return err
		}
		if err := current.Validate(); err != nil {
			return err
		}
		updated, err = repo.Update(ctx, current)
		return err
	})
	if err != nil {
		return Event{}, err
	}

	s.publish(ctx, event_bus.EventUpdatedType, event_bus.EventUpdated{EventId: updated.Id, OwnerId: userId})
	return updated, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}

	err = s.repo.WithTransaction(ctx, func(repo Repository) error {
		current, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !current.IsOwnedBy(userId) {
			return ErrNotOwner
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	log.Debugf("User %s deleted event %s", userId, id)
	s.publish(ctx, event_bus.EventDeletedType, event_bus.EventDeleted{EventId: id, OwnerId: userId})
	return nil
}

func (s *ServiceImpl) Join(ctx context.Context, id uuid.UUID) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}

	var ticketsSold int
	err = s.repo.WithTransaction(ctx, func(repo Repository) error {
		current, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := CanJoin(current, userId); err != nil {
			return err
		}
		ticketsSold, err = repo.AddAttendee(ctx, id, userId)
		return err
	})
	if err != nil {
		return err
	}

	s.publish(ctx, event_bus.EventAttendanceChangedType, event_bus.EventAttendanceChanged{
		EventId:     id,
		UserId:      userId,
		Joined:      true,
		TicketsSold: ticketsSold,
	})
	return nil
}

func (s *ServiceImpl) Leave(ctx context.Context, id uuid.UUID) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}

	var ticketsSold int
	err = s.repo.WithTransaction(ctx, func(repo Repository) error {
		current, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := CanLeave(current, userId); err != nil {
			return err
		}
		ticketsSold, err = repo.RemoveAttendee(ctx, id, userId)
		return err
	})
	if err != nil {
		return err
	}

	s.publish(ctx, event_bus.EventAttendanceChangedType, event_bus.EventAttendanceChanged{
		EventId:     id,
		UserId:      userId,
		Joined:      false,
		TicketsSold: ticketsSold,
	})
	return nil
}

func (s *ServiceImpl) All(ctx context.Context) ([]Event, error) {
	return s.repo.ListAll(ctx)
}

func (s *ServiceImpl) Mine(ctx context.Context) ([]Event, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.ListOwned(ctx, userId)
}

func (s *ServiceImpl) Attending(ctx context.Context) ([]Event, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.ListAttending(ctx, userId)
}

// publish notifies subscribers after a committed change. Subscribers still run when the caller has
// gone away, and their failures are logged, not returned.
func (s *ServiceImpl) publish(ctx context.Context, eventType event_bus.EventType, data any) {
	if err := s.eventBus.Publish(event_bus.NewEvent(context.WithoutCancel(ctx), eventType, data)); err != nil {
		log.Errorf("failed to publish %s: %v", eventType, err)
	}
}
