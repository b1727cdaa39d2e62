package user

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
)

type StubUserRepository struct {
	data map[uuid.UUID]User
}

func NewStubUserRepository() *StubUserRepository {
	return &StubUserRepository{data: map[uuid.UUID]User{}}
}

func (s *StubUserRepository) CreateUser(_ context.Context, user User) (User, error) {
	for _, existing := range s.data {
		if existing.Email == user.Email {
			return User{}, ErrEmailTaken
		}
	}
	if user.Id == uuid.Nil {
		user.Id = uuid.New()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.data[user.Id] = user
	return s.copyOf(user), nil
}

func (s *StubUserRepository) GetUser(_ context.Context, id uuid.UUID) (User, error) {
	user, ok := s.data[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return s.copyOf(user), nil
}

func (s *StubUserRepository) GetUserByEmail(_ context.Context, email string) (User, error) {
	for _, user := range s.data {
		if user.Email == email {
			return s.copyOf(user), nil
		}
	}
	return User{}, ErrUserNotFound
}

func (s *StubUserRepository) copyOf(user User) User {
	user.EventsOwned = slices.Clone(user.EventsOwned)
	user.EventsJoined = slices.Clone(user.EventsJoined)
	return user
}
