//go:build integration

package event

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/eventmate/eventmate/internal/test_utils"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var pgContainer *postgres.PostgresContainer
var openDb func() *pgxpool.Pool

func TestMain(m *testing.M) {
	pgContainer, openDb = test_utils.TestWithDB()
	code := m.Run()
	if err := testcontainers.TerminateContainer(pgContainer); err != nil {
		log.Errorf("failed to terminate container: %s", err)
	}
	os.Exit(code)
}

func setupTestRepository(t *testing.T) (context.Context, *RepositoryImpl, *pgxpool.Pool) {
	ctx := context.Background()
	db := openDb()
	t.Cleanup(func() {
		db.Close()
		require.NoError(t, pgContainer.Restore(ctx))
	})
	return ctx, NewRepo(db), db
}

func storeEvent(t *testing.T, ctx context.Context, repo *RepositoryImpl, ownerId uuid.UUID, modify func(e *Event)) Event {
	t.Helper()
	e := validEvent()
	e.Owner.Id = ownerId
	if modify != nil {
		modify(&e)
	}
	stored, err := repo.Store(ctx, e)
	require.NoError(t, err)
	return stored
}

func join(ctx context.Context, repo *RepositoryImpl, eventId, userId uuid.UUID) error {
	return repo.WithTransaction(ctx, func(tx Repository) error {
		current, err := tx.GetForUpdate(ctx, eventId)
		if err != nil {
			return err
		}
		if err := CanJoin(current, userId); err != nil {
			return err
		}
		_, err = tx.AddAttendee(ctx, eventId, userId)
		return err
	})
}

func TestRepositoryImpl_StoreAndGet(t *testing.T) {
	ctx, repo, db := setupTestRepository(t)
	owner := test_utils.InsertUser(t, ctx, db, "owner")

	stored := storeEvent(t, ctx, repo, owner, func(e *Event) { e.TicketPrice = 19.99 })

	found, err := repo.GetById(ctx, stored.Id)
	require.NoError(t, err)
	assert.Equal(t, "Go meetup", found.Title)
	assert.Equal(t, owner, found.Owner.Id)
	assert.Equal(t, "owner", found.Owner.Name)
	assert.Equal(t, 19.99, found.TicketPrice)
	assert.Equal(t, []string{"https://example.com/a.png"}, found.ImageUrls)
	assert.True(t, validEvent().Date.Equal(found.Date))
	assert.Equal(t, 0, found.TicketsSold)
	assert.Empty(t, found.Attendees)

	_, err = repo.GetById(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestRepositoryImpl_Attendance(t *testing.T) {
	t.Run("should keep tickets sold equal to attendees", func(t *testing.T) {
		ctx, repo, db := setupTestRepository(t)
		owner := test_utils.InsertUser(t, ctx, db, "owner")
		a := test_utils.InsertUser(t, ctx, db, "a")
		b := test_utils.InsertUser(t, ctx, db, "b")
		e := storeEvent(t, ctx, repo, owner, func(e *Event) { e.Capacity = 1 })

		require.NoError(t, join(ctx, repo, e.Id, a))
		assert.ErrorIs(t, join(ctx, repo, e.Id, b), ErrEventFull)
		assert.ErrorIs(t, join(ctx, repo, e.Id, a), ErrAlreadyJoined)

		found, err := repo.GetById(ctx, e.Id)
		require.NoError(t, err)
		assert.Equal(t, 1, found.TicketsSold)
		assert.Equal(t, []uuid.UUID{a}, found.Attendees)

		sold, err := repo.RemoveAttendee(ctx, e.Id, a)
		require.NoError(t, err)
		assert.Equal(t, 0, sold)
		_, err = repo.RemoveAttendee(ctx, e.Id, a)
		assert.ErrorIs(t, err, ErrNotAttendee)
	})

	t.Run("conditional increment refuses a full event", func(t *testing.T) {
		ctx, repo, db := setupTestRepository(t)
		owner := test_utils.InsertUser(t, ctx, db, "owner")
		a := test_utils.InsertUser(t, ctx, db, "a")
		e := storeEvent(t, ctx, repo, owner, func(e *Event) { e.Capacity = 0 })

		err := repo.WithTransaction(ctx, func(tx Repository) error {
			_, err := tx.AddAttendee(ctx, e.Id, a)
			return err
		})

		assert.ErrorIs(t, err, ErrEventFull)
		found, err := repo.GetById(ctx, e.Id)
		require.NoError(t, err)
		assert.Empty(t, found.Attendees)
		assert.Equal(t, 0, found.TicketsSold)
	})

	t.Run("should not oversell under concurrent joins", func(t *testing.T) {
		ctx, repo, db := setupTestRepository(t)
		owner := test_utils.InsertUser(t, ctx, db, "owner")
		e := storeEvent(t, ctx, repo, owner, func(e *Event) { e.Capacity = 3 })
		users := make([]uuid.UUID, 10)
		for i := range users {
			users[i] = test_utils.InsertUser(t, ctx, db, "user")
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		joined := 0
		for _, u := range users {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := join(ctx, repo, e.Id, u)
				if err != nil && !errors.Is(err, ErrEventFull) {
					t.Errorf("unexpected error: %v", err)
					return
				}
				if err == nil {
					mu.Lock()
					joined++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 3, joined)
		found, err := repo.GetById(ctx, e.Id)
		require.NoError(t, err)
		assert.Equal(t, 3, found.TicketsSold)
		assert.Len(t, found.Attendees, 3)
	})
}

func TestRepositoryImpl_Delete(t *testing.T) {
	ctx, repo, db := setupTestRepository(t)
	owner := test_utils.InsertUser(t, ctx, db, "owner")
	a := test_utils.InsertUser(t, ctx, db, "a")
	e := storeEvent(t, ctx, repo, owner, nil)
	require.NoError(t, join(ctx, repo, e.Id, a))

	require.NoError(t, repo.Delete(ctx, e.Id))

	var attendance int
	require.NoError(t, db.QueryRow(ctx, `SELECT count(*) FROM attendance WHERE event_id = $1`, e.Id).Scan(&attendance))
	assert.Equal(t, 0, attendance)
	attending, err := repo.ListAttending(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, attending)
	assert.ErrorIs(t, repo.Delete(ctx, e.Id), ErrEventNotFound)
}

func TestRepositoryImpl_Update(t *testing.T) {
	ctx, repo, db := setupTestRepository(t)
	owner := test_utils.InsertUser(t, ctx, db, "owner")
	e := storeEvent(t, ctx, repo, owner, nil)

	e.Title = "Renamed"
	e.ImageUrls = []string{"b.png", "c.png"}
	updated, err := repo.Update(ctx, e)

	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, []string{"b.png", "c.png"}, updated.ImageUrls)
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))
}

func TestRepositoryImpl_FindForUser(t *testing.T) {
	ctx, repo, db := setupTestRepository(t)
	owner := test_utils.InsertUser(t, ctx, db, "owner")
	attendee := test_utils.InsertUser(t, ctx, db, "attendee")
	stranger := test_utils.InsertUser(t, ctx, db, "stranger")
	lastMs := storeEvent(t, ctx, repo, owner, func(e *Event) {
		e.Date = time.Date(2025, 6, 15, 23, 59, 59, 999_000_000, time.UTC)
	})
	morning := storeEvent(t, ctx, repo, owner, func(e *Event) {
		e.Date = time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	})
	storeEvent(t, ctx, repo, owner, func(e *Event) {
		e.Date = time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)
	})
	require.NoError(t, join(ctx, repo, morning.Id, attendee))

	day, err := DayPeriod(2025, 6, 15)
	require.NoError(t, err)

	owned, err := repo.FindForUser(ctx, owner, day)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{morning.Id, lastMs.Id}, ids(owned))

	attended, err := repo.FindForUser(ctx, attendee, day)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{morning.Id}, ids(attended))

	none, err := repo.FindForUser(ctx, stranger, day)
	require.NoError(t, err)
	assert.Empty(t, none)

	month, err := MonthPeriod(2025, 6)
	require.NoError(t, err)
	inMonth, err := repo.FindForUser(ctx, owner, month)
	require.NoError(t, err)
	assert.Len(t, inMonth, 3)
}
