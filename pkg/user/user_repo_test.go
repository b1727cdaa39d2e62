//go:build integration

package user

import (
	"context"
	"os"
	"testing"

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

func setupTestRepository(t *testing.T) (context.Context, *UserRepoImpl, *pgxpool.Pool) {
	ctx := context.Background()
	db := openDb()
	t.Cleanup(func() {
		db.Close()
		require.NoError(t, pgContainer.Restore(ctx))
	})
	return ctx, NewUserRepo(db), db
}

func TestUserRepoImpl_CreateUser(t *testing.T) {
	t.Run("should store and load user", func(t *testing.T) {
		ctx, repo, _ := setupTestRepository(t)

		created, err := repo.CreateUser(ctx, User{Name: "Alice", Email: "alice@example.com", PasswordHash: "hash"})
		require.NoError(t, err)

		found, err := repo.GetUserByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, created.Id, found.Id)
		assert.Equal(t, "hash", found.PasswordHash)
		assert.Empty(t, found.EventsOwned)
		assert.Empty(t, found.EventsJoined)
		assert.False(t, found.CreatedAt.IsZero())
	})

	t.Run("should map unique violation to ErrEmailTaken", func(t *testing.T) {
		ctx, repo, _ := setupTestRepository(t)
		_, err := repo.CreateUser(ctx, User{Name: "Alice", Email: "alice@example.com", PasswordHash: "hash"})
		require.NoError(t, err)

		_, err = repo.CreateUser(ctx, User{Name: "Alice 2", Email: "alice@example.com", PasswordHash: "hash"})

		assert.ErrorIs(t, err, ErrEmailTaken)
	})
}

func TestUserRepoImpl_GetUser(t *testing.T) {
	t.Run("should derive owned and joined events", func(t *testing.T) {
		ctx, repo, db := setupTestRepository(t)
		owner := test_utils.InsertUser(t, ctx, db, "owner")
		attendee := test_utils.InsertUser(t, ctx, db, "attendee")
		eventId := uuid.New()
		_, err := db.Exec(ctx, `INSERT INTO events (id, owner_id, title, description, date, location, capacity,
				ticket_price, image_urls, contact_info, tickets_sold)
			VALUES ($1, $2, 'Meetup', 'Go meetup', now(), 'Warsaw', 10, 0, ARRAY['a.png'], 'mail', 1)`,
			eventId, owner)
		require.NoError(t, err)
		_, err = db.Exec(ctx, `INSERT INTO attendance (event_id, user_id) VALUES ($1, $2)`, eventId, attendee)
		require.NoError(t, err)

		ownerUser, err := repo.GetUser(ctx, owner)
		require.NoError(t, err)
		attendeeUser, err := repo.GetUser(ctx, attendee)
		require.NoError(t, err)

		assert.Equal(t, []uuid.UUID{eventId}, ownerUser.EventsOwned)
		assert.Empty(t, ownerUser.EventsJoined)
		assert.Equal(t, []uuid.UUID{eventId}, attendeeUser.EventsJoined)
		assert.Empty(t, attendeeUser.EventsOwned)
	})

	t.Run("should return ErrUserNotFound", func(t *testing.T) {
		ctx, repo, _ := setupTestRepository(t)

		_, err := repo.GetUser(ctx, uuid.New())

		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}
