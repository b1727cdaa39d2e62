package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

const uniqueViolation = "23505"

type Repo interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

type UserRepoImpl struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepoImpl {
	return &UserRepoImpl{db: db}
}

const selectUser = `SELECT u.id, u.name, u.email, u.password_hash, u.created_at, u.updated_at,
		ARRAY(SELECT e.id FROM events e WHERE e.owner_id = u.id ORDER BY e.created_at) AS events_owned,
		ARRAY(SELECT a.event_id FROM attendance a WHERE a.user_id = u.id ORDER BY a.joined_at) AS events_joined
	FROM users u`

func (u *UserRepoImpl) CreateUser(ctx context.Context, user User) (User, error) {
	query := `INSERT INTO users (id, name, email, password_hash) VALUES ($1, $2, $3, $4)
				RETURNING created_at, updated_at`
	if user.Id == uuid.Nil {
		user.Id = uuid.New()
	}
	err := u.db.QueryRow(ctx, query, user.Id, user.Name, user.Email, user.PasswordHash).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrEmailTaken
		}
		log.Errorf("failed to create user: %v", err)
		return User{}, fmt.Errorf("failed to create user: %w", err)
	}
	user.EventsOwned = []uuid.UUID{}
	user.EventsJoined = []uuid.UUID{}
	return user, nil
}

func (u *UserRepoImpl) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	return u.getOne(ctx, selectUser+` WHERE u.id = $1`, id)
}

func (u *UserRepoImpl) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return u.getOne(ctx, selectUser+` WHERE u.email = $1`, email)
}

func (u *UserRepoImpl) getOne(ctx context.Context, query string, arg any) (User, error) {
	var user User
	err := u.db.QueryRow(ctx, query, arg).Scan(
		&user.Id,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.EventsOwned,
		&user.EventsJoined,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		log.Debugf("user %v not found", arg)
		return User{}, ErrUserNotFound
	} else if err != nil {
		log.Errorf("failed to get user: %v", err)
		return User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
