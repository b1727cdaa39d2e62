package user

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/eventmate/eventmate/internal/auth"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSignup      = errors.New("invalid signup data")

	ErrMissingFields     = fmt.Errorf("%w: all fields are required", ErrInvalidSignup)
	ErrPasswordTooShort  = fmt.Errorf("%w: password must be at least %d characters long", ErrInvalidSignup, minPasswordLength)
	ErrPasswordTooLong   = fmt.Errorf("%w: password must be at most %d bytes long", ErrInvalidSignup, auth.MaxPasswordBytes)
	ErrPasswordsMismatch = fmt.Errorf("%w: passwords do not match", ErrInvalidSignup)
	ErrInvalidEmail      = fmt.Errorf("%w: invalid email format", ErrInvalidSignup)
)

type Service interface {
	Signup(ctx context.Context, req SignupRequest) (User, error)
	Login(ctx context.Context, email, password string) (User, error)
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
	GetCurrentUser(ctx context.Context) (User, error)
}

type UserServiceImpl struct {
	repo Repo
}

func NewUserService(repo Repo) *UserServiceImpl {
	return &UserServiceImpl{repo: repo}
}

func (u *UserServiceImpl) Signup(ctx context.Context, req SignupRequest) (User, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" || req.RetypePassword == "" {
		return User{}, ErrMissingFields
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		return User{}, ErrPasswordTooShort
	}
	if len(req.Password) > auth.MaxPasswordBytes {
		return User{}, ErrPasswordTooLong
	}
	if req.Password != req.RetypePassword {
		return User{}, ErrPasswordsMismatch
	}
	if !emailPattern.MatchString(email) {
		return User{}, ErrInvalidEmail
	}

	if _, err := u.repo.GetUserByEmail(ctx, email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return User{}, err
	}
	created, err := u.repo.CreateUser(ctx, User{
		Id:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return User{}, err
	}
	log.Infof("User %s signed up", created.Id)
	return created, nil
}

func (u *UserServiceImpl) Login(ctx context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return User{}, ErrMissingFields
	}
	found, err := u.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if err := auth.ComparePassword(found.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("failed to verify password: %w", err)
	}
	return found, nil
}

func (u *UserServiceImpl) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	return u.repo.GetUser(ctx, id)
}

// GetCurrentUser reloads the authenticated user so derived event lists are current.
func (u *UserServiceImpl) GetCurrentUser(ctx context.Context) (User, error) {
	userId, err := CurrentId(ctx)
	if err != nil {
		return User{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return u.GetUser(ctx, userId)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
