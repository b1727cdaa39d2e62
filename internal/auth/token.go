package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/eventmate/eventmate/internal/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrUnauthorized is returned for every token problem. Callers never learn which check failed.
var ErrUnauthorized = errors.New("unauthorized")

// Session is what a valid token proves about the caller.
type Session struct {
	UserId    uuid.UUID
	TokenId   string
	ExpiresAt time.Time
}

type IssuedToken struct {
	Value     string
	Session   Session
	ExpiresIn time.Duration
}

type TokenIssuer interface {
	Issue(userId uuid.UUID) (IssuedToken, error)
}

type TokenValidator interface {
	Validate(token string) (Session, error)
}

type TokenService interface {
	TokenIssuer
	TokenValidator
}

// Tokens signs and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	clock  utils.Clock
}

func NewTokens(secret string, ttl time.Duration, clock utils.Clock) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, clock: clock}
}

func (t *Tokens) Issue(userId uuid.UUID) (IssuedToken, error) {
	now := t.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userId.String(),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return IssuedToken{
		Value: signed,
		Session: Session{
			UserId:    userId,
			TokenId:   claims.ID,
			ExpiresAt: claims.ExpiresAt.Time,
		},
		ExpiresIn: t.ttl,
	}, nil
}

func (t *Tokens) Validate(token string) (Session, error) {
	if token == "" {
		return Session{}, ErrUnauthorized
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.clock.Now),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	userId, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Session{}, fmt.Errorf("%w: invalid subject", ErrUnauthorized)
	}
	if claims.ID == "" {
		return Session{}, fmt.Errorf("%w: missing token id", ErrUnauthorized)
	}
	return Session{
		UserId:    userId,
		TokenId:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// FromRequest returns the session token from the named cookie, falling back to an
// "Authorization: Bearer" header. Empty when neither is present.
func FromRequest(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
