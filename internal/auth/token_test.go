package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eventmate/eventmate/internal/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var issuedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func setupTokens() (*Tokens, *utils.MockClock) {
	clock := &utils.MockClock{FixedNow: issuedAt}
	return NewTokens("test-secret", 7*24*time.Hour, clock), clock
}

func TestTokens_IssueAndValidate(t *testing.T) {
	tokens, _ := setupTokens()
	userId := uuid.New()

	issued, err := tokens.Issue(userId)
	require.NoError(t, err)

	session, err := tokens.Validate(issued.Value)
	require.NoError(t, err)
	assert.Equal(t, userId, session.UserId)
	assert.Equal(t, issued.Session.TokenId, session.TokenId)
	assert.Equal(t, issuedAt.Add(7*24*time.Hour), session.ExpiresAt)
	assert.NotEmpty(t, session.TokenId)
}

func TestTokens_Validate(t *testing.T) {
	t.Run("should reject expired token", func(t *testing.T) {
		tokens, clock := setupTokens()
		issued, err := tokens.Issue(uuid.New())
		require.NoError(t, err)

		clock.Advance(7*24*time.Hour + time.Second)
		_, err = tokens.Validate(issued.Value)

		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("should reject token signed with another secret", func(t *testing.T) {
		tokens, clock := setupTokens()
		other := NewTokens("other-secret", time.Hour, clock)
		issued, err := other.Issue(uuid.New())
		require.NoError(t, err)

		_, err = tokens.Validate(issued.Value)

		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("should reject unsigned token", func(t *testing.T) {
		tokens, _ := setupTokens()
		claims := jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
		}
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = tokens.Validate(unsigned)

		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("should reject token without subject id", func(t *testing.T) {
		tokens, _ := setupTokens()
		claims := jwt.RegisteredClaims{
			Subject:   "not-a-uuid",
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = tokens.Validate(signed)

		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("should reject garbage and empty values", func(t *testing.T) {
		tokens, _ := setupTokens()

		_, err := tokens.Validate("not.a.token")
		assert.ErrorIs(t, err, ErrUnauthorized)

		_, err = tokens.Validate("")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestFromRequest(t *testing.T) {
	t.Run("should prefer cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: "jwt", Value: "from-cookie"})
		r.Header.Set("Authorization", "Bearer from-header")

		assert.Equal(t, "from-cookie", FromRequest(r, "jwt"))
	})

	t.Run("should fall back to bearer header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer from-header")

		assert.Equal(t, "from-header", FromRequest(r, "jwt"))
	})

	t.Run("should return empty without credentials", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

		assert.Empty(t, FromRequest(r, "jwt"))
	})
}
