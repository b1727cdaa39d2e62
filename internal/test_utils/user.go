package test_utils

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// InsertUser stores a user row directly so repository tests can reference it through foreign keys.
func InsertUser(t *testing.T, ctx context.Context, db *pgxpool.Pool, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	email := fmt.Sprintf("%s-%s@example.com", name, id.String()[:8])
	_, err := db.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash) VALUES ($1, $2, $3, $4)`,
		id, name, email, "not-a-real-hash")
	require.NoError(t, err)
	return id
}
