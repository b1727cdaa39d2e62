package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/eventmate/eventmate/internal/utils"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Revocations remembers logged-out token ids until the tokens would have expired anyway.
type Revocations interface {
	Revoke(ctx context.Context, tokenId string, until time.Time) error
	IsRevoked(ctx context.Context, tokenId string) (bool, error)
}

const revokedKeyPrefix = "eventmate:revoked:"

type RedisRevocations struct {
	client *redis.Client
	clock  utils.Clock
}

func NewRedisRevocations(client *redis.Client, clock utils.Clock) *RedisRevocations {
	return &RedisRevocations{client: client, clock: clock}
}

func (r *RedisRevocations) Revoke(ctx context.Context, tokenId string, until time.Time) error {
	ttl := until.Sub(r.clock.Now())
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, revokedKeyPrefix+tokenId, 1, ttl).Err(); err != nil {
		log.Errorf("failed to revoke token %s: %v", tokenId, err)
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, tokenId string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKeyPrefix+tokenId).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

// MemoryRevocations is used when redis is disabled. Revocations do not survive a restart
// and are not shared between instances.
type MemoryRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	clock   utils.Clock
}

func NewMemoryRevocations(clock utils.Clock) *MemoryRevocations {
	return &MemoryRevocations{revoked: make(map[string]time.Time), clock: clock}
}

func (m *MemoryRevocations) Revoke(_ context.Context, tokenId string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	for id, exp := range m.revoked {
		if !exp.After(now) {
			delete(m.revoked, id)
		}
	}
	if until.After(now) {
		m.revoked[tokenId] = until
	}
	return nil
}

func (m *MemoryRevocations) IsRevoked(_ context.Context, tokenId string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.revoked[tokenId]
	if !ok {
		return false, nil
	}
	if !exp.After(m.clock.Now()) {
		delete(m.revoked, tokenId)
		return false, nil
	}
	return true, nil
}
