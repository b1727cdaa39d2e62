package database

import (
	"context"
	"fmt"

	"github.com/eventmate/eventmate/internal/config"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// OpenRedis connects to redis when it is enabled. A nil client with a nil error means redis is disabled
// and callers should fall back to their in-process implementations.
func OpenRedis(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	if !cfg.Enabled {
		log.Info("Redis disabled, using in-process cache and token revocation")
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Pass,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	log.Infof("Connected to redis at %s", cfg.Addr)
	return client, nil
}
