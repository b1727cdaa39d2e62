package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eventmate/eventmate/internal/event_bus"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Cache holds event details read by id. Entries are evicted whenever the event changes.
//
// Every Evict advances the generation of the event. A reader takes the generation before loading
// the event from the database and passes it to Fill, which stores nothing if an eviction happened
// in between, so a racing mutation can never be overwritten by the snapshot read before it.
type Cache interface {
	Get(ctx context.Context, id uuid.UUID) (Event, bool, error)
	Generation(ctx context.Context, id uuid.UUID) (int64, error)
	Fill(ctx context.Context, event Event, generation int64) error
	Evict(ctx context.Context, id uuid.UUID) error
}

const (
	eventKeyPrefix      = "eventmate:event:"
	generationKeyPrefix = "eventmate:event-gen:"
	// generationTTL only has to outlive the slowest in-flight fill.
	generationTTL = 24 * time.Hour
)

var errStaleFill = errors.New("event evicted since generation was read")

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, id uuid.UUID) (Event, bool, error) {
	raw, err := c.client.Get(ctx, eventKeyPrefix+id.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return Event{}, false, nil
	} else if err != nil {
		return Event{}, false, fmt.Errorf("failed to read cached event: %w", err)
	}
	var e Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return Event{}, false, fmt.Errorf("failed to decode cached event: %w", err)
	}
	return e, true, nil
}

func (c *RedisCache) Generation(ctx context.Context, id uuid.UUID) (int64, error) {
	gen, err := c.client.Get(ctx, generationKeyPrefix+id.String()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("failed to read cache generation: %w", err)
	}
	return gen, nil
}

// Fill stores the event under WATCH of its generation key. A changed generation, or one that
// changes before EXEC, drops the write.
func (c *RedisCache) Fill(ctx context.Context, event Event, generation int64) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event for cache: %w", err)
	}
	genKey := generationKeyPrefix + event.Id.String()

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, eventKeyPrefix+event.Id.String(), raw, c.ttl)
			return nil
		})
		return err
	}, genKey)

	if errors.Is(err, errStaleFill) || errors.Is(err, redis.TxFailedErr) {
		log.Debugf("skipped caching event %s: %v", event.Id, err)
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to cache event: %w", err)
	}
	return nil
}

func (c *RedisCache) Evict(ctx context.Context, id uuid.UUID) error {
	genKey := generationKeyPrefix + id.String()
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, eventKeyPrefix+id.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to evict cached event: %w", err)
	}
	return nil
}

// NoopCache is used when redis is disabled.
type NoopCache struct{}

func (NoopCache) Get(context.Context, uuid.UUID) (Event, bool, error)  { return Event{}, false, nil }
func (NoopCache) Generation(context.Context, uuid.UUID) (int64, error) { return 0, nil }
func (NoopCache) Fill(context.Context, Event, int64) error             { return nil }
func (NoopCache) Evict(context.Context, uuid.UUID) error               { return nil }

// RegisterCacheInvalidation evicts cached details on every event mutation published on the bus.
func RegisterCacheInvalidation(bus *event_bus.EventBus, cache Cache) {
	event_bus.SubscribeTyped(bus, event_bus.EventUpdatedType, func(e event_bus.EventT[event_bus.EventUpdated]) error {
		return cache.Evict(e.Context(), e.Data.EventId)
	})
	event_bus.SubscribeTyped(bus, event_bus.EventDeletedType, func(e event_bus.EventT[event_bus.EventDeleted]) error {
		return cache.Evict(e.Context(), e.Data.EventId)
	})
	event_bus.SubscribeTyped(bus, event_bus.EventAttendanceChangedType, func(e event_bus.EventT[event_bus.EventAttendanceChanged]) error {
		log.Tracef("attendance of event %s changed, %d tickets sold", e.Data.EventId, e.Data.TicketsSold)
		return cache.Evict(e.Context(), e.Data.EventId)
	})
}
