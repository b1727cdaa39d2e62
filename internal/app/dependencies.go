package app

import (
	"github.com/eventmate/eventmate/internal/auth"
	"github.com/eventmate/eventmate/internal/config"
	"github.com/eventmate/eventmate/internal/event_bus"
	"github.com/eventmate/eventmate/internal/utils"
	"github.com/eventmate/eventmate/pkg/event"
	"github.com/eventmate/eventmate/pkg/user"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Clock    utils.Clock
	EventBus *event_bus.EventBus

	Tokens      *auth.Tokens
	Revocations auth.Revocations

	UserService user.Service
	UserHandler *user.Handler

	EventCache   event.Cache
	EventService event.Service
	EventHandler *event.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
// rdb may be nil, in which case in-process fallbacks are used.
func BuildDependencies(db *pgxpool.Pool, rdb *redis.Client, cfg config.Application) *Dependencies {
	return buildDependencies(user.NewUserRepo(db), event.NewRepo(db), rdb, cfg)
}

func buildDependencies(userRepo user.Repo, eventRepo event.Repository, rdb *redis.Client, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.Clock = utils.SystemClock{}
	deps.EventBus = event_bus.NewEventBus()

	deps.Tokens = auth.NewTokens(cfg.Auth.JwtSecret, cfg.Auth.TokenTTL, deps.Clock)
	if rdb != nil {
		deps.Revocations = auth.NewRedisRevocations(rdb, deps.Clock)
		deps.EventCache = event.NewRedisCache(rdb, cfg.Redis.EventTTL)
	} else {
		deps.Revocations = auth.NewMemoryRevocations(deps.Clock)
		deps.EventCache = event.NoopCache{}
	}

	deps.UserService = user.NewUserService(userRepo)
	deps.UserHandler = user.NewHandler(deps.UserService, deps.Tokens, deps.Revocations, user.CookieSettings{
		Name:   cfg.Auth.CookieName,
		Secure: cfg.Auth.SecureCookie,
	})

	event.RegisterCacheInvalidation(deps.EventBus, deps.EventCache)
	deps.EventService = event.NewService(eventRepo, deps.EventCache, deps.EventBus, deps.Clock)
	deps.EventHandler = event.NewHandler(deps.EventService)

	return deps
}
