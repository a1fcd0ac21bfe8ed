package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Togather-Foundation/event-api/internal/api/handlers"
	"github.com/Togather-Foundation/event-api/internal/cache"
	"github.com/Togather-Foundation/event-api/internal/config"
	"github.com/Togather-Foundation/event-api/internal/storage"
	"github.com/Togather-Foundation/event-api/internal/storage/memory"
	"github.com/Togather-Foundation/event-api/internal/storage/postgres"
)

const connectTimeout = 10 * time.Second

// openRepository connects the record store named by cfg. An empty database
// URL selects the in-memory store, in which case pool is nil. The returned
// close function is always safe to call.
func openRepository(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (storage.Repository, *pgxpool.Pool, func(), error) {
	if cfg.URL == "" {
		logger.Warn().Msg("DATABASE_URL not set; using in-memory record store")
		return memory.NewRepository(memory.NewEventStore()), nil, func() {}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConnections)

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("database ping failed: %w", err)
	}

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	return repo, pool, pool.Close, nil
}

// openCache builds the response cache store. It returns a nil store when
// caching is disabled, and a pinger only for shared backends.
func openCache(ctx context.Context, cfg config.Config, logger zerolog.Logger) (cache.Store, handlers.Pinger, func(), error) {
	switch cfg.Cache.Backend {
	case "memory":
		return cache.NewMemoryStore(cfg.Cache.MaxEntries), nil, func() {}, nil
	case "redis":
		store := cache.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.KeyPrefix)
		closeStore := func() {
			if err := store.Close(); err != nil {
				logger.Warn().Err(err).Msg("close redis cache")
			}
		}

		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			closeStore()
			return nil, nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return store, store, closeStore, nil
	default:
		return nil, nil, func() {}, nil
	}
}
