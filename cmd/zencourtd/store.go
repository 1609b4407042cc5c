package main

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	zencourt "github.com/cladams7905/zencourt-sub006"
	"github.com/cladams7905/zencourt-sub006/store"
	"github.com/cladams7905/zencourt-sub006/store/memory"
	"github.com/cladams7905/zencourt-sub006/store/postgres"
	"github.com/cladams7905/zencourt-sub006/store/redis"
)

// openStore connects the configured backend. The returned close function
// releases everything openStore acquired.
func openStore(ctx context.Context, cfg zencourt.StoreConfig, logger *slog.Logger) (store.Store, func(), error) {
	switch cfg.Driver {
	case "postgres":
		if cfg.PostgresURL == "" {
			return nil, nil, fmt.Errorf("STORE_POSTGRES_URL is required for the postgres driver")
		}
		s, err := postgres.New(ctx, cfg.PostgresURL, postgres.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil

	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		s := redis.New(client, redis.WithLogger(logger))
		return s, func() { _ = client.Close() }, nil

	default:
		return memory.New(), func() {}, nil
	}
}

func openAndMigrate(ctx context.Context, cfg zencourt.StoreConfig, logger *slog.Logger) (store.Store, func(), error) {
	s, closeFn, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}
	if err := s.Ping(ctx); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("ping %s store: %w", cfg.Driver, err)
	}
	if err := s.Migrate(ctx); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("migrate %s store: %w", cfg.Driver, err)
	}
	return s, closeFn, nil
}
