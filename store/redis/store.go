package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	zencourt "github.com/cladams7905/zencourt-sub006"
	"github.com/cladams7905/zencourt-sub006/clip"
	"github.com/cladams7905/zencourt-sub006/dlq"
)

// Compile-time interface checks.
var (
	_ clip.Store = (*Store)(nil)
	_ dlq.Store  = (*Store)(nil)
)

// maxTxRetries bounds how often an optimistic transaction is retried after
// a concurrent write.
const maxTxRetries = 16

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store implements the composite store.Store interface backed by Redis.
type Store struct {
	client goredis.UniversalClient
	logger *slog.Logger
}

// New creates a new Redis-backed store. The caller owns the Redis client
// lifecycle.
func New(client goredis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Client returns the underlying Redis client.
func (s *Store) Client() goredis.UniversalClient { return s.client }

// Migrate is a no-op for Redis (schemaless).
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close is a no-op. The caller owns the Redis client lifecycle.
func (s *Store) Close() error { return nil }

// watch runs fn as an optimistic transaction over keys, retrying when a
// watched key changes before EXEC.
func (s *Store) watch(ctx context.Context, fn func(tx *goredis.Tx) error, keys ...string) error {
	for range maxTxRetries {
		err := s.client.Watch(ctx, fn, keys...)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("zencourt/redis: transaction on %v kept conflicting", keys)
}

// getter is satisfied by clients and by *goredis.Tx inside WATCH.
type getter interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
}

// getJSON loads key into v. found is false when the key does not exist.
func getJSON(ctx context.Context, c getter, key string, v any) (found bool, err error) {
	raw, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// wrapErr leaves zencourt sentinels untouched and prefixes everything else.
func wrapErr(op string, err error) error {
	for _, sentinel := range []error{
		zencourt.ErrJobNotFound,
		zencourt.ErrVideoNotFound,
		zencourt.ErrDLQNotFound,
		zencourt.ErrRequestIDAlreadySet,
		zencourt.ErrInvalidState,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf("zencourt/redis: %s: %w", op, err)
}
