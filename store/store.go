// Package store defines the aggregate persistence interface. The clip and
// dlq packages each define their own store interface; the composite Store
// composes them. Backends: Postgres, Redis, and Memory.
package store

import (
	"context"

	"github.com/cladams7905/zencourt-sub006/clip"
	"github.com/cladams7905/zencourt-sub006/dlq"
)

// Store is the aggregate persistence interface.
// A single backend (postgres, redis, memory) implements all of it.
type Store interface {
	clip.Store
	dlq.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
