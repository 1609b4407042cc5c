// Package redis implements store.Store on Redis.
//
// Videos and generation jobs are stored as JSON strings. Each video keeps
// a Set of its job IDs so completion can be evaluated without a scan, and
// provider request ids map back to jobs through dedicated keys. DLQ
// entries are Hashes indexed by a Sorted Set scored on failure time.
//
// Conditional transitions run as optimistic transactions: the entity key
// is WATCHed, read, checked and rewritten under MULTI. A concurrent write
// aborts the transaction and it is retried.
//
// The caller owns the client lifecycle:
//
//	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	s := redis.New(client)
//	if err := s.Ping(ctx); err != nil { ... }
package redis
