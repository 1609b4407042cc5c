// Package postgres implements store.Store on PostgreSQL through
// pgx/v5 and pgxpool. Terminal transitions are conditional UPDATEs, so
// concurrent callers racing on the same row see exactly one winner.
package postgres
