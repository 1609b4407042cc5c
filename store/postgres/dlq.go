package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	zencourt "github.com/cladams7905/zencourt-sub006"
	"github.com/cladams7905/zencourt-sub006/dlq"
	"github.com/cladams7905/zencourt-sub006/id"
)

const dlqColumns = `
	id, delivery_id, url, payload, error, attempts, job_id, video_id,
	failed_at, replayed_at, created_at`

// PushDLQ parks a failed delivery.
func (s *Store) PushDLQ(ctx context.Context, entry *dlq.Entry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO zencourt_webhook_dlq (`+dlqColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID.String(), nullable(entry.DeliveryID.String()), entry.URL, entry.Payload,
		entry.Error, entry.Attempts, entry.JobID, entry.VideoID,
		entry.FailedAt, entry.ReplayedAt, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("zencourt/postgres: push dlq: %w", err)
	}
	return nil
}

// ListDLQ returns entries matching opts, oldest first.
func (s *Store) ListDLQ(ctx context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	query := `SELECT ` + dlqColumns + ` FROM zencourt_webhook_dlq WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.VideoID != "" {
		query += fmt.Sprintf(" AND video_id = $%d", argIdx)
		args = append(args, opts.VideoID)
		argIdx++
	}

	query += " ORDER BY failed_at ASC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("zencourt/postgres: list dlq: %w", err)
	}
	defer rows.Close()

	var entries []*dlq.Entry
	for rows.Next() {
		e, scanErr := scanDLQ(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("zencourt/postgres: scan dlq row: %w", scanErr)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("zencourt/postgres: iterate dlq rows: %w", err)
	}
	return entries, nil
}

// GetDLQ retrieves an entry by ID.
func (s *Store) GetDLQ(ctx context.Context, entryID id.DLQID) (*dlq.Entry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+dlqColumns+` FROM zencourt_webhook_dlq WHERE id = $1`,
		entryID.String(),
	)
	e, err := scanDLQ(row)
	if err != nil {
		if isNoRows(err) {
			return nil, zencourt.ErrDLQNotFound
		}
		return nil, fmt.Errorf("zencourt/postgres: get dlq: %w", err)
	}
	return e, nil
}

// ReplayDLQ marks an entry as replayed.
func (s *Store) ReplayDLQ(ctx context.Context, entryID id.DLQID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE zencourt_webhook_dlq SET replayed_at = NOW() WHERE id = $1`,
		entryID.String(),
	)
	if err != nil {
		return fmt.Errorf("zencourt/postgres: replay dlq: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return zencourt.ErrDLQNotFound
	}
	return nil
}

// PurgeDLQ removes entries that failed before the given time.
func (s *Store) PurgeDLQ(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM zencourt_webhook_dlq WHERE failed_at < $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("zencourt/postgres: purge dlq: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountDLQ returns the number of parked entries.
func (s *Store) CountDLQ(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM zencourt_webhook_dlq`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("zencourt/postgres: count dlq: %w", err)
	}
	return count, nil
}

func scanDLQ(row pgx.Row) (*dlq.Entry, error) {
	var (
		e          dlq.Entry
		idStr      string
		deliveryID *string
	)
	err := row.Scan(
		&idStr, &deliveryID, &e.URL, &e.Payload, &e.Error, &e.Attempts,
		&e.JobID, &e.VideoID, &e.FailedAt, &e.ReplayedAt, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	parsedID, err := id.ParseDLQID(idStr)
	if err != nil {
		return nil, fmt.Errorf("zencourt/postgres: parse dlq id %q: %w", idStr, err)
	}
	e.ID = parsedID

	if deliveryID != nil {
		parsed, err := id.ParseDeliveryID(*deliveryID)
		if err != nil {
			return nil, fmt.Errorf("zencourt/postgres: parse delivery id %q: %w", *deliveryID, err)
		}
		e.DeliveryID = parsed
	}
	return &e, nil
}
