package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	zencourt "github.com/cladams7905/zencourt-sub006"
	"github.com/cladams7905/zencourt-sub006/dlq"
	"github.com/cladams7905/zencourt-sub006/id"
)

// PushDLQ parks a failed delivery as a Hash and indexes it by failure time.
func (s *Store) PushDLQ(ctx context.Context, entry *dlq.Entry) error {
	eID := entry.ID.String()

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, dlqKey(eID), dlqToMap(entry))
	pipe.ZAdd(ctx, dlqIndexKey, goredis.Z{Score: dlqScore(entry.FailedAt), Member: eID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("zencourt/redis: push dlq: %w", err)
	}
	return nil
}

// ListDLQ returns entries matching opts, oldest first.
func (s *Store) ListDLQ(ctx context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	ids, err := s.client.ZRange(ctx, dlqIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zencourt/redis: list dlq: %w", err)
	}

	entries := make([]*dlq.Entry, 0, len(ids))
	for _, eID := range ids {
		vals, getErr := s.client.HGetAll(ctx, dlqKey(eID)).Result()
		if getErr != nil || len(vals) == 0 {
			continue
		}
		e, convErr := mapToDLQ(vals)
		if convErr != nil {
			s.logger.Warn("skipping unreadable dlq entry",
				slog.String("entry_id", eID),
				slog.String("error", convErr.Error()),
			)
			continue
		}
		if opts.VideoID != "" && e.VideoID != opts.VideoID {
			continue
		}
		entries = append(entries, e)
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(entries) {
			return nil, nil
		}
		entries = entries[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(entries) {
		entries = entries[:opts.Limit]
	}
	return entries, nil
}

// GetDLQ retrieves a DLQ entry by ID.
func (s *Store) GetDLQ(ctx context.Context, entryID id.DLQID) (*dlq.Entry, error) {
	vals, err := s.client.HGetAll(ctx, dlqKey(entryID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("zencourt/redis: get dlq: %w", err)
	}
	if len(vals) == 0 {
		return nil, zencourt.ErrDLQNotFound
	}
	return mapToDLQ(vals)
}

// ReplayDLQ marks a DLQ entry as replayed.
func (s *Store) ReplayDLQ(ctx context.Context, entryID id.DLQID) error {
	key := dlqKey(entryID.String())
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("zencourt/redis: replay dlq exists: %w", err)
	}
	if exists == 0 {
		return zencourt.ErrDLQNotFound
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.client.HSet(ctx, key, "replayed_at", now).Err(); err != nil {
		return fmt.Errorf("zencourt/redis: replay dlq: %w", err)
	}
	return nil
}

// PurgeDLQ removes entries that failed before the given time.
func (s *Store) PurgeDLQ(ctx context.Context, before time.Time) (int64, error) {
	maxScore := "(" + strconv.FormatInt(before.UnixMilli(), 10)
	ids, err := s.client.ZRangeByScore(ctx, dlqIndexKey, &goredis.ZRangeBy{Min: "-inf", Max: maxScore}).Result()
	if err != nil {
		return 0, fmt.Errorf("zencourt/redis: purge dlq range: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pipe := s.client.TxPipeline()
	for _, eID := range ids {
		pipe.Del(ctx, dlqKey(eID))
		pipe.ZRem(ctx, dlqIndexKey, eID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("zencourt/redis: purge dlq: %w", err)
	}
	return int64(len(ids)), nil
}

// CountDLQ returns the number of parked entries.
func (s *Store) CountDLQ(ctx context.Context) (int64, error) {
	n, err := s.client.ZCard(ctx, dlqIndexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("zencourt/redis: count dlq: %w", err)
	}
	return n, nil
}

func dlqScore(t time.Time) float64 { return float64(t.UnixMilli()) }

func dlqToMap(e *dlq.Entry) map[string]any {
	m := map[string]any{
		"id":          e.ID.String(),
		"delivery_id": e.DeliveryID.String(),
		"url":         e.URL,
		"payload":     string(e.Payload),
		"error":       e.Error,
		"attempts":    strconv.Itoa(e.Attempts),
		"job_id":      e.JobID,
		"video_id":    e.VideoID,
		"failed_at":   e.FailedAt.UTC().Format(time.RFC3339Nano),
		"created_at":  e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if e.ReplayedAt != nil {
		m["replayed_at"] = e.ReplayedAt.UTC().Format(time.RFC3339Nano)
	}
	return m
}

func mapToDLQ(vals map[string]string) (*dlq.Entry, error) {
	entryID, err := id.ParseDLQID(vals["id"])
	if err != nil {
		return nil, fmt.Errorf("zencourt/redis: parse dlq id: %w", err)
	}
	e := &dlq.Entry{
		ID:      entryID,
		URL:     vals["url"],
		Payload: []byte(vals["payload"]),
		Error:   vals["error"],
		JobID:   vals["job_id"],
		VideoID: vals["video_id"],
	}
	if raw := vals["delivery_id"]; raw != "" {
		if e.DeliveryID, err = id.ParseDeliveryID(raw); err != nil {
			return nil, fmt.Errorf("zencourt/redis: parse delivery id: %w", err)
		}
	}
	if e.Attempts, err = strconv.Atoi(vals["attempts"]); err != nil {
		return nil, fmt.Errorf("zencourt/redis: parse attempts: %w", err)
	}
	if e.FailedAt, err = time.Parse(time.RFC3339Nano, vals["failed_at"]); err != nil {
		return nil, fmt.Errorf("zencourt/redis: parse failed_at: %w", err)
	}
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, vals["created_at"]); err != nil {
		return nil, fmt.Errorf("zencourt/redis: parse created_at: %w", err)
	}
	if raw := vals["replayed_at"]; raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("zencourt/redis: parse replayed_at: %w", err)
		}
		e.ReplayedAt = &t
	}
	return e, nil
}
