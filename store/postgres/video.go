package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	zencourt "github.com/cladams7905/zencourt-sub006"
	"github.com/cladams7905/zencourt-sub006/clip"
)

const videoColumns = `id, listing_id, user_id, status, message, callback_url, created_at, updated_at`

// SaveVideo inserts or replaces a video.
func (s *Store) SaveVideo(ctx context.Context, v *clip.Video) error {
	status := v.Status
	if status == "" {
		status = clip.VideoDraft
	}
	created := v.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO zencourt_videos (`+videoColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (id) DO UPDATE SET
			listing_id = EXCLUDED.listing_id,
			user_id = EXCLUDED.user_id,
			status = EXCLUDED.status,
			message = EXCLUDED.message,
			callback_url = EXCLUDED.callback_url,
			updated_at = NOW()`,
		v.ID, v.ListingID, v.UserID, string(status), v.Message, v.CallbackURL, created,
	)
	if err != nil {
		return fmt.Errorf("zencourt/postgres: save video: %w", err)
	}
	return nil
}

// FindVideoByID returns a single video.
func (s *Store) FindVideoByID(ctx context.Context, videoID string) (*clip.Video, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+videoColumns+` FROM zencourt_videos WHERE id = $1`, videoID)
	v, err := scanVideo(row)
	if err != nil {
		if isNoRows(err) {
			return nil, zencourt.ErrVideoNotFound
		}
		return nil, fmt.Errorf("zencourt/postgres: find video: %w", err)
	}
	return v, nil
}

// MarkVideoProcessing moves a non-terminal video to processing.
func (s *Store) MarkVideoProcessing(ctx context.Context, videoID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE zencourt_videos SET status = 'processing', updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('completed', 'failed')`,
		videoID,
	)
	if err != nil {
		return fmt.Errorf("zencourt/postgres: mark video processing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.videoExists(ctx, videoID)
	}
	return nil
}

// MarkVideoFailed moves a non-terminal video to failed.
func (s *Store) MarkVideoFailed(ctx context.Context, videoID, message string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE zencourt_videos SET status = 'failed', message = $2, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('completed', 'failed')`,
		videoID, message,
	)
	if err != nil {
		return false, fmt.Errorf("zencourt/postgres: mark video failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, s.videoExists(ctx, videoID)
	}
	return true, nil
}

// MarkVideoCompleted moves a video that is not yet completed to completed.
func (s *Store) MarkVideoCompleted(ctx context.Context, videoID string, message *string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE zencourt_videos SET status = 'completed', message = $2, updated_at = NOW()
		WHERE id = $1 AND status <> 'completed'`,
		videoID, message,
	)
	if err != nil {
		return false, fmt.Errorf("zencourt/postgres: mark video completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, s.videoExists(ctx, videoID)
	}
	return true, nil
}

// videoExists returns ErrVideoNotFound for a missing video and nil
// otherwise. It disambiguates conditional updates that matched no row.
func (s *Store) videoExists(ctx context.Context, videoID string) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM zencourt_videos WHERE id = $1)`, videoID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("zencourt/postgres: check video: %w", err)
	}
	if !exists {
		return zencourt.ErrVideoNotFound
	}
	return nil
}

func scanVideo(row pgx.Row) (*clip.Video, error) {
	var (
		v      clip.Video
		status string
	)
	if err := row.Scan(&v.ID, &v.ListingID, &v.UserID, &status, &v.Message,
		&v.CallbackURL, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	v.Status = clip.VideoStatus(status)
	return &v, nil
}
