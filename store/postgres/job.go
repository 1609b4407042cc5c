package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	zencourt "github.com/cladams7905/zencourt-sub006"
	"github.com/cladams7905/zencourt-sub006/clip"
)

const jobColumns = `
	id, video_id, status, provider_request_id, provider_name, settings, result,
	video_url, thumbnail_url, error, created_at, updated_at`

// SaveJob inserts or replaces a generation job.
func (s *Store) SaveJob(ctx context.Context, j *clip.GenerationJob) error {
	status := j.Status
	if status == "" {
		status = clip.StatusQueued
	}
	created := j.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	settings, err := json.Marshal(j.Settings)
	if err != nil {
		return fmt.Errorf("zencourt/postgres: encode settings: %w", err)
	}
	var result []byte
	if j.Result != nil {
		if result, err = json.Marshal(j.Result); err != nil {
			return fmt.Errorf("zencourt/postgres: encode result: %w", err)
		}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO zencourt_generation_jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (id) DO UPDATE SET
			video_id = EXCLUDED.video_id,
			status = EXCLUDED.status,
			provider_request_id = EXCLUDED.provider_request_id,
			provider_name = EXCLUDED.provider_name,
			settings = EXCLUDED.settings,
			result = EXCLUDED.result,
			video_url = EXCLUDED.video_url,
			thumbnail_url = EXCLUDED.thumbnail_url,
			error = EXCLUDED.error,
			updated_at = NOW()`,
		j.ID, j.VideoID, string(status), nullable(j.ProviderRequestID), j.ProviderName,
		settings, result, j.VideoURL, j.ThumbnailURL, j.Error, created,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: %s", zencourt.ErrRequestIDAlreadySet, j.ProviderRequestID)
		}
		return fmt.Errorf("zencourt/postgres: save job: %w", err)
	}
	return nil
}

// FindJobsByIDs returns the jobs that exist among ids, in id order.
func (s *Store) FindJobsByIDs(ctx context.Context, ids []string) ([]*clip.GenerationJob, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM zencourt_generation_jobs WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("zencourt/postgres: find jobs: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*clip.GenerationJob, len(ids))
	for rows.Next() {
		j, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("zencourt/postgres: scan job row: %w", scanErr)
		}
		byID[j.ID] = j
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("zencourt/postgres: iterate job rows: %w", err)
	}

	out := make([]*clip.GenerationJob, 0, len(byID))
	for _, jobID := range ids {
		if j, ok := byID[jobID]; ok {
			out = append(out, j)
			delete(byID, jobID)
		}
	}
	return out, nil
}

// FindJobByID returns a single job.
func (s *Store) FindJobByID(ctx context.Context, jobID string) (*clip.GenerationJob, error) {
	return s.findJob(ctx, `WHERE id = $1`, jobID)
}

// FindJobByRequestID resolves a job from the provider's request id.
func (s *Store) FindJobByRequestID(ctx context.Context, requestID string) (*clip.GenerationJob, error) {
	return s.findJob(ctx, `WHERE provider_request_id = $1`, requestID)
}

func (s *Store) findJob(ctx context.Context, where string, arg string) (*clip.GenerationJob, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM zencourt_generation_jobs `+where, arg)
	j, err := scanJob(row)
	if err != nil {
		if isNoRows(err) {
			return nil, zencourt.ErrJobNotFound
		}
		return nil, fmt.Errorf("zencourt/postgres: find job: %w", err)
	}
	return j, nil
}

// AttachRequestIDToJob records the provider request id once.
func (s *Store) AttachRequestIDToJob(ctx context.Context, jobID, requestID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE zencourt_generation_jobs
		SET provider_request_id = $2, updated_at = NOW()
		WHERE id = $1 AND (provider_request_id IS NULL OR provider_request_id = $2)`,
		jobID, requestID,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: %s is used by another job", zencourt.ErrRequestIDAlreadySet, requestID)
		}
		return fmt.Errorf("zencourt/postgres: attach request id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if err := s.jobExists(ctx, jobID); err != nil {
			return err
		}
		return zencourt.ErrRequestIDAlreadySet
	}
	return nil
}

// MarkJobDispatched attaches the request id and moves a non-terminal job
// to dispatched in one transaction.
func (s *Store) MarkJobDispatched(ctx context.Context, jobID string, res *clip.DispatchResult) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var current *string
		err := tx.QueryRow(ctx,
			`SELECT provider_request_id FROM zencourt_generation_jobs WHERE id = $1 FOR UPDATE`,
			jobID,
		).Scan(&current)
		if err != nil {
			if isNoRows(err) {
				return zencourt.ErrJobNotFound
			}
			return fmt.Errorf("zencourt/postgres: lock job: %w", err)
		}
		if current != nil && *current != res.RequestID {
			return zencourt.ErrRequestIDAlreadySet
		}

		_, err = tx.Exec(ctx, `
			UPDATE zencourt_generation_jobs SET
				provider_request_id = $2,
				provider_name = $3,
				status = CASE WHEN status IN ('completed', 'failed', 'canceled') THEN status ELSE 'dispatched' END,
				updated_at = NOW()
			WHERE id = $1`,
			jobID, res.RequestID, res.Provider,
		)
		if err != nil {
			if isDuplicateKey(err) {
				return fmt.Errorf("%w: %s is used by another job", zencourt.ErrRequestIDAlreadySet, res.RequestID)
			}
			return fmt.Errorf("zencourt/postgres: mark job dispatched: %w", err)
		}
		return nil
	})
}

// MarkJobProcessing moves a non-terminal job to processing.
func (s *Store) MarkJobProcessing(ctx context.Context, jobID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE zencourt_generation_jobs SET status = 'processing', updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('completed', 'failed', 'canceled')`,
		jobID,
	)
	if err != nil {
		return fmt.Errorf("zencourt/postgres: mark job processing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.jobExists(ctx, jobID)
	}
	return nil
}

// MarkJobFailed records a failure unless the job is completed or canceled.
func (s *Store) MarkJobFailed(ctx context.Context, jobID, message string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE zencourt_generation_jobs SET status = 'failed', error = $2, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('completed', 'canceled')`,
		jobID, message,
	)
	if err != nil {
		return fmt.Errorf("zencourt/postgres: mark job failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.jobExists(ctx, jobID)
	}
	return nil
}

// MarkJobCompleted records the finished clip. A canceled job is left alone
// and reported as zencourt.ErrInvalidState.
func (s *Store) MarkJobCompleted(ctx context.Context, jobID string, c *clip.Completion) error {
	meta, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("zencourt/postgres: encode result: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE zencourt_generation_jobs SET
			status = 'completed', video_url = $2, thumbnail_url = $3,
			result = $4, error = '', updated_at = NOW()
		WHERE id = $1 AND status <> 'canceled'`,
		jobID, c.VideoURL, c.ThumbnailURL, meta,
	)
	if err != nil {
		return fmt.Errorf("zencourt/postgres: mark job completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if err := s.jobExists(ctx, jobID); err != nil {
			return err
		}
		return zencourt.ErrInvalidState
	}
	return nil
}

// EvaluateJobCompletion summarizes the video's jobs from current rows.
func (s *Store) EvaluateJobCompletion(ctx context.Context, videoID string) (*clip.CompletionStatus, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT status FROM zencourt_generation_jobs WHERE video_id = $1`, videoID)
	if err != nil {
		return nil, fmt.Errorf("zencourt/postgres: evaluate completion: %w", err)
	}
	statuses, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (clip.Status, error) {
		var st string
		err := row.Scan(&st)
		return clip.Status(st), err
	})
	if err != nil {
		return nil, fmt.Errorf("zencourt/postgres: scan statuses: %w", err)
	}
	cs := clip.Summarize(statuses)
	return &cs, nil
}

func (s *Store) jobExists(ctx context.Context, jobID string) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM zencourt_generation_jobs WHERE id = $1)`, jobID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("zencourt/postgres: check job: %w", err)
	}
	if !exists {
		return zencourt.ErrJobNotFound
	}
	return nil
}

func scanJob(row pgx.Row) (*clip.GenerationJob, error) {
	var (
		j         clip.GenerationJob
		status    string
		requestID *string
		settings  []byte
		result    []byte
	)
	err := row.Scan(
		&j.ID, &j.VideoID, &status, &requestID, &j.ProviderName, &settings, &result,
		&j.VideoURL, &j.ThumbnailURL, &j.Error, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	j.Status = clip.Status(status)
	if requestID != nil {
		j.ProviderRequestID = *requestID
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &j.Settings); err != nil {
			return nil, fmt.Errorf("decode settings: %w", err)
		}
	}
	if len(result) > 0 {
		var meta clip.ResultMetadata
		if err := json.Unmarshal(result, &meta); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		j.Result = &meta
	}
	return &j, nil
}
