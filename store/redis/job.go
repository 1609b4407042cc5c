package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	zencourt "github.com/cladams7905/zencourt-sub006"
	"github.com/cladams7905/zencourt-sub006/clip"
)

// SaveJob inserts or replaces a generation job and indexes it under its
// video and request id.
func (s *Store) SaveJob(ctx context.Context, j *clip.GenerationJob) error {
	cp := *j
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	if cp.Status == "" {
		cp.Status = clip.StatusQueued
	}
	raw, err := json.Marshal(&cp)
	if err != nil {
		return fmt.Errorf("zencourt/redis: encode job: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, jobKey(cp.ID), raw, 0)
	pipe.SAdd(ctx, videoJobsKey(cp.VideoID), cp.ID)
	if cp.ProviderRequestID != "" {
		pipe.Set(ctx, requestKey(cp.ProviderRequestID), cp.ID, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("zencourt/redis: save job: %w", err)
	}
	return nil
}

// FindJobsByIDs returns the jobs that exist among ids, in id order.
func (s *Store) FindJobsByIDs(ctx context.Context, ids []string) ([]*clip.GenerationJob, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, jobID := range ids {
		keys[i] = jobKey(jobID)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("zencourt/redis: find jobs: %w", err)
	}

	out := make([]*clip.GenerationJob, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for i, val := range vals {
		str, ok := val.(string)
		if !ok {
			continue // missing
		}
		if _, dup := seen[ids[i]]; dup {
			continue
		}
		seen[ids[i]] = struct{}{}
		var j clip.GenerationJob
		if err := json.Unmarshal([]byte(str), &j); err != nil {
			return nil, fmt.Errorf("zencourt/redis: decode job %s: %w", ids[i], err)
		}
		out = append(out, &j)
	}
	return out, nil
}

// FindJobByID returns a single job.
func (s *Store) FindJobByID(ctx context.Context, jobID string) (*clip.GenerationJob, error) {
	var j clip.GenerationJob
	found, err := getJSON(ctx, s.client, jobKey(jobID), &j)
	if err != nil {
		return nil, fmt.Errorf("zencourt/redis: find job: %w", err)
	}
	if !found {
		return nil, zencourt.ErrJobNotFound
	}
	return &j, nil
}

// FindJobByRequestID resolves a job from the provider's request id.
func (s *Store) FindJobByRequestID(ctx context.Context, requestID string) (*clip.GenerationJob, error) {
	jobID, err := s.client.Get(ctx, requestKey(requestID)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, zencourt.ErrJobNotFound
		}
		return nil, fmt.Errorf("zencourt/redis: resolve request id: %w", err)
	}
	return s.FindJobByID(ctx, jobID)
}

// AttachRequestIDToJob records the provider request id once.
func (s *Store) AttachRequestIDToJob(ctx context.Context, jobID, requestID string) error {
	return s.updateJob(ctx, jobID, requestID, func(*clip.GenerationJob) bool { return false })
}

// MarkJobDispatched attaches the request id and moves a non-terminal job
// to dispatched.
func (s *Store) MarkJobDispatched(ctx context.Context, jobID string, res *clip.DispatchResult) error {
	return s.updateJob(ctx, jobID, res.RequestID, func(j *clip.GenerationJob) bool {
		if !j.Status.IsTerminal() {
			j.Status = clip.StatusDispatched
		}
		j.ProviderName = res.Provider
		return true
	})
}

// MarkJobProcessing moves a non-terminal job to processing.
func (s *Store) MarkJobProcessing(ctx context.Context, jobID string) error {
	return s.updateJob(ctx, jobID, "", func(j *clip.GenerationJob) bool {
		if j.Status.IsTerminal() {
			return false
		}
		j.Status = clip.StatusProcessing
		return true
	})
}

// MarkJobFailed records a failure unless the job is completed or canceled.
func (s *Store) MarkJobFailed(ctx context.Context, jobID, message string) error {
	return s.updateJob(ctx, jobID, "", func(j *clip.GenerationJob) bool {
		if j.Status.IgnoresCallbacks() {
			return false
		}
		j.Status = clip.StatusFailed
		j.Error = message
		return true
	})
}

// MarkJobCompleted records the finished clip. Canceled jobs are rejected
// with zencourt.ErrInvalidState.
func (s *Store) MarkJobCompleted(ctx context.Context, jobID string, c *clip.Completion) error {
	var canceled bool
	err := s.updateJob(ctx, jobID, "", func(j *clip.GenerationJob) bool {
		canceled = j.Status == clip.StatusCanceled
		if canceled {
			return false
		}
		meta := c.Metadata
		j.Status = clip.StatusCompleted
		j.VideoURL = c.VideoURL
		j.ThumbnailURL = c.ThumbnailURL
		j.Result = &meta
		j.Error = ""
		return true
	})
	if err != nil {
		return err
	}
	if canceled {
		return zencourt.ErrInvalidState
	}
	return nil
}

// EvaluateJobCompletion summarizes the video's jobs from current state.
func (s *Store) EvaluateJobCompletion(ctx context.Context, videoID string) (*clip.CompletionStatus, error) {
	ids, err := s.client.SMembers(ctx, videoJobsKey(videoID)).Result()
	if err != nil {
		return nil, fmt.Errorf("zencourt/redis: list video jobs: %w", err)
	}
	jobs, err := s.FindJobsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	statuses := make([]clip.Status, 0, len(jobs))
	for _, j := range jobs {
		if j.VideoID == videoID {
			statuses = append(statuses, j.Status)
		}
	}
	cs := clip.Summarize(statuses)
	return &cs, nil
}

// updateJob applies mutate to a job under WATCH. When requestID is set it
// is attached first under the set-once rule, watching the request key so
// two jobs cannot claim the same id.
func (s *Store) updateJob(ctx context.Context, jobID, requestID string, mutate func(*clip.GenerationJob) bool) error {
	key := jobKey(jobID)
	keys := []string{key}
	if requestID != "" {
		keys = append(keys, requestKey(requestID))
	}

	err := s.watch(ctx, func(tx *goredis.Tx) error {
		var j clip.GenerationJob
		found, err := getJSON(ctx, tx, key, &j)
		if err != nil {
			return err
		}
		if !found {
			return zencourt.ErrJobNotFound
		}

		attach := false
		if requestID != "" && j.ProviderRequestID != requestID {
			if j.ProviderRequestID != "" {
				return zencourt.ErrRequestIDAlreadySet
			}
			owner, err := tx.Get(ctx, requestKey(requestID)).Result()
			if err != nil && !errors.Is(err, goredis.Nil) {
				return err
			}
			if owner != "" && owner != jobID {
				return fmt.Errorf("%w: %s is used by another job", zencourt.ErrRequestIDAlreadySet, requestID)
			}
			j.ProviderRequestID = requestID
			attach = true
		}

		if !mutate(&j) && !attach {
			return nil
		}
		j.UpdatedAt = time.Now().UTC()
		raw, err := json.Marshal(&j)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, raw, 0)
			if attach {
				pipe.Set(ctx, requestKey(requestID), jobID, 0)
			}
			return nil
		})
		return err
	}, keys...)
	if err != nil {
		return wrapErr("update job", err)
	}
	return nil
}
