package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	zencourt "github.com/cladams7905/zencourt-sub006"
	"github.com/cladams7905/zencourt-sub006/clip"
)

// SaveVideo inserts or replaces a video.
func (s *Store) SaveVideo(ctx context.Context, v *clip.Video) error {
	cp := *v
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	if cp.Status == "" {
		cp.Status = clip.VideoDraft
	}
	raw, err := json.Marshal(&cp)
	if err != nil {
		return fmt.Errorf("zencourt/redis: encode video: %w", err)
	}
	if err := s.client.Set(ctx, videoKey(v.ID), raw, 0).Err(); err != nil {
		return fmt.Errorf("zencourt/redis: save video: %w", err)
	}
	return nil
}

// FindVideoByID returns a single video.
func (s *Store) FindVideoByID(ctx context.Context, videoID string) (*clip.Video, error) {
	var v clip.Video
	found, err := getJSON(ctx, s.client, videoKey(videoID), &v)
	if err != nil {
		return nil, fmt.Errorf("zencourt/redis: find video: %w", err)
	}
	if !found {
		return nil, zencourt.ErrVideoNotFound
	}
	return &v, nil
}

// MarkVideoProcessing moves a non-terminal video to processing.
func (s *Store) MarkVideoProcessing(ctx context.Context, videoID string) error {
	_, err := s.updateVideo(ctx, videoID, func(v *clip.Video) bool {
		if v.Status.IsTerminal() {
			return false
		}
		v.Status = clip.VideoProcessing
		return true
	})
	return err
}

// MarkVideoFailed moves a non-terminal video to failed.
func (s *Store) MarkVideoFailed(ctx context.Context, videoID, message string) (bool, error) {
	return s.updateVideo(ctx, videoID, func(v *clip.Video) bool {
		if v.Status.IsTerminal() {
			return false
		}
		v.Status = clip.VideoFailed
		v.Message = &message
		return true
	})
}

// MarkVideoCompleted moves a video that is not yet completed to completed.
func (s *Store) MarkVideoCompleted(ctx context.Context, videoID string, message *string) (bool, error) {
	return s.updateVideo(ctx, videoID, func(v *clip.Video) bool {
		if v.Status == clip.VideoCompleted {
			return false
		}
		v.Status = clip.VideoCompleted
		v.Message = message
		return true
	})
}

// updateVideo applies mutate under WATCH. mutate reports whether it
// changed anything; unchanged videos are not rewritten.
func (s *Store) updateVideo(ctx context.Context, videoID string, mutate func(*clip.Video) bool) (bool, error) {
	key := videoKey(videoID)
	var changed bool
	err := s.watch(ctx, func(tx *goredis.Tx) error {
		changed = false
		var v clip.Video
		found, err := getJSON(ctx, tx, key, &v)
		if err != nil {
			return err
		}
		if !found {
			return zencourt.ErrVideoNotFound
		}
		if !mutate(&v) {
			return nil
		}
		v.UpdatedAt = time.Now().UTC()
		raw, err := json.Marshal(&v)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, raw, 0)
			return nil
		})
		if err == nil {
			changed = true
		}
		return err
	}, key)
	if err != nil {
		return false, wrapErr("update video", err)
	}
	return changed, nil
}
