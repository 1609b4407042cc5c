// Package completion finishes a clip once its provider reports success
// and settles the parent video when every clip is terminal.
package completion

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	zencourt "github.com/cladams7905/zencourt-sub006"
	"github.com/cladams7905/zencourt-sub006/clip"
	"github.com/cladams7905/zencourt-sub006/ext"
	"github.com/cladams7905/zencourt-sub006/storage"
)

// AllFailedMessage is recorded when every clip of a video failed.
const AllFailedMessage = "All clips failed to generate."

// Notifier sends status webhooks. *webhook.Notifier satisfies it.
type Notifier interface {
	NotifyJob(ctx context.Context, j *clip.GenerationJob)
	NotifyVideoCompleted(ctx context.Context, videoID string, message *string)
	NotifyVideoFailed(ctx context.Context, videoID, message string)
}

// Source is the provider output for one clip.
type Source struct {
	VideoURL     string
	ThumbnailURL string
	// ExpectedSize is the provider-reported byte size, 0 when unknown.
	ExpectedSize int64
}

// Orchestrator completes clips.
type Orchestrator struct {
	store      clip.Store
	storage    storage.Storage
	notifier   Notifier
	extensions *ext.Registry
	logger     *slog.Logger

	evaluations singleflight.Group
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNotifier sets the webhook notifier.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithExtensions sets the registry lifecycle events are emitted through.
func WithExtensions(r *ext.Registry) Option {
	return func(o *Orchestrator) { o.extensions = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an Orchestrator.
func New(store clip.Store, st storage.Storage, opts ...Option) (*Orchestrator, error) {
	if st == nil {
		return nil, zencourt.ErrNoStorage
	}
	o := &Orchestrator{
		store:   store,
		storage: st,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.extensions == nil {
		o.extensions = ext.NewRegistry(o.logger)
	}
	if o.notifier == nil {
		o.notifier = nopNotifier{}
	}
	return o, nil
}

// VideoKey is the object key of a finished clip.
func VideoKey(videoID, jobID string) string {
	return fmt.Sprintf("videos/%s/%s.mp4", videoID, jobID)
}

// ThumbnailKey is the object key of a clip thumbnail.
func ThumbnailKey(videoID, jobID string) string {
	return fmt.Sprintf("videos/%s/%s.jpg", videoID, jobID)
}

// Complete downloads the provider output, stores it, marks the job
// completed, notifies the caller and re-evaluates the video. Errors up to
// and including MarkJobCompleted leave the job untouched; the caller
// decides how to record them.
func (o *Orchestrator) Complete(ctx context.Context, j *clip.GenerationJob, src Source) (*clip.GenerationJob, error) {
	dl, err := o.storage.DownloadBufferWithRetry(ctx, src.VideoURL, storage.DownloadOptions{
		ExpectedSize: src.ExpectedSize,
	})
	if err != nil {
		return nil, fmt.Errorf("download video: %w", err)
	}

	meta := map[string]string{
		"job-id":   j.ID,
		"video-id": j.VideoID,
		"checksum": dl.Checksum,
	}
	videoURL, err := o.storage.UploadFile(ctx, &storage.UploadInput{
		Key:         VideoKey(j.VideoID, j.ID),
		Body:        dl.Body,
		ContentType: "video/mp4",
		Metadata:    meta,
	})
	if err != nil {
		return nil, fmt.Errorf("upload video: %w", err)
	}

	thumbURL := o.thumbnail(ctx, j, src.ThumbnailURL)

	c := &clip.Completion{
		VideoURL:     videoURL,
		ThumbnailURL: thumbURL,
		Metadata: clip.ResultMetadata{
			DurationSeconds: j.Settings.DurationSeconds,
			FileSize:        int64(len(dl.Body)),
			Checksum:        dl.Checksum,
			ThumbnailURL:    thumbURL,
			Orientation:     j.Settings.Orientation,
		},
	}
	if err := o.store.MarkJobCompleted(ctx, j.ID, c); err != nil {
		return nil, fmt.Errorf("mark job completed: %w", err)
	}

	done, err := o.store.FindJobByID(ctx, j.ID)
	if err != nil {
		return nil, fmt.Errorf("reload job: %w", err)
	}
	o.logger.Info("generation job completed",
		slog.String("job_id", j.ID),
		slog.String("video_id", j.VideoID),
		slog.Int64("file_size", c.Metadata.FileSize),
	)
	o.extensions.EmitGenerationCompleted(ctx, done)
	o.notifier.NotifyJob(ctx, done)

	if _, err := o.Evaluate(ctx, j.VideoID); err != nil {
		o.logger.Error("completion evaluation failed",
			slog.String("video_id", j.VideoID),
			slog.String("error", err.Error()),
		)
	}
	return done, nil
}

// thumbnail uploads the first obtainable thumbnail, trying the provider
// URL and then the job's first source image. It returns "" when neither
// works.
func (o *Orchestrator) thumbnail(ctx context.Context, j *clip.GenerationJob, providerURL string) string {
	for _, u := range []string{providerURL, j.FirstSourceImage()} {
		if u == "" {
			continue
		}
		dl, err := o.storage.DownloadBufferWithRetry(ctx, u, storage.DownloadOptions{})
		if err != nil {
			o.logger.Warn("thumbnail download failed",
				slog.String("job_id", j.ID),
				slog.String("url", u),
				slog.String("error", err.Error()),
			)
			continue
		}
		contentType := dl.ContentType
		if contentType == "" {
			contentType = "image/jpeg"
		}
		stored, err := o.storage.UploadFile(ctx, &storage.UploadInput{
			Key:         ThumbnailKey(j.VideoID, j.ID),
			Body:        dl.Body,
			ContentType: contentType,
			Metadata:    map[string]string{"job-id": j.ID, "video-id": j.VideoID},
		})
		if err != nil {
			o.logger.Warn("thumbnail upload failed",
				slog.String("job_id", j.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		return stored
	}
	return ""
}

// Evaluate recomputes the video's status from persisted job state and
// settles it once every job is terminal. Concurrent calls for the same
// video share one evaluation, and the conditional store transition makes
// repeated evaluations no-ops.
func (o *Orchestrator) Evaluate(ctx context.Context, videoID string) (*clip.CompletionStatus, error) {
	v, err, _ := o.evaluations.Do(videoID, func() (any, error) {
		return o.evaluate(context.WithoutCancel(ctx), videoID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*clip.CompletionStatus), nil //nolint:errcheck // evaluate always returns *clip.CompletionStatus
}

func (o *Orchestrator) evaluate(ctx context.Context, videoID string) (*clip.CompletionStatus, error) {
	status, err := o.store.EvaluateJobCompletion(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("evaluate job completion: %w", err)
	}
	if !status.AllCompleted {
		return status, nil
	}

	if status.Completed == 0 {
		changed, err := o.store.MarkVideoFailed(ctx, videoID, AllFailedMessage)
		if err != nil {
			return nil, fmt.Errorf("mark video failed: %w", err)
		}
		if changed {
			o.logger.Warn("video failed", slog.String("video_id", videoID))
			o.extensions.EmitVideoFailed(ctx, videoID, AllFailedMessage)
			o.notifier.NotifyVideoFailed(ctx, videoID, AllFailedMessage)
		}
		return status, nil
	}

	msg := clip.FailureSummary(status.FailedJobs)
	changed, err := o.store.MarkVideoCompleted(ctx, videoID, msg)
	if err != nil {
		return nil, fmt.Errorf("mark video completed: %w", err)
	}
	if changed {
		o.logger.Info("video completed",
			slog.String("video_id", videoID),
			slog.Int("completed", status.Completed),
			slog.Int("failed", status.FailedJobs),
		)
		o.extensions.EmitVideoCompleted(ctx, videoID, msg)
		o.notifier.NotifyVideoCompleted(ctx, videoID, msg)
	}
	return status, nil
}

type nopNotifier struct{}

func (nopNotifier) NotifyJob(context.Context, *clip.GenerationJob) {}
func (nopNotifier) NotifyVideoCompleted(context.Context, string, *string) {}
func (nopNotifier) NotifyVideoFailed(context.Context, string, string) {}
