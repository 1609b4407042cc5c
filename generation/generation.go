// Package generation starts provider generation for a batch of clip jobs
// that belong to one video.
//
// Dispatch runs on a bounded pool. A failing job never aborts its
// siblings: it is marked failed and reported in Result.FailedJobs. Only
// when every dispatch fails is the video marked failed and an error
// returned to the caller.
package generation

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	zencourt "github.com/cladams7905/zencourt-sub006"
	"github.com/cladams7905/zencourt-sub006/clip"
	"github.com/cladams7905/zencourt-sub006/ext"
)

// DefaultConcurrency bounds in-flight dispatches per Start call.
const DefaultConcurrency = 3

// AllFailedMessage is recorded on the video when no job could be
// dispatched.
const AllFailedMessage = "All video jobs failed to dispatch."

// DispatchFunc sends one job to a provider and records the dispatch.
type DispatchFunc func(ctx context.Context, j *clip.GenerationJob) (*clip.DispatchResult, error)

// Result reports a partially or fully successful Start.
type Result struct {
	JobsStarted int      `json:"jobsStarted"`
	FailedJobs  []string `json:"failedJobs"`
}

// Orchestrator starts generation for a video.
type Orchestrator struct {
	store       clip.Store
	dispatch    DispatchFunc
	concurrency int
	extensions  *ext.Registry
	logger      *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConcurrency sets the dispatch pool size.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
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
func New(store clip.Store, dispatch DispatchFunc, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:       store,
		dispatch:    dispatch,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.extensions == nil {
		o.extensions = ext.NewRegistry(o.logger)
	}
	return o
}

// Start dispatches the given jobs of videoID.
//
// It fails with zencourt.ErrNoJobsFound when none of jobIDs exist and
// with zencourt.ErrVideoMismatch, before touching any state, when a job
// belongs to another video. Missing ids are logged and skipped.
func (o *Orchestrator) Start(ctx context.Context, videoID string, jobIDs []string) (*Result, error) {
	jobs, err := o.store.FindJobsByIDs(ctx, jobIDs)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil, zencourt.ErrNoJobsFound
	}
	if len(jobs) < len(jobIDs) {
		o.logger.Warn("some generation jobs were not found",
			slog.String("video_id", videoID),
			slog.Int("requested", len(jobIDs)),
			slog.Int("found", len(jobs)),
		)
	}
	for _, j := range jobs {
		if j.VideoID != videoID {
			return nil, fmt.Errorf("%w: job %s belongs to %s, not %s",
				zencourt.ErrVideoMismatch, j.ID, j.VideoID, videoID)
		}
	}

	if err := o.store.MarkVideoProcessing(ctx, videoID); err != nil {
		return nil, fmt.Errorf("mark video processing: %w", err)
	}

	// Each slot is written by exactly one goroutine.
	failed := make([]bool, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, j := range jobs {
		g.Go(func() error {
			failed[i] = !o.dispatchOne(gctx, j)
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{FailedJobs: []string{}}
	for i, j := range jobs {
		if failed[i] {
			res.FailedJobs = append(res.FailedJobs, j.ID)
		} else {
			res.JobsStarted++
		}
	}

	if res.JobsStarted == 0 {
		if _, err := o.store.MarkVideoFailed(ctx, videoID, AllFailedMessage); err != nil {
			o.logger.Error("failed to mark video failed",
				slog.String("video_id", videoID),
				slog.String("error", err.Error()),
			)
		}
		o.extensions.EmitVideoFailed(ctx, videoID, AllFailedMessage)
		return nil, fmt.Errorf("%w: video %s", zencourt.ErrAllDispatchFailed, videoID)
	}

	o.logger.Info("video generation started",
		slog.String("video_id", videoID),
		slog.Int("jobs_started", res.JobsStarted),
		slog.Int("jobs_failed", len(res.FailedJobs)),
	)
	return res, nil
}

// dispatchOne reports whether j was dispatched. Failures are recorded on
// the job and never returned.
func (o *Orchestrator) dispatchOne(ctx context.Context, j *clip.GenerationJob) bool {
	res, err := o.dispatch(ctx, j)
	if err == nil {
		o.extensions.EmitGenerationDispatched(ctx, j, res)
		return true
	}

	o.logger.Warn("generation dispatch failed",
		slog.String("job_id", j.ID),
		slog.String("video_id", j.VideoID),
		slog.String("error", err.Error()),
	)
	if markErr := o.store.MarkJobFailed(ctx, j.ID, err.Error()); markErr != nil {
		o.logger.Error("failed to mark job failed",
			slog.String("job_id", j.ID),
			slog.String("error", markErr.Error()),
		)
	}
	o.extensions.EmitGenerationFailed(ctx, j, err)
	return false
}
