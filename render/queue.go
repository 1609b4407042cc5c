package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	zencourt "github.com/cladams7905/zencourt-sub006"
	"github.com/cladams7905/zencourt-sub006/ext"
	"github.com/cladams7905/zencourt-sub006/id"
)

// entry is the mutable record behind a Job snapshot. Fields are guarded
// by Queue.mu.
type entry struct {
	job       Job
	callbacks Callbacks
	err       error
	cancel    context.CancelFunc
	done      chan struct{}
}

// Queue runs render jobs against a Provider.
type Queue struct {
	provider   Provider
	extensions *ext.Registry
	logger     *slog.Logger
	validate   *validator.Validate
	now        func() time.Time

	mu     sync.RWMutex
	jobs   map[string]*entry
	closed bool

	baseCtx    context.Context
	stopRender context.CancelFunc
	wg         sync.WaitGroup
}

// Option configures a Queue.
type Option func(*Queue)

// WithExtensions sets the registry lifecycle events are emitted through.
func WithExtensions(r *ext.Registry) Option {
	return func(q *Queue) { q.extensions = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// CreateOption configures a single CreateJob call.
type CreateOption func(*createOptions)

type createOptions struct {
	jobID     string
	callbacks Callbacks
}

// WithJobID uses id instead of minting a new "rnd_" id.
func WithJobID(id string) CreateOption {
	return func(o *createOptions) { o.jobID = id }
}

// WithCallbacks attaches per-job callbacks.
func WithCallbacks(cb Callbacks) CreateOption {
	return func(o *createOptions) { o.callbacks = cb }
}

// NewQueue creates a queue backed by p.
func NewQueue(p Provider, opts ...Option) (*Queue, error) {
	if p == nil {
		return nil, zencourt.ErrNoRenderProvider
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		provider:   p,
		logger:     slog.Default(),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		now:        time.Now,
		jobs:       make(map[string]*entry),
		baseCtx:    ctx,
		stopRender: cancel,
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.extensions == nil {
		q.extensions = ext.NewRegistry(q.logger)
	}
	return q, nil
}

// CreateJob registers a queued job, fires its start notifications and
// begins rendering in the background. The returned id is usable
// immediately with GetJob, CancelJob and Wait.
func (q *Queue) CreateJob(ctx context.Context, in Input, opts ...CreateOption) (string, error) {
	if err := q.validate.Struct(in); err != nil {
		return "", fmt.Errorf("render: invalid input: %w", err)
	}

	o := createOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	jobID := o.jobID
	if jobID == "" {
		jobID = id.NewRenderID().String()
	}

	renderCtx, cancel := context.WithCancel(q.baseCtx)
	e := &entry{
		job: Job{
			ID:        jobID,
			State:     StateQueued,
			Input:     in,
			CreatedAt: q.now().UTC(),
		},
		callbacks: o.callbacks,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		cancel()
		return "", zencourt.ErrRenderQueueClosed
	}
	if _, exists := q.jobs[jobID]; exists {
		q.mu.Unlock()
		cancel()
		return "", fmt.Errorf("%w: %s", zencourt.ErrRenderJobExists, jobID)
	}
	q.jobs[jobID] = e
	q.wg.Add(1)
	q.mu.Unlock()

	q.logger.Info("render job created",
		slog.String("render_id", jobID),
		slog.Int("clips", len(in.Clips)),
	)
	q.extensions.EmitRenderStarted(ctx, jobID)
	if e.callbacks.OnStart != nil {
		e.callbacks.OnStart(jobID)
	}

	go q.run(renderCtx, e)
	return jobID, nil
}

// GetJob returns a snapshot of the job.
func (q *Queue) GetJob(jobID string) (Job, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	e, ok := q.jobs[jobID]
	if !ok {
		return Job{}, false
	}
	return e.job, true
}

// Jobs returns snapshots of all tracked jobs.
func (q *Queue) Jobs() []Job {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]Job, 0, len(q.jobs))
	for _, e := range q.jobs {
		out = append(out, e.job)
	}
	return out
}

// CancelJob cancels a queued or in-progress job. It reports false when
// the job is unknown or already terminal.
func (q *Queue) CancelJob(jobID string) bool {
	q.mu.Lock()
	e, ok := q.jobs[jobID]
	if !ok || !e.job.State.Cancellable() {
		q.mu.Unlock()
		return false
	}
	q.finishLocked(e, StateCanceled, nil, zencourt.ErrRenderCanceled)
	q.mu.Unlock()

	e.cancel()
	q.logger.Info("render job canceled", slog.String("render_id", jobID))
	q.extensions.EmitRenderCanceled(context.Background(), jobID)
	if e.callbacks.OnError != nil {
		e.callbacks.OnError(jobID, zencourt.ErrRenderCanceled)
	}
	return true
}

// Wait blocks until the job is terminal or ctx is done. A failed job
// returns its render error and a canceled job returns
// zencourt.ErrRenderCanceled.
func (q *Queue) Wait(ctx context.Context, jobID string) (*Result, error) {
	q.mu.RLock()
	e, ok := q.jobs[jobID]
	q.mu.RUnlock()
	if !ok {
		return nil, zencourt.ErrRenderJobNotFound
	}

	select {
	case <-e.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	switch e.job.State {
	case StateCompleted:
		return e.job.Result, nil
	default:
		return nil, e.err
	}
}

// Sweep forgets terminal jobs that finished before cutoff and returns
// how many were removed.
func (q *Queue) Sweep(cutoff time.Time) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for jobID, e := range q.jobs {
		if e.job.FinishedAt != nil && e.job.FinishedAt.Before(cutoff) {
			delete(q.jobs, jobID)
			n++
		}
	}
	if n > 0 {
		q.logger.Debug("render jobs swept", slog.Int("count", n))
	}
	return n
}

// Close rejects new jobs, cancels in-flight renders and waits for their
// goroutines until ctx is done.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.stopRender()
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) run(ctx context.Context, e *entry) {
	defer q.wg.Done()
	defer e.cancel()

	q.mu.Lock()
	if e.job.State != StateQueued {
		q.mu.Unlock()
		return
	}
	started := q.now().UTC()
	e.job.State = StateInProgress
	e.job.StartedAt = &started
	req := &Request{
		JobID:              e.job.ID,
		Clips:              append([]Clip(nil), e.job.Input.Clips...),
		Orientation:        e.job.Input.Orientation,
		TransitionDuration: e.job.Input.TransitionDuration,
		OnProgress:         func(p float64) { q.progress(ctx, e, p) },
	}
	q.mu.Unlock()

	res, err := q.render(ctx, req)

	q.mu.Lock()
	if e.job.State.IsTerminal() {
		// Canceled while the provider was still running.
		q.mu.Unlock()
		return
	}
	if err == nil && res == nil {
		err = errors.New("render provider returned no result")
	}
	if err != nil {
		q.finishLocked(e, StateFailed, nil, err)
	} else {
		q.finishLocked(e, StateCompleted, res, nil)
	}
	q.mu.Unlock()

	jobID := e.job.ID
	if err != nil {
		q.logger.Error("render job failed",
			slog.String("render_id", jobID),
			slog.String("error", err.Error()),
		)
		q.extensions.EmitRenderFailed(context.Background(), jobID, err)
		if e.callbacks.OnError != nil {
			e.callbacks.OnError(jobID, err)
		}
		return
	}

	elapsed := q.now().Sub(started)
	q.logger.Info("render job completed",
		slog.String("render_id", jobID),
		slog.Duration("elapsed", elapsed),
		slog.Int64("file_size", res.FileSize),
	)
	q.extensions.EmitRenderCompleted(context.Background(), jobID, elapsed)
	if e.callbacks.OnComplete != nil {
		e.callbacks.OnComplete(jobID, res)
	}
}

func (q *Queue) render(ctx context.Context, req *Request) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in render provider: %v", r)
		}
	}()
	return q.provider.Render(ctx, req)
}

func (q *Queue) progress(ctx context.Context, e *entry, percent float64) {
	percent = min(max(percent, 0), 100)

	q.mu.Lock()
	if e.job.State != StateInProgress || percent < e.job.Progress {
		q.mu.Unlock()
		return
	}
	e.job.Progress = percent
	jobID := e.job.ID
	q.mu.Unlock()

	q.extensions.EmitRenderProgress(ctx, jobID, percent)
	if e.callbacks.OnProgress != nil {
		e.callbacks.OnProgress(jobID, percent)
	}
}

// finishLocked moves e to a terminal state and releases Wait callers.
func (q *Queue) finishLocked(e *entry, state State, res *Result, err error) {
	now := q.now().UTC()
	e.job.State = state
	e.job.FinishedAt = &now
	e.job.Result = res
	e.err = err
	if err != nil {
		e.job.Error = err.Error()
	}
	if state == StateCompleted {
		e.job.Progress = 100
	}
	close(e.done)
}
