// Package callback drives generation jobs from provider webhooks.
//
// Every webhook resolves to an Outcome. Nothing is returned to the
// provider as an error once the request is authenticated: failures are
// recorded on the job and video and logged.
package callback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	zencourt "github.com/cladams7905/zencourt-sub006"
	"github.com/cladams7905/zencourt-sub006/clip"
	"github.com/cladams7905/zencourt-sub006/completion"
	"github.com/cladams7905/zencourt-sub006/ext"
)

// GenericFailureMessage is recorded when the provider reports a failure
// without a message.
const GenericFailureMessage = "Video generation failed at provider."

// Kind classifies how a webhook was handled.
type Kind string

const (
	// KindRejected means the payload carried no request id.
	KindRejected Kind = "rejected"
	// KindUnknownJob means no job matched the request id or fallback id.
	KindUnknownJob Kind = "unknown_job"
	// KindIgnored means the job already completed or was canceled.
	KindIgnored Kind = "ignored"
	// KindProviderFailed means the provider reported a failure.
	KindProviderFailed Kind = "provider_failed"
	// KindCompleted means the clip was stored and the job completed.
	KindCompleted Kind = "completed"
	// KindCompletionFailed means the provider succeeded but storing the
	// clip did not.
	KindCompletionFailed Kind = "completion_failed"
	// KindInProgress means the provider reported progress only.
	KindInProgress Kind = "in_progress"
)

// Outcome is the result of handling one webhook.
type Outcome struct {
	Kind  Kind   `json:"outcome"`
	JobID string `json:"jobId,omitempty"`
	Err   error  `json:"-"`
}

// Completer finishes successful clips. *completion.Orchestrator
// satisfies it.
type Completer interface {
	Complete(ctx context.Context, j *clip.GenerationJob, src completion.Source) (*clip.GenerationJob, error)
	Evaluate(ctx context.Context, videoID string) (*clip.CompletionStatus, error)
}

// Handler applies provider webhooks to persisted state.
type Handler struct {
	store      clip.Store
	completer  Completer
	notifier   completion.Notifier
	extensions *ext.Registry
	logger     *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithNotifier sets the webhook notifier used on provider failures.
func WithNotifier(n completion.Notifier) Option {
	return func(h *Handler) { h.notifier = n }
}

// WithExtensions sets the registry lifecycle events are emitted through.
func WithExtensions(r *ext.Registry) Option {
	return func(h *Handler) { h.extensions = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// NewHandler creates a Handler.
func NewHandler(store clip.Store, completer Completer, opts ...Option) *Handler {
	h := &Handler{
		store:     store,
		completer: completer,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.extensions == nil {
		h.extensions = ext.NewRegistry(h.logger)
	}
	return h
}

// Handle applies p. fallbackJobID, when set, identifies the job if the
// request id is not yet known, and the request id is then attached to it.
func (h *Handler) Handle(ctx context.Context, p Payload, fallbackJobID string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("panic while handling provider webhook",
				slog.String("request_id", p.RequestID),
				slog.Any("panic", r),
			)
			out = Outcome{Kind: KindCompletionFailed, JobID: out.JobID, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if p.RequestID == "" {
		h.logger.Warn("provider webhook without request id")
		return Outcome{Kind: KindRejected, Err: errors.New("missing request_id")}
	}

	j, err := h.resolve(ctx, p.RequestID, fallbackJobID)
	if err != nil {
		h.logger.Info("provider webhook for unknown job",
			slog.String("request_id", p.RequestID),
			slog.String("fallback_job_id", fallbackJobID),
			slog.String("error", err.Error()),
		)
		return Outcome{Kind: KindUnknownJob, Err: err}
	}
	out.JobID = j.ID

	if j.Status.IgnoresCallbacks() {
		h.logger.Debug("provider webhook ignored",
			slog.String("job_id", j.ID),
			slog.String("status", string(j.Status)),
		)
		return Outcome{Kind: KindIgnored, JobID: j.ID}
	}

	if p.pending() {
		if err := h.store.MarkJobProcessing(ctx, j.ID); err != nil {
			h.logger.Warn("failed to mark job processing",
				slog.String("job_id", j.ID),
				slog.String("error", err.Error()),
			)
		}
		return Outcome{Kind: KindInProgress, JobID: j.ID}
	}

	if p.failed() {
		msg := p.Error
		if msg == "" {
			msg = GenericFailureMessage
		}
		h.fail(ctx, j, msg)
		return Outcome{Kind: KindProviderFailed, JobID: j.ID, Err: errors.New(msg)}
	}

	if _, err := h.completer.Complete(ctx, j, completion.Source{
		VideoURL:     p.videoURL(),
		ThumbnailURL: p.thumbnailURL(),
		ExpectedSize: p.expectedSize(),
	}); err != nil {
		h.logger.Error("clip completion failed",
			slog.String("job_id", j.ID),
			slog.String("video_id", j.VideoID),
			slog.String("error", err.Error()),
		)
		if markErr := h.store.MarkJobFailed(ctx, j.ID, err.Error()); markErr != nil {
			h.logger.Error("failed to mark job failed",
				slog.String("job_id", j.ID),
				slog.String("error", markErr.Error()),
			)
		}
		h.extensions.EmitGenerationFailed(ctx, j, err)
		h.settle(ctx, j.VideoID)
		return Outcome{Kind: KindCompletionFailed, JobID: j.ID, Err: err}
	}
	return Outcome{Kind: KindCompleted, JobID: j.ID}
}

func (h *Handler) resolve(ctx context.Context, requestID, fallbackJobID string) (*clip.GenerationJob, error) {
	j, err := h.store.FindJobByRequestID(ctx, requestID)
	if err == nil {
		return j, nil
	}
	if !errors.Is(err, zencourt.ErrJobNotFound) || fallbackJobID == "" {
		return nil, err
	}

	j, err = h.store.FindJobByID(ctx, fallbackJobID)
	if err != nil {
		return nil, err
	}
	if err := h.store.AttachRequestIDToJob(ctx, j.ID, requestID); err != nil {
		return nil, fmt.Errorf("attach request id to job %s: %w", j.ID, err)
	}
	j.ProviderRequestID = requestID
	return j, nil
}

// fail records a provider failure on the job and its video.
func (h *Handler) fail(ctx context.Context, j *clip.GenerationJob, msg string) {
	h.logger.Warn("provider reported failure",
		slog.String("job_id", j.ID),
		slog.String("video_id", j.VideoID),
		slog.String("error", msg),
	)
	if err := h.store.MarkJobFailed(ctx, j.ID, msg); err != nil {
		h.logger.Error("failed to mark job failed",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	h.extensions.EmitGenerationFailed(ctx, j, errors.New(msg))

	failed := *j
	failed.Status = clip.StatusFailed
	failed.Error = msg
	h.notify().NotifyJob(ctx, &failed)

	// The video stays open while sibling clips are still running; only
	// a video whose every clip failed is marked failed here.
	status, err := h.store.EvaluateJobCompletion(ctx, j.VideoID)
	if err != nil {
		h.logger.Error("failed to evaluate job completion",
			slog.String("video_id", j.VideoID),
			slog.String("error", err.Error()),
		)
		return
	}
	if !status.AllCompleted || status.Completed > 0 {
		h.settle(ctx, j.VideoID)
		return
	}

	videoMsg := fmt.Sprintf("Clip %s failed: %s", j.ID, msg)
	changed, err := h.store.MarkVideoFailed(ctx, j.VideoID, videoMsg)
	if err != nil {
		h.logger.Error("failed to mark video failed",
			slog.String("video_id", j.VideoID),
			slog.String("error", err.Error()),
		)
		return
	}
	if changed {
		h.extensions.EmitVideoFailed(ctx, j.VideoID, videoMsg)
		h.notify().NotifyVideoFailed(ctx, j.VideoID, videoMsg)
	}
}

// settle lets the completion evaluation promote the video once every
// clip is terminal.
func (h *Handler) settle(ctx context.Context, videoID string) {
	if _, err := h.completer.Evaluate(ctx, videoID); err != nil {
		h.logger.Error("completion evaluation failed",
			slog.String("video_id", videoID),
			slog.String("error", err.Error()),
		)
	}
}

func (h *Handler) notify() completion.Notifier {
	if h.notifier == nil {
		return discard{}
	}
	return h.notifier
}

type discard struct{}

func (discard) NotifyJob(context.Context, *clip.GenerationJob) {}
func (discard) NotifyVideoCompleted(context.Context, string, *string) {}
func (discard) NotifyVideoFailed(context.Context, string, string) {}
