package relayhook

import (
	"context"
	"time"

	"github.com/xraph/relay"
	"github.com/xraph/relay/event"

	"github.com/cladams7905/zencourt-sub006/clip"
	"github.com/cladams7905/zencourt-sub006/ext"
)

// Compile-time interface checks.
var (
	_ ext.Extension            = (*Extension)(nil)
	_ ext.GenerationDispatched = (*Extension)(nil)
	_ ext.GenerationFailed     = (*Extension)(nil)
	_ ext.GenerationCompleted  = (*Extension)(nil)
	_ ext.VideoCompleted       = (*Extension)(nil)
	_ ext.VideoFailed          = (*Extension)(nil)
	_ ext.RenderStarted        = (*Extension)(nil)
	_ ext.RenderCompleted      = (*Extension)(nil)
	_ ext.RenderFailed         = (*Extension)(nil)
	_ ext.RenderCanceled       = (*Extension)(nil)
)

// Extension forwards lifecycle events to Relay. Generation and video
// events use the video id as the Relay tenant; render events carry none.
// Render progress is deliberately not forwarded.
type Extension struct {
	relay    *relay.Relay
	enabled  map[string]bool        // nil = all enabled
	payloads map[string]PayloadFunc // custom payload builders
}

// New creates an Extension that emits lifecycle events through r.
func New(r *relay.Relay, opts ...Option) *Extension {
	h := &Extension{relay: r}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name implements ext.Extension.
func (h *Extension) Name() string { return "relay-hook" }

// ── Generation lifecycle hooks ──────────────────────

// OnGenerationDispatched implements ext.GenerationDispatched.
func (h *Extension) OnGenerationDispatched(ctx context.Context, j *clip.GenerationJob, res *clip.DispatchResult) error {
	return h.send(ctx, EventGenerationDispatched, j.VideoID, &generationDispatchedPayload{
		generationPayload: *newGenerationPayload(j),
		RequestID:         res.RequestID,
		Provider:          res.Provider,
	})
}

// OnGenerationFailed implements ext.GenerationFailed.
func (h *Extension) OnGenerationFailed(ctx context.Context, j *clip.GenerationJob, jobErr error) error {
	return h.send(ctx, EventGenerationFailed, j.VideoID, &generationFailedPayload{
		generationPayload: *newGenerationPayload(j),
		Error:             errString(jobErr),
	})
}

// OnGenerationCompleted implements ext.GenerationCompleted.
func (h *Extension) OnGenerationCompleted(ctx context.Context, j *clip.GenerationJob) error {
	p := &generationCompletedPayload{
		generationPayload: *newGenerationPayload(j),
		VideoURL:          j.VideoURL,
		ThumbnailURL:      j.ThumbnailURL,
	}
	if j.Result != nil {
		p.DurationSeconds = j.Result.DurationSeconds
		p.FileSize = j.Result.FileSize
	}
	return h.send(ctx, EventGenerationCompleted, j.VideoID, p)
}

// ── Video lifecycle hooks ───────────────────────────

// OnVideoCompleted implements ext.VideoCompleted.
func (h *Extension) OnVideoCompleted(ctx context.Context, videoID string, message *string) error {
	return h.send(ctx, EventVideoCompleted, videoID, &videoPayload{
		VideoID: videoID,
		Status:  string(clip.VideoCompleted),
		Message: message,
	})
}

// OnVideoFailed implements ext.VideoFailed.
func (h *Extension) OnVideoFailed(ctx context.Context, videoID, message string) error {
	return h.send(ctx, EventVideoFailed, videoID, &videoPayload{
		VideoID: videoID,
		Status:  string(clip.VideoFailed),
		Message: &message,
	})
}

// ── Render lifecycle hooks ──────────────────────────

// OnRenderStarted implements ext.RenderStarted.
func (h *Extension) OnRenderStarted(ctx context.Context, jobID string) error {
	return h.send(ctx, EventRenderStarted, "", &renderPayload{JobID: jobID})
}

// OnRenderCompleted implements ext.RenderCompleted.
func (h *Extension) OnRenderCompleted(ctx context.Context, jobID string, elapsed time.Duration) error {
	return h.send(ctx, EventRenderCompleted, "", &renderPayload{
		JobID:     jobID,
		ElapsedMs: elapsed.Milliseconds(),
	})
}

// OnRenderFailed implements ext.RenderFailed.
func (h *Extension) OnRenderFailed(ctx context.Context, jobID string, renderErr error) error {
	return h.send(ctx, EventRenderFailed, "", &renderPayload{
		JobID: jobID,
		Error: errString(renderErr),
	})
}

// OnRenderCanceled implements ext.RenderCanceled.
func (h *Extension) OnRenderCanceled(ctx context.Context, jobID string) error {
	return h.send(ctx, EventRenderCanceled, "", &renderPayload{JobID: jobID})
}

// ── Internal helpers ────────────────────────────────

// send emits an event through Relay if the event type is enabled.
func (h *Extension) send(ctx context.Context, eventType, tenantID string, defaultData any) error {
	if h.enabled != nil && !h.enabled[eventType] {
		return nil
	}

	data := defaultData
	if fn, ok := h.payloads[eventType]; ok {
		custom, err := fn(defaultData)
		if err != nil {
			return err
		}
		data = custom
	}

	return h.relay.Send(ctx, &event.Event{
		Type:     eventType,
		TenantID: tenantID,
		Data:     data,
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ── Default payload types ───────────────────────────

type generationPayload struct {
	JobID   string `json:"job_id"`
	VideoID string `json:"video_id"`
	Status  string `json:"status"`
	Model   string `json:"model,omitempty"`
}

func newGenerationPayload(j *clip.GenerationJob) *generationPayload {
	return &generationPayload{
		JobID:   j.ID,
		VideoID: j.VideoID,
		Status:  string(j.Status),
		Model:   j.Settings.Model,
	}
}

type generationDispatchedPayload struct {
	generationPayload
	RequestID string `json:"request_id"`
	Provider  string `json:"provider"`
}

type generationFailedPayload struct {
	generationPayload
	Error string `json:"error"`
}

type generationCompletedPayload struct {
	generationPayload
	VideoURL        string  `json:"video_url"`
	ThumbnailURL    string  `json:"thumbnail_url,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	FileSize        int64   `json:"file_size,omitempty"`
}

type videoPayload struct {
	VideoID string  `json:"video_id"`
	Status  string  `json:"status"`
	Message *string `json:"message,omitempty"`
}

type renderPayload struct {
	JobID     string `json:"job_id"`
	ElapsedMs int64  `json:"elapsed_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}
