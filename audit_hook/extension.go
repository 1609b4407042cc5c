package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

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

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one audit trail entry.
type AuditEvent struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// LogRecorder writes audit events to logger at a level matching their
// severity.
func LogRecorder(logger *slog.Logger) Recorder {
	return RecorderFunc(func(ctx context.Context, evt *AuditEvent) error {
		level := slog.LevelInfo
		switch evt.Severity {
		case SeverityWarning:
			level = slog.LevelWarn
		case SeverityCritical:
			level = slog.LevelError
		}
		logger.LogAttrs(ctx, level, "audit",
			slog.String("action", evt.Action),
			slog.String("resource", evt.Resource),
			slog.String("resource_id", evt.ResourceID),
			slog.String("outcome", evt.Outcome),
			slog.Any("metadata", evt.Metadata),
		)
		return nil
	})
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension bridges lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through r.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit-hook" }

// ── Generation hooks ────────────────────────────────

// OnGenerationDispatched implements ext.GenerationDispatched.
func (e *Extension) OnGenerationDispatched(ctx context.Context, j *clip.GenerationJob, res *clip.DispatchResult) error {
	return e.record(ctx, ActionGenerationDispatched, SeverityInfo, OutcomeSuccess,
		ResourceGenerationJob, j.ID, CategoryGeneration, nil,
		"video_id", j.VideoID,
		"provider", res.Provider,
		"request_id", res.RequestID,
	)
}

// OnGenerationFailed implements ext.GenerationFailed.
func (e *Extension) OnGenerationFailed(ctx context.Context, j *clip.GenerationJob, jobErr error) error {
	return e.record(ctx, ActionGenerationFailed, SeverityWarning, OutcomeFailure,
		ResourceGenerationJob, j.ID, CategoryGeneration, jobErr,
		"video_id", j.VideoID,
		"provider", j.ProviderName,
	)
}

// OnGenerationCompleted implements ext.GenerationCompleted.
func (e *Extension) OnGenerationCompleted(ctx context.Context, j *clip.GenerationJob) error {
	return e.record(ctx, ActionGenerationCompleted, SeverityInfo, OutcomeSuccess,
		ResourceGenerationJob, j.ID, CategoryGeneration, nil,
		"video_id", j.VideoID,
		"video_url", j.VideoURL,
	)
}

// ── Video hooks ─────────────────────────────────────

// OnVideoCompleted implements ext.VideoCompleted. A video with failed
// clips is recorded as a warning.
func (e *Extension) OnVideoCompleted(ctx context.Context, videoID string, message *string) error {
	if message != nil {
		return e.record(ctx, ActionVideoCompleted, SeverityWarning, OutcomeSuccess,
			ResourceVideo, videoID, CategoryVideo, nil,
			"message", *message,
		)
	}
	return e.record(ctx, ActionVideoCompleted, SeverityInfo, OutcomeSuccess,
		ResourceVideo, videoID, CategoryVideo, nil)
}

// OnVideoFailed implements ext.VideoFailed.
func (e *Extension) OnVideoFailed(ctx context.Context, videoID, message string) error {
	return e.record(ctx, ActionVideoFailed, SeverityCritical, OutcomeFailure,
		ResourceVideo, videoID, CategoryVideo, nil,
		"message", message,
	)
}

// ── Render hooks ────────────────────────────────────

// OnRenderStarted implements ext.RenderStarted.
func (e *Extension) OnRenderStarted(ctx context.Context, jobID string) error {
	return e.record(ctx, ActionRenderStarted, SeverityInfo, OutcomeSuccess,
		ResourceRenderJob, jobID, CategoryRender, nil)
}

// OnRenderCompleted implements ext.RenderCompleted.
func (e *Extension) OnRenderCompleted(ctx context.Context, jobID string, elapsed time.Duration) error {
	return e.record(ctx, ActionRenderCompleted, SeverityInfo, OutcomeSuccess,
		ResourceRenderJob, jobID, CategoryRender, nil,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnRenderFailed implements ext.RenderFailed.
func (e *Extension) OnRenderFailed(ctx context.Context, jobID string, renderErr error) error {
	return e.record(ctx, ActionRenderFailed, SeverityCritical, OutcomeFailure,
		ResourceRenderJob, jobID, CategoryRender, renderErr)
}

// OnRenderCanceled implements ext.RenderCanceled.
func (e *Extension) OnRenderCanceled(ctx context.Context, jobID string) error {
	return e.record(ctx, ActionRenderCanceled, SeverityWarning, OutcomeFailure,
		ResourceRenderJob, jobID, CategoryRender, nil)
}

// ── Internal helpers ────────────────────────────────

// record builds and sends an audit event if the action is enabled.
// kvPairs is a list of key-value pairs added to Metadata. Recorder
// failures are logged, never returned.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = reason
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			slog.String("action", action),
			slog.String("resource_id", resourceID),
			slog.String("error", recErr.Error()),
		)
	}
	return nil
}
