// Package ext defines the extension system for zencourt.
// Extensions are notified of lifecycle events (clip dispatched, clip
// completed, video failed, render progress, etc.) and can react to them.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package ext

import (
	"context"
	"time"

	"github.com/cladams7905/zencourt-sub006/clip"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Generation lifecycle hooks
// ──────────────────────────────────────────────────

// GenerationDispatched is called after a provider accepted a job.
type GenerationDispatched interface {
	OnGenerationDispatched(ctx context.Context, j *clip.GenerationJob, res *clip.DispatchResult) error
}

// GenerationFailed is called when a job failed to dispatch or the
// provider reported a failure.
type GenerationFailed interface {
	OnGenerationFailed(ctx context.Context, j *clip.GenerationJob, err error) error
}

// GenerationCompleted is called after a finished clip was stored.
type GenerationCompleted interface {
	OnGenerationCompleted(ctx context.Context, j *clip.GenerationJob) error
}

// ──────────────────────────────────────────────────
// Video lifecycle hooks
// ──────────────────────────────────────────────────

// VideoCompleted is called when a video transitions to completed. message
// is nil when every clip succeeded.
type VideoCompleted interface {
	OnVideoCompleted(ctx context.Context, videoID string, message *string) error
}

// VideoFailed is called when a video transitions to failed.
type VideoFailed interface {
	OnVideoFailed(ctx context.Context, videoID, message string) error
}

// ──────────────────────────────────────────────────
// Render lifecycle hooks
// ──────────────────────────────────────────────────

// RenderStarted is called when the render queue begins a job.
type RenderStarted interface {
	OnRenderStarted(ctx context.Context, jobID string) error
}

// RenderProgress is called for every progress report, in [0, 100].
type RenderProgress interface {
	OnRenderProgress(ctx context.Context, jobID string, progress float64) error
}

// RenderCompleted is called after a render job finished successfully.
type RenderCompleted interface {
	OnRenderCompleted(ctx context.Context, jobID string, elapsed time.Duration) error
}

// RenderFailed is called when a render job failed.
type RenderFailed interface {
	OnRenderFailed(ctx context.Context, jobID string, err error) error
}

// RenderCanceled is called when a render job was canceled.
type RenderCanceled interface {
	OnRenderCanceled(ctx context.Context, jobID string) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
