package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/cladams7905/zencourt-sub006/clip"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time.
type generationDispatchedEntry struct {
	name string
	hook GenerationDispatched
}

type generationFailedEntry struct {
	name string
	hook GenerationFailed
}

type generationCompletedEntry struct {
	name string
	hook GenerationCompleted
}

type videoCompletedEntry struct {
	name string
	hook VideoCompleted
}

type videoFailedEntry struct {
	name string
	hook VideoFailed
}

type renderStartedEntry struct {
	name string
	hook RenderStarted
}

type renderProgressEntry struct {
	name string
	hook RenderProgress
}

type renderCompletedEntry struct {
	name string
	hook RenderCompleted
}

type renderFailedEntry struct {
	name string
	hook RenderFailed
}

type renderCanceledEntry struct {
	name string
	hook RenderCanceled
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
//
// Register is expected to happen during wiring, before any Emit call.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	generationDispatched []generationDispatchedEntry
	generationFailed     []generationFailedEntry
	generationCompleted  []generationCompletedEntry
	videoCompleted       []videoCompletedEntry
	videoFailed          []videoFailedEntry
	renderStarted        []renderStartedEntry
	renderProgress       []renderProgressEntry
	renderCompleted      []renderCompletedEntry
	renderFailed         []renderFailedEntry
	renderCanceled       []renderCanceledEntry
	shutdown             []shutdownEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(GenerationDispatched); ok {
		r.generationDispatched = append(r.generationDispatched, generationDispatchedEntry{name, h})
	}
	if h, ok := e.(GenerationFailed); ok {
		r.generationFailed = append(r.generationFailed, generationFailedEntry{name, h})
	}
	if h, ok := e.(GenerationCompleted); ok {
		r.generationCompleted = append(r.generationCompleted, generationCompletedEntry{name, h})
	}
	if h, ok := e.(VideoCompleted); ok {
		r.videoCompleted = append(r.videoCompleted, videoCompletedEntry{name, h})
	}
	if h, ok := e.(VideoFailed); ok {
		r.videoFailed = append(r.videoFailed, videoFailedEntry{name, h})
	}
	if h, ok := e.(RenderStarted); ok {
		r.renderStarted = append(r.renderStarted, renderStartedEntry{name, h})
	}
	if h, ok := e.(RenderProgress); ok {
		r.renderProgress = append(r.renderProgress, renderProgressEntry{name, h})
	}
	if h, ok := e.(RenderCompleted); ok {
		r.renderCompleted = append(r.renderCompleted, renderCompletedEntry{name, h})
	}
	if h, ok := e.(RenderFailed); ok {
		r.renderFailed = append(r.renderFailed, renderFailedEntry{name, h})
	}
	if h, ok := e.(RenderCanceled); ok {
		r.renderCanceled = append(r.renderCanceled, renderCanceledEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// ──────────────────────────────────────────────────
// Generation event emitters
// ──────────────────────────────────────────────────

// EmitGenerationDispatched notifies all extensions that implement GenerationDispatched.
func (r *Registry) EmitGenerationDispatched(ctx context.Context, j *clip.GenerationJob, res *clip.DispatchResult) {
	for _, e := range r.generationDispatched {
		if err := e.hook.OnGenerationDispatched(ctx, j, res); err != nil {
			r.logHookError("OnGenerationDispatched", e.name, err)
		}
	}
}

// EmitGenerationFailed notifies all extensions that implement GenerationFailed.
func (r *Registry) EmitGenerationFailed(ctx context.Context, j *clip.GenerationJob, jobErr error) {
	for _, e := range r.generationFailed {
		if err := e.hook.OnGenerationFailed(ctx, j, jobErr); err != nil {
			r.logHookError("OnGenerationFailed", e.name, err)
		}
	}
}

// EmitGenerationCompleted notifies all extensions that implement GenerationCompleted.
func (r *Registry) EmitGenerationCompleted(ctx context.Context, j *clip.GenerationJob) {
	for _, e := range r.generationCompleted {
		if err := e.hook.OnGenerationCompleted(ctx, j); err != nil {
			r.logHookError("OnGenerationCompleted", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Video event emitters
// ──────────────────────────────────────────────────

// EmitVideoCompleted notifies all extensions that implement VideoCompleted.
func (r *Registry) EmitVideoCompleted(ctx context.Context, videoID string, message *string) {
	for _, e := range r.videoCompleted {
		if err := e.hook.OnVideoCompleted(ctx, videoID, message); err != nil {
			r.logHookError("OnVideoCompleted", e.name, err)
		}
	}
}

// EmitVideoFailed notifies all extensions that implement VideoFailed.
func (r *Registry) EmitVideoFailed(ctx context.Context, videoID, message string) {
	for _, e := range r.videoFailed {
		if err := e.hook.OnVideoFailed(ctx, videoID, message); err != nil {
			r.logHookError("OnVideoFailed", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Render event emitters
// ──────────────────────────────────────────────────

// EmitRenderStarted notifies all extensions that implement RenderStarted.
func (r *Registry) EmitRenderStarted(ctx context.Context, jobID string) {
	for _, e := range r.renderStarted {
		if err := e.hook.OnRenderStarted(ctx, jobID); err != nil {
			r.logHookError("OnRenderStarted", e.name, err)
		}
	}
}

// EmitRenderProgress notifies all extensions that implement RenderProgress.
func (r *Registry) EmitRenderProgress(ctx context.Context, jobID string, progress float64) {
	for _, e := range r.renderProgress {
		if err := e.hook.OnRenderProgress(ctx, jobID, progress); err != nil {
			r.logHookError("OnRenderProgress", e.name, err)
		}
	}
}

// EmitRenderCompleted notifies all extensions that implement RenderCompleted.
func (r *Registry) EmitRenderCompleted(ctx context.Context, jobID string, elapsed time.Duration) {
	for _, e := range r.renderCompleted {
		if err := e.hook.OnRenderCompleted(ctx, jobID, elapsed); err != nil {
			r.logHookError("OnRenderCompleted", e.name, err)
		}
	}
}

// EmitRenderFailed notifies all extensions that implement RenderFailed.
func (r *Registry) EmitRenderFailed(ctx context.Context, jobID string, renderErr error) {
	for _, e := range r.renderFailed {
		if err := e.hook.OnRenderFailed(ctx, jobID, renderErr); err != nil {
			r.logHookError("OnRenderFailed", e.name, err)
		}
	}
}

// EmitRenderCanceled notifies all extensions that implement RenderCanceled.
func (r *Registry) EmitRenderCanceled(ctx context.Context, jobID string) {
	for _, e := range r.renderCanceled {
		if err := e.hook.OnRenderCanceled(ctx, jobID); err != nil {
			r.logHookError("OnRenderCanceled", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Other event emitters
// ──────────────────────────────────────────────────

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Hook errors are never propagated into orchestration.
func (r *Registry) logHookError(hook, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
