package audithook

// Audit event actions. Each constant corresponds to one ext lifecycle hook
// and becomes the Action field of the audit event.
const (
	ActionGenerationDispatched = "generation.dispatched"
	ActionGenerationFailed     = "generation.failed"
	ActionGenerationCompleted  = "generation.completed"
	ActionVideoCompleted       = "video.completed"
	ActionVideoFailed          = "video.failed"
	ActionRenderStarted        = "render.started"
	ActionRenderCompleted      = "render.completed"
	ActionRenderFailed         = "render.failed"
	ActionRenderCanceled       = "render.canceled"
)

// Audit event categories group related actions.
const (
	CategoryGeneration = "zencourt.generation"
	CategoryVideo      = "zencourt.video"
	CategoryRender     = "zencourt.render"
)

// Resource types used as the Resource field in audit events.
const (
	ResourceGenerationJob = "generation_job"
	ResourceVideo         = "video"
	ResourceRenderJob     = "render_job"
)

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionGenerationDispatched,
		ActionGenerationFailed,
		ActionGenerationCompleted,
		ActionVideoCompleted,
		ActionVideoFailed,
		ActionRenderStarted,
		ActionRenderCompleted,
		ActionRenderFailed,
		ActionRenderCanceled,
	}
}
