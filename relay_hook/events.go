package relayhook

import (
	"context"

	"github.com/xraph/relay"
	"github.com/xraph/relay/catalog"
)

// Lifecycle event types. Each constant maps to one ext hook and is used as
// the event.Event.Type when sending via Relay.
const (
	EventGenerationDispatched = "zencourt.generation.dispatched"
	EventGenerationFailed     = "zencourt.generation.failed"
	EventGenerationCompleted  = "zencourt.generation.completed"
	EventVideoCompleted       = "zencourt.video.completed"
	EventVideoFailed          = "zencourt.video.failed"
	EventRenderStarted        = "zencourt.render.started"
	EventRenderCompleted      = "zencourt.render.completed"
	EventRenderFailed         = "zencourt.render.failed"
	EventRenderCanceled       = "zencourt.render.canceled"
)

const definitionVersion = "2026-01-01"

// AllDefinitions returns webhook definitions for every lifecycle event
// type. Pass these to relay.RegisterEventType to populate the catalog.
func AllDefinitions() []catalog.WebhookDefinition {
	return []catalog.WebhookDefinition{
		// ── Generation events ───────────────────────────
		{
			Name:        EventGenerationDispatched,
			Description: "Fired when a provider accepts a clip generation request.",
			Group:       "generations",
			Version:     definitionVersion,
		},
		{
			Name:        EventGenerationFailed,
			Description: "Fired when a clip fails to dispatch or the provider reports a failure.",
			Group:       "generations",
			Version:     definitionVersion,
		},
		{
			Name:        EventGenerationCompleted,
			Description: "Fired after a finished clip is stored.",
			Group:       "generations",
			Version:     definitionVersion,
		},
		// ── Video events ────────────────────────────────
		{
			Name:        EventVideoCompleted,
			Description: "Fired when every clip of a video settled and at least one succeeded.",
			Group:       "videos",
			Version:     definitionVersion,
		},
		{
			Name:        EventVideoFailed,
			Description: "Fired when a video transitions to failed.",
			Group:       "videos",
			Version:     definitionVersion,
		},
		// ── Render events ───────────────────────────────
		{
			Name:        EventRenderStarted,
			Description: "Fired when a render job is accepted by the queue.",
			Group:       "renders",
			Version:     definitionVersion,
		},
		{
			Name:        EventRenderCompleted,
			Description: "Fired when a render job finishes successfully.",
			Group:       "renders",
			Version:     definitionVersion,
		},
		{
			Name:        EventRenderFailed,
			Description: "Fired when a render job fails.",
			Group:       "renders",
			Version:     definitionVersion,
		},
		{
			Name:        EventRenderCanceled,
			Description: "Fired when a render job is canceled.",
			Group:       "renders",
			Version:     definitionVersion,
		},
	}
}

// RegisterAll registers every lifecycle event type in the Relay catalog.
// Call this once during application startup before sending events.
func RegisterAll(ctx context.Context, r *relay.Relay) error {
	for _, def := range AllDefinitions() {
		if _, err := r.RegisterEventType(ctx, def); err != nil {
			return err
		}
	}
	return nil
}
