package observability

import (
	"context"
	"time"

	gu "github.com/xraph/go-utils/metrics"

	"github.com/cladams7905/zencourt-sub006/clip"
	"github.com/cladams7905/zencourt-sub006/ext"
)

// Compile-time interface checks.
var (
	_ ext.Extension            = (*MetricsExtension)(nil)
	_ ext.GenerationDispatched = (*MetricsExtension)(nil)
	_ ext.GenerationFailed     = (*MetricsExtension)(nil)
	_ ext.GenerationCompleted  = (*MetricsExtension)(nil)
	_ ext.VideoCompleted       = (*MetricsExtension)(nil)
	_ ext.VideoFailed          = (*MetricsExtension)(nil)
	_ ext.RenderStarted        = (*MetricsExtension)(nil)
	_ ext.RenderCompleted      = (*MetricsExtension)(nil)
	_ ext.RenderFailed         = (*MetricsExtension)(nil)
	_ ext.RenderCanceled       = (*MetricsExtension)(nil)
)

// MetricsExtension records system-wide lifecycle counters.
type MetricsExtension struct {
	GenerationDispatched gu.Counter
	GenerationFailed     gu.Counter
	GenerationCompleted  gu.Counter
	VideoCompleted       gu.Counter
	VideoPartial         gu.Counter
	VideoFailed          gu.Counter
	RenderStarted        gu.Counter
	RenderCompleted      gu.Counter
	RenderFailed         gu.Counter
	RenderCanceled       gu.Counter
}

// NewMetricsExtension creates a MetricsExtension using a default metrics collector.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithFactory(gu.NewMetricsCollector("zencourt/observability"))
}

// NewMetricsExtensionWithFactory creates a MetricsExtension with the provided MetricFactory.
// Use fapp.Metrics() in forge extensions, or gu.NewMetricsCollector for testing.
func NewMetricsExtensionWithFactory(factory gu.MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		GenerationDispatched: factory.Counter("zencourt.generation.dispatched"),
		GenerationFailed:     factory.Counter("zencourt.generation.failed"),
		GenerationCompleted:  factory.Counter("zencourt.generation.completed"),
		VideoCompleted:       factory.Counter("zencourt.video.completed"),
		VideoPartial:         factory.Counter("zencourt.video.partial"),
		VideoFailed:          factory.Counter("zencourt.video.failed"),
		RenderStarted:        factory.Counter("zencourt.render.started"),
		RenderCompleted:      factory.Counter("zencourt.render.completed"),
		RenderFailed:         factory.Counter("zencourt.render.failed"),
		RenderCanceled:       factory.Counter("zencourt.render.canceled"),
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// ── Generation lifecycle hooks ──────────────────────

// OnGenerationDispatched implements ext.GenerationDispatched.
func (m *MetricsExtension) OnGenerationDispatched(_ context.Context, _ *clip.GenerationJob, _ *clip.DispatchResult) error {
	m.GenerationDispatched.Inc()
	return nil
}

// OnGenerationFailed implements ext.GenerationFailed.
func (m *MetricsExtension) OnGenerationFailed(_ context.Context, _ *clip.GenerationJob, _ error) error {
	m.GenerationFailed.Inc()
	return nil
}

// OnGenerationCompleted implements ext.GenerationCompleted.
func (m *MetricsExtension) OnGenerationCompleted(_ context.Context, _ *clip.GenerationJob) error {
	m.GenerationCompleted.Inc()
	return nil
}

// ── Video lifecycle hooks ───────────────────────────

// OnVideoCompleted implements ext.VideoCompleted. A video with a partial
// failure summary also counts toward VideoPartial.
func (m *MetricsExtension) OnVideoCompleted(_ context.Context, _ string, message *string) error {
	m.VideoCompleted.Inc()
	if message != nil {
		m.VideoPartial.Inc()
	}
	return nil
}

// OnVideoFailed implements ext.VideoFailed.
func (m *MetricsExtension) OnVideoFailed(_ context.Context, _, _ string) error {
	m.VideoFailed.Inc()
	return nil
}

// ── Render lifecycle hooks ──────────────────────────

// OnRenderStarted implements ext.RenderStarted.
func (m *MetricsExtension) OnRenderStarted(_ context.Context, _ string) error {
	m.RenderStarted.Inc()
	return nil
}

// OnRenderCompleted implements ext.RenderCompleted.
func (m *MetricsExtension) OnRenderCompleted(_ context.Context, _ string, _ time.Duration) error {
	m.RenderCompleted.Inc()
	return nil
}

// OnRenderFailed implements ext.RenderFailed.
func (m *MetricsExtension) OnRenderFailed(_ context.Context, _ string, _ error) error {
	m.RenderFailed.Inc()
	return nil
}

// OnRenderCanceled implements ext.RenderCanceled.
func (m *MetricsExtension) OnRenderCanceled(_ context.Context, _ string) error {
	m.RenderCanceled.Inc()
	return nil
}
