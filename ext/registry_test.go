package ext_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cladams7905/zencourt-sub006/clip"
	"github.com/cladams7905/zencourt-sub006/ext"
)

// ──────────────────────────────────────────────────
// Test extensions
// ──────────────────────────────────────────────────

// allHooksExt implements every lifecycle hook for testing.
type allHooksExt struct {
	calls []string
}

func (e *allHooksExt) Name() string { return "all-hooks" }

func (e *allHooksExt) OnGenerationDispatched(_ context.Context, _ *clip.GenerationJob, _ *clip.DispatchResult) error {
	e.calls = append(e.calls, "OnGenerationDispatched")
	return nil
}

func (e *allHooksExt) OnGenerationFailed(_ context.Context, _ *clip.GenerationJob, _ error) error {
	e.calls = append(e.calls, "OnGenerationFailed")
	return nil
}

func (e *allHooksExt) OnGenerationCompleted(_ context.Context, _ *clip.GenerationJob) error {
	e.calls = append(e.calls, "OnGenerationCompleted")
	return nil
}

func (e *allHooksExt) OnVideoCompleted(_ context.Context, _ string, _ *string) error {
	e.calls = append(e.calls, "OnVideoCompleted")
	return nil
}

func (e *allHooksExt) OnVideoFailed(_ context.Context, _, _ string) error {
	e.calls = append(e.calls, "OnVideoFailed")
	return nil
}

func (e *allHooksExt) OnRenderStarted(_ context.Context, _ string) error {
	e.calls = append(e.calls, "OnRenderStarted")
	return nil
}

func (e *allHooksExt) OnRenderProgress(_ context.Context, _ string, _ float64) error {
	e.calls = append(e.calls, "OnRenderProgress")
	return nil
}

func (e *allHooksExt) OnRenderCompleted(_ context.Context, _ string, _ time.Duration) error {
	e.calls = append(e.calls, "OnRenderCompleted")
	return nil
}

func (e *allHooksExt) OnRenderFailed(_ context.Context, _ string, _ error) error {
	e.calls = append(e.calls, "OnRenderFailed")
	return nil
}

func (e *allHooksExt) OnRenderCanceled(_ context.Context, _ string) error {
	e.calls = append(e.calls, "OnRenderCanceled")
	return nil
}

func (e *allHooksExt) OnShutdown(_ context.Context) error {
	e.calls = append(e.calls, "OnShutdown")
	return nil
}

// videoOnlyExt only implements video hooks.
type videoOnlyExt struct {
	calls []string
}

func (e *videoOnlyExt) Name() string { return "video-only" }

func (e *videoOnlyExt) OnVideoCompleted(_ context.Context, _ string, _ *string) error {
	e.calls = append(e.calls, "OnVideoCompleted")
	return nil
}

// failingExt returns errors from hooks.
type failingExt struct{}

func (e *failingExt) Name() string { return "failing" }

func (e *failingExt) OnVideoCompleted(_ context.Context, _ string, _ *string) error {
	return errors.New("boom")
}

func (e *failingExt) OnShutdown(_ context.Context) error {
	return errors.New("shutdown boom")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ──────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────

func TestRegistry_RegisterDiscoversInterfaces(t *testing.T) {
	r := ext.NewRegistry(quietLogger())
	r.Register(&allHooksExt{})

	if got := len(r.Extensions()); got != 1 {
		t.Fatalf("expected 1 extension, got %d", got)
	}
	if got := r.Extensions()[0].Name(); got != "all-hooks" {
		t.Fatalf("expected name 'all-hooks', got %q", got)
	}
}

func TestRegistry_EmitFiresOnlyImplementors(t *testing.T) {
	r := ext.NewRegistry(quietLogger())
	all := &allHooksExt{}
	vo := &videoOnlyExt{}
	r.Register(all)
	r.Register(vo)

	ctx := context.Background()

	r.EmitVideoCompleted(ctx, "video-1", nil)
	if len(all.calls) != 1 || all.calls[0] != "OnVideoCompleted" {
		t.Fatalf("all: expected [OnVideoCompleted], got %v", all.calls)
	}
	if len(vo.calls) != 1 {
		t.Fatalf("vo: expected [OnVideoCompleted], got %v", vo.calls)
	}

	r.EmitVideoFailed(ctx, "video-1", "boom")
	if len(all.calls) != 2 || all.calls[1] != "OnVideoFailed" {
		t.Fatalf("all: expected OnVideoFailed as 2nd, got %v", all.calls)
	}
	if len(vo.calls) != 1 {
		t.Fatalf("vo: should still have 1 call, got %v", vo.calls)
	}
}

func TestRegistry_AllHooksFire(t *testing.T) {
	r := ext.NewRegistry(quietLogger())
	all := &allHooksExt{}
	r.Register(all)

	ctx := context.Background()
	j := &clip.GenerationJob{ID: "job-1", VideoID: "video-1"}

	r.EmitGenerationDispatched(ctx, j, &clip.DispatchResult{RequestID: "req-1"})
	r.EmitGenerationFailed(ctx, j, errors.New("fail"))
	r.EmitGenerationCompleted(ctx, j)
	r.EmitVideoCompleted(ctx, "video-1", nil)
	r.EmitVideoFailed(ctx, "video-1", "fail")
	r.EmitRenderStarted(ctx, "rnd-1")
	r.EmitRenderProgress(ctx, "rnd-1", 50)
	r.EmitRenderCompleted(ctx, "rnd-1", time.Second)
	r.EmitRenderFailed(ctx, "rnd-1", errors.New("fail"))
	r.EmitRenderCanceled(ctx, "rnd-1")
	r.EmitShutdown(ctx)

	expected := []string{
		"OnGenerationDispatched", "OnGenerationFailed", "OnGenerationCompleted",
		"OnVideoCompleted", "OnVideoFailed",
		"OnRenderStarted", "OnRenderProgress", "OnRenderCompleted",
		"OnRenderFailed", "OnRenderCanceled",
		"OnShutdown",
	}
	if len(all.calls) != len(expected) {
		t.Fatalf("expected %d calls, got %d: %v", len(expected), len(all.calls), all.calls)
	}
	for i, want := range expected {
		if all.calls[i] != want {
			t.Errorf("call[%d] = %q, want %q", i, all.calls[i], want)
		}
	}
}

func TestRegistry_HookErrorsLoggedNotPropagated(t *testing.T) {
	r := ext.NewRegistry(quietLogger())
	all := &allHooksExt{}

	r.Register(&failingExt{})
	r.Register(all)

	r.EmitVideoCompleted(context.Background(), "video-1", nil)

	if len(all.calls) != 1 || all.calls[0] != "OnVideoCompleted" {
		t.Fatalf("all: expected [OnVideoCompleted] despite failing ext, got %v", all.calls)
	}
}

func TestRegistry_EmptyRegistryNoOp(_ *testing.T) {
	r := ext.NewRegistry(nil)
	ctx := context.Background()
	j := &clip.GenerationJob{}

	r.EmitGenerationDispatched(ctx, j, &clip.DispatchResult{})
	r.EmitGenerationFailed(ctx, j, errors.New("x"))
	r.EmitGenerationCompleted(ctx, j)
	r.EmitVideoCompleted(ctx, "v", nil)
	r.EmitVideoFailed(ctx, "v", "x")
	r.EmitRenderStarted(ctx, "r")
	r.EmitRenderProgress(ctx, "r", 1)
	r.EmitRenderCompleted(ctx, "r", time.Second)
	r.EmitRenderFailed(ctx, "r", errors.New("x"))
	r.EmitRenderCanceled(ctx, "r")
	r.EmitShutdown(ctx)
}
