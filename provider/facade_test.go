package provider_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	zencourt "github.com/cladams7905/zencourt-sub006"
	"github.com/cladams7905/zencourt-sub006/clip"
	"github.com/cladams7905/zencourt-sub006/middleware"
	"github.com/cladams7905/zencourt-sub006/provider"
)

var errBoom = errors.New("provider 503")

// fakeStrategy fails with the queued errors, then succeeds.
type fakeStrategy struct {
	name   string
	models map[string]bool

	mu    sync.Mutex
	errs  []error
	calls int
}

func newFake(name string, errs ...error) *fakeStrategy {
	return &fakeStrategy{name: name, errs: errs}
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) CanHandle(in *clip.DispatchInput) bool {
	return f.models == nil || f.models[in.Model]
}

func (f *fakeStrategy) Dispatch(_ context.Context, in *clip.DispatchInput) (*clip.DispatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		// A trailing error is sticky; a trailing nil means success from now on.
		if len(f.errs) > 1 || err == nil {
			f.errs = f.errs[1:]
		}
		if err != nil {
			return nil, err
		}
	}
	return &clip.DispatchResult{RequestID: f.name + "-" + in.JobID}, nil
}

func (f *fakeStrategy) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func input() *clip.DispatchInput {
	return &clip.DispatchInput{JobID: "job-1", VideoID: "video-1", Model: "kling"}
}

func newFacade(t *testing.T, strategies []provider.Strategy, opts ...provider.Option) *provider.Facade {
	t.Helper()
	f, err := provider.New(strategies, append([]provider.Option{provider.WithLogger(quietLogger())}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func TestNew_Validation(t *testing.T) {
	if _, err := provider.New(nil); !errors.Is(err, zencourt.ErrNoStrategies) {
		t.Errorf("err = %v, want ErrNoStrategies", err)
	}
	if _, err := provider.New([]provider.Strategy{newFake("a"), newFake("a")}); err == nil {
		t.Error("expected error for duplicate strategy names")
	}
}

func TestDispatch_RetryThenSucceedResetsCounter(t *testing.T) {
	s := newFake("fal", errBoom, nil)
	f := newFacade(t, []provider.Strategy{s}, provider.WithMaxAttempts(2))

	res, err := f.Dispatch(context.Background(), input())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.RequestID != "fal-job-1" {
		t.Errorf("RequestID = %q, want fal-job-1", res.RequestID)
	}
	if res.Provider != "fal" {
		t.Errorf("Provider = %q, want fal", res.Provider)
	}
	if res.Model != "kling" {
		t.Errorf("Model = %q, want kling", res.Model)
	}
	if s.Calls() != 2 {
		t.Errorf("calls = %d, want 2", s.Calls())
	}

	snap, _ := f.Breaker("fal")
	if snap.ConsecutiveFailures != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0", snap.ConsecutiveFailures)
	}
	if snap.State != provider.StateClosed {
		t.Errorf("State = %q, want closed", snap.State)
	}

	stats, _ := f.Stats("fal")
	if stats.Attempts != 2 || stats.Successes != 1 || stats.Failures != 1 {
		t.Errorf("stats = %+v, want 2 attempts 1 success 1 failure", stats)
	}
}

func TestDispatch_ThresholdOpensCircuit(t *testing.T) {
	s := newFake("fal", errBoom)
	f := newFacade(t, []provider.Strategy{s},
		provider.WithMaxAttempts(1),
		provider.WithFailureThreshold(3),
		provider.WithCooldown(time.Hour),
	)
	ctx := context.Background()

	for i := range 3 {
		if _, err := f.Dispatch(ctx, input()); !errors.Is(err, errBoom) {
			t.Fatalf("dispatch %d: err = %v, want provider error", i+1, err)
		}
	}

	snap, _ := f.Breaker("fal")
	if snap.State != provider.StateOpen {
		t.Fatalf("State = %q, want open", snap.State)
	}
	if snap.ConsecutiveFailures != 3 {
		t.Errorf("ConsecutiveFailures = %d, want 3", snap.ConsecutiveFailures)
	}
	if snap.OpenedAt == nil {
		t.Error("OpenedAt should be set")
	}

	_, err := f.Dispatch(ctx, input())
	var coe *provider.CircuitOpenError
	if !errors.As(err, &coe) {
		t.Fatalf("err = %v, want *CircuitOpenError", err)
	}
	if coe.Provider != "fal" {
		t.Errorf("Provider = %q, want fal", coe.Provider)
	}
	if !errors.Is(err, zencourt.ErrCircuitOpen) {
		t.Error("CircuitOpenError should wrap ErrCircuitOpen")
	}
	if s.Calls() != 3 {
		t.Errorf("calls = %d, want 3 (open circuit must not call the strategy)", s.Calls())
	}
	if stats, _ := f.Stats("fal"); stats.CircuitSkips != 1 {
		t.Errorf("CircuitSkips = %d, want 1", stats.CircuitSkips)
	}
}

func TestDispatch_CircuitOpensMidRetries(t *testing.T) {
	primary := newFake("primary", errBoom)
	fallback := newFake("fallback")
	f := newFacade(t, []provider.Strategy{primary, fallback},
		provider.WithMaxAttempts(5),
		provider.WithFailureThreshold(2),
		provider.WithCooldown(time.Hour),
	)

	res, err := f.Dispatch(context.Background(), input())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Provider != "fallback" {
		t.Errorf("Provider = %q, want fallback", res.Provider)
	}
	if primary.Calls() != 2 {
		t.Errorf("primary calls = %d, want 2", primary.Calls())
	}
}

func TestDispatch_TripMidRetriesKeepsProviderError(t *testing.T) {
	s := newFake("fal", errBoom)
	f := newFacade(t, []provider.Strategy{s},
		provider.WithMaxAttempts(5),
		provider.WithFailureThreshold(2),
		provider.WithCooldown(time.Hour),
	)

	_, err := f.Dispatch(context.Background(), input())
	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want the provider error", err)
	}
	var coe *provider.CircuitOpenError
	if errors.As(err, &coe) {
		t.Errorf("err = %v, should not be a circuit skip for an attempted provider", err)
	}
	if s.Calls() != 2 {
		t.Errorf("calls = %d, want 2", s.Calls())
	}
	stats, _ := f.Stats("fal")
	if stats.CircuitSkips != 0 {
		t.Errorf("CircuitSkips = %d, want 0", stats.CircuitSkips)
	}
	if snap, _ := f.Breaker("fal"); snap.State != provider.StateOpen {
		t.Errorf("State = %q, want open", snap.State)
	}
}

func TestDispatch_FallsBackInPriorityOrder(t *testing.T) {
	first := newFake("first", errBoom)
	second := newFake("second")
	third := newFake("third")
	f := newFacade(t, []provider.Strategy{first, second, third}, provider.WithMaxAttempts(2))

	res, err := f.Dispatch(context.Background(), input())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Provider != "second" {
		t.Errorf("Provider = %q, want second", res.Provider)
	}
	if first.Calls() != 2 {
		t.Errorf("first calls = %d, want 2", first.Calls())
	}
	if third.Calls() != 0 {
		t.Errorf("third calls = %d, want 0", third.Calls())
	}
}

func TestDispatch_SkipsIneligible(t *testing.T) {
	veo := newFake("veo")
	veo.models = map[string]bool{"veo-3": true}
	kling := newFake("kling")
	kling.models = map[string]bool{"kling": true}
	f := newFacade(t, []provider.Strategy{veo, kling})

	res, err := f.Dispatch(context.Background(), input())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Provider != "kling" {
		t.Errorf("Provider = %q, want kling", res.Provider)
	}
	if veo.Calls() != 0 {
		t.Errorf("veo calls = %d, want 0", veo.Calls())
	}
}

func TestDispatch_NoEligibleProvider(t *testing.T) {
	veo := newFake("veo")
	veo.models = map[string]bool{"veo-3": true}
	f := newFacade(t, []provider.Strategy{veo})

	if _, err := f.Dispatch(context.Background(), input()); !errors.Is(err, zencourt.ErrNoEligibleProvider) {
		t.Errorf("err = %v, want ErrNoEligibleProvider", err)
	}
}

func TestDispatch_AllFailReturnsLastError(t *testing.T) {
	last := errors.New("second provider down")
	f := newFacade(t, []provider.Strategy{newFake("a", errBoom), newFake("b", last)})

	if _, err := f.Dispatch(context.Background(), input()); !errors.Is(err, last) {
		t.Errorf("err = %v, want %v", err, last)
	}
}

func TestDispatch_HalfOpenAfterCooldown(t *testing.T) {
	s := newFake("fal", errBoom, nil)
	f := newFacade(t, []provider.Strategy{s},
		provider.WithMaxAttempts(1),
		provider.WithFailureThreshold(1),
		provider.WithCooldown(20*time.Millisecond),
	)
	ctx := context.Background()

	if _, err := f.Dispatch(ctx, input()); !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want provider error", err)
	}
	if _, err := f.Dispatch(ctx, input()); !errors.Is(err, zencourt.ErrCircuitOpen) {
		t.Fatalf("err = %v, want circuit open", err)
	}

	time.Sleep(40 * time.Millisecond)

	if _, err := f.Dispatch(ctx, input()); err != nil {
		t.Fatalf("Dispatch after cooldown: %v", err)
	}
	snap, _ := f.Breaker("fal")
	if snap.State != provider.StateClosed {
		t.Errorf("State = %q, want closed", snap.State)
	}
	if snap.OpenedAt != nil {
		t.Errorf("OpenedAt = %v, want nil once closed", snap.OpenedAt)
	}
}

func TestDispatch_MiddlewareWrapsAttempts(t *testing.T) {
	var seen []middleware.Attempt
	record := func(ctx context.Context, a *middleware.Attempt, next middleware.Handler) error {
		seen = append(seen, *a)
		return next(ctx)
	}
	s := newFake("fal", errBoom, nil)
	f := newFacade(t, []provider.Strategy{s},
		provider.WithMiddleware(record),
		provider.WithAttemptTimeout(time.Second),
	)

	if _, err := f.Dispatch(context.Background(), input()); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("middleware calls = %d, want 2", len(seen))
	}
	if seen[0].Number != 1 || seen[1].Number != 2 {
		t.Errorf("attempt numbers = %d,%d want 1,2", seen[0].Number, seen[1].Number)
	}
	if seen[0].Provider != "fal" || seen[0].JobID != "job-1" || seen[0].Timeout != time.Second {
		t.Errorf("attempt = %+v", seen[0])
	}
}

type panicStrategy struct{}

func (panicStrategy) Name() string { return "panicky" }
func (panicStrategy) CanHandle(*clip.DispatchInput) bool { return true }
func (panicStrategy) Dispatch(context.Context, *clip.DispatchInput) (*clip.DispatchResult, error) {
	panic("nil map")
}

func TestDispatch_RecoverTurnsPanicIntoFailure(t *testing.T) {
	f := newFacade(t, []provider.Strategy{panicStrategy{}, newFake("backup")},
		provider.WithMiddleware(middleware.Recover(quietLogger())),
	)

	res, err := f.Dispatch(context.Background(), input())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Provider != "backup" {
		t.Errorf("Provider = %q, want backup", res.Provider)
	}
	snap, _ := f.Breaker("panicky")
	if snap.ConsecutiveFailures != 2 {
		t.Errorf("ConsecutiveFailures = %d, want 2", snap.ConsecutiveFailures)
	}
}

func TestDispatch_RateLimitHonorsContext(t *testing.T) {
	s := newFake("fal")
	f := newFacade(t, []provider.Strategy{s}, provider.WithRateLimit(0.001, 1))

	if _, err := f.Dispatch(context.Background(), input()); err != nil {
		t.Fatalf("first Dispatch: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := f.Dispatch(ctx, input()); err == nil {
		t.Fatal("expected rate limited dispatch to fail once the context expires")
	}
	if s.Calls() != 1 {
		t.Errorf("calls = %d, want 1", s.Calls())
	}
}

func TestBreaker_Unknown(t *testing.T) {
	f := newFacade(t, []provider.Strategy{newFake("fal")})
	if _, ok := f.Breaker("nope"); ok {
		t.Error("Breaker(nope) ok = true, want false")
	}
	if got := f.Providers(); len(got) != 1 || got[0] != "fal" {
		t.Errorf("Providers = %v, want [fal]", got)
	}
}
