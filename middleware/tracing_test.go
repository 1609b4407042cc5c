package middleware_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	mw "github.com/cladams7905/zencourt-sub006/middleware"
)

func setupTestTracer() (*tracetest.SpanRecorder, trace.Tracer) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return sr, tp.Tracer("test")
}

func newTestAttempt() *mw.Attempt {
	return &mw.Attempt{
		Provider: "fal",
		JobID:    "job-1",
		VideoID:  "video-1",
		Model:    "kling-v2",
		Number:   2,
	}
}

func TestTracing_CreatesSpan(t *testing.T) {
	sr, tracer := setupTestTracer()
	m := mw.TracingWithTracer(tracer)

	err := m(context.Background(), newTestAttempt(), func(_ context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "zencourt.provider.dispatch" {
		t.Errorf("span name = %q, want %q", spans[0].Name(), "zencourt.provider.dispatch")
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", spans[0].Status().Code)
	}
}

func TestTracing_SpanAttributes(t *testing.T) {
	sr, tracer := setupTestTracer()
	m := mw.TracingWithTracer(tracer)

	_ = m(context.Background(), newTestAttempt(), func(_ context.Context) error {
		return nil
	})

	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range sr.Ended()[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}

	checks := map[attribute.Key]string{
		"zencourt.provider": "fal",
		"zencourt.job.id":   "job-1",
		"zencourt.video.id": "video-1",
		"zencourt.model":    "kling-v2",
	}
	for key, want := range checks {
		if got := attrs[key].AsString(); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
	if got := attrs["zencourt.attempt"].AsInt64(); got != 2 {
		t.Errorf("zencourt.attempt = %d, want 2", got)
	}
}

func TestTracing_RecordsError(t *testing.T) {
	sr, tracer := setupTestTracer()
	m := mw.TracingWithTracer(tracer)
	want := errors.New("provider down")

	err := m(context.Background(), newTestAttempt(), func(_ context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}

	span := sr.Ended()[0]
	if span.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", span.Status().Code)
	}
	if span.Status().Description != "provider down" {
		t.Errorf("description = %q, want %q", span.Status().Description, "provider down")
	}
}
