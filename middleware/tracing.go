package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name for zencourt tracing.
const tracerName = "github.com/cladams7905/zencourt-sub006"

// Tracing returns middleware that wraps each attempt in an OpenTelemetry
// span. Without a global TracerProvider the noop tracer is used.
//
// Span attributes: zencourt.provider, zencourt.job.id, zencourt.video.id,
// zencourt.model, zencourt.attempt.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(tracerName))
}

// TracingWithTracer returns tracing middleware using the provided tracer.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, a *Attempt, next Handler) error {
		ctx, span := tracer.Start(ctx, "zencourt.provider.dispatch",
			trace.WithAttributes(
				attribute.String("zencourt.provider", a.Provider),
				attribute.String("zencourt.job.id", a.JobID),
				attribute.String("zencourt.video.id", a.VideoID),
				attribute.String("zencourt.model", a.Model),
				attribute.Int("zencourt.attempt", a.Number),
			),
			trace.WithSpanKind(trace.SpanKindClient),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
