package accessor

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName identifies this package's spans to whatever tracer provider
// the embedding application has configured. Wiring an actual exporter is
// that application's responsibility; with no provider configured, the
// global otel default is a zero-cost no-op tracer.
const tracerName = "github.com/coreobj/accessor"

func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartOpSpan starts a span named "accessor.<op>" for path, recording the
// operation and path as span attributes. Callers should defer EndOpSpan
// with the resulting error.
func StartOpSpan(ctx context.Context, op, path string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "accessor."+op, trace.WithAttributes(
		attribute.String("accessor.op", op),
		attribute.String("accessor.path", path),
	))
}

// EndOpSpan records err (if any) on span and ends it.
func EndOpSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
