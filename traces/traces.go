// Package traces gives scheduled work a span per run. Spans go nowhere until a
// tracer provider is installed with otel.SetTracerProvider.
package traces

import (
	"context"

	"github.com/iidesho/auditflow/webserver/health"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var Traces = otel.Tracer(health.Name)

func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Traces.Start(ctx, name, trace.WithAttributes(attrs...))
}

// End marks span failed when err is set and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
