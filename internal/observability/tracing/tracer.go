// Package tracing wires OpenTelemetry spans through HTTP requests and
// ingestion runs.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// ServiceName identifies spans produced by this application.
const ServiceName = "newssense"

// Init installs a tracer provider and the W3C trace-context propagator as
// the globals. Spans are generated so trace IDs correlate logs; no exporter
// is attached. The returned func flushes and shuts the provider down.
func Init(opts ...sdktrace.TracerProviderOption) func(context.Context) error {
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown
}

// Tracer returns the application tracer from the current global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(ServiceName)
}

// Start opens an internal span named name.
//
//	ctx, span := tracing.Start(ctx, "ingest.run")
//	defer span.End()
func Start(ctx context.Context, name string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal))
}
