package observability

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerName is the instrumentation scope used by phasebook spans.
const TracerName = "github.com/rogers-f/phasebook"

// SetupTracing installs a global tracer provider. When enabled, spans are
// written as JSON to w; otherwise a no-op provider is used. The returned
// shutdown flushes pending spans.
func SetupTracing(enabled bool, w io.Writer) (shutdown func(context.Context) error, err error) {
	if !enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Tracer returns the phasebook tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
