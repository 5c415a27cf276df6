// Package telemetry configures an OpenTelemetry tracer provider that emits
// spans for each hot-reload cycle when --trace is set. Output goes to the
// writer passed to New (the run command passes stderr) — there is no
// collector to point at in a dev-time proxy — so the exporter choice favors
// something a developer can read directly.
package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Provider wraps the tracer provider and exposes a shutdown hook.
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
}

// Noop returns a Provider whose Tracer produces no-op spans, used when
// --trace is not set so callers never need a nil check.
func Noop() *Provider {
	return &Provider{tracer: trace.NewNoopTracerProvider().Tracer("mcpwatch")}
}

// New builds a Provider that writes spans as JSON to w.
func New(w io.Writer) (*Provider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("build stdout trace exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(attribute.String("service.name", "mcpwatch")),
	)
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &Provider{tp: tp, tracer: tp.Tracer("mcpwatch")}, nil
}

// Tracer returns the tracer to start spans with.
func (p *Provider) Tracer() trace.Tracer { return p.tracer }

// Shutdown flushes and releases the exporter. Safe to call on a Noop
// Provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}
