// SPDX-License-Identifier: MPL-2.0

// Package tracing builds the OpenTelemetry tracer used by flatten runs.
// Tracing is off unless enabled; when on, spans are written as JSON lines to
// a file.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DefaultServiceName identifies this tool in exported spans.
const DefaultServiceName = "jijflattener"

// ErrNoFilePath is returned when tracing is enabled without an output file.
var ErrNoFilePath = errors.New("trace file path is required when tracing is enabled")

type (
	// Config configures the tracing subsystem.
	Config struct {
		// Enabled controls whether tracing is active. When false, a no-op
		// tracer is returned.
		Enabled bool
		// FilePath receives one JSON document per exported span.
		FilePath string
		// ServiceName identifies this tool in traces.
		ServiceName string
	}

	// Provider wraps the tracer provider and the trace file it writes to.
	Provider struct {
		provider *sdktrace.TracerProvider
		tracer   trace.Tracer
		file     *os.File
	}
)

// NewProvider creates the trace provider. A disabled config yields a no-op
// provider.
func NewProvider(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{tracer: noop.NewTracerProvider().Tracer(DefaultServiceName)}, nil
	}
	if cfg.FilePath == "" {
		return nil, ErrNoFilePath
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return nil, fmt.Errorf("create trace directory: %w", err)
	}
	f, err := os.OpenFile(cfg.FilePath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(f))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = DefaultServiceName
	}

	// Schemaless avoids schema URL conflicts with resource.Default().
	res := resource.NewSchemaless(attribute.String("service.name", serviceName))

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)

	return &Provider{
		provider: provider,
		tracer:   provider.Tracer(serviceName),
		file:     f,
	}, nil
}

// Tracer returns the configured tracer. It is never nil.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Enabled reports whether spans are exported.
func (p *Provider) Enabled() bool {
	return p.provider != nil
}

// Shutdown flushes pending spans and closes the trace file.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider == nil {
		return nil
	}
	return errors.Join(p.provider.Shutdown(ctx), p.file.Close())
}
