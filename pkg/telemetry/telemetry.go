// Package telemetry configures the OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/tfullert/ultra-cli/pkg/config"
)

// ServiceName identifies ultra-cli spans.
const ServiceName = "ultra-cli"

type options struct {
	version string
	console io.Writer
}

// Option configures Setup.
type Option func(*options)

// WithVersion sets the service version attached to every span.
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// WithConsoleWriter sets where the console exporter writes. Defaults to
// stderr so spans never mix with command output.
func WithConsoleWriter(w io.Writer) Option {
	return func(o *options) { o.console = w }
}

// Setup installs a global tracer provider exporting to the destinations
// named by cfg.Exporter: "none", "console", "otlp" or "both". The returned
// function flushes and stops the provider.
func Setup(ctx context.Context, cfg config.TelemetryConfig, opts ...Option) (trace.Tracer, func(context.Context) error, error) {
	o := options{version: "dev", console: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(ServiceName),
			semconv.ServiceVersionKey.String(o.version),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporters, err := newExporters(ctx, cfg, o.console)
	if err != nil {
		return nil, nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
	)
	for _, exporter := range exporters {
		tp.RegisterSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter))
	}

	otel.SetTracerProvider(tp)

	shutdown := func(ctx context.Context) error {
		return tp.Shutdown(ctx)
	}
	return tp.Tracer(ServiceName), shutdown, nil
}

func newExporters(ctx context.Context, cfg config.TelemetryConfig, console io.Writer) ([]sdktrace.SpanExporter, error) {
	var exporters []sdktrace.SpanExporter

	exporter := cfg.Exporter
	if exporter == "" {
		exporter = "none"
	}

	switch exporter {
	case "none":
		// Spans are still created, just not exported.
	case "console", "otlp", "both":
	default:
		return nil, fmt.Errorf("unknown telemetry exporter %q", exporter)
	}

	if exporter == "console" || exporter == "both" {
		consoleExporter, err := stdouttrace.New(
			stdouttrace.WithWriter(console),
			stdouttrace.WithPrettyPrint(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create console exporter: %w", err)
		}
		exporters = append(exporters, consoleExporter)
	}

	if exporter == "otlp" || exporter == "both" {
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		otlpExporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(), // TODO: add a TLS setting once a collector needs it
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		exporters = append(exporters, otlpExporter)
	}

	return exporters, nil
}
