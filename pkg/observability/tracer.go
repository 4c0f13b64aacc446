// Package observability wires OpenTelemetry tracing and Prometheus metrics
// for probe runs.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Provider owns the tracer provider and metrics of one process.
type Provider struct {
	tp      trace.TracerProvider
	sdk     *sdktrace.TracerProvider
	metrics *Metrics
}

// Option configures Setup.
type Option func(*setupOptions)

type setupOptions struct {
	processors []sdktrace.SpanProcessor
	stdout     io.Writer
}

// WithSpanProcessor registers an extra span processor. Tracing is enabled
// when at least one is given, even if the config disables it.
func WithSpanProcessor(sp sdktrace.SpanProcessor) Option {
	return func(o *setupOptions) {
		o.processors = append(o.processors, sp)
	}
}

// WithStdoutWriter redirects the stdout exporter.
func WithStdoutWriter(w io.Writer) Option {
	return func(o *setupOptions) {
		o.stdout = w
	}
}

// Setup builds tracing and metrics from cfg. A disabled tracer yields a
// no-op provider and disabled metrics yield nil Metrics, both safe to use.
func Setup(ctx context.Context, cfg Config, opts ...Option) (*Provider, error) {
	cfg.SetDefaults()

	o := &setupOptions{stdout: os.Stderr}
	for _, opt := range opts {
		opt(o)
	}

	p := &Provider{tp: noop.NewTracerProvider()}

	if cfg.Metrics.Enabled {
		m, err := NewMetrics(cfg.Metrics.Namespace)
		if err != nil {
			return nil, err
		}
		p.metrics = m
	}

	if !cfg.Tracing.Enabled && len(o.processors) == 0 {
		return p, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.Tracing.ServiceName),
			semconv.ServiceVersion(cfg.Tracing.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providerOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Tracing.SamplingRate))),
	}
	if cfg.Tracing.Enabled {
		exporter, err := createExporter(ctx, &cfg.Tracing, o.stdout)
		if err != nil {
			return nil, fmt.Errorf("failed to create exporter: %w", err)
		}
		providerOpts = append(providerOpts, sdktrace.WithBatcher(exporter))
	}
	for _, sp := range o.processors {
		providerOpts = append(providerOpts, sdktrace.WithSpanProcessor(sp))
	}

	sdk := sdktrace.NewTracerProvider(providerOpts...)
	otel.SetTracerProvider(sdk)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p.tp = sdk
	p.sdk = sdk
	return p, nil
}

func createExporter(ctx context.Context, cfg *TracingConfig, stdout io.Writer) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case ExporterStdout:
		return stdouttrace.New(stdouttrace.WithWriter(stdout), stdouttrace.WithPrettyPrint())
	case ExporterOTLP:
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithTimeout(cfg.Timeout),
		}
		if cfg.IsInsecure() {
			opts = append(opts,
				otlptracegrpc.WithInsecure(),
				otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
			)
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
		}
		return otlptracegrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported exporter: %s", cfg.Exporter)
	}
}

// Tracer returns the probe tracer. Safe on a nil Provider.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil || p.tp == nil {
		return noop.NewTracerProvider().Tracer(InstrumentationName)
	}
	return p.tp.Tracer(InstrumentationName)
}

// TracerProvider returns the underlying provider.
func (p *Provider) TracerProvider() trace.TracerProvider {
	if p == nil || p.tp == nil {
		return noop.NewTracerProvider()
	}
	return p.tp
}

// Metrics returns the metrics set, nil when metrics are disabled.
func (p *Provider) Metrics() *Metrics {
	if p == nil {
		return nil
	}
	return p.metrics
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.sdk == nil {
		return nil
	}
	if err := p.sdk.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to shut down tracer provider: %w", err)
	}
	return nil
}
