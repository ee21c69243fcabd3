// Package telemetry wraps OpenTelemetry tracing and metrics for analysis
// runs. A nil *Provider is valid and records nothing.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// DefaultServiceName is the instrumentation scope used when none is configured.
const DefaultServiceName = "lelir"

// Config selects whether instruments are live.
type Config struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	ServiceName string `yaml:"service_name" json:"service_name"`
}

// Option overrides the providers instruments are created from.
type Option func(*options)

type options struct {
	tp trace.TracerProvider
	mp metric.MeterProvider
}

// WithTracerProvider uses tp instead of the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tp = tp }
}

// WithMeterProvider uses mp instead of the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.mp = mp }
}

// Provider holds the tracer and the analysis instruments.
type Provider struct {
	tracer trace.Tracer

	events        metric.Int64Counter
	findings      metric.Int64Counter
	stageDuration metric.Float64Histogram
}

// New creates a provider. A disabled config yields no-op instruments; an
// enabled one uses the global OpenTelemetry providers unless overridden.
func New(cfg Config, opts ...Option) (*Provider, error) {
	o := options{tp: otel.GetTracerProvider(), mp: otel.GetMeterProvider()}
	for _, opt := range opts {
		opt(&o)
	}
	if !cfg.Enabled {
		o.tp, o.mp = tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider()
	}
	name := cfg.ServiceName
	if name == "" {
		name = DefaultServiceName
	}

	meter := o.mp.Meter(name)
	p := &Provider{tracer: o.tp.Tracer(name)}
	var err error
	if p.events, err = meter.Int64Counter("lelir.events.processed",
		metric.WithDescription("Trace events processed by analyses"),
		metric.WithUnit("{event}")); err != nil {
		return nil, fmt.Errorf("create events counter: %w", err)
	}
	if p.findings, err = meter.Int64Counter("lelir.findings",
		metric.WithDescription("Findings produced by analyses"),
		metric.WithUnit("{finding}")); err != nil {
		return nil, fmt.Errorf("create findings counter: %w", err)
	}
	if p.stageDuration, err = meter.Float64Histogram("lelir.stage.duration",
		metric.WithDescription("Duration of analysis stages"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("create stage histogram: %w", err)
	}
	return p, nil
}

// StartStage opens a span for one analysis stage. The returned function ends
// the span, records the stage duration and marks the span failed when err is
// non-nil.
func (p *Provider) StartStage(ctx context.Context, stage string, attrs ...attribute.KeyValue) (context.Context, func(err error)) {
	if p == nil {
		return ctx, func(error) {}
	}
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "analysis."+stage, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		status := "ok"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		p.stageDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("status", status),
		))
		span.End()
	}
}

// CountEvents adds n processed events.
func (p *Provider) CountEvents(ctx context.Context, n int, attrs ...attribute.KeyValue) {
	if p == nil || n <= 0 {
		return
	}
	p.events.Add(ctx, int64(n), metric.WithAttributes(attrs...))
}

// CountFindings adds n findings of the given kind.
func (p *Provider) CountFindings(ctx context.Context, kind string, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.findings.Add(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kind)))
}
