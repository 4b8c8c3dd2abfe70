package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/resourcekit/logger"
)

// TracerConfig configures span export.
type TracerConfig struct {
	ExporterConfig `yaml:",inline" mapstructure:",squash"`
	// SampleRate is the fraction of calls traced, 0.0 to 1.0.
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// DefaultTracerConfig exports every span to a local collector.
func DefaultTracerConfig(serviceName string) TracerConfig {
	return TracerConfig{ExporterConfig: defaultExporterConfig(serviceName), SampleRate: 1.0}
}

func (c *TracerConfig) sampler() sdktrace.Sampler {
	switch {
	case c.SampleRate >= 1:
		return sdktrace.AlwaysSample()
	case c.SampleRate <= 0:
		return sdktrace.NeverSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.SampleRate))
}

// InitTracer installs a batching OTLP/HTTP tracer provider and the W3C
// trace context propagator as the globals. Shut the provider down on exit
// to flush pending spans.
func InitTracer(ctx context.Context, config *TracerConfig) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(config.Endpoint)}
	if config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	res, err := config.resource()
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(config.sampler()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	logger.Get("observability").Info("tracer initialized", logger.Fields(
		logger.FieldService, config.ServiceName,
		"endpoint", config.Endpoint,
		"sample_rate", config.SampleRate,
	))
	return tp, nil
}

// SpanResourcePrefix starts every resource call span name; the operation
// follows, as in "resource.get".
const SpanResourcePrefix = "resource."

// Attribute keys set on resource call spans.
const (
	AttrResource     = "resource.name"
	AttrOperation    = "resource.operation"
	AttrCallID       = "resource.call_id"
	AttrHTTPMethod   = "http.request.method"
	AttrURL          = "url.full"
	AttrStatus       = "http.response.status_code"
	AttrErrorCode    = "error.code"
	AttrErrorMessage = "error.message"
)
