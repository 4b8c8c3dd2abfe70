package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/resourcekit/logger"
)

// MeterConfig configures metric export.
type MeterConfig struct {
	ExporterConfig `yaml:",inline" mapstructure:",squash"`
	// Interval is how often metrics are pushed. Default 15s.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// DefaultMeterConfig pushes to a local collector every 15s.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{ExporterConfig: defaultExporterConfig(serviceName), Interval: 15 * time.Second}
}

// InitMeter installs a periodic OTLP/HTTP meter provider as the global.
// Shut the provider down on exit to push the last interval.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(config.Endpoint)}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}
	res, err := config.resource()
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Get("observability").Info("meter initialized", logger.Fields(
		logger.FieldService, config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))
	return mp, nil
}

// Metric names recorded for resource calls.
const (
	MetricCallTotal    = "resource.call.total"
	MetricCallDuration = "resource.call.duration"
	MetricCallActive   = "resource.call.active"
	MetricErrorTotal   = "resource.error.total"
)

// Metrics holds the instruments recorded for resource calls.
type Metrics struct {
	callTotal    metric.Int64Counter
	callDuration metric.Float64Histogram
	callActive   metric.Int64UpDownCounter
	errorTotal   metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	callTotal, err := meter.Int64Counter(MetricCallTotal,
		metric.WithDescription("Total number of resource calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricCallTotal, err)
	}

	callDuration, err := meter.Float64Histogram(MetricCallDuration,
		metric.WithDescription("Duration of resource calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricCallDuration, err)
	}

	callActive, err := meter.Int64UpDownCounter(MetricCallActive,
		metric.WithDescription("Number of resource calls in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s gauge: %w", MetricCallActive, err)
	}

	errorTotal, err := meter.Int64Counter(MetricErrorTotal,
		metric.WithDescription("Total failed resource calls by error code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricErrorTotal, err)
	}

	return &Metrics{
		callTotal:    callTotal,
		callDuration: callDuration,
		callActive:   callActive,
		errorTotal:   errorTotal,
	}, nil
}

func attrs(resourceName string, kv ...string) metric.MeasurementOption {
	set := []attribute.KeyValue{attribute.String("resource", resourceName)}
	for i := 0; i+1 < len(kv); i += 2 {
		set = append(set, attribute.String(kv[i], kv[i+1]))
	}
	return metric.WithAttributes(set...)
}

// RecordCallStart counts a call as in flight.
func (m *Metrics) RecordCallStart(ctx context.Context, resourceName string) {
	m.callActive.Add(ctx, 1, attrs(resourceName))
}

// RecordCallEnd ends an in-flight call. status is "ok" or "error".
func (m *Metrics) RecordCallEnd(ctx context.Context, resourceName, operation, status string, duration time.Duration) {
	m.callActive.Add(ctx, -1, attrs(resourceName))
	m.callTotal.Add(ctx, 1, attrs(resourceName, "operation", operation, "status", status))
	m.callDuration.Record(ctx, duration.Seconds(), attrs(resourceName, "operation", operation))
}

// RecordError counts a failed call by error code.
func (m *Metrics) RecordError(ctx context.Context, resourceName, code string) {
	m.errorTotal.Add(ctx, 1, attrs(resourceName, "code", code))
}
