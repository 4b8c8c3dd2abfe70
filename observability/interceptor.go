package observability

import (
	stderrors "errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/resourcekit/errors"
	"github.com/kbukum/resourcekit/logger"
	"github.com/kbukum/resourcekit/resource"
)

// InterceptorName is the Name of the interceptor returned by NewInterceptor.
const InterceptorName = "observability"

const callStateKey = "observability.call"

// Option configures NewInterceptor.
type Option func(*options)

type options struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	propagator     propagation.TextMapPropagator
	log            *logger.Logger
}

// WithTracerProvider records spans on tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithMeterProvider records metrics on mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithPropagator injects trace context into request headers with p.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(o *options) { o.propagator = p }
}

// WithLogger sets the logger for failed calls.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

type observer struct {
	tracer     trace.Tracer
	metrics    *Metrics
	propagator propagation.TextMapPropagator
	log        *logger.Logger
}

type callState struct {
	span trace.Span
}

// NewInterceptor returns an interceptor that wraps every resource call in
// a client span, injects the trace context into the request headers and
// records call metrics. The span ends in the afterResponse phase.
func NewInterceptor(opts ...Option) (*resource.Interceptor, error) {
	o := options{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		propagator:     otel.GetTextMapPropagator(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get("observability")
	}

	metrics, err := NewMetrics(o.meterProvider.Meter(instrumentationName))
	if err != nil {
		return nil, err
	}
	obs := &observer{
		tracer:     o.tracerProvider.Tracer(instrumentationName),
		metrics:    metrics,
		propagator: o.propagator,
		log:        o.log,
	}
	return &resource.Interceptor{
		Name:                InterceptorName,
		BeforeRequest:       obs.beforeRequest,
		Request:             obs.request,
		BeforeResponse:      obs.beforeResponse,
		BeforeResponseError: obs.beforeResponseError,
		AfterResponse:       obs.afterResponse,
		AfterResponseError:  obs.afterResponseError,
	}, nil
}

// state returns the call's span, starting it on first use. Calls that skip
// request processing start it in a response phase.
func (o *observer) state(call *resource.Call) *callState {
	if s, ok := call.Value(callStateKey).(*callState); ok {
		return s
	}
	ctx, span := o.tracer.Start(call.Context(), SpanResourcePrefix+call.Operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithTimestamp(call.Started),
		trace.WithAttributes(
			attribute.String(AttrResource, call.Descriptor.Name),
			attribute.String(AttrOperation, call.Operation),
			attribute.String(AttrCallID, call.ID),
		),
	)
	o.metrics.RecordCallStart(ctx, call.Descriptor.Name)
	s := &callState{span: span}
	call.Set(callStateKey, s)
	return s
}

func (o *observer) beforeRequest(_ any, call *resource.Call) (any, error) {
	o.state(call)
	return nil, nil
}

func (o *observer) request(v any, call *resource.Call) (any, error) {
	s := o.state(call)
	cfg, ok := v.(*resource.HTTPConfig)
	if !ok {
		return nil, nil
	}
	s.span.SetAttributes(
		attribute.String(AttrHTTPMethod, cfg.Method),
		attribute.String(AttrURL, cfg.URL),
	)
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	o.propagator.Inject(trace.ContextWithSpan(call.Context(), s.span), propagation.MapCarrier(cfg.Headers))
	return cfg, nil
}

func (o *observer) beforeResponse(v any, call *resource.Call) (any, error) {
	if resp, ok := v.(*resource.Response); ok {
		o.state(call).span.SetAttributes(attribute.Int(AttrStatus, resp.Status))
	}
	return nil, nil
}

func (o *observer) beforeResponseError(err error, call *resource.Call) (any, error) {
	var httpErr *resource.HTTPError
	if stderrors.As(err, &httpErr) && httpErr.Status > 0 {
		o.state(call).span.SetAttributes(attribute.Int(AttrStatus, httpErr.Status))
	}
	return nil, err
}

func (o *observer) afterResponse(_ any, call *resource.Call) (any, error) {
	o.finish(call, nil)
	return nil, nil
}

func (o *observer) afterResponseError(err error, call *resource.Call) (any, error) {
	o.finish(call, err)
	return nil, err
}

func (o *observer) finish(call *resource.Call, err error) {
	s := o.state(call)
	ctx := trace.ContextWithSpan(call.Context(), s.span)
	name := call.Descriptor.Name
	status := "ok"
	if err != nil {
		status = "error"
		code := string(errors.Wrap(err).Code)
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
		s.span.SetAttributes(
			attribute.String(AttrErrorCode, code),
			attribute.String(AttrErrorMessage, err.Error()),
		)
		o.metrics.RecordError(ctx, name, code)
		sc := s.span.SpanContext()
		logCtx := logger.ContextWithTrace(ctx, sc.TraceID().String(), sc.SpanID().String())
		o.log.WithContext(logCtx).Debug("resource call failed", logger.Fields(
			logger.FieldResource, name,
			logger.FieldOperation, call.Operation,
			logger.FieldError, err.Error(),
			"code", code,
		))
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	o.metrics.RecordCallEnd(ctx, name, call.Operation, status, time.Since(call.Started))
	s.span.End()
}
