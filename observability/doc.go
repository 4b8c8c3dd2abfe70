// Package observability provides OpenTelemetry tracing and metrics for
// resource calls.
//
// Providers:
//
//	tp, err := observability.InitTracer(ctx, &cfg.Tracing)
//	defer tp.Shutdown(ctx)
//
//	mp, err := observability.InitMeter(ctx, &cfg.Metrics)
//	defer mp.Shutdown(ctx)
//
// Interceptor:
//
//	ic, err := observability.NewInterceptor()
//	books.AddInterceptor(ic)
//
// Every call then produces a "resource.<operation>" client span, carries a
// traceparent header and updates the resource.call.* instruments.
//
// Health:
//
//	health := observability.NewServiceHealth("books", "1.0.0").Check(ctx, transport)
package observability
