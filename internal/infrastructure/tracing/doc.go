// Package tracing provides lightweight request tracing.
//
// Spans are identified by prefixed ULIDs, carried in context, propagated
// through X-Trace-ID / X-Span-ID headers and logged through zap when they
// finish. The HTTP middleware opens a span per request, the dispatcher opens
// one per run, and the backend HTTP client forwards the headers upstream.
//
// Example Usage:
//
//	tracer := tracing.New("aikernel", logger)
//	defer tracer.Close()
//	router.Use(tracing.HTTPMiddleware(tracer))
//
//	span, ctx := tracer.StartSpan(ctx, "dispatch")
//	defer func() { span.Finish(); tracer.Submit(span) }()
package tracing
