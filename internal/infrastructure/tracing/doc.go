/*
Package tracing gives every broker request a trace id.

Spans are opened by HTTPMiddleware, finished when the handler returns, and
logged by a background collector at debug level (errors at error level).
Clients can join an existing trace by sending X-Trace-ID and X-Span-ID; the
ids of the server span are always echoed back in the same headers.

# Usage

	tracer := tracing.New("ipc-broker", logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "seed")
	span.SetTag("dir", dir)
	span.Finish()
	tracer.Submit(span)

Ids are ULIDs, so spans sort by start time.
*/
package tracing
