package tracing

import (
	"github.com/gin-gonic/gin"
)

// ActorHeader is tagged onto request spans when present.
const ActorHeader = "X-Actor-ID"

// HTTPMiddleware opens one span per request, continuing any trace the client
// sent and echoing the ids back in response headers.
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := WithTrace(c.Request.Context(),
			TraceID(c.GetHeader(TraceHeader)),
			SpanID(c.GetHeader(SpanHeader)),
		)

		name := c.FullPath()
		if name == "" {
			name = "unmatched"
		}
		span, ctx := tracer.StartSpan(ctx, c.Request.Method+" "+name)
		span.SetTag("http.method", c.Request.Method)
		if actor := c.GetHeader(ActorHeader); actor != "" {
			span.SetTag("actor", actor)
		}
		if id := c.Param("id"); id != "" {
			span.SetTag("resource_id", id)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Header(TraceHeader, string(span.TraceID))
		c.Header(SpanHeader, string(span.SpanID))

		c.Next()

		span.SetStatus(c.Writer.Status())
		if len(c.Errors) > 0 {
			span.SetError(c.Errors.Last())
		}
		span.Finish()
		tracer.Submit(span)
	}
}
