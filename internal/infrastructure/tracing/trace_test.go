package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ipc-control-room/ipc-project/internal/infrastructure/logging"
)

type captured struct {
	mu      sync.Mutex
	entries []string
}

func (c *captured) sink(message string, _ logging.Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, message)
}

func (c *captured) find(substr string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if strings.Contains(e, substr) {
			return e
		}
	}
	return ""
}

func newTracer(t *testing.T) (*Tracer, *captured) {
	t.Helper()
	hub := logging.NewHubAt(zapcore.DebugLevel)
	c := &captured{}
	hub.Register(c.sink)

	tracer := New("test", logging.NewNop().WithHub(hub))
	t.Cleanup(tracer.Close)
	return tracer, c
}

func TestStartSpanContinuesTrace(t *testing.T) {
	tracer, _ := newTracer(t)

	root, ctx := tracer.StartSpan(context.Background(), "root")
	require.NotEmpty(t, root.TraceID)
	assert.Empty(t, root.ParentID)
	assert.Equal(t, root.TraceID, TraceIDFrom(ctx))

	child, ctx := tracer.StartSpan(ctx, "child")
	assert.Equal(t, root.TraceID, child.TraceID)
	assert.Equal(t, root.SpanID, child.ParentID)
	assert.Equal(t, child.SpanID, SpanIDFrom(ctx))
	assert.NotEqual(t, root.SpanID, child.SpanID)
}

func TestSubmitLogsSpan(t *testing.T) {
	tracer, c := newTracer(t)

	span, _ := tracer.StartSpan(context.Background(), "seed")
	span.SetTag("dir", "topology")
	span.Finish()
	tracer.Submit(span)

	require.Eventually(t, func() bool { return c.find("Span completed") != "" }, time.Second, 5*time.Millisecond)
	entry := c.find("Span completed")
	assert.Contains(t, entry, "operation=seed")
	assert.Contains(t, entry, "dir=topology")
	assert.Contains(t, entry, "trace_id="+string(span.TraceID))

	failed, _ := tracer.StartSpan(context.Background(), "broken")
	failed.SetError(errors.New("boom"))
	failed.Finish()
	tracer.Submit(failed)

	require.Eventually(t, func() bool { return c.find("with error") != "" }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 500, failed.StatusCode)
}

func TestSubmitAfterCloseIsDropped(t *testing.T) {
	tracer, _ := newTracer(t)
	tracer.Close()
	tracer.Close()

	span, _ := tracer.StartSpan(context.Background(), "late")
	assert.NotPanics(t, func() { tracer.Submit(span) })
}

func TestHTTPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracer, c := newTracer(t)

	var seen TraceID
	router := gin.New()
	router.Use(HTTPMiddleware(tracer))
	router.POST("/channels/:id/send", func(c *gin.Context) {
		seen = TraceIDFrom(c.Request.Context())
		c.Status(http.StatusOK)
	})

	t.Run("new trace", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/channels/7/send", nil)
		req.Header.Set(ActorHeader, "3")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.NotEmpty(t, w.Header().Get(TraceHeader))
		assert.NotEmpty(t, w.Header().Get(SpanHeader))
		assert.Equal(t, TraceID(w.Header().Get(TraceHeader)), seen)

		require.Eventually(t, func() bool {
			return c.find("resource_id=7") != ""
		}, time.Second, 5*time.Millisecond)
		entry := c.find("resource_id=7")
		assert.Contains(t, entry, "actor=3")
		assert.Contains(t, entry, "http.status=200")
		assert.Contains(t, entry, "operation=POST /channels/:id/send")
	})

	t.Run("inbound trace", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/channels/8/send", nil)
		req.Header.Set(TraceHeader, "client-trace")
		req.Header.Set(SpanHeader, "client-span")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "client-trace", w.Header().Get(TraceHeader))
		assert.Equal(t, TraceID("client-trace"), seen)
		require.Eventually(t, func() bool {
			return c.find("parent_id=client-span") != ""
		}, time.Second, 5*time.Millisecond)
	})
}

func TestProcessIncludesFields(t *testing.T) {
	tracer, c := newTracer(t)
	tracer.logger.Info("collector", zap.String("k", "v"))
	assert.Equal(t, "[trace] collector k=v", c.find("collector"))
}
