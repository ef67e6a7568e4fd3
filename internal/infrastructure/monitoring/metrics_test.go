package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsAreIsolatedPerInstance(t *testing.T) {
	// Two instances must not collide on registration
	a := NewMetrics()
	b := NewMetrics()

	a.ChannelOpened("queue")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.ChannelsCreated.WithLabelValues("queue")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ChannelsCreated.WithLabelValues("queue")))
}

func TestChannelLifecycle(t *testing.T) {
	m := NewMetrics()

	m.ChannelOpened("stream")
	m.ChannelOpened("stream")
	m.ChannelClosed("stream")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ChannelsCreated.WithLabelValues("stream")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChannelsOpen.WithLabelValues("stream")))
	assert.Equal(t, int64(2), m.Snapshot().ChannelsCreated)
}

func TestRecordMessageAndDenial(t *testing.T) {
	m := NewMetrics()

	m.RecordMessage("queue", OpSend, OutcomeOK)
	m.RecordMessage("queue", OpSend, OutcomeDenied)
	m.RecordMessage("queue", OpReceive, OutcomeOK)
	m.RecordMessage("queue", OpReceive, OutcomeEmpty)
	m.RecordDenial("sender")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Messages.WithLabelValues("queue", OpSend, OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Messages.WithLabelValues("queue", OpSend, OutcomeDenied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Denials.WithLabelValues("sender")))

	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.MessagesSent)
	assert.Equal(t, int64(1), snap.MessagesRecv)
	assert.Equal(t, int64(1), snap.Denials)
}

func TestWorkerGauge(t *testing.T) {
	m := NewMetrics()

	m.WorkerStarted("Periodic-Emitter")
	m.WorkerStarted("Echo-Transformer")
	m.WorkerStopped("Echo-Transformer", true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.WorkersActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WorkerFaults.WithLabelValues("Echo-Transformer")))
	assert.Equal(t, int64(1), m.Snapshot().WorkersActive)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ChannelOpened("queue")
		m.ChannelClosed("queue")
		m.RecordMessage("queue", OpSend, OutcomeOK)
		m.RecordDenial("receiver")
		m.WorkerStarted("x")
		m.WorkerStopped("x", false)
		m.IncWSConnections()
		m.DecWSConnections()
		m.RecordHTTPRequest("GET", "/", "200", 0)
	})
	assert.Equal(t, Snapshot{}, m.Snapshot())
}

func TestHandlerAndMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/channels/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/channels/7", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/channels/:id", "200")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "ipc_uptime_seconds"))
}
