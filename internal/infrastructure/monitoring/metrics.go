package monitoring

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Channel operations.
const (
	OpSend    = "send"
	OpReceive = "receive"
)

// Operation outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeDenied = "denied"
	OutcomeFailed = "failed"
	OutcomeEmpty  = "empty"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Channel metrics
	ChannelsCreated *prometheus.CounterVec
	ChannelsOpen    *prometheus.GaugeVec
	Messages        *prometheus.CounterVec
	Denials         *prometheus.CounterVec

	// Worker metrics
	WorkersActive  prometheus.Gauge
	WorkersSpawned *prometheus.CounterVec
	WorkerFaults   *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge

	startTime time.Time
	snapshot  snapshotCounters
}

// Snapshot holds current metric values for the JSON API
type Snapshot struct {
	ChannelsCreated int64   `json:"channels_created"`
	MessagesSent    int64   `json:"messages_sent"`
	MessagesRecv    int64   `json:"messages_received"`
	Denials         int64   `json:"denials"`
	WorkersActive   int64   `json:"workers_active"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
}

type snapshotCounters struct {
	channelsCreated atomic.Int64
	messagesSent    atomic.Int64
	messagesRecv    atomic.Int64
	denials         atomic.Int64
	workersActive   atomic.Int64
}

// NewMetrics creates a new metrics collector with its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipc_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ipc_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		ChannelsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipc_channels_created_total",
				Help: "Total number of channels created",
			},
			[]string{"kind"},
		),
		ChannelsOpen: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ipc_channels_open",
				Help: "Number of channels not yet closed",
			},
			[]string{"kind"},
		),
		Messages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipc_channel_operations_total",
				Help: "Channel send/receive operations by outcome",
			},
			[]string{"kind", "op", "outcome"},
		),
		Denials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipc_authorization_denials_total",
				Help: "Operations rejected by the authorization gate",
			},
			[]string{"role"},
		),

		WorkersActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ipc_workers_active",
				Help: "Number of running workers",
			},
		),
		WorkersSpawned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipc_workers_spawned_total",
				Help: "Total number of workers spawned",
			},
			[]string{"role"},
		),
		WorkerFaults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipc_worker_faults_total",
				Help: "Workers terminated by a fault in their unit of work",
			},
			[]string{"role"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ipc_ws_connections",
				Help: "Number of active WebSocket log streams",
			},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "ipc_uptime_seconds",
			Help: "Broker uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry exposes the underlying registry (for tests and custom collectors)
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ChannelOpened records a newly created channel
func (m *Metrics) ChannelOpened(kind string) {
	if m == nil {
		return
	}
	m.ChannelsCreated.WithLabelValues(kind).Inc()
	m.ChannelsOpen.WithLabelValues(kind).Inc()
	m.snapshot.channelsCreated.Add(1)
}

// ChannelClosed records a channel release
func (m *Metrics) ChannelClosed(kind string) {
	if m == nil {
		return
	}
	m.ChannelsOpen.WithLabelValues(kind).Dec()
}

// RecordMessage records one channel operation
func (m *Metrics) RecordMessage(kind, op, outcome string) {
	if m == nil {
		return
	}
	m.Messages.WithLabelValues(kind, op, outcome).Inc()
	if outcome != OutcomeOK {
		return
	}
	switch op {
	case OpSend:
		m.snapshot.messagesSent.Add(1)
	case OpReceive:
		m.snapshot.messagesRecv.Add(1)
	}
}

// RecordDenial records an authorization denial
func (m *Metrics) RecordDenial(role string) {
	if m == nil {
		return
	}
	m.Denials.WithLabelValues(role).Inc()
	m.snapshot.denials.Add(1)
}

// WorkerStarted records a worker entering the running state
func (m *Metrics) WorkerStarted(role string) {
	if m == nil {
		return
	}
	m.WorkersSpawned.WithLabelValues(role).Inc()
	m.WorkersActive.Inc()
	m.snapshot.workersActive.Add(1)
}

// WorkerStopped records a worker leaving the running state
func (m *Metrics) WorkerStopped(role string, faulted bool) {
	if m == nil {
		return
	}
	m.WorkersActive.Dec()
	m.snapshot.workersActive.Add(-1)
	if faulted {
		m.WorkerFaults.WithLabelValues(role).Inc()
	}
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

// Snapshot returns current values for the JSON API
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		ChannelsCreated: m.snapshot.channelsCreated.Load(),
		MessagesSent:    m.snapshot.messagesSent.Load(),
		MessagesRecv:    m.snapshot.messagesRecv.Load(),
		Denials:         m.snapshot.denials.Load(),
		WorkersActive:   m.snapshot.workersActive.Load(),
		UptimeSeconds:   time.Since(m.startTime).Seconds(),
	}
}
