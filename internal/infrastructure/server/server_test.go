package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipc-control-room/ipc-project/internal/domain/channel"
	"github.com/ipc-control-room/ipc-project/internal/domain/process"
	"github.com/ipc-control-room/ipc-project/internal/infrastructure/config"
	"github.com/ipc-control-room/ipc-project/internal/infrastructure/logging"
	"github.com/ipc-control-room/ipc-project/internal/infrastructure/tracing"
)

const topology = `
channels:
  - kind: queue
    name: jobs
    senders: [1]
    receivers: [2]
  - kind: stream
    name: pings
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.RateLimit.Enabled = false
	cfg.Workers.Tick = 10 * time.Millisecond
	cfg.Workers.EmitPeriod = 20 * time.Millisecond
	cfg.Workers.ShutdownTimeout = time.Second

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "core.yaml"), []byte(topology), 0o644))
	cfg.IPC.SeedDir = dir
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	srv, err := NewServer(cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close(context.Background()) })
	return srv
}

func call(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	var out map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestNewServerSeedsChannels(t *testing.T) {
	srv := newTestServer(t, testConfig(t))

	assert.Equal(t, 2, srv.Registry().Len())

	w, body := call(t, srv, http.MethodGet, "/channels", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), body["count"])
	assert.NotEmpty(t, w.Header().Get(tracing.TraceHeader))
}

func TestNewServerRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.IPC.SharedBufferCapacity = 0

	_, err := NewServer(cfg, logging.NewNop())
	assert.Error(t, err)
}

func TestAuthorizationFlowsThroughServer(t *testing.T) {
	srv := newTestServer(t, testConfig(t))

	w, body := call(t, srv, http.MethodPost, "/channels/1/send", `{"actor": 9, "payload": "x"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["success"])

	w, body = call(t, srv, http.MethodPost, "/channels/1/send", `{"actor": 1, "payload": "job"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])

	w, body = call(t, srv, http.MethodPost, "/channels/1/receive", `{"actor": 2}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "job", body["payload"])

	_, logs := call(t, srv, http.MethodGet, "/logs", "")
	entries, _ := logs["entries"].([]any)
	var sawSecurity bool
	for _, e := range entries {
		entry, _ := e.(map[string]any)
		if entry["level"] == string(logging.LevelSecurity) {
			sawSecurity = true
		}
	}
	assert.True(t, sawSecurity, "denied send should appear in log history")
}

func TestPrometheusEndpoint(t *testing.T) {
	srv := newTestServer(t, testConfig(t))
	call(t, srv, http.MethodGet, "/health", "")

	w, _ := call(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ipc_channels_created_total")
	assert.Contains(t, w.Body.String(), "ipc_http_requests_total")
}

func TestCloseStopsWorkers(t *testing.T) {
	srv := newTestServer(t, testConfig(t))

	wid, worker, _, err := srv.Supervisor().Spawn(context.Background(), process.EmitterSpec{Channel: mustLookup(t, srv, 2)})
	require.NoError(t, err)
	assert.Positive(t, wid)

	require.NoError(t, srv.Close(context.Background()))

	select {
	case <-worker.Done():
	case <-time.After(time.Second):
		t.Fatal("worker still running after Close")
	}
	assert.Equal(t, 0, srv.Registry().Len())
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"
	srv := newTestServer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func mustLookup(t *testing.T, srv *Server, cid int) channel.Channel {
	t.Helper()
	ch, ok := srv.Registry().Lookup(cid)
	require.True(t, ok)
	return ch
}
