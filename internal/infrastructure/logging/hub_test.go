package logging

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorded struct {
	message string
	level   Level
}

type recorder struct {
	mu      sync.Mutex
	entries []recorded
}

func (r *recorder) sink(message string, level Level) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, recorded{message, level})
}

func (r *recorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.entries...)
}

func TestHubBroadcastsLevels(t *testing.T) {
	hub := NewHub()
	rec := &recorder{}
	hub.Register(rec.sink)

	logger := NewNop().WithHub(hub)
	logger.Info("created", zap.Int("id", 1))
	logger.Warn("careful")
	logger.Error("broken", zap.String("reason", "eof"))
	logger.Security("denied", zap.Int("actor", 3))
	logger.Debug("hidden")

	entries := rec.all()
	require.Len(t, entries, 4)

	assert.Equal(t, recorded{"created id=1", LevelInfo}, entries[0])
	assert.Equal(t, recorded{"careful", LevelWarn}, entries[1])
	assert.Equal(t, recorded{"broken reason=eof", LevelError}, entries[2])
	assert.Equal(t, recorded{"denied actor=3", LevelSecurity}, entries[3])
}

func TestHubIncludesNameAndContextFields(t *testing.T) {
	hub := NewHub()
	rec := &recorder{}
	hub.Register(rec.sink)

	logger := NewNop().WithHub(hub).Named("queue").With(zap.String("channel", "jobs"))
	logger.Info("enqueued", zap.Int("actor", 1))

	entries := rec.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "[queue] enqueued actor=1 channel=jobs", entries[0].message)
}

func TestHubSinkPanicIsIsolated(t *testing.T) {
	hub := NewHub()
	rec := &recorder{}

	hub.Register(func(string, Level) { panic("bad sink") })
	hub.Register(rec.sink)

	assert.NotPanics(t, func() {
		hub.Emit("still delivered", LevelInfo)
	})
	assert.Equal(t, []recorded{{"still delivered", LevelInfo}}, rec.all())
}

func TestHubUnregister(t *testing.T) {
	hub := NewHub()
	rec := &recorder{}

	sid := hub.Register(rec.sink)
	assert.Equal(t, 1, hub.Len())

	hub.Emit("one", LevelInfo)
	hub.Unregister(sid)
	hub.Emit("two", LevelInfo)
	hub.Unregister(sid)

	assert.Equal(t, 0, hub.Len())
	assert.Equal(t, []recorded{{"one", LevelInfo}}, rec.all())
}

func TestWithHubNil(t *testing.T) {
	logger := NewNop()
	assert.Same(t, logger, logger.WithHub(nil))
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud", OutputPaths: []string{"stdout"}})
	assert.Error(t, err)
}

func TestNewWritesByMode(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		development bool
		contains    []string
		excludes    string
	}{
		{"production json", "info", false, []string{`"level":"info"`, `"message":"kept"`}, "dropped"},
		{"development console", "debug", true, []string{"kept", "dropped"}, `"level"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "broker.log")
			logger, err := New(Config{Level: tt.level, Development: tt.development, OutputPaths: []string{path}})
			require.NoError(t, err)

			logger.Debug("dropped")
			logger.Info("kept")
			_ = logger.Sync()

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, string(data), want)
			}
			assert.NotContains(t, string(data), tt.excludes)
		})
	}
}
