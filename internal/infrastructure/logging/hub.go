package logging

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"

	"github.com/ipc-control-room/ipc-project/internal/shared/id"
)

// Level is the coarse level a sink sees.
type Level string

const (
	LevelDebug    Level = "DEBUG"
	LevelInfo     Level = "INFO"
	LevelWarn     Level = "WARN"
	LevelError    Level = "ERROR"
	LevelSecurity Level = "SECURITY"
)

// Entries carrying CategoryKey=CategorySecurity are delivered as LevelSecurity.
const (
	CategoryKey      = "category"
	CategorySecurity = "security"
)

// Sink receives broadcast log entries. Sinks are called synchronously on the
// logging goroutine and should return quickly.
type Sink func(message string, level Level)

// Hub fans out log entries to registered sinks.
type Hub struct {
	mu    sync.RWMutex
	sinks map[id.SinkID]Sink
	order []id.SinkID
	level zapcore.LevelEnabler
}

// NewHub creates a hub that broadcasts info and above.
func NewHub() *Hub {
	return NewHubAt(zapcore.InfoLevel)
}

// NewHubAt creates a hub that broadcasts entries enabled by level.
func NewHubAt(level zapcore.LevelEnabler) *Hub {
	return &Hub{
		sinks: make(map[id.SinkID]Sink),
		level: level,
	}
}

// Register adds a sink and returns the id needed to remove it.
func (h *Hub) Register(sink Sink) id.SinkID {
	sid := id.NewSinkID()

	h.mu.Lock()
	h.sinks[sid] = sink
	h.order = append(h.order, sid)
	h.mu.Unlock()

	return sid
}

// Unregister removes a sink. Unknown ids are ignored.
func (h *Hub) Unregister(sid id.SinkID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sinks[sid]; !ok {
		return
	}
	delete(h.sinks, sid)
	for i, s := range h.order {
		if s == sid {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of registered sinks.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sinks)
}

// Emit delivers a pre-formatted entry to every sink in registration order.
func (h *Hub) Emit(message string, level Level) {
	h.mu.RLock()
	sinks := make([]Sink, 0, len(h.order))
	for _, sid := range h.order {
		sinks = append(sinks, h.sinks[sid])
	}
	h.mu.RUnlock()

	for _, sink := range sinks {
		deliver(sink, message, level)
	}
}

// deliver isolates a sink so that a panic cannot escape into the caller.
func deliver(sink Sink, message string, level Level) {
	defer func() {
		_ = recover()
	}()
	sink(message, level)
}

// Core returns a zapcore.Core that feeds this hub.
func (h *Hub) Core() zapcore.Core {
	return &hubCore{hub: h}
}

type hubCore struct {
	hub    *Hub
	fields []zapcore.Field
}

func (c *hubCore) Enabled(level zapcore.Level) bool {
	return c.hub.level.Enabled(level)
}

func (c *hubCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &hubCore{hub: c.hub, fields: merged}
}

func (c *hubCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *hubCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	level := sinkLevel(entry.Level)
	if cat, ok := enc.Fields[CategoryKey].(string); ok && cat == CategorySecurity {
		level = LevelSecurity
	}
	delete(enc.Fields, CategoryKey)

	c.hub.Emit(format(entry, enc.Fields), level)
	return nil
}

func (c *hubCore) Sync() error {
	return nil
}

func sinkLevel(l zapcore.Level) Level {
	switch {
	case l >= zapcore.ErrorLevel:
		return LevelError
	case l == zapcore.WarnLevel:
		return LevelWarn
	case l == zapcore.InfoLevel:
		return LevelInfo
	default:
		return LevelDebug
	}
}

// format renders "[name] message key=value ..." with keys sorted.
func format(entry zapcore.Entry, fields map[string]interface{}) string {
	var sb strings.Builder
	if entry.LoggerName != "" {
		sb.WriteString("[")
		sb.WriteString(entry.LoggerName)
		sb.WriteString("] ")
	}
	sb.WriteString(entry.Message)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, fields[k])
	}
	return sb.String()
}
