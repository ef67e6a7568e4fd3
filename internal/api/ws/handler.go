package ws

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ipc-control-room/ipc-project/internal/infrastructure/logging"
	"github.com/ipc-control-room/ipc-project/internal/infrastructure/monitoring"
)

const (
	// SendBuffer is how many frames may queue per connection before new
	// log entries are dropped for it.
	SendBuffer = 256
	writeWait  = 5 * time.Second
)

// Frame types sent to clients.
const (
	FrameSystem = "system"
	FrameLog    = "log"
	FramePong   = "pong"
	FrameError  = "error"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Frame is one server-to-client message.
type Frame struct {
	Type    string        `json:"type"`
	Level   logging.Level `json:"level,omitempty"`
	Message string        `json:"message,omitempty"`
	Time    time.Time     `json:"time"`
}

// clientMessage is one client-to-server message.
type clientMessage struct {
	Type string `json:"type"`
}

// Handler streams broker log entries to WebSocket clients
type Handler struct {
	hub     *logging.Hub
	history *logging.Ring
	metrics *monitoring.Metrics
	logger  *logging.Logger
}

// NewHandler creates a log stream handler. history may be nil.
func NewHandler(hub *logging.Hub, history *logging.Ring, metrics *monitoring.Metrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		hub:     hub,
		history: history,
		metrics: metrics,
		logger:  logger.Named("ws"),
	}
}

// HandleConnection upgrades the request and streams log frames until the
// client goes away.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	connID := uuid.New().String()
	logger := h.logger.With(zap.String("conn_id", connID))

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	// out is never closed; sinks may still fire after Unregister
	out := make(chan Frame, SendBuffer)
	done := make(chan struct{})

	push := func(f Frame) {
		select {
		case out <- f:
		case <-done:
		default:
		}
	}

	push(Frame{Type: FrameSystem, Message: "connected " + connID, Time: time.Now()})
	if h.history != nil {
		for _, e := range h.history.Entries() {
			push(Frame{Type: FrameLog, Level: e.Level, Message: e.Message, Time: e.Time})
		}
	}

	sid := h.hub.Register(func(message string, level logging.Level) {
		push(Frame{Type: FrameLog, Level: level, Message: message, Time: time.Now()})
	})
	defer h.hub.Unregister(sid)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(conn, out, done)
	}()

	logger.Debug("Log stream client connected")
	h.readLoop(conn, push)
	logger.Debug("Log stream client disconnected")

	close(done)
	<-writerDone
}

// readLoop answers pings until the client disconnects.
func (h *Handler) readLoop(conn *websocket.Conn, push func(Frame)) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			push(Frame{Type: FrameError, Message: "invalid message", Time: time.Now()})
			continue
		}
		switch msg.Type {
		case "ping":
			push(Frame{Type: FramePong, Time: time.Now()})
		default:
			push(Frame{Type: FrameError, Message: "unknown message type", Time: time.Now()})
		}
	}
}

// writeLoop is the only goroutine that writes to conn.
func (h *Handler) writeLoop(conn *websocket.Conn, out <-chan Frame, done <-chan struct{}) {
	for {
		select {
		case f := <-out:
			if err := h.send(conn, f); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *Handler) send(conn *websocket.Conn, f Frame) error {
	data, err := sonic.Marshal(f)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
