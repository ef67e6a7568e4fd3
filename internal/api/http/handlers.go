package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ipc-control-room/ipc-project/internal/domain/channel"
	"github.com/ipc-control-room/ipc-project/internal/domain/process"
	"github.com/ipc-control-room/ipc-project/internal/domain/registry"
	"github.com/ipc-control-room/ipc-project/internal/infrastructure/logging"
	"github.com/ipc-control-room/ipc-project/internal/infrastructure/monitoring"
)

// MaxReceiveTimeout caps how long a receive request may hold a connection.
const MaxReceiveTimeout = 30 * time.Second

// Handlers contains all HTTP handlers
type Handlers struct {
	registry   *registry.Registry
	supervisor *process.Supervisor
	metrics    *monitoring.Metrics
	logger     *logging.Logger
	history    *logging.Ring
}

// NewHandlers creates a new handler set. history may be nil.
func NewHandlers(
	reg *registry.Registry,
	supervisor *process.Supervisor,
	metrics *monitoring.Metrics,
	logger *logging.Logger,
	history *logging.Ring,
) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handlers{
		registry:   reg,
		supervisor: supervisor,
		metrics:    metrics,
		logger:     logger.Named("api"),
		history:    history,
	}
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "IPC Control Room",
	})
}

// Health reports component counts
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"channels":  h.registry.Len(),
		"processes": len(h.supervisor.List()),
		"metrics":   h.metrics.Snapshot(),
	})
}

// MetricsJSON returns the metrics snapshot
func (h *Handlers) MetricsJSON(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}

// ChannelView is the JSON form of channel metadata.
type ChannelView struct {
	ID        int       `json:"id"`
	Kind      string    `json:"kind"`
	Name      string    `json:"name"`
	Senders   []int     `json:"allowed_senders"`
	Receivers []int     `json:"allowed_receivers"`
	Capacity  int       `json:"capacity,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func channelView(m channel.Metadata) ChannelView {
	return ChannelView{
		ID:        m.ID,
		Kind:      string(m.Kind),
		Name:      m.Name,
		Senders:   m.AllowedSenders.Ints(),
		Receivers: m.AllowedReceivers.Ints(),
		Capacity:  m.Capacity,
		CreatedAt: m.CreatedAt,
	}
}

func paramID(c *gin.Context) (int, bool) {
	v, err := strconv.Atoi(c.Param("id"))
	if err != nil || v < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return v, true
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func notFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
