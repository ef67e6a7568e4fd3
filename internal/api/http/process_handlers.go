package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ipc-control-room/ipc-project/internal/domain/process"
	"github.com/ipc-control-room/ipc-project/internal/domain/security"
	"github.com/ipc-control-room/ipc-project/internal/shared/validate"
)

// Worker types accepted by SpawnWorker.
const (
	WorkerEmitter = "emitter"
	WorkerEcho    = "echo"
)

// RegisterProcessRequest registers a logical process
type RegisterProcessRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// SpawnWorkerRequest starts a worker on an open channel
type SpawnWorkerRequest struct {
	Type      string `json:"type" binding:"required"`
	ChannelID int    `json:"channel_id" binding:"required"`
	Name      string `json:"name"`
	// emitter
	Sender   int    `json:"sender"`
	PeriodMS int    `json:"period_ms"`
	Marker   string `json:"marker"`
	// echo
	Receiver int `json:"receiver"`
	Reply    int `json:"reply"`
}

// RegisterProcess creates a logical process entry
func (h *Handlers) RegisterProcess(c *gin.Context) {
	var req RegisterProcessRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	if err := firstError(validate.Name(req.Name, "name"), validate.Role(req.Role)); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.supervisor.Register(req.Name, req.Role))
}

// ListProcesses lists processes and workers in creation order
func (h *Handlers) ListProcesses(c *gin.Context) {
	infos := h.supervisor.List()
	c.JSON(http.StatusOK, gin.H{"processes": infos, "count": len(infos)})
}

// GetProcess returns one process or worker
func (h *Handlers) GetProcess(c *gin.Context) {
	pid, ok := paramID(c)
	if !ok {
		return
	}
	info, ok := h.supervisor.Get(pid)
	if !ok {
		notFound(c, "process")
		return
	}
	c.JSON(http.StatusOK, info)
}

// TerminateProcess terminates a logical process or stops a worker
func (h *Handlers) TerminateProcess(c *gin.Context) {
	pid, ok := paramID(c)
	if !ok {
		return
	}
	if !h.supervisor.Terminate(pid) {
		notFound(c, "process")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SpawnWorker starts an emitter or echo worker
func (h *Handlers) SpawnWorker(c *gin.Context) {
	var req SpawnWorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := firstError(
		validate.Name(req.Name, "name"),
		validate.Marker(req.Marker),
		validate.Actor(req.Sender, "sender"),
		validate.Actor(req.Receiver, "receiver"),
		validate.Actor(req.Reply, "reply"),
	); err != nil {
		badRequest(c, err)
		return
	}

	ch, ok := h.registry.Lookup(req.ChannelID)
	if !ok {
		notFound(c, "channel")
		return
	}

	var spec process.Spec
	switch req.Type {
	case WorkerEmitter:
		spec = process.EmitterSpec{
			Name:    req.Name,
			Channel: ch,
			Sender:  security.ActorID(req.Sender),
			Period:  time.Duration(req.PeriodMS) * time.Millisecond,
			Marker:  req.Marker,
		}
	case WorkerEcho:
		spec = process.EchoSpec{
			Name:     req.Name,
			Channel:  ch,
			Receiver: security.ActorID(req.Receiver),
			Reply:    security.ActorID(req.Reply),
		}
	default:
		badRequest(c, errors.New("type must be emitter or echo"))
		return
	}

	_, w, _, err := h.supervisor.Spawn(c.Request.Context(), spec)
	if err != nil {
		if errors.Is(err, process.ErrUnknownSpec) || errors.Is(err, process.ErrNilChannel) {
			badRequest(c, err)
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, w.Info())
}

// StopWorker posts the stop sentinel without waiting
func (h *Handlers) StopWorker(c *gin.Context) {
	wid, ok := paramID(c)
	if !ok {
		return
	}
	if _, ok := h.supervisor.Worker(wid); !ok {
		notFound(c, "worker")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": h.supervisor.Stop(wid)})
}

// WorkerOutput drains the buffered output lines of a worker
func (h *Handlers) WorkerOutput(c *gin.Context) {
	wid, ok := paramID(c)
	if !ok {
		return
	}
	w, ok := h.supervisor.Worker(wid)
	if !ok {
		notFound(c, "worker")
		return
	}
	lines := w.Output().Drain()
	if lines == nil {
		lines = []process.Line{}
	}
	c.JSON(http.StatusOK, gin.H{
		"worker": w.Info(),
		"lines":  lines,
	})
}
