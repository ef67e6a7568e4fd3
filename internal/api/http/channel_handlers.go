package http

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/ipc-control-room/ipc-project/internal/domain/channel"
	"github.com/ipc-control-room/ipc-project/internal/domain/registry"
	"github.com/ipc-control-room/ipc-project/internal/domain/security"
	"github.com/ipc-control-room/ipc-project/internal/shared/validate"
)

// Payload encodings accepted on the wire.
const (
	EncodingText   = "text"
	EncodingBase64 = "base64"
)

var errBadEncoding = errors.New("encoding must be text or base64")

// CreateChannelRequest creates a channel
type CreateChannelRequest struct {
	Kind         string `json:"kind" binding:"required"`
	Name         string `json:"name"`
	Senders      []int  `json:"allowed_senders"`
	Receivers    []int  `json:"allowed_receivers"`
	Capacity     int    `json:"capacity"`
	StreamBuffer int    `json:"stream_buffer"`
}

// SendRequest sends one payload as an actor
type SendRequest struct {
	Actor    *int   `json:"actor" binding:"required"`
	Payload  string `json:"payload"`
	Encoding string `json:"encoding"`
}

// ReceiveRequest receives one payload as an actor
type ReceiveRequest struct {
	Actor     *int   `json:"actor" binding:"required"`
	Block     bool   `json:"block"`
	TimeoutMS int    `json:"timeout_ms"`
	Encoding  string `json:"encoding"`
}

func (r CreateChannelRequest) validate() error {
	return firstError(
		validate.Name(r.Name, "name"),
		validate.Actors(r.Senders, "allowed_senders"),
		validate.Actors(r.Receivers, "allowed_receivers"),
	)
}

func (r ReceiveRequest) options() channel.ReceiveOptions {
	if !r.Block {
		return channel.NonBlocking()
	}
	timeout := time.Duration(r.TimeoutMS) * time.Millisecond
	if timeout <= 0 || timeout > MaxReceiveTimeout {
		timeout = MaxReceiveTimeout
	}
	return channel.WithTimeout(timeout)
}

func decodePayload(s, encoding string) ([]byte, error) {
	switch encoding {
	case "", EncodingText:
		return []byte(s), nil
	case EncodingBase64:
		return base64.StdEncoding.DecodeString(s)
	default:
		return nil, errBadEncoding
	}
}

func encodePayload(b []byte, encoding string) string {
	if encoding == EncodingBase64 {
		return base64.StdEncoding.EncodeToString(b)
	}
	return string(b)
}

// CreateChannel creates a channel of any kind
func (h *Handlers) CreateChannel(c *gin.Context) {
	var req CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.validate(); err != nil {
		badRequest(c, err)
		return
	}

	meta, _, err := h.registry.Create(c.Request.Context(), registry.CreateRequest{
		Kind:             channel.Kind(req.Kind),
		Name:             req.Name,
		AllowedSenders:   security.FromInts(req.Senders),
		AllowedReceivers: security.FromInts(req.Receivers),
		Options: registry.Options{
			Capacity:     req.Capacity,
			StreamBuffer: req.StreamBuffer,
		},
	})
	if err != nil {
		badRequest(c, err)
		return
	}

	c.JSON(http.StatusCreated, channelView(meta))
}

// ListChannels lists open channels in creation order
func (h *Handlers) ListChannels(c *gin.Context) {
	metas := h.registry.List()
	views := make([]ChannelView, 0, len(metas))
	for _, m := range metas {
		views = append(views, channelView(m))
	}
	c.JSON(http.StatusOK, gin.H{"channels": views, "count": len(views)})
}

// GetChannel returns one channel
func (h *Handlers) GetChannel(c *gin.Context) {
	cid, ok := paramID(c)
	if !ok {
		return
	}
	ch, ok := h.registry.Lookup(cid)
	if !ok {
		notFound(c, "channel")
		return
	}
	c.JSON(http.StatusOK, channelView(ch.Metadata()))
}

// Send delivers a payload. A denied or failed send is reported as
// success=false, not as an HTTP error.
func (h *Handlers) Send(c *gin.Context) {
	cid, ok := paramID(c)
	if !ok {
		return
	}
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	payload, err := decodePayload(req.Payload, req.Encoding)
	if err == nil {
		err = validate.PayloadSize(payload)
	}
	if err != nil {
		badRequest(c, fmt.Errorf("invalid payload: %w", err))
		return
	}

	ch, ok := h.registry.Lookup(cid)
	if !ok {
		notFound(c, "channel")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": ch.Send(security.ActorID(*req.Actor), payload)})
}

// Receive takes a payload. Denial, empty and timeout all yield
// success=false.
func (h *Handlers) Receive(c *gin.Context) {
	cid, ok := paramID(c)
	if !ok {
		return
	}
	var req ReceiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Encoding != "" && req.Encoding != EncodingText && req.Encoding != EncodingBase64 {
		badRequest(c, errBadEncoding)
		return
	}

	ch, ok := h.registry.Lookup(cid)
	if !ok {
		notFound(c, "channel")
		return
	}

	payload, ok := ch.Receive(c.Request.Context(), security.ActorID(*req.Actor), req.options())
	if !ok {
		c.JSON(http.StatusOK, gin.H{"success": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"payload":      encodePayload(payload, req.Encoding),
		"content_type": mimetype.Detect(payload).String(),
	})
}

// CloseChannel closes and forgets a channel
func (h *Handlers) CloseChannel(c *gin.Context) {
	cid, ok := paramID(c)
	if !ok {
		return
	}
	if !h.registry.Close(cid) {
		notFound(c, "channel")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
