package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	api "github.com/ipc-control-room/ipc-project/internal/api/http"
	"github.com/ipc-control-room/ipc-project/internal/domain/process"
)

// Message is one received payload.
type Message struct {
	Payload     string
	ContentType string
}

type channelList struct {
	Channels []api.ChannelView `json:"channels"`
	Count    int               `json:"count"`
}

type sendResult struct {
	Success bool `json:"success"`
}

type receiveResult struct {
	Success     bool   `json:"success"`
	Payload     string `json:"payload"`
	ContentType string `json:"content_type"`
}

type workerOutput struct {
	Worker process.Info   `json:"worker"`
	Lines  []process.Line `json:"lines"`
}

// Health returns the broker health document.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateChannel creates a channel and returns its view.
func (c *Client) CreateChannel(ctx context.Context, req api.CreateChannelRequest) (api.ChannelView, error) {
	var out api.ChannelView
	err := c.do(ctx, http.MethodPost, "/channels", req, &out)
	return out, err
}

// ListChannels lists open channels in creation order.
func (c *Client) ListChannels(ctx context.Context) ([]api.ChannelView, error) {
	var out channelList
	if err := c.do(ctx, http.MethodGet, "/channels", nil, &out); err != nil {
		return nil, err
	}
	return out.Channels, nil
}

// CloseChannel closes a channel.
func (c *Client) CloseChannel(ctx context.Context, cid int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/channels/%d", cid), nil, nil)
}

// Send delivers a text payload as actor. false means the broker refused or
// failed the send.
func (c *Client) Send(ctx context.Context, cid, actor int, payload string) (bool, error) {
	var out sendResult
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%d/send", cid),
		api.SendRequest{Actor: &actor, Payload: payload}, &out)
	return out.Success, err
}

// Receive takes one payload as actor. A zero wait polls; otherwise the
// broker blocks up to wait.
func (c *Client) Receive(ctx context.Context, cid, actor int, wait time.Duration) (Message, bool, error) {
	req := api.ReceiveRequest{Actor: &actor}
	if wait > 0 {
		req.Block = true
		req.TimeoutMS = int(wait / time.Millisecond)
	}

	var out receiveResult
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%d/receive", cid), req, &out); err != nil {
		return Message{}, false, err
	}
	if !out.Success {
		return Message{}, false, nil
	}
	return Message{Payload: out.Payload, ContentType: out.ContentType}, true, nil
}

// SpawnWorker starts a worker and returns its info.
func (c *Client) SpawnWorker(ctx context.Context, req api.SpawnWorkerRequest) (process.Info, error) {
	var out process.Info
	err := c.do(ctx, http.MethodPost, "/workers", req, &out)
	return out, err
}

// StopWorker asks a worker to stop.
func (c *Client) StopWorker(ctx context.Context, wid int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/workers/%d/stop", wid), nil, nil)
}

// WorkerOutput drains a worker's pending output lines.
func (c *Client) WorkerOutput(ctx context.Context, wid int) ([]process.Line, error) {
	var out workerOutput
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/workers/%d/output", wid), nil, &out); err != nil {
		return nil, err
	}
	return out.Lines, nil
}
