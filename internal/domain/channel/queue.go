package channel

import (
	"bytes"
	"context"
	"errors"

	"github.com/ipc-control-room/ipc-project/internal/domain/security"
	"github.com/ipc-control-room/ipc-project/internal/infrastructure/monitoring"
	"github.com/ipc-control-room/ipc-project/internal/shared/queue"
)

// Queue is an unbounded multi-producer, multi-consumer channel.
type Queue struct {
	base
	q *queue.Queue[[]byte]
}

// NewQueue creates an empty queue channel.
func NewQueue(meta Metadata, deps Deps) *Queue {
	meta.Kind = KindQueue
	c := &Queue{q: queue.New[[]byte]()}
	c.base.init(meta, deps, "queue")
	c.metrics.ChannelOpened(c.kind())
	return c
}

// Send enqueues a private copy of payload.
func (c *Queue) Send(actor security.ActorID, payload []byte) bool {
	if !c.authorize(actor, security.RoleSender) {
		return false
	}
	if err := c.q.Push(bytes.Clone(payload)); err != nil {
		c.failed(monitoring.OpSend, actor, err)
		return false
	}
	c.sent(actor, "enqueued", payload)
	return true
}

// Receive dequeues the oldest payload. An empty queue under non-blocking
// mode, an expired timeout or an ended ctx is not an error.
func (c *Queue) Receive(ctx context.Context, actor security.ActorID, opts ReceiveOptions) ([]byte, bool) {
	if !c.authorize(actor, security.RoleReceiver) {
		return nil, false
	}

	var (
		payload []byte
		err     error
	)
	switch {
	case !opts.Block:
		if c.q.Closed() {
			err = queue.ErrClosed
			break
		}
		var ok bool
		if payload, ok = c.q.TryPop(); !ok {
			c.empty()
			return nil, false
		}
	case opts.Timeout > 0:
		payload, err = c.q.PopTimeout(ctx, opts.Timeout)
	default:
		payload, err = c.q.Pop(ctx)
	}

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			c.empty()
			return nil, false
		}
		c.failed(monitoring.OpReceive, actor, err)
		return nil, false
	}

	c.received(actor, "dequeued", payload)
	return payload, true
}

// Len reports how many payloads are waiting.
func (c *Queue) Len() int {
	return c.q.Len()
}

// Close wakes blocked receivers and drops buffered payloads.
func (c *Queue) Close() {
	if c.markClosed() {
		c.q.Close()
		c.logClosed()
	}
}
