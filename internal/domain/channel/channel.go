package channel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ipc-control-room/ipc-project/internal/domain/security"
	"github.com/ipc-control-room/ipc-project/internal/infrastructure/logging"
	"github.com/ipc-control-room/ipc-project/internal/infrastructure/monitoring"
)

var (
	ErrUnknownKind     = errors.New("unknown channel kind")
	ErrInvalidCapacity = errors.New("invalid shared buffer capacity")
	ErrClosed          = errors.New("channel closed")
)

// Kind selects the transport variant.
type Kind string

const (
	KindStream       Kind = "stream"
	KindQueue        Kind = "queue"
	KindSharedBuffer Kind = "shared-buffer"
)

// ParseKind accepts the canonical names plus the aliases used by older
// front-ends ("pipe", "shared_memory", "shm").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stream", "pipe":
		return KindStream, nil
	case "queue":
		return KindQueue, nil
	case "shared-buffer", "shared_buffer", "shared_memory", "shm":
		return KindSharedBuffer, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Metadata identifies a channel and carries its allow-lists.
type Metadata struct {
	ID               int
	Kind             Kind
	Name             string
	AllowedSenders   security.ActorSet
	AllowedReceivers security.ActorSet
	// Capacity is the region size for shared buffers, zero otherwise.
	Capacity  int
	CreatedAt time.Time
}

// ReceiveOptions selects the receive mode.
//
//	Block=false            return immediately
//	Block=true, Timeout=0  wait until data arrives or ctx ends
//	Block=true, Timeout>0  wait at most Timeout
type ReceiveOptions struct {
	Block   bool
	Timeout time.Duration
}

// NonBlocking returns immediately when nothing is buffered.
func NonBlocking() ReceiveOptions { return ReceiveOptions{} }

// Blocking waits until data arrives or the context ends.
func Blocking() ReceiveOptions { return ReceiveOptions{Block: true} }

// WithTimeout waits at most d.
func WithTimeout(d time.Duration) ReceiveOptions { return ReceiveOptions{Block: true, Timeout: d} }

// Channel is the contract shared by every variant.
type Channel interface {
	Metadata() Metadata
	// Send reports whether payload was handed to the transport.
	Send(actor security.ActorID, payload []byte) bool
	// Receive returns the next payload, or false on denial, empty,
	// expired timeout or transport failure.
	Receive(ctx context.Context, actor security.ActorID, opts ReceiveOptions) ([]byte, bool)
	// Close releases the transport. Safe to call more than once.
	Close()
	// Closed reports whether Close has been called.
	Closed() bool
}

// Deps are the collaborators injected into every channel.
type Deps struct {
	Policy  security.Policy
	Logger  *logging.Logger
	Metrics *monitoring.Metrics
}

// base carries what every variant shares: identity, policy, logging.
type base struct {
	meta    Metadata
	policy  security.Policy
	logger  *logging.Logger
	metrics *monitoring.Metrics
	closed  atomic.Bool
}

func (b *base) init(meta Metadata, deps Deps, component string) {
	if deps.Policy == nil {
		deps.Policy = security.NewGate(deps.Logger)
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}
	// private copies of the allow-lists
	meta.AllowedSenders = security.NewActorSet(meta.AllowedSenders.Slice()...)
	meta.AllowedReceivers = security.NewActorSet(meta.AllowedReceivers.Slice()...)

	b.meta = meta
	b.policy = deps.Policy
	b.metrics = deps.Metrics
	b.logger = deps.Logger.Named(component).With(
		zap.Int("channel_id", meta.ID),
		zap.String("channel", meta.Name),
	)
}

// Metadata returns the channel's identity and allow-lists.
func (b *base) Metadata() Metadata {
	return b.meta
}

func (b *base) kind() string {
	return string(b.meta.Kind)
}

func (b *base) authorize(actor security.ActorID, role security.Role) bool {
	allowed := b.meta.AllowedSenders
	op := monitoring.OpSend
	if role == security.RoleReceiver {
		allowed = b.meta.AllowedReceivers
		op = monitoring.OpReceive
	}
	if b.policy.Authorize(b.meta.Name, actor, allowed, role) {
		return true
	}
	b.metrics.RecordMessage(b.kind(), op, monitoring.OutcomeDenied)
	return false
}

func (b *base) sent(actor security.ActorID, verb string, payload []byte) {
	b.metrics.RecordMessage(b.kind(), monitoring.OpSend, monitoring.OutcomeOK)
	b.logger.Info("Sender "+verb+" payload",
		zap.Int("actor", int(actor)),
		zap.String("payload", fmt.Sprintf("%q", payload)),
	)
}

func (b *base) received(actor security.ActorID, verb string, payload []byte) {
	b.metrics.RecordMessage(b.kind(), monitoring.OpReceive, monitoring.OutcomeOK)
	b.logger.Info("Receiver "+verb+" payload",
		zap.Int("actor", int(actor)),
		zap.String("payload", fmt.Sprintf("%q", payload)),
	)
}

func (b *base) empty() {
	b.metrics.RecordMessage(b.kind(), monitoring.OpReceive, monitoring.OutcomeEmpty)
}

func (b *base) failed(op string, actor security.ActorID, err error) {
	b.metrics.RecordMessage(b.kind(), op, monitoring.OutcomeFailed)
	b.logger.Error("Failed to "+op,
		zap.Int("actor", int(actor)),
		zap.Error(err),
	)
}

// Closed implements Channel.
func (b *base) Closed() bool {
	return b.closed.Load()
}

// markClosed reports whether this call performed the transition.
func (b *base) markClosed() bool {
	if !b.closed.CompareAndSwap(false, true) {
		return false
	}
	b.metrics.ChannelClosed(b.kind())
	return true
}

func (b *base) logClosed() {
	b.logger.Info("Channel closed")
}
