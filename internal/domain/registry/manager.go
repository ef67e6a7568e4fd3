package registry

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ipc-control-room/ipc-project/internal/domain/channel"
	"github.com/ipc-control-room/ipc-project/internal/domain/security"
	"github.com/ipc-control-room/ipc-project/internal/infrastructure/logging"
)

// Options are the variant-specific settings. Zero fields fall back to the
// registry defaults.
type Options struct {
	// Capacity is the shared buffer region size in bytes.
	Capacity int
	// StreamBuffer is how many decoded stream frames may wait for receivers.
	StreamBuffer int
}

func (o Options) orDefaults(d Options) Options {
	if o.Capacity == 0 {
		o.Capacity = d.Capacity
	}
	if o.StreamBuffer == 0 {
		o.StreamBuffer = d.StreamBuffer
	}
	return o
}

// CreateRequest describes a channel to build. Nil allow-lists are empty.
type CreateRequest struct {
	Kind             channel.Kind
	Name             string
	AllowedSenders   security.ActorSet
	AllowedReceivers security.ActorSet
	Options          Options
}

// Registry owns every open channel
type Registry struct {
	mu       sync.RWMutex
	lastID   int
	channels map[int]channel.Channel
	order    []int

	deps     channel.Deps
	defaults Options
	logger   *logging.Logger
}

// New creates an empty registry. deps are handed to every channel it builds.
func New(deps channel.Deps, defaults Options) *Registry {
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.Policy == nil {
		deps.Policy = security.NewGate(deps.Logger).WithMetrics(deps.Metrics)
	}
	if defaults.Capacity == 0 {
		defaults.Capacity = channel.DefaultCapacity
	}
	if defaults.StreamBuffer == 0 {
		defaults.StreamBuffer = channel.DefaultStreamBuffer
	}

	return &Registry{
		channels: make(map[int]channel.Channel),
		deps:     deps,
		defaults: defaults,
		logger:   deps.Logger.Named("registry"),
	}
}

// Create builds a channel and assigns it the next id. A failed create does
// not consume an id.
func (r *Registry) Create(ctx context.Context, req CreateRequest) (channel.Metadata, channel.Channel, error) {
	if err := ctx.Err(); err != nil {
		return channel.Metadata{}, nil, err
	}
	kind, err := channel.ParseKind(string(req.Kind))
	if err != nil {
		return channel.Metadata{}, nil, err
	}
	opts := req.Options.orDefaults(r.defaults)

	r.mu.Lock()
	defer r.mu.Unlock()

	meta := channel.Metadata{
		ID:               r.lastID + 1,
		Name:             req.Name,
		AllowedSenders:   req.AllowedSenders,
		AllowedReceivers: req.AllowedReceivers,
	}

	ch, err := r.build(kind, meta, opts)
	if err != nil {
		return channel.Metadata{}, nil, fmt.Errorf("failed to create %s channel %q: %w", kind, req.Name, err)
	}

	r.lastID = meta.ID
	r.channels[meta.ID] = ch
	r.order = append(r.order, meta.ID)

	meta = ch.Metadata()
	r.logger.Info("Channel created",
		zap.Int("id", meta.ID),
		zap.String("kind", string(meta.Kind)),
		zap.String("name", meta.Name),
		zap.Stringer("senders", meta.AllowedSenders),
		zap.Stringer("receivers", meta.AllowedReceivers),
	)
	return meta, ch, nil
}

func (r *Registry) build(kind channel.Kind, meta channel.Metadata, opts Options) (channel.Channel, error) {
	switch kind {
	case channel.KindStream:
		return channel.NewStream(meta, r.deps, opts.StreamBuffer)
	case channel.KindQueue:
		return channel.NewQueue(meta, r.deps), nil
	case channel.KindSharedBuffer:
		return channel.NewSharedBuffer(meta, r.deps, opts.Capacity)
	default:
		return nil, fmt.Errorf("%w: %q", channel.ErrUnknownKind, kind)
	}
}

// List returns metadata for every open channel in creation order.
func (r *Registry) List() []channel.Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]channel.Metadata, 0, len(r.order))
	for _, cid := range r.order {
		out = append(out, r.channels[cid].Metadata())
	}
	return out
}

// Lookup returns the channel with the given id.
func (r *Registry) Lookup(cid int) (channel.Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.channels[cid]
	return ch, ok
}

// Len returns the number of open channels.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}

// Close closes a channel and forgets it. The id is never handed out again.
func (r *Registry) Close(cid int) bool {
	r.mu.Lock()
	ch, ok := r.channels[cid]
	if ok {
		delete(r.channels, cid)
		for i, v := range r.order {
			if v == cid {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	ch.Close()
	r.logger.Info("Channel removed", zap.Int("id", cid))
	return true
}

// CloseAll closes every channel, newest first.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	chans := make([]channel.Channel, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		chans = append(chans, r.channels[r.order[i]])
	}
	r.channels = make(map[int]channel.Channel)
	r.order = nil
	r.mu.Unlock()

	for _, ch := range chans {
		ch.Close()
	}
	if len(chans) > 0 {
		r.logger.Info("All channels closed", zap.Int("count", len(chans)))
	}
}
