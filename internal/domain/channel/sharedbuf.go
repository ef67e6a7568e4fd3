package channel

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"

	"github.com/ipc-control-room/ipc-project/internal/domain/security"
	"github.com/ipc-control-room/ipc-project/internal/infrastructure/monitoring"
)

// DefaultCapacity is the shared buffer size used when none is given.
const DefaultCapacity = 256

// SharedBuffer holds the most recent text written to it in a fixed-size
// region guarded by a mutex.
type SharedBuffer struct {
	base

	mu       sync.Mutex
	mem      []byte // nil once closed
	capacity int
}

// NewSharedBuffer maps a zeroed region of capacity bytes. Capacity must be
// at least 1 so the terminator fits.
func NewSharedBuffer(meta Metadata, deps Deps, capacity int) (*SharedBuffer, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	mem, err := mapRegion(capacity)
	if err != nil {
		return nil, err
	}

	meta.Kind = KindSharedBuffer
	meta.Capacity = capacity

	b := &SharedBuffer{mem: mem, capacity: capacity}
	b.base.init(meta, deps, "shm")
	clear(b.mem)
	b.metrics.ChannelOpened(b.kind())

	b.logger.Info("Shared memory created", zap.Int("size", capacity))
	return b, nil
}

// Capacity returns the region size in bytes.
func (b *SharedBuffer) Capacity() int {
	return b.capacity
}

// Write replaces the buffer content with text, truncated to Capacity-1
// bytes. Truncation is silent.
func (b *SharedBuffer) Write(actor security.ActorID, text string) bool {
	if !b.authorize(actor, security.RoleSender) {
		return false
	}

	encoded := []byte(text)
	if len(encoded) >= b.capacity {
		encoded = encoded[:b.capacity-1]
	}

	if err := b.store(encoded); err != nil {
		b.failed(monitoring.OpSend, actor, err)
		return false
	}
	b.sent(actor, "wrote", []byte(text))
	return true
}

// store zeroes the whole region and then copies data in, under the lock.
func (b *SharedBuffer) store(data []byte) (err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("shared memory write fault: %v", r)
		}
	}()

	if b.mem == nil {
		return ErrClosed
	}
	clear(b.mem)
	copy(b.mem, data)
	return nil
}

// Read returns the current text. An all-zero buffer reads as "".
func (b *SharedBuffer) Read(actor security.ActorID) (string, bool) {
	if !b.authorize(actor, security.RoleReceiver) {
		return "", false
	}

	raw, err := b.load()
	if err != nil {
		b.failed(monitoring.OpReceive, actor, err)
		return "", false
	}

	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	value := decodeText(raw)

	b.received(actor, "read", []byte(value))
	return value, true
}

// load copies the whole region out under the lock.
func (b *SharedBuffer) load() (raw []byte, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("shared memory read fault: %v", r)
		}
	}()

	if b.mem == nil {
		return nil, ErrClosed
	}
	return bytes.Clone(b.mem), nil
}

// decodeText decodes UTF-8, replacing invalid sequences with U+FFFD.
func decodeText(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	out, err := unicode.UTF8.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "\uFFFD")
	}
	return string(out)
}

// Send writes payload as text.
func (b *SharedBuffer) Send(actor security.ActorID, payload []byte) bool {
	return b.Write(actor, string(payload))
}

// Receive reads the current text. The region always holds a value, so
// opts and ctx are not consulted.
func (b *SharedBuffer) Receive(_ context.Context, actor security.ActorID, _ ReceiveOptions) ([]byte, bool) {
	value, ok := b.Read(actor)
	if !ok {
		return nil, false
	}
	return []byte(value), true
}

// Close unmaps the region. Unmap failures are swallowed.
func (b *SharedBuffer) Close() {
	if !b.markClosed() {
		return
	}

	b.mu.Lock()
	mem := b.mem
	b.mem = nil
	b.mu.Unlock()

	if mem != nil {
		if err := unmapRegion(mem); err != nil {
			b.logger.Debug("Ignoring unmap error", zap.Error(err))
		}
	}
	b.logClosed()
}
