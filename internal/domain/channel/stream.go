package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"go.uber.org/zap"

	"github.com/ipc-control-room/ipc-project/internal/domain/security"
	"github.com/ipc-control-room/ipc-project/internal/infrastructure/monitoring"
)

// DefaultStreamBuffer is how many decoded frames wait for receivers.
const DefaultStreamBuffer = 64

// errStreamEnded is reported once the reader has stopped.
var errStreamEnded = errors.New("stream ended")

// Stream is a unidirectional point-to-point channel over an OS pipe.
// Payloads travel as CBOR byte strings, which delimit themselves, so
// frames from concurrent senders never merge.
type Stream struct {
	base

	sendEnd *os.File
	recvEnd *os.File
	enc     *cbor.Encoder
	sendMu  sync.Mutex

	// frames is filled by the reader goroutine and closed when it exits.
	frames     chan []byte
	quit       chan struct{}
	readerDone chan struct{}
	readErr    error // written by the reader before frames is closed

	closeOnce sync.Once
}

// NewStream opens a pipe and starts its reader. buffer <= 0 selects
// DefaultStreamBuffer.
func NewStream(meta Metadata, deps Deps, buffer int) (*Stream, error) {
	if buffer <= 0 {
		buffer = DefaultStreamBuffer
	}
	meta.Kind = KindStream

	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open pipe: %w", err)
	}

	s := &Stream{
		sendEnd:    w,
		recvEnd:    r,
		enc:        cbor.NewEncoder(w),
		frames:     make(chan []byte, buffer),
		quit:       make(chan struct{}),
		readerDone: make(chan struct{}),
	}
	s.base.init(meta, deps, "stream")
	s.metrics.ChannelOpened(s.kind())

	go s.read()
	return s, nil
}

// read decodes frames off the pipe until EOF, an error, or Close.
func (s *Stream) read() {
	defer close(s.readerDone)
	defer close(s.frames)

	dec := cbor.NewDecoder(s.recvEnd)
	for {
		var frame []byte
		if err := dec.Decode(&frame); err != nil {
			if !s.closed.Load() {
				if errors.Is(err, io.EOF) {
					err = fmt.Errorf("%w: %w", errStreamEnded, io.EOF)
				}
				s.readErr = err
				s.logger.Error("Stream reader stopped", zap.Error(err))
			}
			return
		}

		select {
		case s.frames <- frame:
		case <-s.quit:
			return
		}
	}
}

// Send writes payload to the send endpoint.
func (s *Stream) Send(actor security.ActorID, payload []byte) bool {
	if !s.authorize(actor, security.RoleSender) {
		return false
	}
	if s.closed.Load() {
		s.failed(monitoring.OpSend, actor, ErrClosed)
		return false
	}

	s.sendMu.Lock()
	err := s.enc.Encode(payload)
	s.sendMu.Unlock()

	if err != nil {
		s.failed(monitoring.OpSend, actor, err)
		return false
	}
	s.sent(actor, "sent", payload)
	return true
}

// Receive takes the next frame from the receive endpoint.
func (s *Stream) Receive(ctx context.Context, actor security.ActorID, opts ReceiveOptions) ([]byte, bool) {
	if !s.authorize(actor, security.RoleReceiver) {
		return nil, false
	}
	if s.closed.Load() {
		s.failed(monitoring.OpReceive, actor, ErrClosed)
		return nil, false
	}

	frame, ok, err := s.next(ctx, opts)
	switch {
	case err != nil:
		s.failed(monitoring.OpReceive, actor, err)
		return nil, false
	case !ok:
		s.empty()
		return nil, false
	}

	s.received(actor, "received", frame)
	return frame, true
}

// next returns ok=false with a nil error for the ordinary empty cases:
// nothing buffered, timeout expired, or ctx ended.
func (s *Stream) next(ctx context.Context, opts ReceiveOptions) ([]byte, bool, error) {
	var timeout <-chan time.Time
	if !opts.Block {
		select {
		case frame, open := <-s.frames:
			return s.frame(frame, open)
		default:
			return nil, false, nil
		}
	}
	if opts.Timeout > 0 {
		timer := time.NewTimer(opts.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case frame, open := <-s.frames:
		return s.frame(frame, open)
	case <-timeout:
		return nil, false, nil
	case <-ctx.Done():
		return nil, false, nil
	}
}

func (s *Stream) frame(frame []byte, open bool) ([]byte, bool, error) {
	if open {
		return frame, true, nil
	}
	if s.closed.Load() {
		return nil, false, ErrClosed
	}
	if s.readErr != nil {
		return nil, false, s.readErr
	}
	return nil, false, errStreamEnded
}

// Close releases both pipe ends and waits for the reader.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		s.markClosed()
		close(s.quit)

		if err := s.sendEnd.Close(); err != nil {
			s.logger.Debug("Ignoring send end close error", zap.Error(err))
		}
		if err := s.recvEnd.Close(); err != nil {
			s.logger.Debug("Ignoring receive end close error", zap.Error(err))
		}
		<-s.readerDone

		s.logClosed()
	})
}
