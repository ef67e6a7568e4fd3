// Package queue provides an unbounded, concurrency-safe FIFO with
// non-blocking, blocking and timed dequeue.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by operations on a closed queue.
var ErrClosed = errors.New("queue: closed")

// Queue is an unbounded multi-producer, multi-consumer FIFO.
// Push never blocks.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	head   int
	closed bool

	// ready holds a token whenever items may be available. Consumers that
	// take an item re-arm it if more remain.
	ready chan struct{}
	done  chan struct{}
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Push appends v. It fails only once the queue is closed.
func (q *Queue[T]) Push(v T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, v)
	q.mu.Unlock()

	q.signal()
	return nil
}

// TryPop removes the oldest item without blocking.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// Pop blocks until an item is available, ctx ends, or the queue closes.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	for {
		if v, ok, err := q.take(); ok || err != nil {
			return v, err
		}

		select {
		case <-q.ready:
		case <-q.done:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// PopTimeout blocks for at most d. It returns context.DeadlineExceeded
// when nothing arrives in time.
func (q *Queue[T]) PopTimeout(ctx context.Context, d time.Duration) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return q.Pop(ctx)
}

// Ready is signalled when items may be available. It lets a consumer wait
// on the queue alongside other channels; the consumer must still TryPop.
func (q *Queue[T]) Ready() <-chan struct{} {
	return q.ready
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Close rejects further pushes, drops buffered items, and wakes every
// blocked consumer. It is idempotent.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.items = nil
	q.head = 0
	close(q.done)
}

// Closed reports whether Close was called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *Queue[T]) take() (T, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		var zero T
		return zero, false, ErrClosed
	}
	v, ok := q.popLocked()
	return v, ok, nil
}

func (q *Queue[T]) popLocked() (T, bool) {
	var zero T
	if q.head >= len(q.items) {
		return zero, false
	}
	v := q.items[q.head]
	q.items[q.head] = zero
	q.head++

	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else {
		// compact once the consumed prefix dominates
		if q.head > 64 && q.head*2 > len(q.items) {
			n := copy(q.items, q.items[q.head:])
			q.items = q.items[:n]
			q.head = 0
		}
		q.signal()
	}
	return v, true
}

func (q *Queue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
