package process

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ipc-control-room/ipc-project/internal/infrastructure/logging"
	"github.com/ipc-control-room/ipc-project/internal/shared/queue"
)

// Status is a lifecycle state. Transitions only move forward.
type Status string

const (
	StatusCreated    Status = "created"
	StatusRunning    Status = "running"
	StatusTerminated Status = "terminated"
)

// Info describes a logical process or a worker.
type Info struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Line is one output message from a worker. Lines are informational only.
type Line struct {
	WorkerID int    `json:"worker_id"`
	Text     string `json:"text"`
}

// Output is a worker's private output queue.
type Output struct {
	q *queue.Queue[Line]
}

func newOutput() *Output {
	return &Output{q: queue.New[Line]()}
}

// TryNext returns the oldest line without waiting.
func (o *Output) TryNext() (Line, bool) {
	return o.q.TryPop()
}

// Next waits for a line until ctx ends.
func (o *Output) Next(ctx context.Context) (Line, error) {
	return o.q.Pop(ctx)
}

// Drain returns every buffered line.
func (o *Output) Drain() []Line {
	var lines []Line
	for {
		l, ok := o.q.TryPop()
		if !ok {
			return lines
		}
		lines = append(lines, l)
	}
}

// Len returns the number of buffered lines.
func (o *Output) Len() int {
	return o.q.Len()
}

// command travels on the control queue. stop marks the sentinel.
type command struct {
	stop  bool
	value any
}

// Worker runs one task on its own tick loop.
type Worker struct {
	id        int
	name      string
	task      Task
	tick      time.Duration
	createdAt time.Time

	control *queue.Queue[command]
	out     *Output
	logger  *logging.Logger

	mu     sync.RWMutex
	status Status

	done   chan struct{}
	onExit func(w *Worker, faulted bool)
}

func newWorker(workerID int, name string, task Task, tick time.Duration, logger *logging.Logger) *Worker {
	return &Worker{
		id:        workerID,
		name:      name,
		task:      task,
		tick:      tick,
		createdAt: time.Now(),
		control:   queue.New[command](),
		out:       newOutput(),
		logger:    logger.With(zap.Int("worker_id", workerID), zap.String("worker", name)),
		status:    StatusCreated,
		done:      make(chan struct{}),
	}
}

// ID returns the worker id.
func (w *Worker) ID() int { return w.id }

// Name returns the worker name.
func (w *Worker) Name() string { return w.name }

// Role returns the task role.
func (w *Worker) Role() string { return w.task.Role() }

// Output returns the worker's output queue.
func (w *Worker) Output() *Output { return w.out }

// Done is closed once the worker has terminated.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Status returns the current lifecycle state.
func (w *Worker) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

// Info returns a snapshot of the worker.
func (w *Worker) Info() Info {
	return Info{
		ID:        w.id,
		Name:      w.name,
		Role:      w.task.Role(),
		Status:    w.Status(),
		CreatedAt: w.createdAt,
	}
}

// Send posts a command for the task. It reports false once the worker has
// terminated.
func (w *Worker) Send(cmd any) bool {
	return w.post(command{value: cmd})
}

// Stop posts the stop sentinel and returns without waiting.
func (w *Worker) Stop() bool {
	return w.post(command{stop: true})
}

func (w *Worker) post(cmd command) bool {
	if w.Status() == StatusTerminated {
		return false
	}
	return w.control.Push(cmd) == nil
}

func (w *Worker) setStatus(s Status) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = s
}

func (w *Worker) report(text string) {
	_ = w.out.q.Push(Line{WorkerID: w.id, Text: text})
}

// start moves the worker to running and launches its loop.
func (w *Worker) start(ctx context.Context) {
	w.setStatus(StatusRunning)
	go w.run(ctx)
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	w.report(w.name + ": started")
	w.logger.Debug("Worker loop started", zap.Duration("tick", w.tick))

	faulted := w.loop(ctx)

	w.control.Close()
	w.setStatus(StatusTerminated)
	w.report(w.name + ": terminated")
	w.logger.Info("Worker terminated", zap.Bool("faulted", faulted))

	if w.onExit != nil {
		w.onExit(w, faulted)
	}
}

// loop returns true when the worker ended because of a fault.
func (w *Worker) loop(ctx context.Context) bool {
	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		stop, err := w.once(ctx)
		if stop {
			w.report(w.name + ": stopping")
			return false
		}
		if err != nil {
			w.report("ERROR: " + err.Error())
			w.logger.Error("Worker fault", zap.Error(err))
			return true
		}

		select {
		case <-ticker.C:
		case <-w.control.Ready():
		case <-ctx.Done():
			w.report(w.name + ": stopping")
			return false
		}
	}
}

// once drains the control queue and then runs one unit of work. Panics in
// either are converted into the returned error.
func (w *Worker) once(ctx context.Context) (stop bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	for {
		cmd, ok := w.control.TryPop()
		if !ok {
			break
		}
		if cmd.stop {
			return true, nil
		}
		w.task.HandleCommand(cmd.value)
	}

	return false, w.task.Step(ctx, time.Now(), w.stepReport)
}

func (w *Worker) stepReport(text string) {
	w.report(w.name + ": " + text)
}
