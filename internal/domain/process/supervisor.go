package process

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ipc-control-room/ipc-project/internal/infrastructure/logging"
	"github.com/ipc-control-room/ipc-project/internal/infrastructure/monitoring"
	"github.com/ipc-control-room/ipc-project/internal/shared/id"
)

// DefaultRole is given to logical processes registered without one.
const DefaultRole = "Test"

// Config holds worker defaults.
type Config struct {
	Tick       time.Duration
	EmitPeriod time.Duration
	Marker     string
}

// DefaultConfig returns a 100ms tick and a one second "PING" emitter.
func DefaultConfig() Config {
	return Config{
		Tick:       100 * time.Millisecond,
		EmitPeriod: time.Second,
		Marker:     "PING",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Tick <= 0 {
		c.Tick = d.Tick
	}
	if c.EmitPeriod <= 0 {
		c.EmitPeriod = d.EmitPeriod
	}
	if c.Marker == "" {
		c.Marker = d.Marker
	}
	return c
}

// entry is either a logical process (worker nil) or a worker.
type entry struct {
	info   Info
	worker *Worker
}

func (e *entry) snapshot() Info {
	if e.worker != nil {
		return e.worker.Info()
	}
	return e.info
}

// Supervisor owns logical processes and workers
type Supervisor struct {
	mu      sync.RWMutex
	entries map[int]*entry // Protected by mu
	order   []int          // Protected by mu
	ids     id.Sequence

	cfg     Config
	logger  *logging.Logger
	metrics *monitoring.Metrics

	// workers run under base, not under the spawning request's context
	base    context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup // Add only under mu while !closing
	closing bool           // Protected by mu
}

// NewSupervisor creates a supervisor with the given worker defaults.
func NewSupervisor(cfg Config, logger *logging.Logger) *Supervisor {
	if logger == nil {
		logger = logging.NewNop()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		entries: make(map[int]*entry),
		cfg:     cfg.withDefaults(),
		logger:  logger.Named("supervisor"),
		base:    base,
		cancel:  cancel,
	}
}

// WithMetrics adds worker gauges to the supervisor
func (s *Supervisor) WithMetrics(metrics *monitoring.Metrics) *Supervisor {
	s.metrics = metrics
	return s
}

// Config returns the effective worker defaults.
func (s *Supervisor) Config() Config {
	return s.cfg
}

// Register records a logical process. It is running immediately and has no
// goroutine behind it; its id is usable as an actor id.
func (s *Supervisor) Register(name, role string) Info {
	pid := s.ids.Next()
	if name == "" {
		name = fmt.Sprintf("proc_%d", pid)
	}
	if role == "" {
		role = DefaultRole
	}
	info := Info{
		ID:        pid,
		Name:      name,
		Role:      role,
		Status:    StatusRunning,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.entries[pid] = &entry{info: info}
	s.order = append(s.order, pid)
	s.mu.Unlock()

	s.logger.Info("Process registered",
		zap.Int("id", pid),
		zap.String("name", name),
		zap.String("role", role),
	)
	return info
}

// Spawn builds the task described by spec and starts a worker for it.
func (s *Supervisor) Spawn(ctx context.Context, spec Spec) (int, *Worker, *Output, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, nil, err
	}
	if spec == nil {
		return 0, nil, nil, ErrUnknownSpec
	}
	if s.isClosing() {
		return 0, nil, nil, ErrShuttingDown
	}

	task, err := spec.newTask(s.cfg)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to build worker: %w", err)
	}

	wid := s.ids.Next()
	w := newWorker(wid, spec.defaultName(wid), task, s.cfg.Tick, s.logger.Named("worker"))
	w.onExit = s.workerExited

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return 0, nil, nil, ErrShuttingDown
	}
	s.entries[wid] = &entry{worker: w}
	s.order = append(s.order, wid)
	s.wg.Add(1)
	s.mu.Unlock()

	s.metrics.WorkerStarted(task.Role())
	w.start(s.base)

	s.logger.Info("Worker spawned",
		zap.Int("id", wid),
		zap.String("name", w.Name()),
		zap.String("role", task.Role()),
	)
	return wid, w, w.Output(), nil
}

func (s *Supervisor) isClosing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closing
}

func (s *Supervisor) workerExited(w *Worker, faulted bool) {
	s.metrics.WorkerStopped(w.Role(), faulted)
	s.wg.Done()
}

// Stop posts the stop sentinel to a worker and returns without waiting.
// It reports false for unknown ids, logical processes and workers that
// have already terminated.
func (s *Supervisor) Stop(wid int) bool {
	w, ok := s.Worker(wid)
	if !ok {
		s.logger.Warn("Stop requested for unknown worker", zap.Int("id", wid))
		return false
	}
	if !w.Stop() {
		return false
	}
	s.logger.Info("Stop requested", zap.Int("id", wid), zap.String("name", w.Name()))
	return true
}

// Terminate marks a logical process terminated, or stops a worker.
func (s *Supervisor) Terminate(pid int) bool {
	s.mu.Lock()
	e, ok := s.entries[pid]
	if ok && e.worker == nil {
		e.info.Status = StatusTerminated
	}
	s.mu.Unlock()

	switch {
	case !ok:
		s.logger.Warn("Terminate requested for unknown process", zap.Int("id", pid))
		return false
	case e.worker != nil:
		e.worker.Stop()
		return true
	default:
		s.logger.Info("Process terminated", zap.Int("id", pid), zap.String("name", e.info.Name))
		return true
	}
}

// Get returns a process or worker snapshot.
func (s *Supervisor) Get(pid int) (Info, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[pid]
	if !ok {
		return Info{}, false
	}
	return e.snapshot(), true
}

// Worker returns the worker with the given id.
func (s *Supervisor) Worker(wid int) (*Worker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[wid]
	if !ok || e.worker == nil {
		return nil, false
	}
	return e.worker, true
}

// List returns every process and worker in creation order.
func (s *Supervisor) List() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Info, 0, len(s.order))
	for _, pid := range s.order {
		out = append(out, s.entries[pid].snapshot())
	}
	return out
}

// Shutdown stops every worker and waits for them until ctx ends. Workers
// still running at that point are cancelled. Spawn fails with
// ErrShuttingDown once Shutdown has started.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	workers := make([]*Worker, 0, len(s.entries))
	for _, e := range s.entries {
		if e.worker != nil {
			workers = append(workers, e.worker)
		}
	}
	s.mu.Unlock()

	for _, w := range workers {
		w.Stop()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		s.logger.Info("Supervisor stopped", zap.Int("workers", len(workers)))
		return nil
	case <-ctx.Done():
		s.cancel()
		s.logger.Warn("Supervisor shutdown timed out", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}
