package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ipc-control-room/ipc-project/internal/domain/channel"
	"github.com/ipc-control-room/ipc-project/internal/domain/security"
)

// Worker roles.
const (
	RoleEmitter = "Periodic-Emitter"
	RoleEcho    = "Echo-Transformer"
)

var (
	ErrNilChannel   = errors.New("worker channel is nil")
	ErrUnknownSpec  = errors.New("unknown worker spec")
	ErrShuttingDown = errors.New("supervisor is shutting down")
)

// Report writes one line to the worker's output queue.
type Report func(text string)

// Task is the unit of work a worker runs every tick. The set of tasks is
// closed: Emitter and Echo.
type Task interface {
	Role() string
	// Step runs one unit of work. A returned error or a panic terminates
	// the worker.
	Step(ctx context.Context, now time.Time, report Report) error
	// HandleCommand receives every control value other than the stop
	// sentinel.
	HandleCommand(cmd any)

	task()
}

// Spec configures a worker to spawn. The set of specs is closed:
// EmitterSpec and EchoSpec.
type Spec interface {
	newTask(defaults Config) (Task, error)
	defaultName(workerID int) string
}

// EmitterSpec configures a Periodic-Emitter.
type EmitterSpec struct {
	Name    string
	Channel channel.Channel
	Sender  security.ActorID
	// Period defaults to Config.EmitPeriod.
	Period time.Duration
	// Marker defaults to Config.Marker.
	Marker string
}

func (s EmitterSpec) newTask(d Config) (Task, error) {
	if s.Channel == nil {
		return nil, ErrNilChannel
	}
	if s.Period <= 0 {
		s.Period = d.EmitPeriod
	}
	if s.Marker == "" {
		s.Marker = d.Marker
	}
	return &Emitter{
		channel: s.Channel,
		sender:  s.Sender,
		period:  s.Period,
		marker:  []byte(s.Marker),
	}, nil
}

func (s EmitterSpec) defaultName(workerID int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("Ping_%d", workerID)
}

// EchoSpec configures an Echo-Transformer.
type EchoSpec struct {
	Name     string
	Channel  channel.Channel
	Receiver security.ActorID
	Reply    security.ActorID
}

func (s EchoSpec) newTask(Config) (Task, error) {
	if s.Channel == nil {
		return nil, ErrNilChannel
	}
	return &Echo{
		channel:  s.Channel,
		receiver: s.Receiver,
		reply:    s.Reply,
	}, nil
}

func (s EchoSpec) defaultName(workerID int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("Echo_%d", workerID)
}

// Emitter sends a marker through its channel once per period. Cadence
// follows the wall clock, not the tick count.
type Emitter struct {
	channel channel.Channel
	sender  security.ActorID
	period  time.Duration
	marker  []byte
	last    time.Time
}

func (e *Emitter) task() {}

// Role implements Task.
func (e *Emitter) Role() string { return RoleEmitter }

// HandleCommand implements Task. Emitters take no commands.
func (e *Emitter) HandleCommand(any) {}

// Step implements Task.
func (e *Emitter) Step(_ context.Context, now time.Time, report Report) error {
	if !e.last.IsZero() && now.Sub(e.last) < e.period {
		return nil
	}
	e.last = now

	if e.channel.Closed() {
		return closedError(e.channel)
	}
	if e.channel.Send(e.sender, e.marker) {
		report(fmt.Sprintf("sent %s", e.marker))
	} else {
		report(fmt.Sprintf("failed to send %s", e.marker))
	}
	return nil
}

// Echo upper-cases whatever arrives for its receive actor and sends it
// back through the same channel as its reply actor.
type Echo struct {
	channel  channel.Channel
	receiver security.ActorID
	reply    security.ActorID
}

func (e *Echo) task() {}

// Role implements Task.
func (e *Echo) Role() string { return RoleEcho }

// HandleCommand implements Task. Echo workers take no commands.
func (e *Echo) HandleCommand(any) {}

// Step implements Task.
func (e *Echo) Step(ctx context.Context, _ time.Time, report Report) error {
	if e.channel.Closed() {
		return closedError(e.channel)
	}
	msg, ok := e.channel.Receive(ctx, e.receiver, channel.NonBlocking())
	if !ok {
		return nil
	}

	upper := bytes.ToUpper(msg)
	if !e.channel.Send(e.reply, upper) {
		report(fmt.Sprintf("failed to echo %s", upper))
		return nil
	}
	report(fmt.Sprintf("%s -> %s", msg, upper))
	return nil
}

// closedError ends a worker whose channel was closed under it.
func closedError(ch channel.Channel) error {
	return fmt.Errorf("channel %q: %w", ch.Metadata().Name, channel.ErrClosed)
}
