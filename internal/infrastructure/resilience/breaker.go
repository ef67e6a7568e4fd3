package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures a breaker. Zero fields take defaults.
type Settings struct {
	// FailureThreshold is how many consecutive failures open the circuit.
	FailureThreshold int
	// Cooldown is how long the circuit stays open before probing.
	Cooldown time.Duration
	// Probes is how many concurrent calls are let through while half-open,
	// and how many must succeed to close again.
	Probes int
	// OnStateChange is called with the lock released.
	OnStateChange func(name string, from, to State)
}

func (s Settings) withDefaults() Settings {
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = 5
	}
	if s.Cooldown <= 0 {
		s.Cooldown = 30 * time.Second
	}
	if s.Probes <= 0 {
		s.Probes = 1
	}
	return s
}

// Breaker stops calling a failing broker until it has had time to recover
type Breaker struct {
	name     string
	settings Settings
	now      func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	inFlight  int
	successes int
	openedAt  time.Time
}

// New creates a closed breaker.
func New(name string, settings Settings) *Breaker {
	return &Breaker{
		name:     name,
		settings: settings.withDefaults(),
		now:      time.Now,
	}
}

// Name returns the breaker name
func (b *Breaker) Name() string { return b.name }

// State returns the current state, moving open to half-open once the
// cooldown has passed.
func (b *Breaker) State() State {
	b.mu.Lock()
	state, change := b.refresh()
	b.mu.Unlock()
	b.notify(change)
	return state
}

// Do runs fn unless the circuit is open. A nil error counts as success.
func (b *Breaker) Do(fn func() error) error {
	if err := b.before(); err != nil {
		return err
	}

	success := false
	defer func() {
		b.after(success)
	}()

	err := fn()
	success = err == nil
	return err
}

type transition struct {
	from, to State
}

func (b *Breaker) before() error {
	b.mu.Lock()
	state, change := b.refresh()
	var err error
	switch state {
	case StateOpen:
		err = ErrCircuitOpen
	case StateHalfOpen:
		if b.inFlight >= b.settings.Probes {
			err = ErrTooManyRequests
		} else {
			b.inFlight++
		}
	}
	b.mu.Unlock()
	b.notify(change)
	return err
}

func (b *Breaker) after(success bool) {
	b.mu.Lock()
	var change *transition
	switch b.state {
	case StateClosed:
		if success {
			b.failures = 0
		} else if b.failures++; b.failures >= b.settings.FailureThreshold {
			change = b.set(StateOpen)
		}
	case StateHalfOpen:
		b.inFlight--
		if !success {
			change = b.set(StateOpen)
		} else if b.successes++; b.successes >= b.settings.Probes {
			change = b.set(StateClosed)
		}
	}
	b.mu.Unlock()
	b.notify(change)
}

// refresh must be called with mu held.
func (b *Breaker) refresh() (State, *transition) {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.settings.Cooldown {
		return StateHalfOpen, b.set(StateHalfOpen)
	}
	return b.state, nil
}

// set must be called with mu held.
func (b *Breaker) set(to State) *transition {
	from := b.state
	b.state = to
	b.failures, b.successes, b.inFlight = 0, 0, 0
	if to == StateOpen {
		b.openedAt = b.now()
	}
	return &transition{from: from, to: to}
}

func (b *Breaker) notify(change *transition) {
	if change != nil && b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, change.from, change.to)
	}
}
