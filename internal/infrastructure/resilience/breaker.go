package resilience

import (
	"context"
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

// String returns the string representation of the state
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

// Settings configures the circuit breaker behavior
type Settings struct {
	// MaxRequests caps requests admitted in half-open state and the successes needed to close
	MaxRequests uint32
	// Interval clears the closed-state counts periodically; zero keeps them forever
	Interval time.Duration
	// Timeout is how long the breaker stays open before admitting trial requests
	Timeout time.Duration
	// ReadyToTrip decides, after a failure in closed state, whether to open
	ReadyToTrip func(counts Counts) bool
	// IsFailure classifies an error returned by the protected call.
	// Defaults to treating everything except caller cancellation as a failure.
	IsFailure func(err error) bool
	// OnStateChange is called with the lock held; it must not call back into the breaker
	OnStateChange func(name string, from State, to State)
	// Clock overrides time.Now, for tests
	Clock func() time.Time
}

// Counts holds the statistics for the current generation
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

func (c *Counts) success() {
	c.TotalSuccesses++
	c.ConsecutiveSuccesses++
	c.ConsecutiveFailures = 0
}

func (c *Counts) failure() {
	c.TotalFailures++
	c.ConsecutiveFailures++
	c.ConsecutiveSuccesses = 0
}

// Snapshot is a point-in-time view of a breaker
type Snapshot struct {
	Name   string
	State  State
	Counts Counts
}

// Breaker guards calls to one upstream
type Breaker struct {
	name     string
	settings Settings

	mu         sync.Mutex
	state      State
	generation uint64
	counts     Counts
	// expiry ends the current closed interval or open timeout
	expiry time.Time
}

// New creates a breaker, filling unset settings with defaults
func New(name string, settings Settings) *Breaker {
	if settings.MaxRequests == 0 {
		settings.MaxRequests = 1
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 60 * time.Second
	}
	if settings.ReadyToTrip == nil {
		settings.ReadyToTrip = func(counts Counts) bool {
			return counts.ConsecutiveFailures > 5
		}
	}
	if settings.IsFailure == nil {
		settings.IsFailure = func(err error) bool {
			return !errors.Is(err, context.Canceled)
		}
	}
	if settings.Clock == nil {
		settings.Clock = time.Now
	}

	b := &Breaker{name: name, settings: settings}
	b.resetCounts(settings.Clock())
	return b
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state, applying any due time-based transition
func (b *Breaker) State() State {
	return b.Snapshot().State
}

// Counts returns a copy of the current generation's counts
func (b *Breaker) Counts() Counts {
	return b.Snapshot().Counts
}

// Snapshot returns state and counts read under one lock
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance(b.settings.Clock())
	return Snapshot{Name: b.name, State: b.state, Counts: b.counts}
}

// Execute runs fn if the breaker admits it and records the outcome.
// A panic inside fn counts as a failure and is re-raised.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	generation, err := b.admit()
	if err != nil {
		return err
	}

	defer func() {
		if e := recover(); e != nil {
			b.record(generation, false)
			panic(e)
		}
	}()

	err = fn(ctx)
	b.record(generation, err == nil || !b.settings.IsFailure(err))
	return err
}

func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance(b.settings.Clock())

	switch {
	case b.state == StateOpen:
		return b.generation, ErrCircuitOpen
	case b.state == StateHalfOpen && b.counts.Requests >= b.settings.MaxRequests:
		return b.generation, ErrTooManyRequests
	}

	b.counts.Requests++
	return b.generation, nil
}

// record applies an outcome unless the breaker moved to a new generation meanwhile
func (b *Breaker) record(generation uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.settings.Clock()
	b.advance(now)
	if generation != b.generation {
		return
	}

	if success {
		b.counts.success()
		if b.state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.settings.MaxRequests {
			b.transition(StateClosed, now)
		}
		return
	}

	switch b.state {
	case StateClosed:
		b.counts.failure()
		if b.settings.ReadyToTrip(b.counts) {
			b.transition(StateOpen, now)
		}
	case StateHalfOpen:
		b.transition(StateOpen, now)
	}
}

// advance applies transitions that depend only on elapsed time
func (b *Breaker) advance(now time.Time) {
	if b.expiry.IsZero() || now.Before(b.expiry) {
		return
	}
	switch b.state {
	case StateClosed:
		b.resetCounts(now)
	case StateOpen:
		b.transition(StateHalfOpen, now)
	}
}

func (b *Breaker) transition(to State, now time.Time) {
	if b.state == to {
		return
	}

	from := b.state
	b.state = to
	b.resetCounts(now)

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, from, to)
	}
}

// resetCounts starts a new generation and sets the expiry for the current state
func (b *Breaker) resetCounts(now time.Time) {
	b.generation++
	b.counts = Counts{}

	switch {
	case b.state == StateOpen:
		b.expiry = now.Add(b.settings.Timeout)
	case b.state == StateClosed && b.settings.Interval > 0:
		b.expiry = now.Add(b.settings.Interval)
	default:
		b.expiry = time.Time{}
	}
}
