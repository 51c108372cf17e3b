package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream failed")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func run(b *Breaker, success bool) error {
	return b.Execute(context.Background(), func(ctx context.Context) error {
		if success {
			return nil
		}
		return errUpstream
	})
}

func tripAfter(n uint32) func(Counts) bool {
	return func(counts Counts) bool {
		return counts.ConsecutiveFailures >= n
	}
}

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		settings      Settings
		requests      []bool // true = success, false = failure
		expectedState State
	}{
		{
			name:          "stays closed on successes",
			settings:      Settings{},
			requests:      []bool{true, true, true},
			expectedState: StateClosed,
		},
		{
			name:          "opens after consecutive failures",
			settings:      Settings{ReadyToTrip: tripAfter(3)},
			requests:      []bool{false, false, false},
			expectedState: StateOpen,
		},
		{
			name:          "success resets consecutive failures",
			settings:      Settings{ReadyToTrip: tripAfter(2)},
			requests:      []bool{false, true, false, true},
			expectedState: StateClosed,
		},
		{
			name:          "default trips after six failures",
			settings:      Settings{},
			requests:      []bool{false, false, false, false, false, false},
			expectedState: StateOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breaker := New("test", tt.settings)
			for _, success := range tt.requests {
				_ = run(breaker, success)
			}
			assert.Equal(t, tt.expectedState, breaker.State())
		})
	}
}

func TestBreakerCounts(t *testing.T) {
	breaker := New("test", Settings{})

	require.NoError(t, run(breaker, true))

	counts := breaker.Counts()
	assert.Equal(t, uint32(1), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalSuccesses)
	assert.Equal(t, uint32(1), counts.ConsecutiveSuccesses)
	assert.Equal(t, uint32(0), counts.TotalFailures)

	assert.ErrorIs(t, run(breaker, false), errUpstream)

	snap := breaker.Snapshot()
	assert.Equal(t, "test", snap.Name)
	assert.Equal(t, StateClosed, snap.State)
	assert.Equal(t, uint32(2), snap.Counts.Requests)
	assert.Equal(t, uint32(1), snap.Counts.TotalFailures)
	assert.Equal(t, uint32(1), snap.Counts.ConsecutiveFailures)
	assert.Equal(t, uint32(0), snap.Counts.ConsecutiveSuccesses)
}

func TestBreakerIntervalClearsCounts(t *testing.T) {
	clock := newFakeClock()
	breaker := New("test", Settings{
		Interval:    time.Minute,
		ReadyToTrip: tripAfter(2),
		Clock:       clock.Now,
	})

	_ = run(breaker, false)
	clock.Advance(2 * time.Minute)
	assert.Equal(t, uint32(0), breaker.Counts().TotalFailures)

	_ = run(breaker, false)
	assert.Equal(t, StateClosed, breaker.State(), "failures in separate intervals do not accumulate")
}

func TestBreakerOpenState(t *testing.T) {
	breaker := New("test", Settings{ReadyToTrip: tripAfter(2)})

	for i := 0; i < 2; i++ {
		_ = run(breaker, false)
	}
	assert.Equal(t, StateOpen, breaker.State())

	called := false
	err := breaker.Execute(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called, "open breaker must not run the request")
}

func TestBreakerHalfOpenState(t *testing.T) {
	clock := newFakeClock()
	breaker := New("test", Settings{
		MaxRequests: 2,
		Timeout:     30 * time.Second,
		ReadyToTrip: tripAfter(2),
		Clock:       clock.Now,
	})

	for i := 0; i < 2; i++ {
		_ = run(breaker, false)
	}
	assert.Equal(t, StateOpen, breaker.State())

	clock.Advance(29 * time.Second)
	assert.Equal(t, StateOpen, breaker.State())

	clock.Advance(time.Second)
	assert.Equal(t, StateHalfOpen, breaker.State())

	for i := 0; i < 2; i++ {
		require.NoError(t, run(breaker, true))
	}
	assert.Equal(t, StateClosed, breaker.State())
}

func TestBreakerHalfOpenLimitsConcurrentRequests(t *testing.T) {
	clock := newFakeClock()
	breaker := New("test", Settings{
		MaxRequests: 1,
		Timeout:     time.Second,
		ReadyToTrip: tripAfter(1),
		Clock:       clock.Now,
	})

	_ = run(breaker, false)
	clock.Advance(time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- breaker.Execute(context.Background(), func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	assert.ErrorIs(t, run(breaker, true), ErrTooManyRequests)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateClosed, breaker.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := newFakeClock()
	breaker := New("test", Settings{
		Timeout:     time.Second,
		ReadyToTrip: tripAfter(1),
		Clock:       clock.Now,
	})

	_ = run(breaker, false)
	clock.Advance(time.Second)
	require.Equal(t, StateHalfOpen, breaker.State())

	_ = run(breaker, false)
	assert.Equal(t, StateOpen, breaker.State())
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	breaker := New("test", Settings{ReadyToTrip: tripAfter(1)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := breaker.Execute(ctx, func(ctx context.Context) error {
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, breaker.State())
	assert.Equal(t, uint32(0), breaker.Counts().TotalFailures)
}

func TestBreakerCustomFailureClassifier(t *testing.T) {
	errClient := errors.New("bad request")
	breaker := New("test", Settings{
		ReadyToTrip: tripAfter(1),
		IsFailure: func(err error) bool {
			return !errors.Is(err, errClient)
		},
	})

	err := breaker.Execute(context.Background(), func(ctx context.Context) error {
		return errClient
	})
	assert.ErrorIs(t, err, errClient)
	assert.Equal(t, StateClosed, breaker.State())
	assert.Equal(t, uint32(1), breaker.Counts().TotalSuccesses)
}

func TestBreakerPanicCountsAsFailure(t *testing.T) {
	breaker := New("test", Settings{ReadyToTrip: tripAfter(1)})

	assert.Panics(t, func() {
		_ = breaker.Execute(context.Background(), func(ctx context.Context) error {
			panic("boom")
		})
	})
	assert.Equal(t, StateOpen, breaker.State())
}

func TestBreakerCallbacks(t *testing.T) {
	clock := newFakeClock()
	var transitions []string

	breaker := New("hf-gpt2", Settings{
		Timeout:     10 * time.Second,
		ReadyToTrip: tripAfter(2),
		Clock:       clock.Now,
		OnStateChange: func(name string, from State, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})

	for i := 0; i < 2; i++ {
		_ = run(breaker, false)
	}
	clock.Advance(10 * time.Second)
	require.NoError(t, run(breaker, true))

	assert.Equal(t, []string{
		"hf-gpt2:closed->open",
		"hf-gpt2:open->half-open",
		"hf-gpt2:half-open->closed",
	}, transitions)
}
