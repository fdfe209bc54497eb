// Package resilience provides a circuit breaker for calls to flaky
// dependencies such as an embedding model server.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/upatik/helpdesk-chatbot/pkg/fn"
)

// State is a circuit breaker state.
type State int

const (
	StateClosed   State = iota // normal operation
	StateOpen                  // rejecting calls
	StateHalfOpen              // allowing trial calls
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned without calling f while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerOpts configures the circuit breaker.
type BreakerOpts struct {
	// FailThreshold is how many consecutive failures trip the breaker.
	FailThreshold int
	// Timeout is how long the breaker stays open before entering half-open.
	Timeout time.Duration
	// HalfOpenMax is the number of trial calls allowed in half-open state.
	HalfOpenMax int
	// OnStateChange, if set, is called after every transition. It runs
	// with the breaker unlocked.
	OnStateChange func(from, to State)
}

// DefaultBreakerOpts provides defaults.
var DefaultBreakerOpts = BreakerOpts{
	FailThreshold: 5,
	Timeout:       30 * time.Second,
	HalfOpenMax:   1,
}

// Breaker implements a circuit breaker with closed/open/half-open states.
type Breaker struct {
	mu            sync.Mutex
	opts          BreakerOpts
	state         State
	failures      int
	openedAt      time.Time
	halfOpenCount int
	now           func() time.Time // for testing
}

// NewBreaker creates a circuit breaker with the given options.
func NewBreaker(opts BreakerOpts) *Breaker {
	if opts.FailThreshold <= 0 {
		opts.FailThreshold = DefaultBreakerOpts.FailThreshold
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultBreakerOpts.Timeout
	}
	if opts.HalfOpenMax <= 0 {
		opts.HalfOpenMax = DefaultBreakerOpts.HalfOpenMax
	}
	return &Breaker{opts: opts, now: time.Now}
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	st, changed, from := b.currentState()
	b.mu.Unlock()
	if changed {
		b.notify(from, st)
	}
	return st
}

// currentState moves open to half-open once the timeout has elapsed.
// Must hold mu.
func (b *Breaker) currentState() (st State, changed bool, from State) {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.opts.Timeout {
		b.state = StateHalfOpen
		b.halfOpenCount = 0
		return StateHalfOpen, true, StateOpen
	}
	return b.state, false, b.state
}

func (b *Breaker) notify(from, to State) {
	if b.opts.OnStateChange != nil && from != to {
		b.opts.OnStateChange(from, to)
	}
}

// Call executes f through the circuit breaker.
func (b *Breaker) Call(ctx context.Context, f func(context.Context) error) error {
	b.mu.Lock()
	st, changed, from := b.currentState()
	switch {
	case st == StateOpen, st == StateHalfOpen && b.halfOpenCount >= b.opts.HalfOpenMax:
		b.mu.Unlock()
		if changed {
			b.notify(from, st)
		}
		return ErrCircuitOpen
	case st == StateHalfOpen:
		b.halfOpenCount++
	}
	b.mu.Unlock()
	if changed {
		b.notify(from, st)
	}

	err := f(ctx)

	b.mu.Lock()
	before := b.state
	if err != nil {
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.opts.FailThreshold {
			b.state = StateOpen
			b.openedAt = b.now()
			b.failures = 0
			b.halfOpenCount = 0
		}
	} else {
		if b.state == StateHalfOpen {
			b.state = StateClosed
		}
		b.failures = 0
	}
	after := b.state
	b.mu.Unlock()

	b.notify(before, after)
	return err
}

// CallResult runs f through the breaker and returns its Result, or an
// ErrCircuitOpen failure when the call was rejected.
func CallResult[T any](b *Breaker, ctx context.Context, f func(context.Context) fn.Result[T]) fn.Result[T] {
	var r fn.Result[T]
	called := false
	err := b.Call(ctx, func(ctx context.Context) error {
		called = true
		r = f(ctx)
		if r.IsOk() {
			return nil
		}
		if _, err := r.Unwrap(); err != nil {
			return err
		}
		return errFailedResult
	})
	if !called {
		return fn.Err[T](err)
	}
	return r
}

var errFailedResult = errors.New("resilience: failed result")
