// Package readiness tracks the one-way lifecycle of an engine build:
// NotStarted, then Loading, then Ready or Failed.
package readiness

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Phase is a lifecycle stage.
type Phase int

const (
	NotStarted Phase = iota
	Loading
	Ready
	Failed
)

func (p Phase) String() string {
	switch p {
	case NotStarted:
		return "not_started"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool { return p == Ready || p == Failed }

// ErrInvalidTransition is returned for any transition other than
// NotStarted→Loading, Loading→Ready and Loading→Failed.
var ErrInvalidTransition = errors.New("readiness: invalid transition")

// FailedError carries the reason a build failed.
type FailedError struct {
	Reason string
}

func (e *FailedError) Error() string { return "engine failed: " + e.Reason }

// State is a point-in-time view of a Tracker.
type State struct {
	Phase   Phase
	Reason  string
	Changed time.Time
}

// Err returns a *FailedError for the Failed phase and nil otherwise.
func (s State) Err() error {
	if s.Phase == Failed {
		return &FailedError{Reason: s.Reason}
	}
	return nil
}

// Tracker is a concurrency-safe readiness state machine.
type Tracker struct {
	mu    sync.RWMutex
	state State
	now   func() time.Time // for testing
}

// NewTracker returns a tracker in NotStarted.
func NewTracker() *Tracker {
	t := &Tracker{now: time.Now}
	t.state.Changed = t.now()
	return t
}

// State returns the current state.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Begin moves NotStarted to Loading.
func (t *Tracker) Begin() error { return t.move(NotStarted, Loading, "") }

// Ready moves Loading to Ready.
func (t *Tracker) Ready() error { return t.move(Loading, Ready, "") }

// Fail moves Loading to Failed with a reason.
func (t *Tracker) Fail(reason string) error {
	if reason == "" {
		reason = "unknown error"
	}
	return t.move(Loading, Failed, reason)
}

func (t *Tracker) move(from, to Phase, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Phase.Terminal() {
		return fmt.Errorf("%w: %s is final", ErrInvalidTransition, t.state.Phase)
	}
	if t.state.Phase != from {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.state.Phase, to)
	}
	t.state = State{Phase: to, Reason: reason, Changed: t.now()}
	return nil
}
