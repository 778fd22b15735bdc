// Package scheduler defines the abstract contract a client or server
// context is bound to: submit a callback for execution on the context's
// single owning goroutine, and fire a callback after a delay.
//
// spec.md §5 requires each context to be bound to exactly one scheduler,
// with every callback — read completion, write completion, timeout, user
// continuation — running on it. This package only names the contract;
// [github.com/joeycumines/go-armi/simplescheduler] provides a concrete
// implementation.
//
// Grounded on inprocgrpc/options.go's Loop interface (Submit/SubmitInternal:
// the minimal shape a component actually depends on, rather than the whole
// eventloop.Loop), plus eventloop.Loop.ScheduleTimer for the timeout half.
package scheduler

import (
	"errors"
	"time"
)

// ErrClosed is returned by Submit/ScheduleAfter once the scheduler has shut
// down; callers must treat it like spec.md §4.3's "context closed" signal
// for submission, not confuse it with the context-level ContextClosed error.
var ErrClosed = errors.New("scheduler: closed")

// Scheduler runs submitted callbacks serially, on one owning goroutine, and
// can fire a callback after a duration has elapsed.
type Scheduler interface {
	// Submit enqueues fn for execution on the scheduler's owning goroutine.
	// Returns ErrClosed if the scheduler has shut down; fn is not run in
	// that case.
	Submit(fn func()) error

	// ScheduleAfter arranges for fn to run, on the owning goroutine, no
	// sooner than delay from now. The returned cancel function prevents fn
	// from running if it has not already started; calling cancel after fn
	// has run, or calling it twice, is a no-op. Per spec.md §4.3, callers
	// are never required to call cancel for correctness (a fired callback
	// that arrives after its effect is already moot must be harmless) but
	// may do so as an optimisation.
	ScheduleAfter(delay time.Duration, fn func()) (cancel func())
}
