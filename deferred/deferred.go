// Package deferred implements [Deferred], a generic, single-shot
// resolve/reject primitive: the "deferred" of spec.md's GLOSSARY.
//
// Grounded on eventloop/promise.go's promise type (State/Result/Resolve/
// Reject/ToChannel, subscriber fan-out via buffered channels), generalized
// with a type parameter in the style logiface.Logger[E Event] generalizes
// over event types.
package deferred

import (
	"sync"

	"github.com/joeycumines/go-armi/errs"
)

// State is the lifecycle state of a [Deferred]. It starts Pending and
// transitions exactly once, to either Resolved or Rejected.
type State int

const (
	// Pending indicates the deferred has not yet settled.
	Pending State = iota
	// Resolved indicates the deferred settled with a value.
	Resolved
	// Rejected indicates the deferred settled with an error.
	Rejected
)

// Settlement carries the terminal outcome delivered via [Deferred.ToChannel].
type Settlement[T any] struct {
	Value T
	Err   *errs.Error
}

// Deferred is a handle to an eventually-delivered value of type T, or a
// failure. It settles exactly once: either [Deferred.Resolve] or
// [Deferred.Reject] wins, and every later call is a silent no-op.
//
// A Deferred is safe for concurrent Resolve/Reject/Subscribe calls. Its
// Subscribe callbacks run synchronously: one registered while pending runs
// on whichever goroutine calls the settling Resolve/Reject, one registered
// after settlement runs on the goroutine calling Subscribe. Callers that
// need affinity to a single scheduler goroutine must make those calls
// there.
type Deferred[T any] struct {
	mu          sync.Mutex
	state       State
	value       T
	err         *errs.Error
	subscribers []func(T, *errs.Error)
	ch          chan Settlement[T]
}

// New returns a fresh, pending Deferred.
func New[T any]() *Deferred[T] {
	return &Deferred[T]{}
}

// State returns the current lifecycle state.
func (d *Deferred[T]) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Resolve settles the deferred with value, unless it has already settled.
func (d *Deferred[T]) Resolve(value T) {
	d.settle(Resolved, value, nil)
}

// Reject settles the deferred with err, unless it has already settled.
func (d *Deferred[T]) Reject(err *errs.Error) {
	var zero T
	d.settle(Rejected, zero, err)
}

func (d *Deferred[T]) settle(state State, value T, err *errs.Error) {
	d.mu.Lock()
	if d.state != Pending {
		d.mu.Unlock()
		return
	}
	d.state = state
	d.value = value
	d.err = err
	subs := d.subscribers
	d.subscribers = nil
	ch := d.ch
	d.mu.Unlock()

	if ch != nil {
		ch <- Settlement[T]{Value: value, Err: err}
		close(ch)
	}
	for _, fn := range subs {
		fn(value, err)
	}
}

// Subscribe registers fn to be called exactly once with the terminal
// value/error. If the Deferred has already settled, fn is invoked
// synchronously, before Subscribe returns.
func (d *Deferred[T]) Subscribe(fn func(value T, err *errs.Error)) {
	d.mu.Lock()
	if d.state == Pending {
		d.subscribers = append(d.subscribers, fn)
		d.mu.Unlock()
		return
	}
	state, value, err := d.state, d.value, d.err
	d.mu.Unlock()
	_ = state
	fn(value, err)
}

// ToChannel returns a channel that receives exactly one [Settlement] when
// the Deferred settles, then is closed. If already settled, the channel is
// pre-filled.
func (d *Deferred[T]) ToChannel() <-chan Settlement[T] {
	d.mu.Lock()
	if d.state == Pending {
		if d.ch == nil {
			d.ch = make(chan Settlement[T], 1)
		}
		ch := d.ch
		d.mu.Unlock()
		return ch
	}
	state, value, err := d.state, d.value, d.err
	d.mu.Unlock()
	_ = state
	ch := make(chan Settlement[T], 1)
	ch <- Settlement[T]{Value: value, Err: err}
	close(ch)
	return ch
}
