// Package simplescheduler implements [scheduler.Scheduler] as a single
// goroutine draining a task queue, with [time.AfterFunc]-backed timers that
// resubmit onto that same queue when they fire.
//
// Grounded on eventloop/loop.go's Loop: one owning goroutine
// (loopGoroutineID-style affinity, checked in debug builds via
// isLoopThread), Submit/SubmitInternal semantics, and the
// Run/Shutdown/ErrLoopTerminated lifecycle — scaled down from
// eventloop.Loop's full epoll/kqueue/IOCP poller, which spec.md §1 places
// out of scope (this package only has to satisfy scheduler.Scheduler's
// "submit a callback" / "fire a callback after a duration" contract, not
// drive real I/O).
package simplescheduler

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-armi/scheduler"
)

var _ scheduler.Scheduler = (*Scheduler)(nil)

// Scheduler is a minimal, single-goroutine [scheduler.Scheduler].
// The zero value is not usable; construct with [New].
type Scheduler struct {
	tasks chan func()

	closeOnce sync.Once
	closed    atomic.Bool
	done      chan struct{}

	ownerGoroutine atomic.Uint64
}

// New starts a Scheduler's owning goroutine and returns it, ready to accept
// Submit/ScheduleAfter calls. Call [Scheduler.Close] to stop it.
func New() *Scheduler {
	s := &Scheduler{
		tasks: make(chan func(), 256),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Scheduler) run() {
	s.ownerGoroutine.Store(goroutineID())
	defer close(s.done)
	for fn := range s.tasks {
		s.safeExecute(fn)
	}
}

func (s *Scheduler) safeExecute(fn func()) {
	defer func() {
		// A panicking task must not take down the scheduler goroutine;
		// the caller (client/server context) is responsible for
		// converting stub/continuation panics into rejections before
		// they ever reach here. Anything that still escapes is dropped.
		recover()
	}()
	fn()
}

// Submit implements [scheduler.Scheduler].
func (s *Scheduler) Submit(fn func()) error {
	if s.closed.Load() {
		return scheduler.ErrClosed
	}
	select {
	case s.tasks <- fn:
		return nil
	case <-s.done:
		return scheduler.ErrClosed
	}
}

// ScheduleAfter implements [scheduler.Scheduler].
func (s *Scheduler) ScheduleAfter(delay time.Duration, fn func()) (cancel func()) {
	var fired, cancelled atomic.Bool
	t := time.AfterFunc(delay, func() {
		if fired.Swap(true) {
			return
		}
		_ = s.Submit(func() {
			if !cancelled.Load() {
				fn()
			}
		})
	})
	return func() {
		cancelled.Store(true)
		fired.Store(true)
		t.Stop()
	}
}

// IsSchedulerGoroutine reports whether the calling goroutine is this
// Scheduler's owning goroutine. Intended for assertions in tests and
// debug-mode invariant checks; production code must not branch on it.
func (s *Scheduler) IsSchedulerGoroutine() bool {
	id := s.ownerGoroutine.Load()
	return id != 0 && id == goroutineID()
}

// Close stops the scheduler once its currently-queued tasks have drained.
// Submitted tasks after Close returns ErrClosed. Close is idempotent.
func (s *Scheduler) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.tasks)
	})
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// goroutineID parses the current goroutine id out of a runtime.Stack dump.
// Grounded on eventloop/loop.go's getGoroutineID, used there for the same
// "am I on the loop goroutine" debug assertion.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
