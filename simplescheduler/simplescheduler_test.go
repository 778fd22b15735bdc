package simplescheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/joeycumines/go-armi/scheduler"
	"github.com/joeycumines/go-armi/simplescheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_submitRunsOnOwningGoroutine(t *testing.T) {
	s := simplescheduler.New()
	defer closeScheduler(t, s)

	done := make(chan bool, 1)
	require.NoError(t, s.Submit(func() {
		done <- s.IsSchedulerGoroutine()
	}))

	select {
	case onLoop := <-done:
		assert.True(t, onLoop)
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}

func TestScheduler_scheduleAfterFires(t *testing.T) {
	s := simplescheduler.New()
	defer closeScheduler(t, s)

	fired := make(chan struct{}, 1)
	s.ScheduleAfter(10*time.Millisecond, func() {
		close(fired)
	})

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for scheduled callback")
	}
}

func TestScheduler_scheduleAfterCancel(t *testing.T) {
	s := simplescheduler.New()
	defer closeScheduler(t, s)

	fired := make(chan struct{}, 1)
	cancel := s.ScheduleAfter(50*time.Millisecond, func() {
		close(fired)
	})
	cancel()
	cancel() // idempotent

	select {
	case <-fired:
		t.Fatal("callback fired despite cancellation")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestScheduler_submitAfterCloseReturnsErrClosed(t *testing.T) {
	s := simplescheduler.New()
	closeScheduler(t, s)

	err := s.Submit(func() {})
	assert.ErrorIs(t, err, scheduler.ErrClosed)
}

func TestScheduler_panicInTaskDoesNotKillScheduler(t *testing.T) {
	s := simplescheduler.New()
	defer closeScheduler(t, s)

	require.NoError(t, s.Submit(func() {
		panic("boom")
	}))

	done := make(chan struct{}, 1)
	require.NoError(t, s.Submit(func() {
		close(done)
	}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not process tasks after a panicking one")
	}
}

func closeScheduler(t *testing.T, s *simplescheduler.Scheduler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Close(ctx))
}
