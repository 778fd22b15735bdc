package deferred_test

import (
	"testing"

	"github.com/joeycumines/go-armi/deferred"
	"github.com/joeycumines/go-armi/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeferred_resolveThenSubscribe(t *testing.T) {
	d := deferred.New[int]()
	d.Resolve(7)

	var got int
	d.Subscribe(func(v int, err *errs.Error) {
		got = v
		assert.Nil(t, err)
	})
	assert.Equal(t, 7, got)
	assert.Equal(t, deferred.Resolved, d.State())
}

func TestDeferred_subscribeThenResolve(t *testing.T) {
	d := deferred.New[string]()

	var got string
	d.Subscribe(func(v string, err *errs.Error) {
		got = v
	})
	d.Resolve("done")
	assert.Equal(t, "done", got)
}

func TestDeferred_settlesOnlyOnce(t *testing.T) {
	d := deferred.New[int]()
	calls := 0
	d.Subscribe(func(v int, err *errs.Error) { calls++ })

	d.Resolve(1)
	d.Resolve(2) // no-op, already settled
	d.Reject(errs.New(errs.TimedOut, 0, "x")) // no-op too

	assert.Equal(t, 1, calls)
	assert.Equal(t, deferred.Resolved, d.State())
}

func TestDeferred_reject(t *testing.T) {
	d := deferred.New[int]()
	want := errs.New(errs.TimedOut, 0, "timed out")
	d.Reject(want)

	var gotErr *errs.Error
	d.Subscribe(func(v int, err *errs.Error) { gotErr = err })
	require.NotNil(t, gotErr)
	assert.Equal(t, errs.TimedOut, gotErr.Kind)
}

func TestDeferred_toChannel(t *testing.T) {
	d := deferred.New[int]()
	ch := d.ToChannel()

	d.Resolve(42)

	s := <-ch
	assert.Equal(t, 42, s.Value)
	assert.Nil(t, s.Err)

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after delivering the settlement")
}

func TestDeferred_toChannelAfterSettle(t *testing.T) {
	d := deferred.New[int]()
	d.Resolve(5)

	ch := d.ToChannel()
	s := <-ch
	assert.Equal(t, 5, s.Value)
}
