package errs_test

import (
	"errors"
	"testing"

	"github.com/joeycumines/go-armi/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_isComparesByKindOnly(t *testing.T) {
	a := errs.New(errs.TimedOut, 3, "first message")
	b := errs.New(errs.TimedOut, 7, "different category and message")
	c := errs.New(errs.ContextClosed, 3, "first message")

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestError_wrapUnwrap(t *testing.T) {
	cause := errors.New("boom")
	wrapped := errs.Wrap(errs.TransportClosed, 1, cause)

	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, wrapped.Error(), "boom")
}

func TestCategoryRegistry_registerIsIdempotent(t *testing.T) {
	reg := errs.NewCategoryRegistry()
	idx1 := reg.Register("aliens_invaded")
	idx2 := reg.Register("aliens_invaded")
	assert.Equal(t, idx1, idx2)
}

func TestCategoryRegistry_reservesIndexZero(t *testing.T) {
	reg := errs.NewCategoryRegistry()
	cat, ok := reg.Lookup(0)
	require.True(t, ok)
	assert.Equal(t, "ok", cat.Name)
}

func TestCategoryRegistry_decodeArmiCategory(t *testing.T) {
	reg := errs.NewCategoryRegistry()
	idx := reg.Register(errs.ArmiCategoryName)

	e := reg.Decode(errs.Code{Category: idx, Value: int32(errs.TimedOut)})
	assert.Equal(t, errs.TimedOut, e.Kind)
}

func TestCategoryRegistry_decodeThirdPartyCategoryStaysOpaque(t *testing.T) {
	reg := errs.NewCategoryRegistry()
	idx := reg.Register("aliens_invaded")

	e := reg.Decode(errs.Code{Category: idx, Value: 1})
	assert.Equal(t, errs.OK, e.Kind) // not reinterpreted as an armi Kind
	assert.Contains(t, e.Message, "aliens_invaded")
}

func TestCategoryRegistry_decodeUnknownIndex(t *testing.T) {
	reg := errs.NewCategoryRegistry()

	e := reg.Decode(errs.Code{Category: 99, Value: 1})
	assert.Equal(t, errs.InvalidErrorCategory, e.Kind)
}
