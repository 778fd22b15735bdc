package protobuf_test

import (
	"testing"

	"github.com/joeycumines/go-armi/errs"
	"github.com/joeycumines/go-armi/wire/protobuf"
	"github.com/stretchr/testify/require"
)

func TestCodec_roundTrip(t *testing.T) {
	var c protobuf.Codec

	w := c.NewWriter()
	require.NoError(t, w.WriteUint64(42))
	require.NoError(t, w.WriteTag(1))
	require.NoError(t, w.WriteErrorCode(errs.Code{Category: 1, Value: 5}))
	require.NoError(t, w.WriteAny("hello"))
	require.NoError(t, w.WriteAny(int64(-7)))

	r := c.NewReader(w.Bytes())

	u64, err := r.ReadUint64()
	require.NoError(t, err)
	require.EqualValues(t, 42, u64)

	tag, err := r.ReadTag()
	require.NoError(t, err)
	require.EqualValues(t, 1, tag)

	code, err := r.ReadErrorCode()
	require.NoError(t, err)
	require.Equal(t, errs.Code{Category: 1, Value: 5}, code)

	var s string
	require.NoError(t, r.ReadAny(&s))
	require.Equal(t, "hello", s)

	var i int64
	require.NoError(t, r.ReadAny(&i))
	require.EqualValues(t, -7, i)
}

func TestCodec_unsupportedType(t *testing.T) {
	var c protobuf.Codec
	w := c.NewWriter()
	err := w.WriteAny(struct{ X int }{X: 1})
	require.Error(t, err)
}
