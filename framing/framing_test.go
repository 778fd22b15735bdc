package framing_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/joeycumines/go-armi/framing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadFrame_roundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, framing.WriteFrame(&buf, []byte("hello world"), 0x7))

	payload, flags, err := framing.ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), payload)
	assert.Equal(t, framing.Flags(0x7), flags)
}

func TestWriteReadFrame_empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, framing.WriteFrame(&buf, nil, 0))

	payload, _, err := framing.ReadFrame(&buf)
	require.NoError(t, err)
	assert.Empty(t, payload)
}

func TestReadFrame_cleanEOFAtBoundary(t *testing.T) {
	_, _, err := framing.ReadFrame(bytes.NewReader(nil))
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFrame_truncatedHeader(t *testing.T) {
	_, _, err := framing.ReadFrame(bytes.NewReader([]byte{0, 0, 1}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadFrame_truncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, buf.WriteByte(0))
	require.NoError(t, buf.WriteByte(0))
	require.NoError(t, buf.WriteByte(0))
	require.NoError(t, buf.WriteByte(10)) // advertises 10-byte payload
	buf.Write([]byte{0, 0, 0, 0})         // flags
	buf.Write([]byte{1, 2, 3})            // only 3 of 10 payload bytes

	_, _, err := framing.ReadFrame(&buf)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestWriteFrame_oversizePayload(t *testing.T) {
	var buf bytes.Buffer
	huge := make([]byte, framing.MaxPayloadSize+1)
	err := framing.WriteFrame(&buf, huge, 0)
	assert.Error(t, err)
}
