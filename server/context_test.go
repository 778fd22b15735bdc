package server_test

import (
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"

	"github.com/joeycumines/go-armi"
	"github.com/joeycumines/go-armi/errs"
	"github.com/joeycumines/go-armi/internal/armilog"
	"github.com/joeycumines/go-armi/server"
	"github.com/joeycumines/go-armi/wire"
	"github.com/joeycumines/go-armi/wire/tagbin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type twoArgStub struct{}

func (twoArgStub) Arity() int { return 2 }

func (twoArgStub) Invoke(r wire.Reader, target any, onSuccess func(wire.Writer) error, onFailure func(*errs.Error)) {
	var a, b int64
	_ = r.ReadAny(&a)
	_ = r.ReadAny(&b)
	_ = onSuccess
	_ = onFailure
}

func buildRequest(t *testing.T, requestID armi.RequestID, interfaceID armi.InterfaceID, methodID armi.MethodID, argCount int, args ...any) []byte {
	t.Helper()
	var codec tagbin.Codec
	w := codec.NewWriter()
	require.NoError(t, w.WriteUint64(uint64(requestID)))
	require.NoError(t, w.WriteUvarint(uint64(interfaceID)))
	require.NoError(t, w.WriteUvarint(uint64(methodID)))
	sw := w.(interface{ WriteSequencePrefix(int) error })
	require.NoError(t, sw.WriteSequencePrefix(argCount))
	for _, a := range args {
		require.NoError(t, w.WriteAny(a))
	}
	return w.Bytes()
}

func decodeFailReply(t *testing.T, frame []byte) (requestID uint64, code errs.Code) {
	t.Helper()
	var codec tagbin.Codec
	r := codec.NewReader(frame)
	requestID, err := r.ReadUint64()
	require.NoError(t, err)
	tag, err := r.ReadTag()
	require.NoError(t, err)
	require.Equal(t, armi.ReplyFail, armi.ReplyKind(tag))
	sr := r.(interface{ ReadSequencePrefix() (int, error) })
	n, err := sr.ReadSequencePrefix()
	require.NoError(t, err)
	require.Equal(t, 1, n)
	code, err = r.ReadErrorCode()
	require.NoError(t, err)
	return requestID, code
}

func TestContext_invalidArgumentCount(t *testing.T) {
	var codec tagbin.Codec
	var sentFrame []byte

	ctx := server.New(
		codec,
		[]server.InterfaceStub{{Methods: []server.MethodStub{twoArgStub{}}}},
		func(armi.ChannelID) (any, bool) { return struct{}{}, true },
		func(_ armi.ChannelID, frame []byte) error {
			sentFrame = frame
			return nil
		},
	)

	frame := buildRequest(t, 42, 0, 0, 3, int64(1), int64(2), int64(3))
	ctx.HandleRequest(1, frame)

	requestID, code := decodeFailReply(t, sentFrame)
	assert.EqualValues(t, 42, requestID)
	armiIdx, ok := ctx.CategoryRegistry().IndexOf(errs.ArmiCategoryName)
	require.True(t, ok)
	assert.Equal(t, armiIdx, code.Category)
	assert.EqualValues(t, errs.InvalidArgumentCount, code.Value)
}

func TestContext_invalidInterfaceID(t *testing.T) {
	var codec tagbin.Codec
	var sentFrame []byte

	ctx := server.New(
		codec,
		nil, // no interfaces registered
		func(armi.ChannelID) (any, bool) { return struct{}{}, true },
		func(_ armi.ChannelID, frame []byte) error {
			sentFrame = frame
			return nil
		},
	)

	frame := buildRequest(t, 7, 5, 0, 0)
	ctx.HandleRequest(1, frame)

	requestID, code := decodeFailReply(t, sentFrame)
	assert.EqualValues(t, 7, requestID)
	assert.EqualValues(t, errs.InvalidInterfaceID, code.Value)
}

func TestContext_noTargetProvided(t *testing.T) {
	var codec tagbin.Codec
	var sentFrame []byte

	ctx := server.New(
		codec,
		[]server.InterfaceStub{{Methods: []server.MethodStub{twoArgStub{}}}},
		func(armi.ChannelID) (any, bool) { return nil, false },
		func(_ armi.ChannelID, frame []byte) error {
			sentFrame = frame
			return nil
		},
	)

	frame := buildRequest(t, 1, 0, 0, 2, int64(1), int64(2))
	ctx.HandleRequest(1, frame)

	_, code := decodeFailReply(t, sentFrame)
	assert.EqualValues(t, errs.NoTargetProvided, code.Value)
}

func TestContext_dispatchFailureIsLogged(t *testing.T) {
	var codec tagbin.Codec
	var lines []string
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithTimeField("")),
		stumpy.L.WithWriter(logiface.WriterFunc[*stumpy.Event](func(e *stumpy.Event) error {
			lines = append(lines, string(e.Bytes()))
			return nil
		})),
	)

	ctx := server.New(
		codec,
		nil,
		func(armi.ChannelID) (any, bool) { return struct{}{}, true },
		func(_ armi.ChannelID, _ []byte) error { return nil },
		server.WithLogging(logger, armilog.NewThrottle(armilog.DefaultRates)),
	)

	ctx.HandleRequest(1, buildRequest(t, 7, 5, 0, 0))

	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "request dispatch failed")
}
