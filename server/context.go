// Package server implements the server context of spec.md §4.6: request
// decoding, interface/method dispatch, and typed reply serialisation,
// including the synthesised fail replies spec.md §4.4/§4.5/§4.6 require
// for every decode or routing failure.
//
// Grounded on original_source/include/logicmill/armi/server_context_base.h,
// interface_stub_base.h, and member_func_stub_base.h for the dispatch
// shape (interface table → method table → decode → invoke → reply), and
// on inprocgrpc/handler.go's handlerMap-driven dispatch for the Go-side
// registry pattern.
package server

import (
	"fmt"

	"github.com/joeycumines/go-armi"
	"github.com/joeycumines/go-armi/errs"
	"github.com/joeycumines/go-armi/internal/armilog"
	"github.com/joeycumines/go-armi/wire"
)

// TargetBinder resolves the object a channel's requests are dispatched
// against, per spec.md §4.6's "application-supplied target binder,
// invoked lazily per request". Returning nil, false means "no target":
// the context replies with [errs.NoTargetProvided].
type TargetBinder func(channelID armi.ChannelID) (target any, ok bool)

// SendFunc hands a framed reply buffer off to the adapter for
// transmission on channelID.
type SendFunc func(channelID armi.ChannelID, frame []byte) error

// MethodStub dispatches one decoded method call against a bound target.
// Generated code implements Invoke: decode the declared argument tuple
// from r, call the target's method, and arrange for the returned
// deferred's resolution to call onSuccess/onFailure.
//
// Per spec.md §4.4: a sequence-prefix mismatch against the method's
// declared arity is invalid_argument_count; a decode failure is a fail
// reply carrying the decode error; a synchronous panic from the target
// call is converted to uncaught_server_exception.
type MethodStub interface {
	// Arity is the method's declared argument count, checked against the
	// request's sequence prefix before decoding begins.
	Arity() int
	// Invoke decodes arguments from r and calls target's method,
	// eventually calling exactly one of onSuccess (with the serialised
	// success payload) or onFailure (with the error to serialise as a
	// fail reply). Invoke itself must not panic past argument decoding;
	// the server context recovers a panic from this call and converts it
	// to uncaught_server_exception.
	Invoke(r wire.Reader, target any, onSuccess func(w wire.Writer) error, onFailure func(*errs.Error))
}

// InterfaceStub holds the ordered method table for one declared
// interface, per spec.md §4.5.
type InterfaceStub struct {
	Methods []MethodStub
}

// Context is the server half of an armi session: it decodes request
// frames, resolves a target per request via its [TargetBinder], and
// dispatches to the matching interface/method stub. A Context is bound
// to exactly one scheduler; [Context.HandleRequest] and every callback it
// triggers must run there (see spec.md §5).
//
// The zero value is not usable; construct with [New].
type Context struct {
	codec      wire.Codec
	cats       *errs.CategoryRegistry
	interfaces []InterfaceStub
	binder     TargetBinder
	send       SendFunc

	logger   *armilog.Logger
	throttle *armilog.Throttle
}

// Option configures a [Context] at construction time.
type Option func(*Context)

// WithCategoryRegistry binds the context to an existing
// [errs.CategoryRegistry] shared with its peer.
func WithCategoryRegistry(reg *errs.CategoryRegistry) Option {
	return func(c *Context) { c.cats = reg }
}

// WithLogging attaches a logger and throttle used to report every
// synthesised fail reply (invalid ids, missing target, uncaught target
// panic). Without this option the context stays silent, as before.
func WithLogging(logger *armilog.Logger, throttle *armilog.Throttle) Option {
	return func(c *Context) {
		c.logger = logger
		c.throttle = throttle
	}
}

// New constructs a Context dispatching against interfaces, resolving
// targets via binder, encoding replies with codec, and handing them to
// send for transmission.
func New(codec wire.Codec, interfaces []InterfaceStub, binder TargetBinder, send SendFunc, opts ...Option) *Context {
	c := &Context{
		codec:      codec,
		cats:       errs.NewCategoryRegistry(),
		interfaces: interfaces,
		binder:     binder,
		send:       send,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CategoryRegistry returns the error-category registry this context
// encodes fail-reply error codes against.
func (c *Context) CategoryRegistry() *errs.CategoryRegistry { return c.cats }

func (c *Context) armiCategory() int32 {
	return c.cats.Register(errs.ArmiCategoryName)
}

// HandleRequest is the adapter's entry point for every inbound request
// frame, per spec.md §4.6. request_id is always read first (the wire
// layout of spec.md §4.1 places it before interface_id), so every failure
// path below — an out-of-range interface_id, a missing target, an
// out-of-range method_id, a decode failure — can still address a fail
// reply to the right request.
func (c *Context) HandleRequest(channelID armi.ChannelID, buf []byte) {
	r := c.codec.NewReader(buf)

	requestID64, err := r.ReadUint64()
	if err != nil {
		return // frame too short to even carry a request id: nothing to reply to
	}
	requestID := armi.RequestID(requestID64)

	interfaceID64, err := r.ReadUvarint()
	if err != nil {
		c.replyFail(channelID, requestID, errs.New(errs.InvalidInterfaceID, c.armiCategory(), "missing interface id"))
		return
	}
	interfaceID := armi.InterfaceID(interfaceID64)
	if int(interfaceID) < 0 || int(interfaceID) >= len(c.interfaces) {
		c.replyFail(channelID, requestID, errs.New(errs.InvalidInterfaceID, c.armiCategory(), fmt.Sprintf("interface id %d out of range", interfaceID)))
		return
	}

	target, ok := c.binder(channelID)
	if !ok {
		c.replyFail(channelID, requestID, errs.New(errs.NoTargetProvided, c.armiCategory(), "no target bound for channel"))
		return
	}

	c.interfaces[interfaceID].process(c, channelID, requestID, r, target)
}

// process implements spec.md §4.5: read method_id, dispatch or reply
// invalid_method_id.
func (s InterfaceStub) process(c *Context, channelID armi.ChannelID, requestID armi.RequestID, r wire.Reader, target any) {
	methodID64, err := r.ReadUvarint()
	if err != nil {
		c.replyFail(channelID, requestID, errs.New(errs.InvalidMethodID, c.armiCategory(), "missing method id"))
		return
	}
	methodID := armi.MethodID(methodID64)
	if int(methodID) < 0 || int(methodID) >= len(s.Methods) {
		c.replyFail(channelID, requestID, errs.New(errs.InvalidMethodID, c.armiCategory(), fmt.Sprintf("method id %d out of range", methodID)))
		return
	}

	stub := s.Methods[methodID]

	n, err := r.(interface{ ReadSequencePrefix() (int, error) }).ReadSequencePrefix()
	if err != nil {
		c.replyFail(channelID, requestID, errs.New(errs.InvalidArgumentCount, c.armiCategory(), "missing sequence prefix"))
		return
	}
	if n != stub.Arity() {
		c.replyFail(channelID, requestID, errs.New(errs.InvalidArgumentCount, c.armiCategory(), fmt.Sprintf("expected %d arguments, got %d", stub.Arity(), n)))
		return
	}

	c.dispatch(channelID, requestID, stub, r, target)
}

func (c *Context) dispatch(channelID armi.ChannelID, requestID armi.RequestID, stub MethodStub, r wire.Reader, target any) {
	defer func() {
		if rec := recover(); rec != nil {
			c.replyFail(channelID, requestID, errs.New(errs.UncaughtServerException, c.armiCategory(), fmt.Sprintf("target panicked: %v", rec)))
		}
	}()

	stub.Invoke(r, target,
		func(w wire.Writer) error {
			return c.sendSuccess(channelID, requestID, w)
		},
		func(e *errs.Error) {
			c.replyFail(channelID, requestID, e)
		},
	)
}

func (c *Context) sendSuccess(channelID armi.ChannelID, requestID armi.RequestID, payload wire.Writer) error {
	w := c.codec.NewWriter()
	if err := w.WriteUint64(uint64(requestID)); err != nil {
		return err
	}
	if err := w.WriteTag(uint8(armi.ReplyNormal)); err != nil {
		return err
	}
	frame := append(w.Bytes(), payload.Bytes()...)
	return c.send(channelID, frame)
}

// replyFail serialises (request_id, fail, 1, error_code) and sends it,
// per spec.md §4.1/§4.4. Adapter failures here are swallowed: spec.md
// §4.6 requires reply attempts for already-failed dispatches to be
// best-effort, since there is no further continuation to notify.
func (c *Context) replyFail(channelID armi.ChannelID, requestID armi.RequestID, e *errs.Error) {
	if c.logger != nil && c.throttle != nil {
		c.throttle.LogServerDispatchFailure(c.logger, e.Kind, uint64(requestID), e.Message)
	}
	w := c.codec.NewWriter()
	if err := w.WriteUint64(uint64(requestID)); err != nil {
		return
	}
	if err := w.WriteTag(uint8(armi.ReplyFail)); err != nil {
		return
	}
	sw, ok := w.(interface{ WriteSequencePrefix(int) error })
	if ok {
		_ = sw.WriteSequencePrefix(1)
	}
	if err := w.WriteErrorCode(e.Code); err != nil {
		return
	}
	_ = c.send(channelID, w.Bytes())
}
