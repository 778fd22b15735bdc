// Package client implements the client context of spec.md §4.3: request
// id generation, the reply-handler registry, the channel-to-requests
// index, timeout scheduling, and cancellation fan-out on channel loss or
// context close.
//
// Grounded on original_source/include/logicmill/armi/client_context_base.h
// for the operation set (next_request_id/register/send_request/
// handle_reply/cancel_request/cancel_channel_requests/cancel_all_requests)
// and on inprocgrpc/handler.go's mutex-guarded registry pattern for the
// registry shape, scaled to the single-scheduler-goroutine model spec.md
// §5 requires (no locking, since every registry access happens on the
// owning Scheduler).
package client

import (
	"fmt"
	"time"

	"github.com/joeycumines/go-armi"
	"github.com/joeycumines/go-armi/errs"
	"github.com/joeycumines/go-armi/internal/armilog"
	"github.com/joeycumines/go-armi/scheduler"
	"github.com/joeycumines/go-armi/wire"
)

// Continuation is called exactly once with the remainder of a reply frame
// (after request_id has already been consumed), or with a terminal error
// if the request is cancelled, times out, or the owning context closes.
// reader is nil when err is non-nil.
type Continuation func(reader wire.Reader, err *errs.Error)

// entry is a registered reply-handler: spec.md §4.3's
// "{ request_id, channel_id, continuation }".
type entry struct {
	requestID armi.RequestID
	channelID armi.ChannelID
	cont      Continuation
	cancel    func() // cancels the scheduled timeout callback, if any
}

// SendFunc hands a framed request buffer off to the adapter for
// transmission on channelID.
type SendFunc func(channelID armi.ChannelID, frame []byte) error

// Context is the client half of an armi session: it issues requests,
// correlates their replies, and cancels them on timeout, channel loss, or
// close. A Context is bound to exactly one [scheduler.Scheduler]; every
// method on it, and every Continuation it calls, must run there.
//
// The zero value is not usable; construct with [New].
type Context struct {
	sched scheduler.Scheduler
	codec wire.Codec
	cats  *errs.CategoryRegistry

	nextRequestID armi.RequestID
	byRequest     map[armi.RequestID]*entry
	byChannel     map[armi.ChannelID][]armi.RequestID

	closed bool

	send SendFunc

	// defaultTimeout and transientTimeout implement spec.md §6's
	// "default_timeout"/"transient_timeout" configuration options. Zero
	// means unbounded. See resolveTimeout for the precedence between
	// these, a per-call explicit timeout, and no timeout at all.
	defaultTimeout   time.Duration
	transientTimeout time.Duration

	logger   *armilog.Logger
	throttle *armilog.Throttle
}

// Option configures a [Context] at construction time.
type Option func(*Context)

// WithCategoryRegistry binds the context to an existing
// [errs.CategoryRegistry] shared with its peer, instead of creating a
// fresh one.
func WithCategoryRegistry(reg *errs.CategoryRegistry) Option {
	return func(c *Context) { c.cats = reg }
}

// WithLogging attaches a logger and throttle used to report reply-handler
// panics. Without this option the context fails silently, as before.
func WithLogging(logger *armilog.Logger, throttle *armilog.Throttle) Option {
	return func(c *Context) {
		c.logger = logger
		c.throttle = throttle
	}
}

// WithDefaultTimeout sets spec.md §6's "default_timeout" option: the
// timeout applied to a [Context.SendRequest] call that supplies neither an
// explicit per-call timeout nor has a pending transient timeout set via
// [Context.SetTransientTimeout]. Zero (the default) means unbounded.
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *Context) { c.defaultTimeout = d }
}

// SetTransientTimeout sets spec.md §6's "transient_timeout" option: a
// timeout consumed by exactly the next [Context.SendRequest] call on this
// context, then cleared, regardless of whether that call itself also
// carried an explicit per-call timeout or resolved to one at all.
func (c *Context) SetTransientTimeout(d time.Duration) {
	c.transientTimeout = d
}

// resolveTimeout applies spec.md §6's precedence between an explicit
// per-call timeout, a pending transient_timeout, and default_timeout: an
// explicit timeout wins outright; otherwise the transient timeout is
// consumed (cleared here, unconditionally) and used if positive;
// otherwise default_timeout applies. Grounded on
// original_source/include/logicmill/armi/member_func_proxy.h's
// get_timeout(), which resolves the same three in the same order.
func (c *Context) resolveTimeout(explicit time.Duration) time.Duration {
	transient := c.transientTimeout
	c.transientTimeout = 0
	if explicit > 0 {
		return explicit
	}
	if transient > 0 {
		return transient
	}
	return c.defaultTimeout
}

// New constructs a Context bound to sched, encoding outgoing requests with
// codec, and handing framed requests to send for transmission.
func New(sched scheduler.Scheduler, codec wire.Codec, send SendFunc, opts ...Option) *Context {
	c := &Context{
		sched:         sched,
		codec:         codec,
		cats:          errs.NewCategoryRegistry(),
		nextRequestID: 1,
		byRequest:     make(map[armi.RequestID]*entry),
		byChannel:     make(map[armi.ChannelID][]armi.RequestID),
		send:          send,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CategoryRegistry returns the error-category registry this context
// decodes reply error codes against.
func (c *Context) CategoryRegistry() *errs.CategoryRegistry { return c.cats }

func (c *Context) armiCategory() int32 {
	return c.cats.Register(errs.ArmiCategoryName)
}

// NextRequestID returns the next request id, a plain monotonic counter
// starting at 1 and never reused within the context's lifetime, per
// spec.md §4.3. Wrap-around is treated as a programming error, not a
// condition this runtime guards against.
func (c *Context) NextRequestID() armi.RequestID {
	id := c.nextRequestID
	c.nextRequestID++
	return id
}

// Register inserts a reply-handler entry into both the by-request and
// channel-to-requests indexes, atomically with respect to each other.
// Fails with a [errs.ContextClosed] error if the context is shutting down.
func (c *Context) Register(requestID armi.RequestID, channelID armi.ChannelID, cont Continuation) error {
	if c.closed {
		return errs.New(errs.ContextClosed, c.armiCategory(), "client context is closed")
	}
	if _, exists := c.byRequest[requestID]; exists {
		return fmt.Errorf("client: request id %d already registered", requestID)
	}
	e := &entry{requestID: requestID, channelID: channelID, cont: cont}
	c.byRequest[requestID] = e
	c.byChannel[channelID] = append(c.byChannel[channelID], requestID)
	return nil
}

// SendRequest asks the adapter to write frame on channelID, and, if the
// timeout resolved by [Context.resolveTimeout] (the explicit timeout
// argument, falling back to any pending transient_timeout, falling back
// to default_timeout) is positive, schedules a cancellation of requestID
// after it elapses. Any adapter failure rejects the request immediately
// with the reported error, per spec.md §4.3. requestID must already be
// registered via [Context.Register].
func (c *Context) SendRequest(channelID armi.ChannelID, requestID armi.RequestID, frame []byte, timeout time.Duration) error {
	timeout = c.resolveTimeout(timeout)
	if timeout > 0 {
		if e, ok := c.byRequest[requestID]; ok {
			e.cancel = c.sched.ScheduleAfter(timeout, func() {
				c.CancelRequest(requestID, errs.New(errs.TimedOut, c.armiCategory(), "request timed out"))
			})
		}
	}
	if err := c.send(channelID, frame); err != nil {
		c.CancelRequest(requestID, errs.Wrap(errs.TransportClosed, c.armiCategory(), err))
		return err
	}
	return nil
}

// HandleReply is the adapter's entry point for every inbound reply frame,
// per spec.md §4.3. It reads request_id, looks up the matching entry, and
// invokes its continuation with a reader positioned at the remainder of
// the frame. A request id with no registered entry is dropped silently
// (the request already completed, timed out, or was cancelled).
//
// If the continuation panics, the panic is recovered instead of escaping
// onto the scheduler goroutine, and reported through the throttle when
// [WithLogging] is configured. The continuation is not invoked again: it
// has already received its one call.
//
// The reply_kind tag and, for a failure reply, the error code are decoded
// here (the shape is fixed, per spec.md §4.1); a normal reply's value is
// left for the continuation to decode, since its type varies per method.
func (c *Context) HandleReply(buf []byte) {
	r := c.codec.NewReader(buf)
	requestID64, err := r.ReadUint64()
	if err != nil {
		return
	}
	requestID := armi.RequestID(requestID64)

	e, ok := c.byRequest[requestID]
	if !ok {
		return
	}
	c.removeEntry(e)

	tag, err := r.ReadTag()
	if err != nil {
		c.invokeContinuation(e, nil, errs.New(errs.InvalidArgumentType, c.armiCategory(), "truncated reply: missing reply_kind"))
		return
	}

	if armi.ReplyKind(tag) == armi.ReplyFail {
		sr, ok := r.(wire.SequenceReader)
		if ok {
			_, _ = sr.ReadSequencePrefix() // always 1 per spec.md §4.1; not otherwise meaningful
		}
		code, cerr := r.ReadErrorCode()
		if cerr != nil {
			c.invokeContinuation(e, nil, errs.New(errs.InvalidArgumentType, c.armiCategory(), "truncated fail reply"))
			return
		}
		c.invokeContinuation(e, nil, c.cats.Decode(code))
		return
	}

	c.invokeContinuation(e, r, nil)
}

func (c *Context) invokeContinuation(e *entry, r wire.Reader, err *errs.Error) {
	defer func() {
		if rec := recover(); rec != nil {
			if c.logger != nil && c.throttle != nil {
				c.throttle.LogReplyHandlerPanic(c.logger, "request_id", uint64(e.requestID), rec)
			}
		}
	}()
	e.cont(r, err)
}

// CancelRequest rejects and removes the entry for requestID with err, if
// it still exists. A requestID with no entry (already resolved, already
// cancelled) is a no-op.
func (c *Context) CancelRequest(requestID armi.RequestID, err *errs.Error) {
	e, ok := c.byRequest[requestID]
	if !ok {
		return
	}
	c.removeEntry(e)
	c.invokeContinuation(e, nil, err)
}

// PendingRequests returns the number of requests currently registered
// against channelID, for callers reporting a channel loss (e.g. via
// [github.com/joeycumines/go-armi/internal/armilog.Throttle.LogChannelDisconnect])
// before fanning out cancellation with [Context.CancelChannelRequests].
func (c *Context) PendingRequests(channelID armi.ChannelID) int {
	return len(c.byChannel[channelID])
}

// CancelChannelRequests rejects every entry linked to channelID, in
// insertion order, then drops the channel index entry, per spec.md §4.3.
// Used by the adapter when a channel's transport fails or is closed.
func (c *Context) CancelChannelRequests(channelID armi.ChannelID, err *errs.Error) {
	ids := c.byChannel[channelID]
	delete(c.byChannel, channelID)
	for _, id := range ids {
		e, ok := c.byRequest[id]
		if !ok {
			continue
		}
		delete(c.byRequest, id)
		if e.cancel != nil {
			e.cancel()
		}
		c.invokeContinuation(e, nil, err)
	}
}

// CancelAllRequests rejects every pending entry across every channel with
// err, per spec.md §4.3. Used by [Context.Close].
func (c *Context) CancelAllRequests(err *errs.Error) {
	entries := make([]*entry, 0, len(c.byRequest))
	for _, e := range c.byRequest {
		entries = append(entries, e)
	}
	c.byRequest = make(map[armi.RequestID]*entry)
	c.byChannel = make(map[armi.ChannelID][]armi.RequestID)
	for _, e := range entries {
		if e.cancel != nil {
			e.cancel()
		}
		c.invokeContinuation(e, nil, err)
	}
}

// Close flips the context into a closing state and rejects every pending
// request with [errs.ContextClosed], per spec.md §4.3. After Close,
// further Register calls fail immediately. Close is idempotent.
func (c *Context) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.CancelAllRequests(errs.New(errs.ContextClosed, c.armiCategory(), "client context closed"))
}

// removeEntry deletes e from both indexes and cancels its timeout
// callback, if any, without invoking its continuation. The caller is
// responsible for the continuation call.
func (c *Context) removeEntry(e *entry) {
	delete(c.byRequest, e.requestID)
	ids := c.byChannel[e.channelID]
	for i, id := range ids {
		if id == e.requestID {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(c.byChannel, e.channelID)
	} else {
		c.byChannel[e.channelID] = ids
	}
	if e.cancel != nil {
		e.cancel()
	}
}
