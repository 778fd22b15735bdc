// Package armilog provides the structured logger shared by client and
// server contexts, and throttles the noisy per-request log lines
// (reply-handler panics, per-request dispatch failures) by error category
// so a single misbehaving peer cannot flood the log. This is a logging
// concern only: it never throttles requests themselves, which spec.md's
// Non-goals place out of scope for this runtime.
//
// Grounded on logiface-stumpy/example_test.go for logger construction
// (stumpy.L.New, stumpy.L.WithStumpy) and on go-catrate's NewLimiter/Allow
// for the per-category throttle.
package armilog

import (
	"fmt"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"

	"github.com/joeycumines/go-armi/errs"
)

// Logger is a *logiface.Logger[*stumpy.Event], aliased for brevity at call
// sites throughout client and server.
type Logger = logiface.Logger[*stumpy.Event]

// New constructs a JSON logger, using stumpy as the concrete backend.
func New(opts ...stumpy.Option) *Logger {
	return stumpy.L.New(stumpy.L.WithStumpy(opts...))
}

// Throttle rate-limits repeated log lines about the same [errs.Kind],
// so a channel stuck in a fail/retry loop produces a bounded amount of
// log volume rather than one line per request.
type Throttle struct {
	limiter *catrate.Limiter
}

// DefaultRates caps any single error Kind to at most 5 log lines per
// second and 60 per minute.
var DefaultRates = map[time.Duration]int{
	time.Second: 5,
	time.Minute: 60,
}

// NewThrottle constructs a Throttle with the given per-window rates,
// keyed independently per [errs.Kind].
func NewThrottle(rates map[time.Duration]int) *Throttle {
	return &Throttle{limiter: catrate.NewLimiter(rates)}
}

// Allow reports whether a log line about kind may be emitted now.
func (t *Throttle) Allow(kind errs.Kind) bool {
	_, ok := t.limiter.Allow(kind)
	return ok
}

// LogReplyHandlerPanic logs a recovered reply-continuation panic, subject
// to the throttle, at error severity.
func (t *Throttle) LogReplyHandlerPanic(logger *Logger, requestIDLabel string, requestID uint64, recovered any) {
	if !t.Allow(errs.ExceptionThrownByReplyHandler) {
		return
	}
	logger.Err().
		Uint64(requestIDLabel, requestID).
		Str("panic", stringify(recovered)).
		Log("reply handler panicked")
}

// LogServerDispatchFailure logs a request dispatch failure (invalid
// interface/method id, decode error, uncaught target panic), subject to
// the throttle, at error severity.
func (t *Throttle) LogServerDispatchFailure(logger *Logger, kind errs.Kind, requestID uint64, message string) {
	if !t.Allow(kind) {
		return
	}
	logger.Err().
		Uint64("request_id", requestID).
		Str("kind", kind.String()).
		Str("detail", message).
		Log("request dispatch failed")
}

// LogChannelDisconnect logs a channel's disconnection and the number of
// in-flight requests it is carrying down with it. Always logged: a
// channel drop is an infrequent, operationally significant event, not
// candidate spam.
func (t *Throttle) LogChannelDisconnect(logger *Logger, channelID uint64, pendingRequests int, cause error) {
	b := logger.Notice().
		Uint64("channel_id", channelID).
		Int("pending_requests", pendingRequests)
	if cause != nil {
		b = b.Err(cause)
	}
	b.Log("channel disconnected")
}

func stringify(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%v", v)
}
