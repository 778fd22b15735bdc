// Package errs defines the armi error taxonomy: a closed set of error
// [Kind]s, the [Error] type that carries one across package boundaries, and
// the [CategoryRegistry] that lets an error code cross the wire as an
// (category index, value) pair shared by both peers.
//
// Grounded on original_source/include/logicmill/armi/error.h (the errc
// enum) and on the exported-struct/Error()/Unwrap() style of
// eventloop/errors.go's PanicError, TypeError, RangeError.
package errs

import (
	"errors"
	"fmt"
)

// Kind enumerates the distinct error conditions the armi runtime itself can
// raise, as listed in spec.md §7. It mirrors the original armi::errc enum.
type Kind int

const (
	// OK is the zero Kind. A non-nil *Error carries it only when it was
	// decoded from a category other than the runtime's own (see
	// [CategoryRegistry.Decode]).
	OK Kind = iota
	// NoEventLoop indicates the context has no scheduler to run callbacks on.
	NoEventLoop
	// ChannelNotConnected indicates the target channel id is not known, or is closing.
	ChannelNotConnected
	// InvalidChannelID indicates the channel id named in a call is not known.
	InvalidChannelID
	// NoTargetProvided indicates the server found no object to dispatch to.
	NoTargetProvided
	// UncaughtServerException indicates the target panicked with a non-*Error value.
	UncaughtServerException
	// ExceptionThrownByReplyHandler indicates a client continuation panicked.
	ExceptionThrownByReplyHandler
	// ExceptionThrownByMethodStub indicates a method stub panicked during decode/dispatch.
	ExceptionThrownByMethodStub
	// InvalidMethodID indicates an out-of-range method id in a request frame.
	InvalidMethodID
	// InvalidInterfaceID indicates an out-of-range interface id in a request frame.
	InvalidInterfaceID
	// InvalidArgumentCount indicates a request's sequence prefix didn't match the method's arity.
	InvalidArgumentCount
	// InvalidArgumentType indicates an argument failed to decode as its declared type.
	InvalidArgumentType
	// InvalidErrorCategory indicates a fail reply named a category index unknown to the receiver.
	InvalidErrorCategory
	// ContextClosed indicates the request was rejected because its context was closed.
	ContextClosed
	// ChannelClosed indicates the request was rejected because its channel failed or closed.
	ChannelClosed
	// TransportClosed indicates the adapter's underlying transport closed.
	TransportClosed
	// TimedOut indicates a per-call timeout elapsed before a reply arrived.
	TimedOut
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case NoEventLoop:
		return "no_event_loop"
	case ChannelNotConnected:
		return "channel_not_connected"
	case InvalidChannelID:
		return "invalid_channel_id"
	case NoTargetProvided:
		return "no_target_provided"
	case UncaughtServerException:
		return "uncaught_server_exception"
	case ExceptionThrownByReplyHandler:
		return "exception_thrown_by_reply_handler"
	case ExceptionThrownByMethodStub:
		return "exception_thrown_by_method_stub"
	case InvalidMethodID:
		return "invalid_method_id"
	case InvalidInterfaceID:
		return "invalid_interface_id"
	case InvalidArgumentCount:
		return "invalid_argument_count"
	case InvalidArgumentType:
		return "invalid_argument_type"
	case InvalidErrorCategory:
		return "invalid_error_category"
	case ContextClosed:
		return "context_closed"
	case ChannelClosed:
		return "channel_closed"
	case TransportClosed:
		return "transport_closed"
	case TimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Code is the wire representation of an error: a category index (shared
// between peers via a [CategoryRegistry]) and a category-specific value.
type Code struct {
	Category int32
	Value    int32
}

// Error is the concrete error type carried across the client/server
// boundary, and used internally for every armi-raised rejection.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Cause   error
}

// New constructs an *Error of the given armi Kind under armiCategory, the
// index of [ArmiCategoryName] in the caller's [CategoryRegistry]. Client and
// server contexts register that category on first use, not at
// construction, so its index depends on what was registered before it.
func New(kind Kind, armiCategory int32, message string) *Error {
	return &Error{Kind: kind, Code: Code{Category: armiCategory, Value: int32(kind)}, Message: message}
}

// Wrap constructs an *Error of the given armi Kind, recording cause as the
// Unwrap-able underlying error.
func Wrap(kind Kind, armiCategory int32, cause error) *Error {
	msg := kind.String()
	if cause != nil {
		msg = fmt.Sprintf("%s: %s", kind, cause)
	}
	return &Error{Kind: kind, Code: Code{Category: armiCategory, Value: int32(kind)}, Message: msg, Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.String()
}

// Unwrap supports errors.Is / errors.As against the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target names the same Kind, regardless of Code/Message/Cause.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}
