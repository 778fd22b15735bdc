// Package transport names the external-collaborator boundary spec.md §6
// places out of this module's scope: a duplex, frame-oriented byte
// stream, and the connector/acceptor pair that produces one. Transport
// implementations never interpret frame payloads; client.Context and
// server.Context own the only code that knows what a frame's bytes mean.
//
// Grounded on sammck-go-wstunnel/share's ChannelConn/BasicConn split
// (a Read/Write/Close stream plus a half-close signal, independent of
// whatever protocol rides on top) and spec.md §6's explicit statement
// that transport is supplied by the embedding application.
package transport

import (
	"io"

	"github.com/joeycumines/go-armi/framing"
)

// Channel is a duplex, frame-oriented connection between two armi peers.
// Frames are exchanged using [github.com/joeycumines/go-armi/framing];
// Channel itself only has to expose the raw, ordered byte stream.
type Channel interface {
	io.ReadWriteCloser
}

// Connector opens a new outgoing [Channel], e.g. dialing a TCP address or
// opening an in-memory pipe's client side.
type Connector interface {
	Connect() (Channel, error)
}

// Acceptor yields incoming [Channel] values as peers connect, e.g. a TCP
// listener's Accept loop or an in-memory pipe's server side. Accept
// returns an error once the Acceptor is closed.
type Acceptor interface {
	Accept() (Channel, error)
	Close() error
}

// Framer applies spec.md §6's "framing" configuration option to a Channel:
// when enabled (the default), every message is sent and received through
// [framing.WriteFrame]/[framing.ReadFrame]'s length-prefix header; when
// disabled, messages are written and read directly against the Channel,
// one Write/Read call per message. The zero value is not usable; construct
// with [NewFramer].
type Framer struct {
	ch      Channel
	framing bool
}

// FramerOption configures a [Framer] at construction time.
type FramerOption func(*Framer)

// WithFraming toggles the length-prefix framer, spec.md §6's "framing"
// option (default true). Disabling it is only correct over a Channel that
// already preserves message boundaries per Read/Write call; Framer does
// not itself re-chunk an arbitrary byte stream when disabled.
func WithFraming(enabled bool) FramerOption {
	return func(f *Framer) { f.framing = enabled }
}

// NewFramer wraps ch, applying opts. Framing defaults to enabled.
func NewFramer(ch Channel, opts ...FramerOption) *Framer {
	f := &Framer{ch: ch, framing: true}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// WriteMessage sends payload as one message.
func (f *Framer) WriteMessage(payload []byte) error {
	if f.framing {
		return framing.WriteFrame(f.ch, payload, 0)
	}
	_, err := f.ch.Write(payload)
	return err
}

// ReadMessage reads the next message. With framing disabled, a message is
// whatever one underlying Read call returns, so the Channel must preserve
// message boundaries itself.
func (f *Framer) ReadMessage() ([]byte, error) {
	if f.framing {
		payload, _, err := framing.ReadFrame(f.ch)
		return payload, err
	}
	buf := make([]byte, framing.MaxPayloadSize)
	n, err := f.ch.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// Close closes the underlying Channel.
func (f *Framer) Close() error { return f.ch.Close() }
