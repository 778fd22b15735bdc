// Package pipe provides an in-memory [transport.Channel] pair over
// [net.Pipe], for tests and same-process examples that need a real
// duplex byte stream without a socket.
//
// Grounded on sammck-go-wstunnel/share.PipeConn (a ChannelConn wrapping a
// plain Read/Write/Close stream, with a synchronised CloseWrite/Close
// path) generalized from its stdin/stdout pairing to net.Pipe's two
// synthetic ends. The package has no bidirectional-copy helper: [NewPair]
// and [Connector.Connect] hand out the two ends of a net.Pipe directly.
package pipe

import (
	"net"
	"sync"

	"github.com/joeycumines/go-armi/transport"
)

var _ transport.Channel = (*Conn)(nil)

// Conn wraps one end of a [net.Pipe] as a [transport.Channel], adding the
// once-only Close semantics armi's shutdown path assumes (closing twice
// must not return a confusing second error).
type Conn struct {
	net.Conn
	closeOnce sync.Once
	closeErr  error
}

// New wraps c as a Conn.
func New(c net.Conn) *Conn {
	return &Conn{Conn: c}
}

// Close implements io.Closer, idempotently.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.Conn.Close()
	})
	return c.closeErr
}

// NewPair returns two connected [transport.Channel] values, analogous to
// dialing a [Connector] against its matching [Acceptor] but without any
// goroutine or listener in between.
func NewPair() (client, server transport.Channel) {
	a, b := net.Pipe()
	return New(a), New(b)
}

// Acceptor is a [transport.Acceptor] backed by an unbuffered channel of
// freshly created net.Pipe server ends, paired with [Connector].
type Acceptor struct {
	mu     sync.Mutex
	closed bool
	conns  chan transport.Channel
}

// NewAcceptor returns a connected (Acceptor, Connector) pair: every
// Connector.Connect call produces one new pipe, whose server end is
// delivered by the matching Acceptor.Accept call.
func NewAcceptor() (*Acceptor, *Connector) {
	a := &Acceptor{conns: make(chan transport.Channel)}
	return a, &Connector{acceptor: a}
}

// Accept implements [transport.Acceptor].
func (a *Acceptor) Accept() (transport.Channel, error) {
	c, ok := <-a.conns
	if !ok {
		return nil, net.ErrClosed
	}
	return c, nil
}

// Close implements [transport.Acceptor]. Close is idempotent.
func (a *Acceptor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	close(a.conns)
	return nil
}

// Connector is the dialling half of an [Acceptor] pair, returned by
// [NewAcceptor].
type Connector struct {
	acceptor *Acceptor
}

// Connect implements [transport.Connector]: it creates a fresh net.Pipe,
// delivers the server end to the paired Acceptor's next Accept call, and
// returns the client end.
func (c *Connector) Connect() (transport.Channel, error) {
	clientEnd, serverEnd := net.Pipe()
	client := New(clientEnd)
	server := New(serverEnd)

	c.acceptor.mu.Lock()
	closed := c.acceptor.closed
	c.acceptor.mu.Unlock()
	if closed {
		_ = client.Close()
		_ = server.Close()
		return nil, net.ErrClosed
	}
	c.acceptor.conns <- server
	return client, nil
}
