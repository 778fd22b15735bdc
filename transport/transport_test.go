package transport_test

import (
	"testing"
	"time"

	"github.com/joeycumines/go-armi/transport"
	"github.com/joeycumines/go-armi/transport/pipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFramer_framedRoundTrip(t *testing.T) {
	client, server := pipe.NewPair()
	defer client.Close()
	defer server.Close()

	clientFramer := transport.NewFramer(client)
	serverFramer := transport.NewFramer(server)

	done := make(chan struct{})
	go func() {
		defer close(done)
		msg, err := serverFramer.ReadMessage()
		assert.NoError(t, err)
		assert.Equal(t, "hello", string(msg))
	}()

	require.NoError(t, clientFramer.WriteMessage([]byte("hello")))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for framed message")
	}
}

func TestFramer_framingDisabledPassesThroughRawWrites(t *testing.T) {
	client, server := pipe.NewPair()
	defer client.Close()
	defer server.Close()

	clientFramer := transport.NewFramer(client, transport.WithFraming(false))
	serverFramer := transport.NewFramer(server, transport.WithFraming(false))

	done := make(chan struct{})
	go func() {
		defer close(done)
		msg, err := serverFramer.ReadMessage()
		assert.NoError(t, err)
		assert.Equal(t, "raw", string(msg))
	}()

	require.NoError(t, clientFramer.WriteMessage([]byte("raw")))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for unframed message")
	}
}
