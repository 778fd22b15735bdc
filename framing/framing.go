// Package framing implements the length-prefix wire framing spec.md §6
// delegates to an external collaborator: each frame is a fixed 8-byte
// big-endian header — a u32 payload size followed by a u32 flags word —
// followed by that many payload bytes. Framing is deliberately
// independent of [github.com/joeycumines/go-armi/wire]: it never looks
// inside the payload, so either codec rides on top of it unmodified.
//
// Grounded on sammck-go-wstunnel's share.PipeConn/Pipe framing style
// (reading a fixed header then exactly payload-size bytes off an
// io.Reader) generalized to armi's own header shape.
package framing

import (
	"encoding/binary"
	"fmt"
	"io"
)

// HeaderSize is the length in bytes of a frame's fixed header.
const HeaderSize = 8

// Flag bits carried in a frame's flags word. Bit assignment is reserved
// for transport-level concerns (e.g. compression, a future keepalive);
// none are defined by this package itself.
type Flags uint32

// MaxPayloadSize bounds a single frame's payload, guarding a peer against
// a corrupt or hostile size field causing an unbounded allocation.
const MaxPayloadSize = 64 << 20 // 64 MiB

// WriteFrame writes one frame containing payload to w, with the given
// flags. It performs a single Write call against a freshly built buffer
// so a concurrent writer cannot interleave a partial frame.
func WriteFrame(w io.Writer, payload []byte, flags Flags) error {
	if len(payload) > MaxPayloadSize {
		return fmt.Errorf("framing: payload of %d bytes exceeds max %d", len(payload), MaxPayloadSize)
	}
	buf := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(payload)))
	binary.BigEndian.PutUint32(buf[4:8], uint32(flags))
	copy(buf[HeaderSize:], payload)
	_, err := w.Write(buf)
	return err
}

// ReadFrame reads one frame from r, returning its payload and flags.
// Returns io.EOF only if r is exhausted exactly at a frame boundary (no
// bytes of a new frame's header have been read yet); a partial header or
// payload yields io.ErrUnexpectedEOF, matching io.ReadFull's convention.
func ReadFrame(r io.Reader) (payload []byte, flags Flags, err error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, 0, err
	}
	size := binary.BigEndian.Uint32(header[0:4])
	flags = Flags(binary.BigEndian.Uint32(header[4:8]))
	if size > MaxPayloadSize {
		return nil, 0, fmt.Errorf("framing: advertised payload of %d bytes exceeds max %d", size, MaxPayloadSize)
	}
	payload = make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, 0, err
	}
	return payload, flags, nil
}
