// Package protobuf implements [wire.Codec] as an adapter over
// google.golang.org/protobuf: every argument/return value is boxed into an
// [anypb.Any] so mixed, generator-declared argument lists can share one
// length-delimited stream, while primitives (request id, uvarints, tags,
// error codes) stay as the same fixed encoding tagbin uses, since
// protobuf's own varint only buys something once a message is involved.
//
// Grounded on inprocgrpc/channel.go's ProtoCloner/proto.Message handling
// and, more generally, on protobuf/anypb usage as the "third-party binary
// archive" half of the codec pair spec.md §4.1 calls for, alongside
// wire/tagbin's bit-exact default.
package protobuf

import (
	"encoding/binary"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joeycumines/go-armi/errs"
	"github.com/joeycumines/go-armi/wire"
)

var _ wire.Codec = Codec{}
var _ wire.Writer = (*Writer)(nil)
var _ wire.Reader = (*Reader)(nil)
var _ wire.SequenceWriter = (*Writer)(nil)
var _ wire.SequenceReader = (*Reader)(nil)

// Codec constructs protobuf-backed [wire.Writer]/[wire.Reader] pairs.
type Codec struct{}

func (Codec) NewWriter() wire.Writer { return &Writer{} }

func (Codec) NewReader(buf []byte) wire.Reader { return &Reader{buf: buf} }

// Writer accumulates a protobuf-Any-framed buffer. Construct via
// [Codec.NewWriter].
type Writer struct {
	buf []byte
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
		return fmt.Errorf("protobuf: negative sequence prefix %d", count)
	}
	return w.WriteUvarint(uint64(count))
}

// WriteAny boxes v into an [anypb.Any] and appends its length-prefixed
// wire encoding. v must either implement [proto.Message] directly, or be
// one of the scalar types this codec wraps (string, bool, int, int32,
// int64, uint32, uint64, float32, float64, []byte; int travels as an
// Int64Value); anything else is rejected, since there is no generic
// protobuf representation for an arbitrary Go struct without generated
// message code.
func (w *Writer) WriteAny(v any) error {
	msg, err := toProtoMessage(v)
	if err != nil {
		return err
	}
	any, err := anypb.New(msg)
	if err != nil {
		return fmt.Errorf("protobuf: box any: %w", err)
	}
	b, err := proto.Marshal(any)
	if err != nil {
		return fmt.Errorf("protobuf: marshal any: %w", err)
	}
	if err := w.WriteUvarint(uint64(len(b))); err != nil {
		return err
	}
	w.buf = append(w.buf, b...)
	return nil
}

func (w *Writer) Bytes() []byte { return w.buf }

func toProtoMessage(v any) (proto.Message, error) {
	if msg, ok := v.(proto.Message); ok {
		return msg, nil
	}
	switch x := v.(type) {
	case string:
		return wrapperspb.String(x), nil
	case bool:
		return wrapperspb.Bool(x), nil
	case int32:
		return wrapperspb.Int32(x), nil
	case int64:
		return wrapperspb.Int64(x), nil
	case int:
		return wrapperspb.Int64(int64(x)), nil
	case uint32:
		return wrapperspb.UInt32(x), nil
	case uint64:
		return wrapperspb.UInt64(x), nil
	case float32:
		return wrapperspb.Float(x), nil
	case float64:
		return wrapperspb.Double(x), nil
	case []byte:
		return wrapperspb.Bytes(x), nil
	default:
		return nil, fmt.Errorf("protobuf: %T is not a proto.Message and has no scalar wrapper", v)
	}
}

// Reader consumes a protobuf-Any-framed buffer. Construct via
// [Codec.NewReader].
type Reader struct {
	buf []byte
	pos int
}

func (r *Reader) ReadUint64() (uint64, error) {
	if len(r.buf)-r.pos < 8 {
		return 0, fmt.Errorf("protobuf: truncated uint64")
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *Reader) ReadUvarint() (uint64, error) {
	v, n := binary.Uvarint(r.buf[r.pos:])
	if n <= 0 {
		return 0, fmt.Errorf("protobuf: truncated or invalid uvarint")
	}
	r.pos += n
	return v, nil
}

func (r *Reader) ReadTag() (uint8, error) {
	if r.pos >= len(r.buf) {
		return 0, fmt.Errorf("protobuf: truncated tag")
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

// ReadAny unboxes the next [anypb.Any] and writes its payload into out.
// If out implements [proto.Message], the Any is unmarshalled directly
// into it; otherwise out must be a pointer to one of the scalar types
// [Writer.WriteAny] can wrap, and the corresponding wrapperspb message is
// unwrapped into it.
func (r *Reader) ReadAny(out any) error {
	n, err := r.ReadUvarint()
	if err != nil {
		return err
	}
	if uint64(len(r.buf)-r.pos) < n {
		return fmt.Errorf("protobuf: truncated any")
	}
	raw := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)

	var a anypb.Any
	if err := proto.Unmarshal(raw, &a); err != nil {
		return fmt.Errorf("protobuf: unmarshal any envelope: %w", err)
	}

	if msg, ok := out.(proto.Message); ok {
		return a.UnmarshalTo(msg)
	}
	inner, err := a.UnmarshalNew()
	if err != nil {
		return fmt.Errorf("protobuf: unmarshal any payload: %w", err)
	}
	return unwrapScalar(inner, out)
}

func unwrapScalar(inner proto.Message, out any) error {
	switch w := inner.(type) {
	case *wrapperspb.StringValue:
		p, ok := out.(*string)
		if !ok {
			return fmt.Errorf("protobuf: cannot decode string into %T", out)
		}
		*p = w.GetValue()
	case *wrapperspb.BoolValue:
		p, ok := out.(*bool)
		if !ok {
			return fmt.Errorf("protobuf: cannot decode bool into %T", out)
		}
		*p = w.GetValue()
	case *wrapperspb.Int32Value:
		p, ok := out.(*int32)
		if !ok {
			return fmt.Errorf("protobuf: cannot decode int32 into %T", out)
		}
		*p = w.GetValue()
	case *wrapperspb.Int64Value:
		switch p := out.(type) {
		case *int64:
			*p = w.GetValue()
		case *int:
			*p = int(w.GetValue())
		default:
			return fmt.Errorf("protobuf: cannot decode int64 into %T", out)
		}
	case *wrapperspb.UInt32Value:
		p, ok := out.(*uint32)
		if !ok {
			return fmt.Errorf("protobuf: cannot decode uint32 into %T", out)
		}
		*p = w.GetValue()
	case *wrapperspb.UInt64Value:
		p, ok := out.(*uint64)
		if !ok {
			return fmt.Errorf("protobuf: cannot decode uint64 into %T", out)
		}
		*p = w.GetValue()
	case *wrapperspb.FloatValue:
		p, ok := out.(*float32)
		if !ok {
			return fmt.Errorf("protobuf: cannot decode float32 into %T", out)
		}
		*p = w.GetValue()
	case *wrapperspb.DoubleValue:
		p, ok := out.(*float64)
		if !ok {
			return fmt.Errorf("protobuf: cannot decode float64 into %T", out)
		}
		*p = w.GetValue()
	case *wrapperspb.BytesValue:
		p, ok := out.(*[]byte)
		if !ok {
			return fmt.Errorf("protobuf: cannot decode bytes into %T", out)
		}
		*p = w.GetValue()
	default:
		return fmt.Errorf("protobuf: unsupported boxed type %T", inner)
	}
	return nil
}
