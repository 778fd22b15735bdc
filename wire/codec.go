// Package wire defines the abstract codec contract of spec.md §4.1: the
// operation set any concrete serialiser must provide. The request/reply
// frame layout built on top of it is written and read by the client and
// server packages, not defined here. [wire/tagbin] and
// [wire/protobuf] are the two concrete codecs this module ships.
//
// Grounded on original_source/include/logicmill/armi/serialization_traits.h
// and adapters/{bstream,cereal}/traits.h, which name the same operation
// set (primitive read/write, sequence prefix, error code) for the two
// codecs the original ships.
package wire

import "github.com/joeycumines/go-armi/errs"

// Writer accumulates an outgoing buffer using the primitive operations
// spec.md §4.1 requires of any codec: unsigned integers of fixed and
// variable width, an enum tag, an error code, a sequence-prefix count, and
// an escape hatch for user-defined argument/return types (WriteAny).
type Writer interface {
	// WriteUint64 writes a fixed-width 64-bit unsigned integer (used for
	// request ids).
	WriteUint64(v uint64) error
	// WriteUvarint writes a small unsigned integer compactly (used for
	// interface/method ids and sequence-prefix counts).
	WriteUvarint(v uint64) error
	// WriteTag writes a single-byte enum tag (used for reply_kind).
	WriteTag(v uint8) error
	// WriteErrorCode writes an (category_index, value) error code pair.
	WriteErrorCode(code errs.Code) error
	// WriteAny writes one user-defined argument or return value. The
	// concrete type of v is whatever the generator emitted for this
	// position; codecs that cannot represent v return an error.
	WriteAny(v any) error
	// Bytes returns the buffer written so far. Valid until the Writer is
	// reused or released.
	Bytes() []byte
}

// Reader consumes an incoming buffer using the operations symmetric to
// [Writer]. Every Read method must fail cleanly (return a non-nil error,
// never panic) on truncation or a type mismatch.
type Reader interface {
	ReadUint64() (uint64, error)
	ReadUvarint() (uint64, error)
	ReadTag() (uint8, error)
	ReadErrorCode() (errs.Code, error)
	// ReadAny decodes one user-defined value into out, which must be a
	// non-nil pointer of the type the generator declared for this
	// position.
	ReadAny(out any) error
}

// SequenceWriter demarcates an n-element tuple on the wire (spec.md §4.1's
// write_sequence_prefix), used for both request argument lists and reply
// argument lists.
type SequenceWriter interface {
	WriteSequencePrefix(count int) error
}

// SequenceReader is the read-side counterpart of [SequenceWriter].
type SequenceReader interface {
	ReadSequencePrefix() (int, error)
}

// Codec constructs fresh [Writer]/[Reader] values (spec.md §4.1's
// new_serializer); [Writer.Bytes] returns the finished buffer. A Codec is
// not bound to an [errs.CategoryRegistry] and has no release operation:
// error codes are written and read as raw (category index, value) pairs.
type Codec interface {
	// NewWriter returns a fresh, empty Writer.
	NewWriter() Writer
	// NewReader returns a Reader positioned at the start of buf. buf is
	// not retained after all Reader calls for this frame complete.
	NewReader(buf []byte) Reader
}
