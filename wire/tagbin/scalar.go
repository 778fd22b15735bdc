package tagbin

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Scalar tags identify the dynamic type written by [DefaultMarshal], so
// [DefaultUnmarshal] can validate out against what is actually on the
// wire instead of trusting the caller blindly.
const (
	scalarString byte = iota + 1
	scalarInt64
	scalarFloat64
	scalarBool
	scalarBytes
)

// DefaultMarshal encodes the common scalar argument/return types spec.md's
// examples use directly (string, int64-convertible integers, float64,
// bool, []byte) without requiring generated code. Richer user-defined
// argument types must supply their own [MarshalFunc].
func DefaultMarshal(dst []byte, v any) ([]byte, error) {
	switch x := v.(type) {
	case string:
		dst = append(dst, scalarString)
		dst = appendUvarint(dst, uint64(len(x)))
		dst = append(dst, x...)
	case int:
		dst = appendInt64(dst, int64(x))
	case int32:
		dst = appendInt64(dst, int64(x))
	case int64:
		dst = appendInt64(dst, x)
	case float64:
		dst = append(dst, scalarFloat64)
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], math.Float64bits(x))
		dst = append(dst, tmp[:]...)
	case bool:
		dst = append(dst, scalarBool)
		if x {
			dst = append(dst, 1)
		} else {
			dst = append(dst, 0)
		}
	case []byte:
		dst = append(dst, scalarBytes)
		dst = appendUvarint(dst, uint64(len(x)))
		dst = append(dst, x...)
	default:
		return nil, fmt.Errorf("tagbin: no default marshaller for %T", v)
	}
	return dst, nil
}

func appendInt64(dst []byte, v int64) []byte {
	dst = append(dst, scalarInt64)
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	return append(dst, tmp[:]...)
}

func appendUvarint(dst []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(dst, tmp[:n]...)
}

// DefaultUnmarshal is the read-side counterpart of [DefaultMarshal]. out
// must be a pointer to the same Go type the value was marshalled from.
func DefaultUnmarshal(src []byte, out any) (int, error) {
	if len(src) == 0 {
		return 0, fmt.Errorf("tagbin: empty input")
	}
	tag := src[0]
	pos := 1
	switch tag {
	case scalarString:
		n, ln, err := readUvarint(src[pos:])
		if err != nil {
			return 0, err
		}
		pos += ln
		if len(src)-pos < int(n) {
			return 0, fmt.Errorf("tagbin: truncated string")
		}
		s := string(src[pos : pos+int(n)])
		pos += int(n)
		switch p := out.(type) {
		case *string:
			*p = s
		default:
			return 0, fmt.Errorf("tagbin: cannot decode string into %T", out)
		}
	case scalarInt64:
		if len(src)-pos < 8 {
			return 0, fmt.Errorf("tagbin: truncated int64")
		}
		v := int64(binary.BigEndian.Uint64(src[pos:]))
		pos += 8
		switch p := out.(type) {
		case *int64:
			*p = v
		case *int:
			*p = int(v)
		case *int32:
			*p = int32(v)
		default:
			return 0, fmt.Errorf("tagbin: cannot decode int64 into %T", out)
		}
	case scalarFloat64:
		if len(src)-pos < 8 {
			return 0, fmt.Errorf("tagbin: truncated float64")
		}
		bits := binary.BigEndian.Uint64(src[pos:])
		pos += 8
		p, ok := out.(*float64)
		if !ok {
			return 0, fmt.Errorf("tagbin: cannot decode float64 into %T", out)
		}
		*p = math.Float64frombits(bits)
	case scalarBool:
		if len(src)-pos < 1 {
			return 0, fmt.Errorf("tagbin: truncated bool")
		}
		v := src[pos] != 0
		pos++
		p, ok := out.(*bool)
		if !ok {
			return 0, fmt.Errorf("tagbin: cannot decode bool into %T", out)
		}
		*p = v
	case scalarBytes:
		n, ln, err := readUvarint(src[pos:])
		if err != nil {
			return 0, err
		}
		pos += ln
		if len(src)-pos < int(n) {
			return 0, fmt.Errorf("tagbin: truncated bytes")
		}
		b := make([]byte, n)
		copy(b, src[pos:pos+int(n)])
		pos += int(n)
		p, ok := out.(*[]byte)
		if !ok {
			return 0, fmt.Errorf("tagbin: cannot decode bytes into %T", out)
		}
		*p = b
	default:
		return 0, fmt.Errorf("tagbin: unknown scalar tag %d", tag)
	}
	return pos, nil
}

func readUvarint(src []byte) (v uint64, n int, err error) {
	v, n = binary.Uvarint(src)
	if n <= 0 {
		return 0, 0, fmt.Errorf("tagbin: truncated or invalid uvarint")
	}
	return v, n, nil
}
