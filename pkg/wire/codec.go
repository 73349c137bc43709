package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// MaxDepth bounds the nesting of arrays and maps accepted by the decoder.
// Guest output is adversarial; without this bound a hostile module could
// drive the decoder into unbounded recursion.
const MaxDepth = 64

// Codec errors. Both are reported via errors.Is through any wrapping.
var (
	// ErrMalformedEncoding is returned for an unknown tag, a length field
	// that reads past the available bytes, a duplicate map key, or nesting
	// beyond MaxDepth.
	ErrMalformedEncoding = errors.New("malformed encoding")

	// ErrTrailingData is returned by DecodeValue when bytes remain after a
	// complete value has been decoded.
	ErrTrailingData = errors.New("trailing data after value")
)

// Encode appends the wire form of v to dst and returns the extended slice.
// Layout: [tag:1][length or element count: u32 LE, variable-size kinds only][payload].
func Encode(dst []byte, v Value) []byte {
	dst = append(dst, byte(v.kind))

	switch v.kind {
	case KindUnit:
	case KindBool:
		if v.boolv {
			dst = append(dst, 1)
		} else {
			dst = append(dst, 0)
		}
	case KindInt64:
		dst = binary.LittleEndian.AppendUint64(dst, uint64(v.intv))
	case KindFloat64:
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(v.floatv))
	case KindString:
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(v.strv)))
		dst = append(dst, v.strv...)
	case KindBytes:
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(v.bytesv)))
		dst = append(dst, v.bytesv...)
	case KindArray:
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(v.arrv)))
		for _, e := range v.arrv {
			dst = Encode(dst, e)
		}
	case KindMap:
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(v.entries)))
		for _, e := range v.entries {
			dst = Encode(dst, String(e.Key))
			dst = Encode(dst, e.Val)
		}
	}

	return dst
}

// EncodeValue returns the wire form of v as a fresh slice.
func EncodeValue(v Value) []byte {
	return Encode(nil, v)
}

// Decode reads one value from buf starting at offset and returns it together
// with the number of bytes consumed.
func Decode(buf []byte, offset int) (Value, int, error) {
	if offset < 0 || offset > len(buf) {
		return Value{}, 0, fmt.Errorf("%w: offset %d out of range", ErrMalformedEncoding, offset)
	}

	v, n, err := decode(buf[offset:], 0)
	if err != nil {
		return Value{}, 0, err
	}

	return v, n, nil
}

// DecodeValue decodes buf as exactly one value; leftover bytes are an error.
func DecodeValue(buf []byte) (Value, error) {
	v, n, err := decode(buf, 0)
	if err != nil {
		return Value{}, err
	}
	if n != len(buf) {
		return Value{}, fmt.Errorf("%w: %d bytes unconsumed", ErrTrailingData, len(buf)-n)
	}

	return v, nil
}

func decode(buf []byte, depth int) (Value, int, error) {
	if depth > MaxDepth {
		return Value{}, 0, fmt.Errorf("%w: nesting exceeds %d levels", ErrMalformedEncoding, MaxDepth)
	}
	if len(buf) == 0 {
		return Value{}, 0, fmt.Errorf("%w: missing tag byte", ErrMalformedEncoding)
	}

	tag := Kind(buf[0])
	rest := buf[1:]

	switch tag {
	case KindUnit:
		return Unit(), 1, nil

	case KindBool:
		if len(rest) < 1 {
			return Value{}, 0, truncated("bool", 1, len(rest))
		}
		if rest[0] > 1 {
			return Value{}, 0, fmt.Errorf("%w: bool payload 0x%02x", ErrMalformedEncoding, rest[0])
		}

		return Bool(rest[0] == 1), 2, nil

	case KindInt64:
		if len(rest) < 8 {
			return Value{}, 0, truncated("int64", 8, len(rest))
		}

		return Int64(int64(binary.LittleEndian.Uint64(rest))), 9, nil

	case KindFloat64:
		if len(rest) < 8 {
			return Value{}, 0, truncated("float64", 8, len(rest))
		}

		return Float64(math.Float64frombits(binary.LittleEndian.Uint64(rest))), 9, nil

	case KindString, KindBytes:
		// Validate the declared length against what is actually available
		// before trusting it: the length field itself is guest-controlled.
		if len(rest) < 4 {
			return Value{}, 0, truncated("length prefix", 4, len(rest))
		}
		n := binary.LittleEndian.Uint32(rest)
		payload := rest[4:]
		if uint64(n) > uint64(len(payload)) {
			return Value{}, 0, truncated(tag.String(), int(n), len(payload))
		}
		consumed := 1 + 4 + int(n)
		if tag == KindString {
			return String(string(payload[:n])), consumed, nil
		}
		out := make([]byte, n)
		copy(out, payload[:n])

		return Bytes(out), consumed, nil

	case KindArray:
		if len(rest) < 4 {
			return Value{}, 0, truncated("element count", 4, len(rest))
		}
		count := binary.LittleEndian.Uint32(rest)
		consumed := 5
		var elems []Value
		for i := uint32(0); i < count; i++ {
			e, n, err := decode(buf[consumed:], depth+1)
			if err != nil {
				return Value{}, 0, err
			}
			elems = append(elems, e)
			consumed += n
		}

		return Array(elems...), consumed, nil

	case KindMap:
		if len(rest) < 4 {
			return Value{}, 0, truncated("entry count", 4, len(rest))
		}
		count := binary.LittleEndian.Uint32(rest)
		consumed := 5
		var entries []Entry
		seen := make(map[string]struct{}, count)
		for i := uint32(0); i < count; i++ {
			k, n, err := decode(buf[consumed:], depth+1)
			if err != nil {
				return Value{}, 0, err
			}
			if k.Kind() != KindString {
				return Value{}, 0, fmt.Errorf("%w: map key has kind %s", ErrMalformedEncoding, k.Kind())
			}
			consumed += n

			v, n, err := decode(buf[consumed:], depth+1)
			if err != nil {
				return Value{}, 0, err
			}
			consumed += n

			key := k.AsString()
			if _, dup := seen[key]; dup {
				return Value{}, 0, fmt.Errorf("%w: duplicate map key %q", ErrMalformedEncoding, key)
			}
			seen[key] = struct{}{}
			entries = append(entries, Entry{Key: key, Val: v})
		}

		return Map(entries...), consumed, nil
	}

	return Value{}, 0, fmt.Errorf("%w: unknown tag 0x%02x", ErrMalformedEncoding, byte(tag))
}

func truncated(what string, want, have int) error {
	return fmt.Errorf("%w: %s needs %d bytes, %d available", ErrMalformedEncoding, what, want, have)
}
