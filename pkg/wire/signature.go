package wire

import (
	"fmt"
	"strings"
)

// FunctionSignature describes one guest callable: its export name, ordered
// parameter kinds and single return kind. Signatures are immutable once a
// module is loaded.
type FunctionSignature struct {
	Name    string
	Params  []Kind
	Returns Kind
}

// String renders the signature in declaration form, e.g.
// "can_drive(int64) -> bool".
func (s FunctionSignature) String() string {
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = p.String()
	}

	return fmt.Sprintf("%s(%s) -> %s", s.Name, strings.Join(params, ", "), s.Returns)
}

// EncodeSignatures encodes a signature table into the wire format shared by
// the guest's metadata export and the packaged artifact:
// Map{name: Array[Array[Int64 paramTag...], Int64 returnTag]}.
// Metadata and values use exactly one codec.
func EncodeSignatures(sigs []FunctionSignature) []byte {
	entries := make([]Entry, 0, len(sigs))
	for _, s := range sigs {
		params := make([]Value, len(s.Params))
		for i, p := range s.Params {
			params[i] = Int64(int64(p))
		}
		entries = append(entries, Entry{
			Key: s.Name,
			Val: Array(Array(params...), Int64(int64(s.Returns))),
		})
	}

	return EncodeValue(Map(entries...))
}

// DecodeSignatures decodes a signature table produced by EncodeSignatures.
// The returned slice preserves the table's declaration order.
func DecodeSignatures(buf []byte) ([]FunctionSignature, error) {
	v, err := DecodeValue(buf)
	if err != nil {
		return nil, err
	}
	if v.Kind() != KindMap {
		return nil, fmt.Errorf("%w: signature table has kind %s", ErrMalformedEncoding, v.Kind())
	}

	sigs := make([]FunctionSignature, 0, len(v.AsMap()))
	for _, e := range v.AsMap() {
		if e.Key == "" {
			return nil, fmt.Errorf("%w: empty function name", ErrMalformedEncoding)
		}
		if e.Val.Kind() != KindArray || len(e.Val.AsArray()) != 2 {
			return nil, fmt.Errorf("%w: signature of %q is not a [params, return] pair", ErrMalformedEncoding, e.Key)
		}
		pair := e.Val.AsArray()

		if pair[0].Kind() != KindArray {
			return nil, fmt.Errorf("%w: parameter list of %q has kind %s", ErrMalformedEncoding, e.Key, pair[0].Kind())
		}
		params := make([]Kind, 0, len(pair[0].AsArray()))
		for i, p := range pair[0].AsArray() {
			k, err := kindFromTag(p)
			if err != nil {
				return nil, fmt.Errorf("%w: parameter %d of %q: %v", ErrMalformedEncoding, i, e.Key, err)
			}
			params = append(params, k)
		}

		ret, err := kindFromTag(pair[1])
		if err != nil {
			return nil, fmt.Errorf("%w: return kind of %q: %v", ErrMalformedEncoding, e.Key, err)
		}

		sigs = append(sigs, FunctionSignature{Name: e.Key, Params: params, Returns: ret})
	}

	return sigs, nil
}

func kindFromTag(v Value) (Kind, error) {
	if v.Kind() != KindInt64 {
		return 0, fmt.Errorf("tag has kind %s", v.Kind())
	}
	k := Kind(v.AsInt64())
	if int64(k) != v.AsInt64() || !k.Valid() {
		return 0, fmt.Errorf("tag %d is not a kind", v.AsInt64())
	}

	return k, nil
}
