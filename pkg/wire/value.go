// Package wire defines the tagged value model and the byte codec shared by the
// host and every guest module. It is the single vocabulary both sides of the
// sandbox boundary agree on, regardless of the guest's source language.
package wire

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Version is the wire protocol version. Adding a value kind requires a bump.
const Version = 1

// Kind identifies a value kind and doubles as the codec tag byte.
type Kind uint8

// The closed set of value kinds. Tag bytes are part of the wire format and
// must never be reassigned.
const (
	KindUnit    Kind = 0x00
	KindBool    Kind = 0x01
	KindInt64   Kind = 0x02
	KindFloat64 Kind = 0x03
	KindString  Kind = 0x04
	KindBytes   Kind = 0x05
	KindArray   Kind = 0x06
	KindMap     Kind = 0x07
)

// kindNames maps kinds to their display names.
var kindNames = map[Kind]string{
	KindUnit:    "unit",
	KindBool:    "bool",
	KindInt64:   "int64",
	KindFloat64: "float64",
	KindString:  "string",
	KindBytes:   "bytes",
	KindArray:   "array",
	KindMap:     "map",
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// String returns the display name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return "kind(0x" + strconv.FormatUint(uint64(k), 16) + ")"
}

// Entry is one ordered key/value pair of a map value.
type Entry struct {
	Key string
	Val Value
}

// Value is a finite, self-describing tagged value. The zero Value is Unit.
type Value struct {
	kind    Kind
	boolv   bool
	intv    int64
	floatv  float64
	strv    string
	bytesv  []byte
	arrv    []Value
	entries []Entry
}

// Unit returns the unit value.
func Unit() Value { return Value{kind: KindUnit} }

// Bool returns a bool value.
func Bool(b bool) Value { return Value{kind: KindBool, boolv: b} }

// Int64 returns an int64 value.
func Int64(i int64) Value { return Value{kind: KindInt64, intv: i} }

// Float64 returns a float64 value.
func Float64(f float64) Value { return Value{kind: KindFloat64, floatv: f} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, strv: s} }

// Bytes returns an opaque byte-sequence value. The slice is not copied.
func Bytes(b []byte) Value { return Value{kind: KindBytes, bytesv: b} }

// Array returns an array value over the given elements.
func Array(elems ...Value) Value { return Value{kind: KindArray, arrv: elems} }

// Map returns a map value over the given entries. Key order is preserved;
// keys must be unique (enforced by the codec on decode, by callers on build).
func Map(entries ...Entry) Value { return Value{kind: KindMap, entries: entries} }

// Kind returns the value's kind tag.
func (v Value) Kind() Kind { return v.kind }

// AsBool returns the bool payload; valid only for KindBool.
func (v Value) AsBool() bool { return v.boolv }

// AsInt64 returns the int64 payload; valid only for KindInt64.
func (v Value) AsInt64() int64 { return v.intv }

// AsFloat64 returns the float64 payload; valid only for KindFloat64.
func (v Value) AsFloat64() float64 { return v.floatv }

// AsString returns the string payload; valid only for KindString.
func (v Value) AsString() string { return v.strv }

// AsBytes returns the byte payload; valid only for KindBytes.
func (v Value) AsBytes() []byte { return v.bytesv }

// AsArray returns the element slice; valid only for KindArray.
func (v Value) AsArray() []Value { return v.arrv }

// AsMap returns the ordered entries; valid only for KindMap.
func (v Value) AsMap() []Entry { return v.entries }

// Lookup returns the value stored under key in a map value.
func (v Value) Lookup(key string) (Value, bool) {
	for _, e := range v.entries {
		if e.Key == key {
			return e.Val, true
		}
	}

	return Value{}, false
}

// Equal reports deep structural equality. Map equality ignores insertion
// order but not key/value pairing. Float64 comparison is bitwise, so NaN
// equals NaN and 0.0 differs from -0.0.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}

	switch v.kind {
	case KindUnit:
		return true
	case KindBool:
		return v.boolv == o.boolv
	case KindInt64:
		return v.intv == o.intv
	case KindFloat64:
		return math.Float64bits(v.floatv) == math.Float64bits(o.floatv)
	case KindString:
		return v.strv == o.strv
	case KindBytes:
		if len(v.bytesv) != len(o.bytesv) {
			return false
		}
		for i := range v.bytesv {
			if v.bytesv[i] != o.bytesv[i] {
				return false
			}
		}

		return true
	case KindArray:
		if len(v.arrv) != len(o.arrv) {
			return false
		}
		for i := range v.arrv {
			if !v.arrv[i].Equal(o.arrv[i]) {
				return false
			}
		}

		return true
	case KindMap:
		if len(v.entries) != len(o.entries) {
			return false
		}
		for _, e := range v.entries {
			ov, ok := o.Lookup(e.Key)
			if !ok || !e.Val.Equal(ov) {
				return false
			}
		}

		return true
	}

	return false
}

// String renders the value for logs and CLI output.
func (v Value) String() string {
	switch v.kind {
	case KindUnit:
		return "()"
	case KindBool:
		return strconv.FormatBool(v.boolv)
	case KindInt64:
		return strconv.FormatInt(v.intv, 10)
	case KindFloat64:
		return strconv.FormatFloat(v.floatv, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.strv)
	case KindBytes:
		return fmt.Sprintf("b[% x]", v.bytesv)
	case KindArray:
		s := "["
		for i, e := range v.arrv {
			if i > 0 {
				s += ", "
			}
			s += e.String()
		}

		return s + "]"
	case KindMap:
		s := "{"
		for i, e := range v.entries {
			if i > 0 {
				s += ", "
			}
			s += strconv.Quote(e.Key) + ": " + e.Val.String()
		}

		return s + "}"
	}

	return "<invalid>"
}

// SortedEntries returns the map entries sorted by key, for deterministic
// iteration where insertion order must not leak into output.
func (v Value) SortedEntries() []Entry {
	out := make([]Entry, len(v.entries))
	copy(out, v.entries)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	return out
}
