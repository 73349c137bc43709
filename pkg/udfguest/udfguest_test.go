package udfguest

import (
	"testing"

	"github.com/modware/udfhost/pkg/wire"
)

// TestAllocAlignment verifies 8-byte alignment of consecutive allocations.
func TestAllocAlignment(t *testing.T) {
	ResetAllocator()

	first := Alloc(3)
	second := Alloc(16)
	third := Alloc(1)

	if first != 8 {
		t.Errorf("expected first allocation at 8, got %d", first)
	}
	if second != 16 {
		t.Errorf("expected second allocation at 16, got %d", second)
	}
	if third != 32 {
		t.Errorf("expected third allocation at 32, got %d", third)
	}
	for _, ptr := range []uint32{first, second, third} {
		if ptr%8 != 0 {
			t.Errorf("allocation %d not 8-byte aligned", ptr)
		}
	}
}

// TestDecodeArgs verifies splitting of concatenated argument buffers.
func TestDecodeArgs(t *testing.T) {
	t.Parallel()

	want := []wire.Value{
		wire.Int64(18),
		wire.String("sam"),
		wire.Array(wire.Bool(true), wire.Bool(false)),
	}
	var buf []byte
	for _, v := range want {
		buf = wire.Encode(buf, v)
	}

	got, err := DecodeArgs(buf, len(want))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("argument %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

// TestDecodeArgsArity covers short and oversized buffers.
func TestDecodeArgsArity(t *testing.T) {
	t.Parallel()

	buf := wire.EncodeValue(wire.Int64(1))

	if _, err := DecodeArgs(buf, 2); err == nil {
		t.Error("expected error for missing argument")
	}
	if _, err := DecodeArgs(buf, 0); err == nil {
		t.Error("expected error for trailing bytes")
	}
	if _, err := DecodeArgs(nil, 0); err != nil {
		t.Errorf("empty buffer with zero arity must succeed, got %v", err)
	}
}
