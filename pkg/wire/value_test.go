package wire

import (
	"math"
	"testing"
)

// TestEqualMapOrderInsensitive verifies that map equality ignores insertion
// order but not key/value pairing.
func TestEqualMapOrderInsensitive(t *testing.T) {
	t.Parallel()

	a := Map(Entry{"x", Int64(1)}, Entry{"y", Int64(2)})
	b := Map(Entry{"y", Int64(2)}, Entry{"x", Int64(1)})
	c := Map(Entry{"x", Int64(2)}, Entry{"y", Int64(1)})

	if !a.Equal(b) {
		t.Error("maps with same pairs in different order must be equal")
	}
	if a.Equal(c) {
		t.Error("maps with swapped values must not be equal")
	}
}

// TestEqualAcrossKinds verifies kind mismatches and payload mismatches.
func TestEqualAcrossKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"unit vs unit", Unit(), Unit(), true},
		{"unit vs bool", Unit(), Bool(false), false},
		{"int vs float same magnitude", Int64(1), Float64(1), false},
		{"nan equals nan", Float64(math.NaN()), Float64(math.NaN()), true},
		{"zero differs from negative zero", Float64(0), Float64(math.Copysign(0, -1)), false},
		{"bytes equal", Bytes([]byte{1, 2}), Bytes([]byte{1, 2}), true},
		{"bytes differ", Bytes([]byte{1, 2}), Bytes([]byte{1, 3}), false},
		{"string vs bytes same payload", String("ab"), Bytes([]byte("ab")), false},
		{"nested arrays equal", Array(Array(Int64(1))), Array(Array(Int64(1))), true},
		{"array length differs", Array(Int64(1)), Array(Int64(1), Int64(2)), false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := tc.a.Equal(tc.b); got != tc.want {
				t.Errorf("Equal(%s, %s) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

// TestZeroValueIsUnit verifies the zero Value behaves as unit.
func TestZeroValueIsUnit(t *testing.T) {
	t.Parallel()

	var v Value
	if v.Kind() != KindUnit || !v.Equal(Unit()) {
		t.Errorf("zero Value should be unit, got kind %s", v.Kind())
	}
}

// TestLookup verifies map key lookup.
func TestLookup(t *testing.T) {
	t.Parallel()

	m := Map(Entry{"fn", String("can_drive")}, Entry{"age", Int64(18)})

	if v, ok := m.Lookup("age"); !ok || !v.Equal(Int64(18)) {
		t.Errorf("expected Int64(18), got %s (found=%v)", v, ok)
	}
	if _, ok := m.Lookup("missing"); ok {
		t.Error("lookup of absent key should report not found")
	}
}

// TestKindString verifies display names, including unknown tags.
func TestKindString(t *testing.T) {
	t.Parallel()

	if KindInt64.String() != "int64" {
		t.Errorf("unexpected name %q", KindInt64.String())
	}
	if Kind(0xEE).Valid() {
		t.Error("0xEE must not be a valid kind")
	}
}
