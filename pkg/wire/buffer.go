package wire

// Buffer packing for the boundary calling convention. Every guest callable
// accepts (ptr u32, len u32) and returns one u64 with the result pointer in
// the high 32 bits and the result length in the low 32 bits.

// PackBuffer combines a guest memory pointer and a byte length into the
// packed u64 return form.
func PackBuffer(ptr, length uint32) uint64 {
	return uint64(ptr)<<32 | uint64(length)
}

// UnpackBuffer splits a packed u64 into pointer and length.
func UnpackBuffer(packed uint64) (ptr, length uint32) {
	return uint32(packed >> 32), uint32(packed)
}
