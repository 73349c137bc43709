// Package udfguest provides helper functions for modules implementing user
// functions in Go. Guests re-export Alloc and Free under the names the host
// looks up and use the codec helpers to exchange values across the boundary.
package udfguest

var nextPtr uint32

// ResetAllocator resets the allocator to the initial memory offset.
func ResetAllocator() {
	nextPtr = 8
}

// Alloc allocates n bytes with 8-byte alignment and returns the starting pointer.
func Alloc(n uint32) uint32 {
	if nextPtr == 0 {
		ResetAllocator()
	}
	ptr := nextPtr
	padding := (8 - n%8) % 8
	nextPtr += n + padding

	return ptr
}

// Free releases the memory at ptr.
// Currently a no-op.
func Free(ptr, length uint32) {
	_, _ = ptr, length
}
