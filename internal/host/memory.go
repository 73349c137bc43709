package host

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// Guest ABI export names. Every callable function is exported under
// fnPrefix; the allocator pair and the signature metadata export complete
// the convention.
const (
	fnPrefix     = "__udf_fn_"
	sigExport    = "__udf_sig"
	allocExport  = "__udf_alloc"
	freeExport   = "__udf_free"
	envModule    = "env"
)

// Region is an (offset, length) handle into a module's linear memory. It is
// only valid until the next operation that may grow or reallocate that
// memory, so it is never cached across calls.
type Region struct {
	Ptr uint32
	Len uint32
}

// End returns the first byte past the region, in 64-bit space so that
// ptr+len cannot wrap.
func (r Region) End() uint64 {
	return uint64(r.Ptr) + uint64(r.Len)
}

// linearMemory is the slice of wazero's api.Memory the bridge needs.
// Narrow on purpose: tests provide byte-slice fakes.
type linearMemory interface {
	Size() uint32
	Read(offset, byteCount uint32) ([]byte, bool)
	Write(offset uint32, v []byte) bool
}

// guestFn matches api.Function.Call.
type guestFn interface {
	Call(ctx context.Context, params ...uint64) ([]uint64, error)
}

// memoryBridge mediates every host access to one instance's linear memory.
// Bounds are re-validated against the current memory size on every
// operation: guest execution between calls may have grown memory and
// invalidated prior offsets.
type memoryBridge struct {
	mem   linearMemory
	alloc guestFn // nil when the guest exports no allocator
	free  guestFn // nil when the guest manages memory automatically
}

func newMemoryBridge(mem linearMemory, alloc, free guestFn) *memoryBridge {
	return &memoryBridge{mem: mem, alloc: alloc, free: free}
}

// Allocate asks the guest's exported allocator for length bytes.
func (b *memoryBridge) Allocate(ctx context.Context, length uint32) (Region, error) {
	if b.alloc == nil {
		return Region{}, fmt.Errorf("%w: module exports no %s", ErrAllocationFailed, allocExport)
	}

	results, err := b.alloc.Call(ctx, uint64(length))
	if err != nil {
		return Region{}, fmt.Errorf("%w: %v", ErrAllocationFailed, err)
	}
	if len(results) < 1 {
		return Region{}, fmt.Errorf("%w: allocator returned no result", ErrAllocationFailed)
	}

	ptr := api.DecodeU32(results[0])
	if ptr == 0 {
		return Region{}, fmt.Errorf("%w: allocator returned null for %d bytes", ErrAllocationFailed, length)
	}

	region := Region{Ptr: ptr, Len: length}
	if err := b.check(region); err != nil {
		return Region{}, err
	}

	return region, nil
}

// Write copies data into the region after re-validating its bounds.
func (b *memoryBridge) Write(r Region, data []byte) error {
	if uint32(len(data)) > r.Len {
		return fmt.Errorf("%w: %d bytes into a %d byte region", ErrOutOfBounds, len(data), r.Len)
	}
	if err := b.check(r); err != nil {
		return err
	}
	if !b.mem.Write(r.Ptr, data) {
		return fmt.Errorf("%w: write of %d bytes at 0x%x", ErrOutOfBounds, len(data), r.Ptr)
	}

	return nil
}

// Read copies the region out of guest memory after re-validating its bounds.
func (b *memoryBridge) Read(r Region) ([]byte, error) {
	if err := b.check(r); err != nil {
		return nil, err
	}

	data, ok := b.mem.Read(r.Ptr, r.Len)
	if !ok {
		return nil, fmt.Errorf("%w: read of %d bytes at 0x%x", ErrOutOfBounds, r.Len, r.Ptr)
	}

	// Copy out: the wazero view aliases guest memory, which the guest may
	// grow or rewrite after this call returns.
	out := make([]byte, len(data))
	copy(out, data)

	return out, nil
}

// Free returns the region to the guest's deallocator. A guest without a
// deallocator export manages memory itself; that is a no-op, not an error.
func (b *memoryBridge) Free(ctx context.Context, r Region) error {
	if b.free == nil || r.Ptr == 0 {
		return nil
	}

	if _, err := b.free.Call(ctx, uint64(r.Ptr), uint64(r.Len)); err != nil {
		return fmt.Errorf("%s failed: %w", freeExport, err)
	}

	return nil
}

func (b *memoryBridge) check(r Region) error {
	if size := b.mem.Size(); r.End() > uint64(size) {
		return fmt.Errorf("%w: region [0x%x, 0x%x) exceeds memory size %d", ErrOutOfBounds, r.Ptr, r.End(), size)
	}

	return nil
}
