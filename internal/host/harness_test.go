package host

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/modware/udfhost/pkg/wire"
)

// The harness below stands in for a real guest: a byte-slice linear memory,
// a bump allocator and scripted functions speaking the boundary convention.
// It drives the same bridge, registry and dispatcher code paths a wazero
// module would, without needing a compiled binary.

type fakeMemory struct {
	data []byte
}

func (m *fakeMemory) Size() uint32 {
	return uint32(len(m.data))
}

func (m *fakeMemory) Read(offset, byteCount uint32) ([]byte, bool) {
	if uint64(offset)+uint64(byteCount) > uint64(len(m.data)) {
		return nil, false
	}

	return m.data[offset : offset+byteCount], true
}

func (m *fakeMemory) Write(offset uint32, v []byte) bool {
	if uint64(offset)+uint64(len(v)) > uint64(len(m.data)) {
		return false
	}
	copy(m.data[offset:], v)

	return true
}

// guestFunc adapts a plain func to the guestFn interface.
type guestFunc func(ctx context.Context, params ...uint64) ([]uint64, error)

func (f guestFunc) Call(ctx context.Context, params ...uint64) ([]uint64, error) {
	return f(ctx, params...)
}

type fakeGuest struct {
	mem   *fakeMemory
	next  uint32
	freed []Region
	sigs  []wire.FunctionSignature
	// impl maps function name to its scripted behavior.
	impl map[string]func(args []wire.Value) (wire.Value, error)
}

func newFakeGuest(memSize uint32) *fakeGuest {
	return &fakeGuest{
		mem:  &fakeMemory{data: make([]byte, memSize)},
		next: 8, // keep the null pointer meaningful
		impl: make(map[string]func(args []wire.Value) (wire.Value, error)),
	}
}

func (g *fakeGuest) define(sig wire.FunctionSignature, impl func(args []wire.Value) (wire.Value, error)) {
	g.sigs = append(g.sigs, sig)
	g.impl[sig.Name] = impl
}

func (g *fakeGuest) alloc(length uint32) uint32 {
	if uint64(g.next)+uint64(length) > uint64(len(g.mem.data)) {
		return 0
	}
	ptr := g.next
	g.next += length
	if rem := g.next % 8; rem != 0 {
		g.next += 8 - rem
	}

	return ptr
}

func (g *fakeGuest) allocFn() guestFn {
	return guestFunc(func(_ context.Context, params ...uint64) ([]uint64, error) {
		return []uint64{uint64(g.alloc(uint32(params[0])))}, nil
	})
}

func (g *fakeGuest) freeFn() guestFn {
	return guestFunc(func(_ context.Context, params ...uint64) ([]uint64, error) {
		g.freed = append(g.freed, Region{Ptr: uint32(params[0]), Len: uint32(params[1])})
		return nil, nil
	})
}

// sigFn returns the metadata side-channel export.
func (g *fakeGuest) sigFn() guestFn {
	return guestFunc(func(_ context.Context, _ ...uint64) ([]uint64, error) {
		return []uint64{g.place(wire.EncodeSignatures(g.sigs))}, nil
	})
}

// place writes data into guest memory via the bump allocator and returns
// the packed region.
func (g *fakeGuest) place(data []byte) uint64 {
	ptr := g.alloc(uint32(len(data)))
	if ptr == 0 {
		return 0
	}
	copy(g.mem.data[ptr:], data)

	return wire.PackBuffer(ptr, uint32(len(data)))
}

// callableFn wraps a scripted implementation in the boundary convention:
// decode the argument buffer, run, encode the result into guest memory.
func (g *fakeGuest) callableFn(name string) guestFn {
	sig := g.sigs[g.sigIndex(name)]

	return guestFunc(func(_ context.Context, params ...uint64) ([]uint64, error) {
		ptr, length := uint32(params[0]), uint32(params[1])

		var args []wire.Value
		if length > 0 {
			raw, ok := g.mem.Read(ptr, length)
			if !ok {
				return nil, fmt.Errorf("argument buffer out of bounds")
			}
			offset := 0
			for range sig.Params {
				v, n, err := wire.Decode(raw, offset)
				if err != nil {
					return nil, err
				}
				args = append(args, v)
				offset += n
			}
		}

		out, err := g.impl[name](args)
		if err != nil {
			return nil, err
		}

		return []uint64{g.place(wire.EncodeValue(out))}, nil
	})
}

func (g *fakeGuest) sigIndex(name string) int {
	for i, s := range g.sigs {
		if s.Name == name {
			return i
		}
	}
	panic("undefined fake function " + name)
}

// module assembles a *Module over the fake guest, running the real
// signature-table read path.
func (g *fakeGuest) module(budget time.Duration) (*Module, error) {
	bridge := newMemoryBridge(g.mem, g.allocFn(), g.freeFn())

	sigs, err := readSignatureTable(context.Background(), g.sigFn(), bridge)
	if err != nil {
		return nil, err
	}

	fns := make(map[string]guestFn, len(g.sigs))
	for _, s := range g.sigs {
		fns[s.Name] = g.callableFn(s.Name)
	}

	return &Module{
		id:     uuid.New(),
		name:   "fake",
		bridge: bridge,
		fns:    fns,
		sigs:   sigs,
		budget: budget,
	}, nil
}

// canDriveGuest builds the reference guest: can_drive(age int64) -> bool.
func canDriveGuest() *fakeGuest {
	g := newFakeGuest(1 << 16)
	g.define(
		wire.FunctionSignature{Name: "can_drive", Params: []wire.Kind{wire.KindInt64}, Returns: wire.KindBool},
		func(args []wire.Value) (wire.Value, error) {
			return wire.Bool(args[0].AsInt64() >= 18), nil
		},
	)

	return g
}
