package host

import (
	"context"
	"sync/atomic"
)

// InstancePool manages independent instances of one guest binary. Each
// instance owns its own linear memory, so pooled instances may serve
// invocations concurrently; a slot is held exclusively for the duration of
// one invocation.
type InstancePool struct {
	pool    chan *Module
	maxSize int32
	created atomic.Int32
	factory func(context.Context) (*Module, error)
}

// NewInstancePool returns a pool that lazily creates up to maxSize
// instances through factory.
func NewInstancePool(maxSize int, factory func(context.Context) (*Module, error)) *InstancePool {
	return &InstancePool{
		pool:    make(chan *Module, maxSize),
		maxSize: int32(maxSize),
		factory: factory,
	}
}

// Get returns an idle instance, creating a new one while below capacity.
// When the pool is saturated it blocks until an instance is returned or the
// context ends.
func (p *InstancePool) Get(ctx context.Context) (*Module, error) {
	select {
	case inst := <-p.pool:
		return inst, nil
	default:
	}

	if p.created.Add(1) <= p.maxSize {
		inst, err := p.factory(ctx)
		if err != nil {
			p.created.Add(-1)
			return nil, err
		}

		return inst, nil
	}
	p.created.Add(-1)

	select {
	case inst := <-p.pool:
		return inst, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Put returns an instance to the pool. A poisoned instance is closed and
// its slot released: its memory state is undefined, so it must never serve
// another invocation.
func (p *InstancePool) Put(ctx context.Context, inst *Module) {
	if inst == nil {
		return
	}
	if inst.Failed() {
		_ = inst.Close(ctx)
		p.created.Add(-1)

		return
	}

	select {
	case p.pool <- inst:
	default:
		// pool full, drop instance
		_ = inst.Close(ctx)
		p.created.Add(-1)
	}
}

// Close drains and closes every idle instance.
func (p *InstancePool) Close(ctx context.Context) {
	for {
		select {
		case inst := <-p.pool:
			_ = inst.Close(ctx)
		default:
			return
		}
	}
}
