package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/modware/udfhost/pkg/wire"
)

// Module is one loaded, validated guest instance. It exclusively owns its
// linear memory; calls are strictly sequential per instance, so a single
// mutex serializes invocations. Independent instances of the same binary
// run concurrently without shared state.
type Module struct {
	id     uuid.UUID
	name   string
	bridge *memoryBridge
	fns    map[string]guestFn
	sigs   *signatureRegistry

	budget time.Duration
	closer func(context.Context) error

	mu     sync.Mutex
	failed atomic.Bool
	closed atomic.Bool
}

// ID returns the host-assigned handle for this instance.
func (m *Module) ID() uuid.UUID { return m.id }

// Name returns the caller-supplied module name.
func (m *Module) Name() string { return m.name }

// Signatures lists every declared function signature in declaration order.
// Repeated calls return identical results.
func (m *Module) Signatures() []wire.FunctionSignature {
	return m.sigs.list()
}

// Signature returns the declared signature for name.
func (m *Module) Signature(name string) (wire.FunctionSignature, error) {
	return m.sigs.lookup(name)
}

// Failed reports whether a trap or budget overrun poisoned this instance.
// A poisoned instance's memory state is undefined; it must be discarded
// and the binary reloaded.
func (m *Module) Failed() bool {
	return m.failed.Load()
}

// Invoke calls the named guest function with the given argument values and
// returns its decoded result. The call blocks until the guest returns,
// traps, or the execution budget pre-empts it.
func (m *Module) Invoke(ctx context.Context, name string, args []wire.Value) (wire.Value, error) {
	sig, err := m.sigs.lookup(name)
	if err != nil {
		return wire.Value{}, err
	}
	fn := m.fns[name]

	m.mu.Lock()
	defer m.mu.Unlock()

	// Checked under the mutex: a caller parked here while another
	// invocation trapped must not run on the poisoned instance.
	if m.closed.Load() {
		return wire.Value{}, fmt.Errorf("%w: module %s is closed", ErrGuestTrap, m.name)
	}
	if m.failed.Load() {
		return wire.Value{}, fmt.Errorf("%w: instance poisoned by earlier fault", ErrGuestTrap)
	}

	if m.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.budget)
		defer cancel()
	}

	start := time.Now()
	d := dispatcher{bridge: m.bridge}
	result, err := d.invoke(ctx, fn, sig, args)
	if err != nil {
		if errors.Is(err, ErrGuestTrap) || errors.Is(err, ErrExecutionBudget) {
			m.failed.Store(true)
		}
		log.Error().
			Str("event", "invocation_failed").
			Str("module", m.name).
			Str("instance", m.id.String()).
			Str("function", name).
			Str("call_state", d.state.String()).
			Dur("elapsed", time.Since(start)).
			Err(err).
			Msg("invocation failed")

		return wire.Value{}, err
	}

	log.Debug().
		Str("event", "invocation_done").
		Str("module", m.name).
		Str("instance", m.id.String()).
		Str("function", name).
		Dur("elapsed", time.Since(start)).
		Msg("invocation completed")

	return result, nil
}

// Close releases the instance and its linear memory. Safe to call twice.
func (m *Module) Close(ctx context.Context) error {
	if m.closed.Swap(true) {
		return nil
	}
	if m.closer == nil {
		return nil
	}

	return m.closer(ctx)
}
