// Package host loads untrusted WASM guest modules and dispatches typed
// invocations into them across the sandbox boundary.
package host

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/modware/udfhost/internal/kvstore"
)

// Options configures a Host.
type Options struct {
	// CallBudget bounds each invocation's wall time; zero disables the
	// budget. Enforced by pre-empting the guest, not by guest cooperation.
	CallBudget time.Duration

	// EnableKV exposes the key/value capability imports to guests.
	EnableKV bool
}

// Host owns one wazero runtime and the registry of modules loaded into it.
// It is the single owner of every instance's lifecycle; there are no
// process-wide singletons, so multiple Hosts compose and test cleanly.
type Host struct {
	runtime   wazero.Runtime
	kv        *kvstore.Store
	kvEnabled bool
	budget    time.Duration

	mu      sync.RWMutex
	modules map[uuid.UUID]*Module
}

// New creates a Host with a fresh runtime, WASI and the env capability
// imports instantiated.
func New(ctx context.Context, opts Options) (*Host, error) {
	// CloseOnContextDone is what lets the host pre-empt a guest that
	// overruns its execution budget.
	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)

	h := &Host{
		runtime:   rt,
		kv:        kvstore.New(),
		kvEnabled: opts.EnableKV,
		budget:    opts.CallBudget,
		modules:   make(map[uuid.UUID]*Module),
	}

	if err := h.instantiateEnv(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("%w: env module: %v", ErrLoad, err)
	}

	return h, nil
}

// KV returns the host's capability store.
func (h *Host) KV() *kvstore.Store {
	return h.kv
}

// Load compiles and instantiates a guest binary, validates its exports
// against the boundary convention and registers its signatures. Each call
// produces an independent instance with its own linear memory; a failure at
// any step registers nothing.
func (h *Host) Load(ctx context.Context, name string, wasmBytes []byte) (*Module, error) {
	compiled, err := h.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: compile: %v", ErrLoad, err)
	}

	id := uuid.New()
	cfg := wazero.NewModuleConfig().
		WithName(name + "-" + id.String()).
		WithStartFunctions() // the host decides when guest code runs, never instantiation

	mod, err := h.runtime.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: instantiate: %v", ErrLoad, err)
	}

	m, err := h.wire(ctx, id, name, mod)
	if err != nil {
		_ = mod.Close(ctx)
		return nil, err
	}

	h.mu.Lock()
	h.modules[id] = m
	h.mu.Unlock()

	log.Info().
		Str("event", "module_loaded").
		Str("module", name).
		Str("instance", id.String()).
		Int("functions", len(m.sigs.order)).
		Msg("loaded wasm module")

	return m, nil
}

// wire builds the Module value: memory bridge, signature registry and
// validated function handles.
func (h *Host) wire(ctx context.Context, id uuid.UUID, name string, mod api.Module) (*Module, error) {
	mem := mod.Memory()
	if mem == nil {
		return nil, fmt.Errorf("%w: module exports no linear memory", ErrLoad)
	}

	var alloc, free guestFn
	if f := mod.ExportedFunction(allocExport); f != nil {
		alloc = f
	}
	if f := mod.ExportedFunction(freeExport); f != nil {
		free = f
	}
	bridge := newMemoryBridge(mem, alloc, free)

	sigFn := mod.ExportedFunction(sigExport)
	if sigFn == nil {
		return nil, fmt.Errorf("%w: module exports no %s", ErrLoad, sigExport)
	}

	sigs, err := readSignatureTable(ctx, sigFn, bridge)
	if err != nil {
		return nil, err
	}

	defs := mod.ExportedFunctionDefinitions()
	fns := make(map[string]guestFn, len(sigs.order))
	for _, fnName := range sigs.order {
		export := fnPrefix + fnName
		def, ok := defs[export]
		if !ok {
			return nil, fmt.Errorf("%w: metadata declares %q but %s is not exported", ErrLoad, fnName, export)
		}
		if err := checkCallableType(def); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoad, export, err)
		}
		fns[fnName] = mod.ExportedFunction(export)
	}

	return &Module{
		id:     id,
		name:   name,
		bridge: bridge,
		fns:    fns,
		sigs:   sigs,
		budget: h.budget,
		closer: mod.Close,
	}, nil
}

// checkCallableType enforces the universal calling convention: two i32
// parameters (pointer, length) in, one packed i64 out.
func checkCallableType(def api.FunctionDefinition) error {
	params, results := def.ParamTypes(), def.ResultTypes()
	if len(params) != 2 || params[0] != api.ValueTypeI32 || params[1] != api.ValueTypeI32 {
		return fmt.Errorf("params must be (i32, i32)")
	}
	if len(results) != 1 || results[0] != api.ValueTypeI64 {
		return fmt.Errorf("result must be i64")
	}

	return nil
}

// Get returns the module registered under id.
func (h *Host) Get(id uuid.UUID) (*Module, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	m, ok := h.modules[id]
	return m, ok
}

// Modules snapshots the registry.
func (h *Host) Modules() []*Module {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*Module, 0, len(h.modules))
	for _, m := range h.modules {
		out = append(out, m)
	}

	return out
}

// Unload closes a module and removes it from the registry.
func (h *Host) Unload(ctx context.Context, id uuid.UUID) error {
	h.mu.Lock()
	m, ok := h.modules[id]
	delete(h.modules, id)
	h.mu.Unlock()

	if !ok {
		return fmt.Errorf("no module registered under %s", id)
	}

	return m.Close(ctx)
}

// Close releases every module and the underlying runtime.
func (h *Host) Close(ctx context.Context) error {
	h.mu.Lock()
	for id, m := range h.modules {
		if err := m.Close(ctx); err != nil {
			log.Error().Err(err).Str("instance", id.String()).Msg("failed to close module")
		}
	}
	h.modules = make(map[uuid.UUID]*Module)
	h.mu.Unlock()

	return h.runtime.Close(ctx)
}
