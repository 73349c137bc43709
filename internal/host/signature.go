package host

import (
	"context"
	"fmt"

	"github.com/modware/udfhost/pkg/wire"
)

// signatureRegistry indexes a module's declared signatures. It is built once
// at load time and read-only afterwards, so lookups need no locking and may
// be repeated without side effects.
type signatureRegistry struct {
	byName map[string]wire.FunctionSignature
	order  []string // declaration order, for stable listing
}

// readSignatureTable pulls the metadata side-channel export out of the guest
// and decodes it. Any failure here is a load failure: a module with
// undiscoverable metadata is never partially registered.
func readSignatureTable(ctx context.Context, sigFn guestFn, bridge *memoryBridge) (*signatureRegistry, error) {
	results, err := sigFn.Call(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoad, sigExport, err)
	}
	if len(results) < 1 {
		return nil, fmt.Errorf("%w: %s returned no result", ErrLoad, sigExport)
	}

	ptr, length := wire.UnpackBuffer(results[0])
	raw, err := bridge.Read(Region{Ptr: ptr, Len: length})
	if err != nil {
		return nil, fmt.Errorf("%w: reading signature metadata: %v", ErrLoad, err)
	}

	sigs, err := wire.DecodeSignatures(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding signature metadata: %v", ErrLoad, err)
	}

	reg := &signatureRegistry{byName: make(map[string]wire.FunctionSignature, len(sigs))}
	for _, s := range sigs {
		if _, dup := reg.byName[s.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate signature for %q", ErrLoad, s.Name)
		}
		reg.byName[s.Name] = s
		reg.order = append(reg.order, s.Name)
	}

	return reg, nil
}

// lookup returns the signature declared for name.
func (r *signatureRegistry) lookup(name string) (wire.FunctionSignature, error) {
	sig, ok := r.byName[name]
	if !ok {
		return wire.FunctionSignature{}, fmt.Errorf("%w: %q", ErrUnknownSignature, name)
	}

	return sig, nil
}

// list returns all signatures in declaration order. The slice is fresh on
// every call; repeated calls return identical content.
func (r *signatureRegistry) list() []wire.FunctionSignature {
	out := make([]wire.FunctionSignature, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}

	return out
}

// validateArgs checks supplied argument values kind-for-kind, positionally,
// against the signature. It runs before any guest code does.
func validateArgs(sig wire.FunctionSignature, args []wire.Value) error {
	if len(args) != len(sig.Params) {
		return fmt.Errorf("%w: %s takes %d arguments, got %d",
			ErrSignatureMismatch, sig.Name, len(sig.Params), len(args))
	}
	for i, want := range sig.Params {
		if got := args[i].Kind(); got != want {
			return fmt.Errorf("%w: %s argument %d is %s, want %s",
				ErrSignatureMismatch, sig.Name, i, got, want)
		}
	}

	return nil
}
