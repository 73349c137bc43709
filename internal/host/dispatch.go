package host

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/modware/udfhost/pkg/wire"
)

// callState tracks the per-call state machine:
// Idle -> ArgumentsEncoded -> ArgumentsWritten -> GuestExecuting ->
// ResultRead -> ResultDecoded -> Idle, with a terminal Failed state.
type callState uint8

const (
	stateIdle callState = iota
	stateArgumentsEncoded
	stateArgumentsWritten
	stateGuestExecuting
	stateResultRead
	stateResultDecoded
	stateFailed
)

func (s callState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateArgumentsEncoded:
		return "arguments_encoded"
	case stateArgumentsWritten:
		return "arguments_written"
	case stateGuestExecuting:
		return "guest_executing"
	case stateResultRead:
		return "result_read"
	case stateResultDecoded:
		return "result_decoded"
	case stateFailed:
		return "failed"
	}

	return "unknown"
}

// dispatcher orchestrates a single invocation against one instance. An
// invocation either fully succeeds or fully fails; no partial result is
// ever returned.
type dispatcher struct {
	bridge *memoryBridge
	state  callState
}

func (d *dispatcher) fail(err error) error {
	d.state = stateFailed
	return err
}

// invoke runs the full marshal-call-unmarshal cycle for one function call.
func (d *dispatcher) invoke(
	ctx context.Context,
	fn guestFn,
	sig wire.FunctionSignature,
	args []wire.Value,
) (wire.Value, error) {
	d.state = stateIdle

	if err := validateArgs(sig, args); err != nil {
		return wire.Value{}, d.fail(err)
	}

	// Encode all arguments into one contiguous buffer.
	var argBytes []byte
	for _, a := range args {
		argBytes = wire.Encode(argBytes, a)
	}
	d.state = stateArgumentsEncoded

	// A zero-argument call passes the null region; the guest must not read
	// through it.
	var argRegion Region
	if len(argBytes) > 0 {
		var err error
		argRegion, err = d.bridge.Allocate(ctx, uint32(len(argBytes)))
		if err != nil {
			return wire.Value{}, d.fail(err)
		}
		if err := d.bridge.Write(argRegion, argBytes); err != nil {
			d.freeQuietly(ctx, argRegion)
			return wire.Value{}, d.fail(err)
		}
	}
	d.state = stateArgumentsWritten

	d.state = stateGuestExecuting
	results, callErr := fn.Call(ctx, uint64(argRegion.Ptr), uint64(argRegion.Len))

	// The dispatcher owns the argument region regardless of the call's
	// outcome. The result region below is guest-allocated; it is freed as a
	// courtesy when the guest exports a deallocator.
	d.freeQuietly(ctx, argRegion)

	if callErr != nil {
		return wire.Value{}, d.fail(classifyCallError(ctx, callErr))
	}
	if len(results) < 1 {
		return wire.Value{}, d.fail(fmt.Errorf("%w: %s returned no result", ErrGuestTrap, sig.Name))
	}

	ptr, length := wire.UnpackBuffer(results[0])
	resultRegion := Region{Ptr: ptr, Len: length}

	raw, err := d.bridge.Read(resultRegion)
	if err != nil {
		return wire.Value{}, d.fail(err)
	}
	d.state = stateResultRead

	d.freeQuietly(ctx, resultRegion)

	result, err := wire.DecodeValue(raw)
	if err != nil {
		return wire.Value{}, d.fail(err)
	}
	if result.Kind() != sig.Returns {
		return wire.Value{}, d.fail(fmt.Errorf("%w: %s returned %s, declared %s",
			ErrSignatureMismatch, sig.Name, result.Kind(), sig.Returns))
	}
	d.state = stateResultDecoded

	d.state = stateIdle

	return result, nil
}

func (d *dispatcher) freeQuietly(ctx context.Context, r Region) {
	if r.Ptr == 0 {
		return
	}
	if err := d.bridge.Free(ctx, r); err != nil {
		log.Warn().
			Str("event", "region_free_failed").
			Uint32("ptr", r.Ptr).
			Uint32("len", r.Len).
			Err(err).
			Msg("failed to free guest region")
	}
}

// classifyCallError maps a guest call failure onto the error taxonomy. A
// budget pre-emption arrives as a context error; everything else from the
// runtime is a trap.
func classifyCallError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrExecutionBudget, err)
		}

		return fmt.Errorf("%w: canceled: %v", ErrExecutionBudget, err)
	}

	return fmt.Errorf("%w: %v", ErrGuestTrap, err)
}
