package host

import "errors"

// Boundary error taxonomy. Every failure surfaced to a caller wraps exactly
// one of these sentinels (or a pkg/wire codec error) so callers can inspect
// the kind with errors.Is. None are silently recovered.
var (
	// ErrLoad covers malformed or unsupported binaries and missing required
	// exports discovered at load time.
	ErrLoad = errors.New("module load failed")

	// ErrUnknownSignature is returned when a function has no discoverable
	// signature metadata.
	ErrUnknownSignature = errors.New("unknown function")

	// ErrSignatureMismatch is returned when supplied argument kinds or count
	// differ positionally from the declared signature.
	ErrSignatureMismatch = errors.New("signature mismatch")

	// ErrAllocationFailed is returned when the guest has no allocator export
	// or its allocator returns a null region.
	ErrAllocationFailed = errors.New("guest allocation failed")

	// ErrOutOfBounds is returned when a memory region extends past the
	// guest's current linear memory.
	ErrOutOfBounds = errors.New("region out of bounds")

	// ErrGuestTrap is returned when the guest faults during execution. The
	// instance is unsafe to reuse afterwards.
	ErrGuestTrap = errors.New("guest trap")

	// ErrExecutionBudget is returned when the invocation was pre-empted by
	// the host-imposed execution budget.
	ErrExecutionBudget = errors.New("execution budget exceeded")
)
