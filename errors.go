package ledger

import (
	"errors"
	"fmt"
)

// HaltError signals that the application detected an irrecoverable
// inconsistency and requests an immediate chain halt.
//
// The ledger raises it when the Merkle tree rejects a well-formed
// update: the tree and the denormalized state can no longer be trusted
// to agree, so no further block may be executed on top of them.
type HaltError struct {
	Reason string
	Height uint64
	Err    error
}

func (e *HaltError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HALT at height %d: %s: %v", e.Height, e.Reason, e.Err)
	}
	return fmt.Sprintf("HALT at height %d: %s", e.Height, e.Reason)
}

// Unwrap returns the underlying cause, if any.
func (e *HaltError) Unwrap() error { return e.Err }

// NewHaltError creates a new HaltError.
func NewHaltError(height uint64, reason string) *HaltError {
	return &HaltError{Height: height, Reason: reason}
}

// WrapHalt creates a HaltError caused by err.
func WrapHalt(height uint64, reason string, err error) *HaltError {
	return &HaltError{Height: height, Reason: reason, Err: err}
}

// IsHalt checks whether an error is a HaltError and returns it.
func IsHalt(err error) (*HaltError, bool) {
	var h *HaltError
	if errors.As(err, &h) {
		return h, true
	}
	return nil, false
}
