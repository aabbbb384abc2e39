// Package core defines the ports of the synchronization core: the
// contracts it consumes (source adapters, destination, repository),
// the raw payload shapes crossing them and the error taxonomy the
// orchestration logic dispatches on.
package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by repository reads with no matching row.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned on insert-if-absent conflicts. Callers
	// treat it as a no-op success.
	ErrDuplicate = errors.New("duplicate")

	// ErrUnsupported is returned by adapter capabilities a provider
	// does not implement.
	ErrUnsupported = errors.New("unsupported by provider")

	// ErrNoDestination signals that delivery was attempted with no
	// destination configured; the sample is buffered instead.
	ErrNoDestination = errors.New("destination not configured")
)

// TransientError marks a network-level failure (connection reset, DNS,
// timeout) that the orchestrator retries with a fixed delay. The
// provider distinction is erased on purpose: every upstream's
// transport hiccups are handled the same way.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError.
func Transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
