package errors

import (
	"errors"
	"fmt"
)

// Error taxonomy for the session subsystem. Store adapters translate
// driver-level failures into these sentinels; callers match with errors.Is.
var (
	// Authentication errors
	ErrAuthFailed      = errors.New("authentication failed")
	ErrInvalidKind     = errors.New("unknown principal kind")
	ErrSessionNotFound = errors.New("session not found")
	ErrMissingToken    = errors.New("missing bearer token")

	// Store errors. Transient I/O failures surface as ErrStoreUnavailable and
	// are never retried at this layer.
	ErrStoreUnavailable = errors.New("store unavailable")

	// Authorization errors (evaluated by downstream collaborators from the
	// identity the gate attaches, not by the gate itself)
	ErrUnauthorized = errors.New("principal kind not permitted")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
