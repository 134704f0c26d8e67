/*
errors.go - Centralized error types for the rescue engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The HTTP layer maps these to status codes in a single function.

ERROR CATEGORIES:
  1. Validation errors  - Caller supplied bad or missing input (400)
  2. Lookup errors      - Referenced donor or request does not exist (404)
  3. Authorization      - Caller may not perform the operation (401/403)
  4. Lifecycle errors   - Illegal transition or lost optimistic race (409)
  5. Operation failures - The backing store failed (500)

USAGE:
    if errors.Is(err, rescue.ErrIllegalTransition) {
        var te *rescue.TransitionError
        errors.As(err, &te) // te.From, te.Op
    }

SEE ALSO:
  - lifecycle.go: Produces TransitionError
  - api/handlers.go: writeDomainError maps errors to HTTP
*/
package rescue

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the parent of every ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrDonorNotFound is returned when a referenced donor has no profile.
	ErrDonorNotFound = errors.New("donor not found")

	// ErrPickupNotFound is returned when a referenced pickup request doesn't exist.
	ErrPickupNotFound = errors.New("pickup request not found")

	// ErrDonorExists is returned when creating a second profile for a principal.
	ErrDonorExists = errors.New("donor profile already exists")

	// ErrUnauthenticated is returned when no verified principal is present.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when the caller's role or ownership does not allow the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrIllegalTransition is returned when an operation is not valid from the current status.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrConcurrentModification is returned when optimistic locking detects a conflict.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrOperationFailed is returned when persistence fails.
	ErrOperationFailed = errors.New("operation failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes one rejected input field.
// Message is safe to show to end users.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// TransitionError reports an operation attempted from a status that does not allow it.
type TransitionError struct {
	From Status
	Op   Operation
}

func (e *TransitionError) Error() string {
	if e.From.Terminal() {
		return fmt.Sprintf("cannot %s a %s pickup request: %s is final", e.Op, e.From, e.From)
	}
	return fmt.Sprintf("cannot %s a %s pickup request", e.Op, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrIllegalTransition
}

// OperationError wraps a backend failure. It matches both ErrOperationFailed
// and the underlying cause.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() []error {
	return []error{ErrOperationFailed, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry with fresh state.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrIllegalTransition) ||
		errors.Is(err, ErrDonorExists)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDonorNotFound) ||
		errors.Is(err, ErrPickupNotFound)
}

// wrapStore passes domain errors through and marks anything else as an
// operation failure.
func wrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsClientError(err) || IsNotFound(err) || IsRetryable(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &OperationError{Op: op, Err: err}
}
