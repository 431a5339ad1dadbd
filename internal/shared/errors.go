package shared

import "errors"

// Error kinds returned by the domain services. Handlers map these onto HTTP
// statuses; callers branch with errors.Is. Only ErrConflict is safe to retry
// after reloading state.
var (
	// ErrValidation indicates bad or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates a missing record.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState indicates an illegal status transition.
	ErrInvalidState = errors.New("invalid state transition")
	// ErrOverReceipt indicates a receipt exceeding the outstanding ordered qty.
	ErrOverReceipt = errors.New("received quantity exceeds ordered quantity")
	// ErrInsufficientStock indicates FIFO consumption exceeding open layers.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrConflict indicates an optimistic concurrency failure.
	ErrConflict = errors.New("concurrent modification detected")
	// ErrUnauthorized indicates missing or bad credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates an authenticated user lacking permission.
	ErrForbidden = errors.New("forbidden")
)
