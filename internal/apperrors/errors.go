package apperrors

import "errors"

// Sentinel errors shared by the offer store, lifecycle service and HTTP layer.
// Callers distinguish them with errors.Is.
var (
	// ErrConflict covers both the pending-offer uniqueness violation and a
	// failed compare-and-swap status update (stored status no longer matches).
	ErrConflict = errors.New("conflict")

	// ErrNotFound is returned when no row exists for the given identifier.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the acting user does not own the
	// resource or lacks the role the operation requires.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidTransition signals a state-machine violation or a payment
	// status regression. Never retried; indicates a caller bug or stale state.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrGatewayUnavailable means the payment gateway could not be reached or
	// answered with a server error. Retryable by the caller.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrGatewayRejected means the gateway refused the capture. Terminal.
	ErrGatewayRejected = errors.New("payment gateway rejected capture")
)
