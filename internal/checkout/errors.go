package checkout

import "github.com/iliamunaev/checkout-pipeline/internal/apperr"

var (
	// ErrTokenization wraps errors reported by the token provider.
	ErrTokenization = apperr.New("tokenization_failed", "tokenization failed")
	// ErrChargeDeclined is recorded when the charge service reports false.
	ErrChargeDeclined = apperr.New("charge_declined", "charge declined")
	// ErrContractViolation is raised when a collaborator breaks its contract.
	ErrContractViolation = apperr.New("contract_violation", "collaborator contract violation")
	// ErrStaleCallback marks a collaborator result that arrived for a finished attempt.
	ErrStaleCallback = apperr.New("stale_callback", "stale callback")
	// ErrInvalidTransition is returned when an event is not allowed in the current phase.
	ErrInvalidTransition = apperr.New("invalid_transition", "invalid checkout transition")
	// ErrNilResult is returned when no result callback is supplied.
	ErrNilResult = apperr.New("bad_request", "nil result callback")
	// ErrClosed is returned once the machine has been closed.
	ErrClosed = apperr.New("closed", "checkout machine closed")
)
