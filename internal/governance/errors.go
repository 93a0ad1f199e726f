package governance

import "errors"

// Sentinel errors returned by governance operations. Callers (the HTTP
// API, the CLI) match these with errors.Is to pick a response; everything
// else is an internal failure.
var (
	// ErrNotFound means no portfolio exists for the member.
	ErrNotFound = errors.New("portfolio not found")

	// ErrInvalidTransition means the portfolio's current status does not
	// permit the requested operation.
	ErrInvalidTransition = errors.New("operation not allowed in current portfolio status")

	// ErrCooldownActive means the member's resubmission cooldown has not
	// yet expired.
	ErrCooldownActive = errors.New("resubmission cooldown is still active")

	// ErrIncompleteContent means the portfolio does not carry enough
	// proof artifacts to be submitted.
	ErrIncompleteContent = errors.New("portfolio content is incomplete")

	// ErrUnauthorized means the caller does not hold a reviewer role.
	ErrUnauthorized = errors.New("caller is not a reviewer")

	// ErrNoPromotionPath means the member's current role has no next rung
	// on the ladder.
	ErrNoPromotionPath = errors.New("no promotion target above current role")
)
