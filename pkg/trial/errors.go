package trial

import "errors"

var (
	ErrAttemptNotFound = errors.New("subscription attempt not found")

	// ErrMalformedEvent marks a verified event that is missing required
	// fields (no resource id); it never reaches the transition table.
	ErrMalformedEvent = errors.New("malformed webhook event")

	// ErrOrphanEvent marks a verified, parseable event that references no
	// known local attempt. Orphans are dropped, never create attempts.
	ErrOrphanEvent = errors.New("orphan webhook event")

	// ErrTransitionConflict marks a terminal event contradicting an
	// attempt already settled in a different terminal state. The first
	// terminal transition wins; the conflict is logged, never applied.
	ErrTransitionConflict = errors.New("conflicting terminal transition")

	ErrPlanNotFound             = errors.New("trial plan not found")
	ErrFailedToLoadPlans        = errors.New("failed to load trial plans")
	ErrInvalidPlanConfiguration = errors.New("invalid trial plan configuration")
)
