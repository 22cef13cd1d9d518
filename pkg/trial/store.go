package trial

import (
	"context"

	"github.com/google/uuid"
)

// AttemptStore defines the interface for attempt persistence. Webhooks
// route by the processor's subscription id and the presenter reads by
// user id, so both lookups are part of the contract.
type AttemptStore interface {
	// Get retrieves an attempt by its id.
	// Returns ErrAttemptNotFound if no attempt exists.
	Get(ctx context.Context, id uuid.UUID) (*Attempt, error)

	// Put creates or updates an attempt, keyed by Attempt.ID.
	Put(ctx context.Context, attempt *Attempt) error

	// FindByUser returns the user's most recently created attempt.
	// Returns ErrAttemptNotFound if the user has none.
	FindByUser(ctx context.Context, userID string) (*Attempt, error)

	// FindBySubscription returns the attempt holding the given processor
	// subscription id. Returns ErrAttemptNotFound if none matches.
	FindBySubscription(ctx context.Context, subscriptionID string) (*Attempt, error)
}
