package trial

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a subscription attempt.
type Status string

const (
	// StatusNone means no live attempt exists for the user. An abandoned
	// attempt (approval window elapsed without activation) reverts here.
	StatusNone Status = "none"
	// StatusPendingCreation is the short window between asking the
	// processor for a subscription and receiving its approval link.
	StatusPendingCreation Status = "pending_creation"
	// StatusApprovalPending means the processor created the subscription
	// and the user must visit the approval URL to confirm it.
	StatusApprovalPending Status = "approval_pending"
	StatusActive          Status = "active"
	StatusCancelled       Status = "cancelled"
	StatusFailed          Status = "failed"
)

// IsTerminal reports whether the status is final for its attempt.
// Terminal statuses are sticky: once reached, later events never change
// the attempt; contradictory terminal events are logged as conflicts.
func (s Status) IsTerminal() bool {
	return s == StatusActive || s == StatusCancelled || s == StatusFailed
}

// Attempt is one user's effort to establish a trial subscription.
// A user has at most one live (non-terminal) attempt at a time; a new
// attempt supersedes, never merges with, any prior non-terminal one.
type Attempt struct {
	ID               uuid.UUID
	UserID           string
	PlanID           string
	SubscriptionID   string // processor's subscription id, set on creation
	Status           Status
	ApprovalURL      string // cleared once the attempt leaves approval_pending
	FailureReason    string
	CreatedAt        time.Time
	LastTransitionAt time.Time
}

// IsActive returns true if the attempt reached the active terminal state.
func (a *Attempt) IsActive() bool {
	return a.Status == StatusActive
}

// Webhook event types delivered by the processor.
const (
	EventSubscriptionCreated   = "BILLING.SUBSCRIPTION.CREATED"
	EventSubscriptionActivated = "BILLING.SUBSCRIPTION.ACTIVATED"
	EventSubscriptionCancelled = "BILLING.SUBSCRIPTION.CANCELLED"
	EventPaymentFailed         = "PAYMENT.FAILED"
)

// Event is a verified, parsed webhook notification. ResourceID is the
// processor's subscription id and is the routing key back to the attempt;
// an event without it is malformed and never reaches the transition table.
type Event struct {
	Type           string
	ResourceID     string
	UserID         string // correlation field set at creation time
	ResourceStatus string // processor's own status string, informational
	Reason         string
	Raw            json.RawMessage // retained for failure diagnostics
}

// Transition is the payload published to the owning user's bus topic
// whenever an attempt changes state.
type Transition struct {
	AttemptID      uuid.UUID       `json:"attempt_id"`
	UserID         string          `json:"user_id"`
	SubscriptionID string          `json:"subscription_id,omitempty"`
	Status         Status          `json:"status"`
	Reason         string          `json:"reason,omitempty"`
	Snapshot       json.RawMessage `json:"snapshot,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}
