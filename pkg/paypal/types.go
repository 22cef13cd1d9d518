package paypal

import "time"

// Processor-side subscription statuses as they appear on the wire.
const (
	StatusApprovalPending = "APPROVAL_PENDING"
	StatusApproved        = "APPROVED"
	StatusActive          = "ACTIVE"
	StatusSuspended       = "SUSPENDED"
	StatusCancelled       = "CANCELLED"
	StatusExpired         = "EXPIRED"
)

// CreatedSubscription is the result of creating a subscription: the
// processor-assigned id and the approval URL the user must visit.
type CreatedSubscription struct {
	ID          string
	ApprovalURL string
}

// SubscriptionSnapshot is the processor's current view of a subscription,
// used by the reconciliation fallback poll.
type SubscriptionSnapshot struct {
	ID         string
	Status     string
	PlanID     string
	CustomID   string // correlation field carrying the owning user's id
	UpdateTime time.Time
}

// IsActive reports whether the processor considers the subscription active.
func (s SubscriptionSnapshot) IsActive() bool {
	return s.Status == StatusActive
}

// PlanSnapshot is the processor's view of a billing plan. Diagnostic use.
type PlanSnapshot struct {
	ID     string
	Name   string
	Status string
}

// link is the processor's HATEOAS link relation.
type link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

// approvalLink returns the href whose rel is exactly "approve".
// The match is case-sensitive; the processor documents the relation in
// lowercase and anything else is treated as absent.
func approvalLink(links []link) (string, bool) {
	for _, l := range links {
		if l.Rel == "approve" {
			return l.Href, true
		}
	}
	return "", false
}
