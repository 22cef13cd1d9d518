package billing

import (
	"sync"

	"github.com/google/uuid"

	"github.com/sparkmeet/trialkit/pkg/trial"
)

// View names the screen variant the front-end should show. Views map
// 1:1 to attempt states plus two UI-only sub-states: "transferring"
// while the user is being handed to the processor, and "error" when
// creating the subscription failed locally (distinct from an attempt
// the processor itself reported as failed).
type View string

const (
	ViewNone            View = "none"
	ViewTransferring    View = "transferring"
	ViewApprovalPending View = "approval_pending"
	ViewActive          View = "active"
	ViewCancelled       View = "cancelled"
	ViewFailed          View = "failed"
	ViewError           View = "error"
)

// Signals is the view-state patched into the page as datastar signals.
type Signals struct {
	View           View   `json:"view"`
	AttemptID      string `json:"attemptId,omitempty"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
	ApprovalURL    string `json:"approvalUrl,omitempty"`
	Message        string `json:"message,omitempty"`
	ReturnToken    string `json:"returnToken,omitempty"`
}

// Presenter holds one session's view of the user's subscription flow.
// Bus transitions arrive asynchronously and possibly out of order, so
// merges are idempotent: terminal views win, and messages for attempts
// other than the tracked one are ignored unless they announce a newer
// attempt superseding it.
type Presenter struct {
	mu        sync.Mutex
	attemptID uuid.UUID
	signals   Signals
}

// NewPresenter seeds a presenter from the user's current attempt, which
// may be nil when the user never started one. The seed never assumes
// "none": a browser refresh mid-flow must land back on the real state.
func NewPresenter(attempt *trial.Attempt) *Presenter {
	p := &Presenter{signals: Signals{View: ViewNone}}
	if attempt != nil {
		p.attemptID = attempt.ID
		p.signals = Signals{
			View:           viewFor(attempt.Status),
			AttemptID:      attempt.ID.String(),
			SubscriptionID: attempt.SubscriptionID,
			ApprovalURL:    attempt.ApprovalURL,
			Message:        attempt.FailureReason,
		}
	}
	return p
}

func viewFor(status trial.Status) View {
	switch status {
	case trial.StatusPendingCreation:
		return ViewTransferring
	case trial.StatusApprovalPending:
		return ViewApprovalPending
	case trial.StatusActive:
		return ViewActive
	case trial.StatusCancelled:
		return ViewCancelled
	case trial.StatusFailed:
		return ViewFailed
	default:
		return ViewNone
	}
}

// Snapshot returns the current view-state.
func (p *Presenter) Snapshot() Signals {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signals
}

// Merge folds a bus transition into the view-state. The second return
// is false when the message was ignored (stale attempt, already at or
// past the received state).
func (p *Presenter) Merge(t trial.Transition) (Signals, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t.AttemptID != p.attemptID {
		// An approval_pending transition for an unknown attempt means a
		// new attempt superseded the tracked one (e.g. another tab);
		// adopt it. Anything else is a stale message for a superseded
		// attempt.
		if t.Status != trial.StatusApprovalPending && p.attemptID != uuid.Nil {
			return p.signals, false
		}
	}

	next := viewFor(t.Status)
	if t.AttemptID == p.attemptID {
		if p.signals.View == next {
			return p.signals, false
		}
		// Terminal views win: a late non-terminal message never walks
		// the session backwards.
		if isTerminalView(p.signals.View) {
			return p.signals, false
		}
	}

	p.attemptID = t.AttemptID
	p.signals = Signals{
		View:           next,
		AttemptID:      t.AttemptID.String(),
		SubscriptionID: t.SubscriptionID,
		Message:        t.Reason,
	}
	return p.signals, true
}

func isTerminalView(v View) bool {
	return v == ViewActive || v == ViewCancelled || v == ViewFailed
}

// BeginTransfer enters the optimistic UI-only transferring sub-state
// when the user clicks subscribe; cleared by the external redirect or
// by FailLocal.
func (p *Presenter) BeginTransfer() Signals {
	p.mu.Lock()
	defer p.mu.Unlock()

	if isTerminalView(p.signals.View) {
		return p.signals
	}
	p.signals = Signals{View: ViewTransferring, AttemptID: p.signals.AttemptID}
	return p.signals
}

// Track points the presenter at a freshly started attempt.
func (p *Presenter) Track(attempt *trial.Attempt) Signals {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.attemptID = attempt.ID
	p.signals = Signals{
		View:           viewFor(attempt.Status),
		AttemptID:      attempt.ID.String(),
		SubscriptionID: attempt.SubscriptionID,
		ApprovalURL:    attempt.ApprovalURL,
	}
	return p.signals
}

// FailLocal records a processor API failure during creation as the UI
// "error" sub-state. The attempt status itself is untouched; a network
// error talking to the processor is not a processor-reported failure.
func (p *Presenter) FailLocal(message string) Signals {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.signals = Signals{View: ViewError, AttemptID: p.signals.AttemptID, Message: message}
	return p.signals
}

// Note attaches an informational message to the current view-state
// without changing the view.
func (p *Presenter) Note(message string) Signals {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.signals.Message = message
	return p.signals
}

// EnrichReturn folds the processor's return-redirect query parameters
// into the view-state. Enrichment only: the authoritative transition to
// active still arrives via webhook or poll.
func (p *Presenter) EnrichReturn(subscriptionID, token string) Signals {
	p.mu.Lock()
	defer p.mu.Unlock()

	if subscriptionID != "" && p.signals.SubscriptionID == "" {
		p.signals.SubscriptionID = subscriptionID
	}
	p.signals.ReturnToken = token
	return p.signals
}
