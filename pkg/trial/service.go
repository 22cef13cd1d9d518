package trial

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sparkmeet/trialkit/pkg/broadcast"
	"github.com/sparkmeet/trialkit/pkg/paypal"
)

// Processor is the surface of the billing processor the service needs.
// *paypal.Client satisfies it.
type Processor interface {
	CreateSubscription(ctx context.Context, userID, planID string) (*paypal.CreatedSubscription, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*paypal.SubscriptionSnapshot, error)
}

// Service reconciles subscription attempts against processor events.
// Authoritative status changes come only from verified webhook events or
// the reconciliation poll; browser redirects never transition state.
type Service interface {
	// Start begins a new attempt for the user, superseding any prior
	// non-terminal one. On success the attempt is in approval_pending
	// and carries the processor's approval URL.
	Start(ctx context.Context, userID, planID string) (*Attempt, error)

	// ApplyEvent feeds a verified webhook event through the transition
	// table. Returns the applied transition, or nil for no-op outcomes
	// (duplicate, stale, unrecognized type). Drops are classified by
	// sentinel: ErrMalformedEvent, ErrOrphanEvent, ErrTransitionConflict.
	ApplyEvent(ctx context.Context, ev Event) (*Transition, error)

	// ApplyPoll feeds a reconciliation poll result through the table:
	// an ACTIVE snapshot activates the attempt, anything else (including
	// a nil snapshot for a vanished subscription) abandons it.
	ApplyPoll(ctx context.Context, attemptID uuid.UUID, snapshot *paypal.SubscriptionSnapshot) (*Transition, error)

	// Current returns the user's latest attempt.
	// Returns ErrAttemptNotFound if the user never started one.
	Current(ctx context.Context, userID string) (*Attempt, error)

	// Plan looks up a catalog plan by application-level id.
	Plan(planID string) (Plan, bool)

	// Close cancels all pending reconciliation checks.
	Close()
}

type service struct {
	plans     map[string]Plan
	processor Processor
	store     AttemptStore
	bus       broadcast.Hub[Transition]
	sched     *Scheduler
	log       *slog.Logger

	pollDelay   time.Duration
	pollTimeout time.Duration
	now         func() time.Time
}

// ServiceOption configures a Service instance.
type ServiceOption func(*service)

// WithPollDelay sets the reconciliation delay armed on a CREATED event.
// Panics on non-positive values to fail fast on misconfiguration.
func WithPollDelay(d time.Duration) ServiceOption {
	return func(s *service) {
		if d <= 0 {
			panic("trial: poll delay must be positive")
		}
		s.pollDelay = d
	}
}

// WithServiceLogger sets the logger. Defaults to slog.Default.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source. Test use only.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service with the given dependencies.
// Panics if required parameters are nil to fail fast during initialization.
func NewService(ctx context.Context, src PlansListSource, processor Processor, store AttemptStore, bus broadcast.Hub[Transition], opts ...ServiceOption) (Service, error) {
	if src == nil {
		panic("trial: PlansListSource is required")
	}
	if processor == nil {
		panic("trial: Processor is required")
	}
	if store == nil {
		panic("trial: AttemptStore is required")
	}
	if bus == nil {
		panic("trial: broadcast hub is required")
	}

	plans, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	if err := validatePlans(plans); err != nil {
		return nil, err
	}

	s := &service{
		plans:       plans,
		processor:   processor,
		store:       store,
		bus:         bus,
		sched:       NewScheduler(),
		log:         slog.Default(),
		pollDelay:   2 * time.Minute,
		pollTimeout: 15 * time.Second,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *service) Start(ctx context.Context, userID, planID string) (*Attempt, error) {
	plan, ok := s.plans[planID]
	if !ok {
		return nil, ErrPlanNotFound
	}

	// A new attempt supersedes any prior non-terminal attempt: its timer
	// is dropped here and its bus messages are ignored downstream by
	// attempt id once the user's current attempt changes.
	if prior, err := s.store.FindByUser(ctx, userID); err == nil {
		if !prior.Status.IsTerminal() && prior.Status != StatusNone {
			s.sched.Disarm(prior.ID)
			s.log.InfoContext(ctx, "superseding subscription attempt",
				"user_id", userID, "attempt_id", prior.ID, "prior_status", prior.Status)
		}
	} else if !errors.Is(err, ErrAttemptNotFound) {
		return nil, err
	}

	now := s.now()
	attempt := &Attempt{
		ID:               uuid.New(),
		UserID:           userID,
		PlanID:           planID,
		Status:           StatusPendingCreation,
		CreatedAt:        now,
		LastTransitionAt: now,
	}
	if err := s.store.Put(ctx, attempt); err != nil {
		return nil, fmt.Errorf("trial: store new attempt: %w", err)
	}

	created, err := s.processor.CreateSubscription(ctx, userID, plan.ProcessorPlanID)
	if err != nil {
		// A processor API failure is a local operational failure, not a
		// processor-reported subscription failure: the attempt is
		// abandoned, never marked failed.
		attempt.Status = StatusNone
		attempt.FailureReason = "subscription creation failed"
		attempt.LastTransitionAt = s.now()
		if putErr := s.store.Put(ctx, attempt); putErr != nil {
			err = errors.Join(err, putErr)
		}
		return nil, err
	}

	attempt.SubscriptionID = created.ID
	attempt.ApprovalURL = created.ApprovalURL
	attempt.Status = StatusApprovalPending
	attempt.LastTransitionAt = s.now()
	if err := s.store.Put(ctx, attempt); err != nil {
		return nil, fmt.Errorf("trial: store created attempt: %w", err)
	}

	s.publish(ctx, attempt, "", nil)
	return attempt, nil
}

// eventTarget maps a webhook event type to the state it drives toward.
func eventTarget(eventType string) (Status, bool) {
	switch eventType {
	case EventSubscriptionCreated:
		return StatusApprovalPending, true
	case EventSubscriptionActivated:
		return StatusActive, true
	case EventSubscriptionCancelled:
		return StatusCancelled, true
	case EventPaymentFailed:
		return StatusFailed, true
	default:
		return "", false
	}
}

func (s *service) ApplyEvent(ctx context.Context, ev Event) (*Transition, error) {
	if ev.ResourceID == "" {
		s.log.WarnContext(ctx, "rejecting malformed webhook event",
			"event_type", ev.Type)
		return nil, ErrMalformedEvent
	}

	target, known := eventTarget(ev.Type)
	if !known {
		s.log.InfoContext(ctx, "ignoring unrecognized event type",
			"event_type", ev.Type, "resource_id", ev.ResourceID)
		return nil, nil
	}

	attempt, err := s.store.FindBySubscription(ctx, ev.ResourceID)
	if err != nil {
		if errors.Is(err, ErrAttemptNotFound) {
			s.log.InfoContext(ctx, "dropping orphan webhook event",
				"event_type", ev.Type, "resource_id", ev.ResourceID)
			return nil, ErrOrphanEvent
		}
		return nil, err
	}

	// Idempotence: re-applying an event whose target the attempt already
	// holds is a no-op, except that a repeated CREATED still re-arms the
	// reconciliation check (re-armed, never stacked).
	if attempt.Status == target {
		if target == StatusApprovalPending {
			s.armReconcile(attempt.ID)
		}
		return nil, nil
	}

	// Sticky terminal rule: the first terminal transition wins. A later
	// event naming a different terminal state is a conflict; anything
	// else arriving after terminal is stale.
	if attempt.Status.IsTerminal() {
		if target.IsTerminal() {
			s.log.WarnContext(ctx, "conflicting terminal event ignored",
				"event_type", ev.Type, "resource_id", ev.ResourceID,
				"attempt_id", attempt.ID, "status", attempt.Status, "target", target)
			return nil, ErrTransitionConflict
		}
		return nil, nil
	}

	// Terminal events transition only out of approval_pending. An event
	// for an abandoned attempt (status none) is stale and ignored.
	if attempt.Status != StatusApprovalPending {
		s.log.InfoContext(ctx, "ignoring event for non-pending attempt",
			"event_type", ev.Type, "attempt_id", attempt.ID, "status", attempt.Status)
		return nil, nil
	}

	if target == StatusApprovalPending {
		// CREATED confirms processor-side creation and (re)starts the
		// reconciliation clock; the state itself is unchanged.
		s.armReconcile(attempt.ID)
		return nil, nil
	}

	attempt.Status = target
	attempt.ApprovalURL = ""
	if target != StatusActive && ev.Reason != "" {
		attempt.FailureReason = ev.Reason
	}
	attempt.LastTransitionAt = s.now()
	if err := s.store.Put(ctx, attempt); err != nil {
		return nil, fmt.Errorf("trial: store transitioned attempt: %w", err)
	}

	s.sched.Disarm(attempt.ID)
	return s.publish(ctx, attempt, ev.Reason, ev.Raw), nil
}

func (s *service) ApplyPoll(ctx context.Context, attemptID uuid.UUID, snapshot *paypal.SubscriptionSnapshot) (*Transition, error) {
	attempt, err := s.store.Get(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	// A webhook may have settled the attempt while the poll was in
	// flight; the sticky-terminal rule makes this poll a no-op.
	if attempt.Status != StatusApprovalPending {
		return nil, nil
	}

	reason := ""
	if snapshot != nil && snapshot.IsActive() {
		attempt.Status = StatusActive
	} else {
		attempt.Status = StatusNone
		reason = "approval window elapsed"
		if snapshot != nil {
			reason = fmt.Sprintf("approval window elapsed (processor status %s)", snapshot.Status)
		}
		attempt.FailureReason = reason
	}
	attempt.ApprovalURL = ""
	attempt.LastTransitionAt = s.now()
	if err := s.store.Put(ctx, attempt); err != nil {
		return nil, fmt.Errorf("trial: store polled attempt: %w", err)
	}

	return s.publish(ctx, attempt, reason, nil), nil
}

func (s *service) Current(ctx context.Context, userID string) (*Attempt, error) {
	return s.store.FindByUser(ctx, userID)
}

func (s *service) Plan(planID string) (Plan, bool) {
	plan, ok := s.plans[planID]
	return plan, ok
}

func (s *service) Close() {
	s.sched.Stop()
}

func (s *service) armReconcile(attemptID uuid.UUID) {
	s.sched.Arm(attemptID, s.pollDelay, func() {
		s.reconcile(attemptID)
	})
}

// reconcile runs when the poll deadline fires without a settling webhook.
func (s *service) reconcile(attemptID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), s.pollTimeout)
	defer cancel()

	attempt, err := s.store.Get(ctx, attemptID)
	if err != nil {
		s.log.ErrorContext(ctx, "reconcile: load attempt", "attempt_id", attemptID, "error", err)
		return
	}
	if attempt.Status != StatusApprovalPending {
		return
	}

	snapshot, err := s.processor.GetSubscription(ctx, attempt.SubscriptionID)
	if err != nil {
		if errors.Is(err, paypal.ErrNotFound) {
			// Subscription vanished processor-side; abandon the attempt.
			snapshot = nil
		} else {
			// Operational failure talking to the processor: no state
			// transition, the attempt stays pending.
			s.log.WarnContext(ctx, "reconcile: poll failed",
				"attempt_id", attemptID, "subscription_id", attempt.SubscriptionID, "error", err)
			return
		}
	}

	if _, err := s.ApplyPoll(ctx, attemptID, snapshot); err != nil {
		s.log.ErrorContext(ctx, "reconcile: apply poll", "attempt_id", attemptID, "error", err)
	}
}

func (s *service) publish(ctx context.Context, attempt *Attempt, reason string, raw json.RawMessage) *Transition {
	t := &Transition{
		AttemptID:      attempt.ID,
		UserID:         attempt.UserID,
		SubscriptionID: attempt.SubscriptionID,
		Status:         attempt.Status,
		Reason:         reason,
		Snapshot:       raw,
		OccurredAt:     attempt.LastTransitionAt,
	}
	if err := s.bus.Publish(ctx, attempt.UserID, *t); err != nil {
		s.log.WarnContext(ctx, "transition publish failed",
			"user_id", attempt.UserID, "attempt_id", attempt.ID, "error", err)
	}
	return t
}
