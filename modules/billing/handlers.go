package billing

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/sparkmeet/trialkit"
	"github.com/sparkmeet/trialkit/pkg/broadcast"
	"github.com/sparkmeet/trialkit/pkg/paypal"
	"github.com/sparkmeet/trialkit/pkg/trial"
)

// Verifier authenticates raw webhook transmissions. *paypal.Verifier
// satisfies it.
type Verifier interface {
	Verify(ctx context.Context, rawBody []byte, hdr paypal.TransmissionHeaders) error
}

// Handler serves the billing HTTP surface.
type Handler struct {
	cfg      Config
	svc      trial.Service
	hub      broadcast.Hub[trial.Transition]
	verifier Verifier
	log      *slog.Logger

	mu sync.Mutex
	// Pending view-state enrichment from return/cancel redirects, keyed
	// by processor subscription id and consumed on the next stream mount.
	enrichments map[string]enrichment
}

type enrichment struct {
	returnToken string
	message     string
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// NewHandler creates the billing HTTP handler.
// Panics if required dependencies are nil to fail fast during initialization.
func NewHandler(cfg Config, svc trial.Service, hub broadcast.Hub[trial.Transition], verifier Verifier, opts ...HandlerOption) *Handler {
	if svc == nil {
		panic("billing: trial service is required")
	}
	if hub == nil {
		panic("billing: broadcast hub is required")
	}
	if verifier == nil {
		panic("billing: webhook verifier is required")
	}
	if cfg.MaxWebhookBody <= 0 {
		cfg.MaxWebhookBody = 1 << 20
	}
	if cfg.DefaultPlanID == "" {
		cfg.DefaultPlanID = "trial-monthly"
	}
	if cfg.AfterApprovalURL == "" {
		cfg.AfterApprovalURL = "/"
	}
	if cfg.AfterCancelURL == "" {
		cfg.AfterCancelURL = "/"
	}

	h := &Handler{
		cfg:         cfg,
		svc:         svc,
		hub:         hub,
		verifier:    verifier,
		log:         slog.Default(),
		enrichments: make(map[string]enrichment),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router mounts the billing surface:
//
//	POST /webhooks/subscriptions/paypal
//	POST /billing/subscribe
//	GET  /billing/stream
//	GET  /billing/return
//	GET  /billing/cancel
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/webhooks/subscriptions/paypal", h.handleWebhook)
	r.Route("/billing", func(r chi.Router) {
		r.Post("/subscribe", h.handleSubscribe)
		r.Get("/stream", h.handleStream)
		r.Get("/return", h.handleReturn)
		r.Get("/cancel", h.handleCancel)
	})
	return r
}

// userID returns the authenticated user, populated by the upstream
// auth middleware as a header (query fallback for SSE reconnects).
func userID(r *http.Request) string {
	if id := r.Header.Get("X-User-Id"); id != "" {
		return id
	}
	return r.URL.Query().Get("user_id")
}

func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	uid := userID(r)
	if uid == "" {
		http.Error(w, "missing user", http.StatusUnauthorized)
		return
	}
	planID := r.FormValue("plan")
	if planID == "" {
		planID = h.cfg.DefaultPlanID
	}

	if !trialkit.IsDataStar(r) {
		attempt, err := h.svc.Start(ctx, uid, planID)
		if err != nil {
			h.subscribeError(w, uid, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"attempt_id":   attempt.ID.String(),
			"approval_url": attempt.ApprovalURL,
		})
		return
	}

	// Datastar flow: show the optimistic transferring state, then hand
	// the browser to the processor's approval page.
	sse := trialkit.NewDataStarSSE(w, r)
	p := NewPresenter(nil)
	h.patch(sse, p.BeginTransfer())

	attempt, err := h.svc.Start(ctx, uid, planID)
	if err != nil {
		h.log.ErrorContext(ctx, "subscription start failed", "user_id", uid, "error", err)
		h.patch(sse, p.FailLocal(userMessage(err)))
		return
	}

	h.patch(sse, p.Track(attempt))
	if err := sse.Redirect(attempt.ApprovalURL); err != nil {
		h.log.WarnContext(ctx, "approval redirect failed", "user_id", uid, "error", err)
	}
}

func (h *Handler) subscribeError(w http.ResponseWriter, uid string, err error) {
	h.log.Error("subscription start failed", "user_id", uid, "error", err)

	code := http.StatusBadGateway
	if errors.Is(err, trial.ErrPlanNotFound) || errors.Is(err, paypal.ErrInvalidPlan) {
		code = http.StatusBadRequest
	}
	http.Error(w, userMessage(err), code)
}

// userMessage maps creation failures to user-visible copy. Processor
// API errors never mark the attempt failed; they surface here with a
// retry affordance instead.
func userMessage(err error) string {
	switch {
	case errors.Is(err, trial.ErrPlanNotFound), errors.Is(err, paypal.ErrInvalidPlan):
		return "That plan is not available."
	case errors.Is(err, paypal.ErrNetwork):
		return "Could not reach the billing provider. Please try again."
	default:
		return "Something went wrong starting your trial. Please try again."
	}
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	uid := userID(r)
	if uid == "" {
		http.Error(w, "missing user", http.StatusUnauthorized)
		return
	}

	// Seed from the real current status before opening the stream; a
	// refresh mid-flow must not reset the view to "none".
	attempt, err := h.svc.Current(ctx, uid)
	if err != nil && !errors.Is(err, trial.ErrAttemptNotFound) {
		h.log.ErrorContext(ctx, "loading current attempt failed", "user_id", uid, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	sub, err := h.hub.Subscribe(ctx, uid)
	if err != nil {
		http.Error(w, "stream unavailable", http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	presenter := NewPresenter(attempt)
	if attempt != nil {
		if e, ok := h.takeEnrichment(attempt.SubscriptionID); ok {
			presenter.EnrichReturn(attempt.SubscriptionID, e.returnToken)
			if e.message != "" {
				presenter.Note(e.message)
			}
		}
	}

	sse := trialkit.NewDataStarSSE(w, r)
	if err := h.patch(sse, presenter.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Messages():
			if !ok {
				return
			}
			if signals, changed := presenter.Merge(msg.Payload); changed {
				if err := h.patch(sse, signals); err != nil {
					return
				}
			}
		}
	}
}

// handleReturn receives the processor's post-approval browser redirect.
// Enrichment only: the authoritative transition to active arrives via
// webhook or the reconciliation poll, never from a URL a user agent
// controls.
func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	subscriptionID := q.Get("subscription_id")
	token := q.Get("token")
	if token == "" {
		token = q.Get("ba_token")
	}

	h.log.InfoContext(r.Context(), "approval return redirect",
		"subscription_id", subscriptionID)

	if subscriptionID != "" {
		h.storeEnrichment(subscriptionID, enrichment{returnToken: token})
	}
	http.Redirect(w, r, h.cfg.AfterApprovalURL, http.StatusSeeOther)
}

// handleCancel receives the redirect fired when the user abandons the
// approval page. The attempt stays approval_pending; the reconciliation
// poll settles it if no webhook ever arrives.
func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	subscriptionID := r.URL.Query().Get("subscription_id")

	h.log.InfoContext(r.Context(), "approval cancel redirect",
		"subscription_id", subscriptionID)

	if subscriptionID != "" {
		h.storeEnrichment(subscriptionID, enrichment{message: "Subscription approval was cancelled."})
	}
	http.Redirect(w, r, h.cfg.AfterCancelURL, http.StatusSeeOther)
}

func (h *Handler) patch(sse *datastar.ServerSentEventGenerator, signals Signals) error {
	data, err := json.Marshal(signals)
	if err != nil {
		return err
	}
	return sse.PatchSignals(data)
}

func (h *Handler) storeEnrichment(subscriptionID string, e enrichment) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.enrichments[subscriptionID] = e
}

func (h *Handler) takeEnrichment(subscriptionID string) (enrichment, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e, ok := h.enrichments[subscriptionID]
	if ok {
		delete(h.enrichments, subscriptionID)
	}
	return e, ok
}
