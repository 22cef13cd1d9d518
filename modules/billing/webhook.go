package billing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sparkmeet/trialkit/pkg/paypal"
	"github.com/sparkmeet/trialkit/pkg/trial"
)

// webhookPayload is the subset of the processor's webhook body the flow
// consumes. The raw bytes are verified before this decode ever runs and
// are retained on the event for diagnostics.
type webhookPayload struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		ID               string `json:"id"`
		Status           string `json:"status"`
		CustomID         string `json:"custom_id"`
		StatusChangeNote string `json:"status_change_note"`
	} `json:"resource"`
}

// handleWebhook receives processor notifications. 4xx is reserved for
// verification failures and bodies that cannot be parsed at all; every
// business outcome, including orphans and conflicts, is acknowledged
// with 200 so the processor never retries over outcomes retrying cannot
// fix.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// The signature covers the exact transmitted bytes; read them once
	// and verify before any JSON decode touches a copy.
	raw, err := io.ReadAll(io.LimitReader(r.Body, h.cfg.MaxWebhookBody))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	if err := h.verifier.Verify(ctx, raw, paypal.HeadersFromRequest(r)); err != nil {
		h.log.WarnContext(ctx, "webhook verification failed",
			"remote_addr", r.RemoteAddr, "error", err)
		http.Error(w, "verification failed", http.StatusUnauthorized)
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.log.WarnContext(ctx, "webhook body is not valid JSON", "error", err)
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}

	_, err = h.svc.ApplyEvent(ctx, trial.Event{
		Type:           payload.EventType,
		ResourceID:     payload.Resource.ID,
		UserID:         payload.Resource.CustomID,
		ResourceStatus: payload.Resource.Status,
		Reason:         payload.Resource.StatusChangeNote,
		Raw:            raw,
	})
	switch {
	case err == nil:
	case errors.Is(err, trial.ErrMalformedEvent),
		errors.Is(err, trial.ErrOrphanEvent),
		errors.Is(err, trial.ErrTransitionConflict):
		// Business no-ops, already logged with detail by the service.
	default:
		h.log.ErrorContext(ctx, "webhook event processing failed",
			"event_type", payload.EventType, "resource_id", payload.Resource.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
