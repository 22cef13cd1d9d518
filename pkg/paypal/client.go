package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Client talks to the processor's REST API. Safe for concurrent use.
type Client struct {
	baseURL   string
	returnURL string
	cancelURL string
	httpc     *http.Client
	log       *slog.Logger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithLogger supplies a logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithHTTPClient replaces the token-managed HTTP client. Intended for tests
// and custom transports; the caller becomes responsible for authentication.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.httpc = h
		}
	}
}

// NewClient creates a processor client with OAuth2 client-credentials token
// management. Tokens are fetched lazily and refreshed transparently.
func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.Join(ErrAuth, errors.New("client id and secret are required"))
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("paypal: base URL is required")
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     strings.TrimRight(cfg.BaseURL, "/") + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	// The token exchange must observe the same bounded timeout as API calls.
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: timeout})
	httpc := cc.Client(tokenCtx)
	httpc.Timeout = timeout

	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		returnURL: cfg.ReturnURL,
		cancelURL: cfg.CancelURL,
		httpc:     httpc,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CreateSubscription creates a trial subscription for the user and returns
// the processor-assigned id together with the approval URL the user must
// visit. The user id travels in the subscription's custom_id correlation
// field so webhooks can be routed back to the owner.
func (c *Client) CreateSubscription(ctx context.Context, userID, planID string) (*CreatedSubscription, error) {
	reqBody := map[string]any{
		"plan_id":   planID,
		"custom_id": userID,
		"application_context": map[string]any{
			"return_url": c.returnURL,
			"cancel_url": c.cancelURL,
		},
	}

	status, body, err := c.do(ctx, http.MethodPost, "/v1/billing/subscriptions", reqBody)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusCreated || status == http.StatusOK:
		// proceed
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, ErrAuth
	case isPlanRejection(status, body):
		return nil, ErrInvalidPlan
	default:
		return nil, errors.Join(ErrMalformedResponse, fmt.Errorf("unexpected status %d", status))
	}

	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Links  []link `json:"links"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Join(ErrMalformedResponse, err)
	}
	if resp.ID == "" {
		return nil, errors.Join(ErrMalformedResponse, errors.New("response lacks subscription id"))
	}
	href, ok := approvalLink(resp.Links)
	if !ok {
		return nil, errors.Join(ErrMalformedResponse, errors.New("response lacks approve link"))
	}

	c.log.DebugContext(ctx, "subscription created on processor",
		"subscription_id", resp.ID, "plan_id", planID)

	return &CreatedSubscription{ID: resp.ID, ApprovalURL: href}, nil
}

// GetSubscription fetches the processor's current view of a subscription.
// Used by the reconciliation timer when webhooks stall.
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionSnapshot, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/v1/billing/subscriptions/"+subscriptionID, nil)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrAuth
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, errors.Join(ErrMalformedResponse, fmt.Errorf("unexpected status %d", status))
	}

	var resp struct {
		ID         string    `json:"id"`
		Status     string    `json:"status"`
		PlanID     string    `json:"plan_id"`
		CustomID   string    `json:"custom_id"`
		UpdateTime time.Time `json:"status_update_time"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Join(ErrMalformedResponse, err)
	}
	if resp.ID == "" || resp.Status == "" {
		return nil, errors.Join(ErrMalformedResponse, errors.New("response lacks id or status"))
	}

	return &SubscriptionSnapshot{
		ID:         resp.ID,
		Status:     resp.Status,
		PlanID:     resp.PlanID,
		CustomID:   resp.CustomID,
		UpdateTime: resp.UpdateTime,
	}, nil
}

// GetPlan fetches a billing plan. Diagnostic and test use.
func (c *Client) GetPlan(ctx context.Context, planID string) (*PlanSnapshot, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/v1/billing/plans/"+planID, nil)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrAuth
	case http.StatusNotFound:
		return nil, ErrInvalidPlan
	default:
		return nil, errors.Join(ErrMalformedResponse, fmt.Errorf("unexpected status %d", status))
	}

	var resp struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Join(ErrMalformedResponse, err)
	}
	if resp.ID == "" {
		return nil, errors.Join(ErrMalformedResponse, errors.New("response lacks plan id"))
	}

	return &PlanSnapshot{ID: resp.ID, Name: resp.Name, Status: resp.Status}, nil
}

// do executes a request and returns the status code and raw body.
// Transport failures (including timeouts) map to ErrNetwork; token exchange
// rejections map to ErrAuth. Credentials are never logged.
func (c *Client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("paypal: encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("paypal: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			c.log.WarnContext(ctx, "processor token exchange rejected")
			return 0, nil, ErrAuth
		}
		return 0, nil, errors.Join(ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, errors.Join(ErrNetwork, err)
	}

	return resp.StatusCode, body, nil
}

// isPlanRejection inspects a 4xx error payload for the processor's
// plan-not-recognized shapes.
func isPlanRejection(status int, body []byte) bool {
	if status != http.StatusBadRequest && status != http.StatusUnprocessableEntity && status != http.StatusNotFound {
		return false
	}

	var apiErr struct {
		Name    string `json:"name"`
		Details []struct {
			Field string `json:"field"`
			Issue string `json:"issue"`
		} `json:"details"`
	}
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return false
	}
	if apiErr.Name == "RESOURCE_NOT_FOUND" {
		return true
	}
	for _, d := range apiErr.Details {
		if strings.Contains(d.Field, "plan_id") || strings.Contains(d.Issue, "PLAN") {
			return true
		}
	}
	return false
}
