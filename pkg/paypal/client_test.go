package paypal_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkmeet/trialkit/pkg/paypal"
)

func newTestClient(t *testing.T, handler http.Handler) (*paypal.Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := paypal.NewClient(paypal.Config{
		BaseURL:      srv.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		WebhookID:    "WH-1",
		ReturnURL:    "https://app.example.com/billing/return",
		CancelURL:    "https://app.example.com/billing/cancel",
		HTTPTimeout:  2 * time.Second,
	}, paypal.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	return client, srv
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	t.Run("requires credentials", func(t *testing.T) {
		t.Parallel()

		_, err := paypal.NewClient(paypal.Config{BaseURL: "https://api.test"})
		assert.ErrorIs(t, err, paypal.ErrAuth)
	})

	t.Run("requires base url", func(t *testing.T) {
		t.Parallel()

		_, err := paypal.NewClient(paypal.Config{ClientID: "a", ClientSecret: "b"})
		assert.Error(t, err)
	})
}

func TestCreateSubscription(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/v1/billing/subscriptions", r.URL.Path)

			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "P-PLAN", req["plan_id"])
			assert.Equal(t, "user-42", req["custom_id"])

			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":     "SUB-1",
				"status": "APPROVAL_PENDING",
				"links": []map[string]string{
					{"href": "https://processor.test/self", "rel": "self"},
					{"href": "https://processor.test/approve?token=abc", "rel": "approve"},
				},
			})
		}))

		created, err := client.CreateSubscription(context.Background(), "user-42", "P-PLAN")
		require.NoError(t, err)
		assert.Equal(t, "SUB-1", created.ID)
		assert.Equal(t, "https://processor.test/approve?token=abc", created.ApprovalURL)
	})

	t.Run("approve link match is case-sensitive", func(t *testing.T) {
		t.Parallel()

		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id": "SUB-1",
				"links": []map[string]string{
					{"href": "https://processor.test/approve", "rel": "Approve"},
				},
			})
		}))

		_, err := client.CreateSubscription(context.Background(), "user-42", "P-PLAN")
		assert.ErrorIs(t, err, paypal.ErrMalformedResponse)
	})

	t.Run("missing id", func(t *testing.T) {
		t.Parallel()

		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"links": []map[string]string{{"href": "https://processor.test/approve", "rel": "approve"}},
			})
		}))

		_, err := client.CreateSubscription(context.Background(), "user-42", "P-PLAN")
		assert.ErrorIs(t, err, paypal.ErrMalformedResponse)
	})

	t.Run("auth rejection", func(t *testing.T) {
		t.Parallel()

		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))

		_, err := client.CreateSubscription(context.Background(), "user-42", "P-PLAN")
		assert.ErrorIs(t, err, paypal.ErrAuth)
	})

	t.Run("unknown plan", func(t *testing.T) {
		t.Parallel()

		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"name": "UNPROCESSABLE_ENTITY",
				"details": []map[string]string{
					{"field": "/plan_id", "issue": "INVALID_PLAN_ID"},
				},
			})
		}))

		_, err := client.CreateSubscription(context.Background(), "user-42", "P-NOPE")
		assert.ErrorIs(t, err, paypal.ErrInvalidPlan)
	})

	t.Run("network failure", func(t *testing.T) {
		t.Parallel()

		client, srv := newTestClient(t, http.NotFoundHandler())
		srv.Close()

		_, err := client.CreateSubscription(context.Background(), "user-42", "P-PLAN")
		assert.ErrorIs(t, err, paypal.ErrNetwork)
	})

	t.Run("timeout is a network error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(500 * time.Millisecond)
		}))
		t.Cleanup(srv.Close)

		client, err := paypal.NewClient(paypal.Config{
			BaseURL:      srv.URL,
			ClientID:     "id",
			ClientSecret: "secret",
		}, paypal.WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
		require.NoError(t, err)

		_, err = client.CreateSubscription(context.Background(), "user-42", "P-PLAN")
		assert.ErrorIs(t, err, paypal.ErrNetwork)
	})
}

func TestGetSubscription(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/billing/subscriptions/SUB-1", r.URL.Path)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":        "SUB-1",
				"status":    "ACTIVE",
				"plan_id":   "P-PLAN",
				"custom_id": "user-42",
			})
		}))

		snap, err := client.GetSubscription(context.Background(), "SUB-1")
		require.NoError(t, err)
		assert.Equal(t, "SUB-1", snap.ID)
		assert.True(t, snap.IsActive())
		assert.Equal(t, "user-42", snap.CustomID)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))

		_, err := client.GetSubscription(context.Background(), "SUB-GONE")
		assert.ErrorIs(t, err, paypal.ErrNotFound)
	})

	t.Run("missing status is malformed", func(t *testing.T) {
		t.Parallel()

		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "SUB-1"})
		}))

		_, err := client.GetSubscription(context.Background(), "SUB-1")
		assert.ErrorIs(t, err, paypal.ErrMalformedResponse)
	})
}

func TestGetPlan(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/billing/plans/P-PLAN", r.URL.Path)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id": "P-PLAN", "name": "Trial Monthly", "status": "ACTIVE",
			})
		}))

		plan, err := client.GetPlan(context.Background(), "P-PLAN")
		require.NoError(t, err)
		assert.Equal(t, "Trial Monthly", plan.Name)
	})

	t.Run("unknown plan", func(t *testing.T) {
		t.Parallel()

		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))

		_, err := client.GetPlan(context.Background(), "P-NOPE")
		assert.ErrorIs(t, err, paypal.ErrInvalidPlan)
	})
}
