package trial

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sparkmeet/trialkit/pkg/pg"
)

// PGStore is a durable AttemptStore on PostgreSQL. The default for
// multi-instance deployments and the only backend that keeps superseded
// attempts around for audit.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates an attempt store on the given connection pool.
// Panics if pool is nil to fail fast during initialization.
// Expects the trial_attempts table from the bundled migrations.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	if pool == nil {
		panic("trial: postgres pool is required")
	}
	return &PGStore{pool: pool}
}

const attemptColumns = `id, user_id, plan_id, subscription_id, status, approval_url, failure_reason, created_at, last_transition_at`

func (s *PGStore) Get(ctx context.Context, id uuid.UUID) (*Attempt, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM trial_attempts WHERE id = $1`, id)
	return scanAttempt(row)
}

func (s *PGStore) Put(ctx context.Context, attempt *Attempt) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO trial_attempts (`+attemptColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			subscription_id    = EXCLUDED.subscription_id,
			status             = EXCLUDED.status,
			approval_url       = EXCLUDED.approval_url,
			failure_reason     = EXCLUDED.failure_reason,
			last_transition_at = EXCLUDED.last_transition_at`,
		attempt.ID, attempt.UserID, attempt.PlanID, attempt.SubscriptionID,
		string(attempt.Status), attempt.ApprovalURL, attempt.FailureReason,
		attempt.CreatedAt, attempt.LastTransitionAt)
	if err != nil {
		return fmt.Errorf("trial: store attempt: %w", err)
	}
	return nil
}

func (s *PGStore) FindByUser(ctx context.Context, userID string) (*Attempt, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM trial_attempts
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`, userID)
	return scanAttempt(row)
}

func (s *PGStore) FindBySubscription(ctx context.Context, subscriptionID string) (*Attempt, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM trial_attempts
		 WHERE subscription_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`, subscriptionID)
	return scanAttempt(row)
}

func scanAttempt(row pgx.Row) (*Attempt, error) {
	var (
		attempt Attempt
		status  string
	)
	err := row.Scan(&attempt.ID, &attempt.UserID, &attempt.PlanID,
		&attempt.SubscriptionID, &status, &attempt.ApprovalURL,
		&attempt.FailureReason, &attempt.CreatedAt, &attempt.LastTransitionAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("trial: load attempt: %w", err)
	}
	attempt.Status = Status(status)
	return &attempt, nil
}
