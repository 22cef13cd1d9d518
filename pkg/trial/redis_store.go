package trial

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore is an AttemptStore backed by Redis. Suited for multi-instance
// deployments that can tolerate attempts expiring with the TTL; use the
// Postgres store when attempts must be kept for audit.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithRedisKeyPrefix overrides the default "trial" key prefix.
func WithRedisKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithRedisTTL bounds the lifetime of stored attempts. Zero keeps them
// until explicitly superseded.
func WithRedisTTL(ttl time.Duration) RedisStoreOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

// NewRedisStore creates an attempt store on the given client.
// Panics if client is nil to fail fast during initialization.
func NewRedisStore(client *redis.Client, opts ...RedisStoreOption) *RedisStore {
	if client == nil {
		panic("trial: redis client is required")
	}

	s := &RedisStore{
		client: client,
		prefix: "trial",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) attemptKey(id uuid.UUID) string {
	return fmt.Sprintf("%s:attempt:%s", s.prefix, id)
}

func (s *RedisStore) userKey(userID string) string {
	return fmt.Sprintf("%s:user:%s", s.prefix, userID)
}

func (s *RedisStore) subKey(subscriptionID string) string {
	return fmt.Sprintf("%s:sub:%s", s.prefix, subscriptionID)
}

func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (*Attempt, error) {
	return s.load(ctx, s.attemptKey(id))
}

func (s *RedisStore) Put(ctx context.Context, attempt *Attempt) error {
	payload, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("trial: marshal attempt: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.attemptKey(attempt.ID), payload, s.ttl)
	pipe.Set(ctx, s.userKey(attempt.UserID), attempt.ID.String(), s.ttl)
	if attempt.SubscriptionID != "" {
		pipe.Set(ctx, s.subKey(attempt.SubscriptionID), attempt.ID.String(), s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("trial: store attempt: %w", err)
	}
	return nil
}

func (s *RedisStore) FindByUser(ctx context.Context, userID string) (*Attempt, error) {
	return s.loadIndexed(ctx, s.userKey(userID))
}

func (s *RedisStore) FindBySubscription(ctx context.Context, subscriptionID string) (*Attempt, error) {
	return s.loadIndexed(ctx, s.subKey(subscriptionID))
}

func (s *RedisStore) loadIndexed(ctx context.Context, indexKey string) (*Attempt, error) {
	raw, err := s.client.Get(ctx, indexKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("trial: resolve attempt index: %w", err)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("trial: corrupt attempt index %q: %w", indexKey, err)
	}
	return s.load(ctx, s.attemptKey(id))
}

func (s *RedisStore) load(ctx context.Context, key string) (*Attempt, error) {
	payload, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("trial: load attempt: %w", err)
	}

	var attempt Attempt
	if err := json.Unmarshal(payload, &attempt); err != nil {
		return nil, fmt.Errorf("trial: unmarshal attempt: %w", err)
	}
	return &attempt, nil
}
