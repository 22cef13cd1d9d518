package trial

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process AttemptStore for single-instance
// deployments and tests. Attempts do not survive a restart; use the
// Postgres or Redis store when restart resilience matters.
type MemoryStore struct {
	mu       sync.RWMutex
	attempts map[uuid.UUID]Attempt
	byUser   map[string]uuid.UUID // latest attempt per user
	bySub    map[string]uuid.UUID
}

// NewMemoryStore creates an empty in-memory attempt store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		attempts: make(map[uuid.UUID]Attempt),
		byUser:   make(map[string]uuid.UUID),
		bySub:    make(map[string]uuid.UUID),
	}
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	attempt, ok := s.attempts[id]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	return &attempt, nil
}

func (s *MemoryStore) Put(ctx context.Context, attempt *Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Stored by value so callers cannot mutate shared state through the
	// pointer they handed in.
	s.attempts[attempt.ID] = *attempt
	s.byUser[attempt.UserID] = attempt.ID
	if attempt.SubscriptionID != "" {
		s.bySub[attempt.SubscriptionID] = attempt.ID
	}
	return nil
}

func (s *MemoryStore) FindByUser(ctx context.Context, userID string) (*Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUser[userID]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	attempt := s.attempts[id]
	return &attempt, nil
}

func (s *MemoryStore) FindBySubscription(ctx context.Context, subscriptionID string) (*Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bySub[subscriptionID]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	attempt := s.attempts[id]
	return &attempt, nil
}
