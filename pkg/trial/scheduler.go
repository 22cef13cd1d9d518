package trial

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Scheduler holds at most one pending reconciliation check per attempt.
// Arming an already-armed attempt replaces the pending check, it never
// stacks a second one. Disarm after the check has started executing is
// allowed; the check itself must then no-op against the attempt state.
type Scheduler struct {
	mu     sync.Mutex
	timers map[uuid.UUID]*time.Timer
	closed bool
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{timers: make(map[uuid.UUID]*time.Timer)}
}

// Arm schedules fn to run once after delay for the given attempt,
// replacing any check already pending for it.
func (s *Scheduler) Arm(attemptID uuid.UUID, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	if timer, ok := s.timers[attemptID]; ok {
		timer.Stop()
	}
	s.timers[attemptID] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, attemptID)
		s.mu.Unlock()
		fn()
	})
}

// Disarm cancels the pending check for the attempt, if any.
func (s *Scheduler) Disarm(attemptID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[attemptID]; ok {
		timer.Stop()
		delete(s.timers, attemptID)
	}
}

// Stop cancels all pending checks and rejects further arming.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}
