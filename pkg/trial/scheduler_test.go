package trial_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/sparkmeet/trialkit/pkg/trial"
)

func TestScheduler(t *testing.T) {
	t.Parallel()

	t.Run("fires once after delay", func(t *testing.T) {
		t.Parallel()

		sched := trial.NewScheduler()
		defer sched.Stop()

		var fired atomic.Int32
		sched.Arm(uuid.New(), 20*time.Millisecond, func() { fired.Add(1) })

		assert.Eventually(t, func() bool { return fired.Load() == 1 },
			time.Second, 5*time.Millisecond)

		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, int32(1), fired.Load())
	})

	t.Run("re-arm replaces pending check", func(t *testing.T) {
		t.Parallel()

		sched := trial.NewScheduler()
		defer sched.Stop()

		id := uuid.New()
		var first, second atomic.Int32
		sched.Arm(id, 30*time.Millisecond, func() { first.Add(1) })
		sched.Arm(id, 30*time.Millisecond, func() { second.Add(1) })

		assert.Eventually(t, func() bool { return second.Load() == 1 },
			time.Second, 5*time.Millisecond)
		assert.Equal(t, int32(0), first.Load())
	})

	t.Run("disarm cancels", func(t *testing.T) {
		t.Parallel()

		sched := trial.NewScheduler()
		defer sched.Stop()

		id := uuid.New()
		var fired atomic.Int32
		sched.Arm(id, 30*time.Millisecond, func() { fired.Add(1) })
		sched.Disarm(id)

		time.Sleep(80 * time.Millisecond)
		assert.Equal(t, int32(0), fired.Load())
	})

	t.Run("disarm of unknown attempt is a no-op", func(t *testing.T) {
		t.Parallel()

		sched := trial.NewScheduler()
		defer sched.Stop()

		sched.Disarm(uuid.New())
	})

	t.Run("stop cancels all and rejects arming", func(t *testing.T) {
		t.Parallel()

		sched := trial.NewScheduler()

		var fired atomic.Int32
		sched.Arm(uuid.New(), 30*time.Millisecond, func() { fired.Add(1) })
		sched.Stop()
		sched.Arm(uuid.New(), time.Millisecond, func() { fired.Add(1) })

		time.Sleep(80 * time.Millisecond)
		assert.Equal(t, int32(0), fired.Load())
	})
}
