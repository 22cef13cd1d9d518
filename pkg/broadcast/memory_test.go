package broadcast_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkmeet/trialkit/pkg/broadcast"
)

func receiveOne[T any](t *testing.T, sub broadcast.Subscriber[T]) broadcast.Message[T] {
	t.Helper()
	select {
	case msg, ok := <-sub.Messages():
		require.True(t, ok, "channel closed before message arrived")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return broadcast.Message[T]{}
	}
}

func TestMemoryHub(t *testing.T) {
	t.Parallel()

	t.Run("delivers to topic subscribers only", func(t *testing.T) {
		t.Parallel()

		hub := broadcast.NewMemoryHub[string](4)
		defer hub.Close()

		ctx := context.Background()
		alice, err := hub.Subscribe(ctx, "user:alice")
		require.NoError(t, err)
		bob, err := hub.Subscribe(ctx, "user:bob")
		require.NoError(t, err)

		require.NoError(t, hub.Publish(ctx, "user:alice", "activated"))

		msg := receiveOne(t, alice)
		assert.Equal(t, "activated", msg.Payload)
		assert.Equal(t, "user:alice", msg.Topic)
		assert.NotEmpty(t, msg.ID)

		select {
		case <-bob.Messages():
			t.Fatal("bob should not receive alice's message")
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("publish without subscribers is not an error", func(t *testing.T) {
		t.Parallel()

		hub := broadcast.NewMemoryHub[string](4)
		defer hub.Close()

		assert.NoError(t, hub.Publish(context.Background(), "user:nobody", "lost"))
	})

	t.Run("no replay for late subscribers", func(t *testing.T) {
		t.Parallel()

		hub := broadcast.NewMemoryHub[string](4)
		defer hub.Close()

		ctx := context.Background()
		require.NoError(t, hub.Publish(ctx, "user:alice", "before-subscribe"))

		sub, err := hub.Subscribe(ctx, "user:alice")
		require.NoError(t, err)

		select {
		case <-sub.Messages():
			t.Fatal("late subscriber must not see earlier messages")
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("slow consumer drops instead of blocking", func(t *testing.T) {
		t.Parallel()

		hub := broadcast.NewMemoryHub[int](1)
		defer hub.Close()

		ctx := context.Background()
		sub, err := hub.Subscribe(ctx, "user:slow", broadcast.WithBufferSize(1))
		require.NoError(t, err)

		require.NoError(t, hub.Publish(ctx, "user:slow", 1))
		// Buffer is full; this publish must return promptly and drop.
		done := make(chan struct{})
		go func() {
			_ = hub.Publish(ctx, "user:slow", 2)
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("publish blocked on a slow consumer")
		}

		msg := receiveOne(t, sub)
		assert.Equal(t, 1, msg.Payload)
	})

	t.Run("context cancellation cleans up subscription", func(t *testing.T) {
		t.Parallel()

		hub := broadcast.NewMemoryHub[string](4)
		defer hub.Close()

		ctx, cancel := context.WithCancel(context.Background())
		_, err := hub.Subscribe(ctx, "user:alice")
		require.NoError(t, err)
		require.Equal(t, 1, hub.SubscriberCount("user:alice"))

		cancel()

		assert.Eventually(t, func() bool {
			return hub.SubscriberCount("user:alice") == 0
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("subscriber close is idempotent", func(t *testing.T) {
		t.Parallel()

		hub := broadcast.NewMemoryHub[string](4)
		defer hub.Close()

		sub, err := hub.Subscribe(context.Background(), "user:alice")
		require.NoError(t, err)
		require.NoError(t, sub.Close())
		require.NoError(t, sub.Close())

		_, ok := <-sub.Messages()
		assert.False(t, ok, "message channel should be closed")
	})

	t.Run("closed hub rejects operations", func(t *testing.T) {
		t.Parallel()

		hub := broadcast.NewMemoryHub[string](4)
		sub, err := hub.Subscribe(context.Background(), "user:alice")
		require.NoError(t, err)

		require.NoError(t, hub.Close())

		_, ok := <-sub.Messages()
		assert.False(t, ok)

		_, err = hub.Subscribe(context.Background(), "user:alice")
		assert.ErrorIs(t, err, broadcast.ErrHubClosed)
		assert.ErrorIs(t, hub.Publish(context.Background(), "user:alice", "x"), broadcast.ErrHubClosed)
		assert.NoError(t, hub.Close())
	})

	t.Run("subscribe racing the last unsubscribe stays reachable", func(t *testing.T) {
		t.Parallel()

		hub := broadcast.NewMemoryHub[string](1)
		defer hub.Close()
		ctx := context.Background()

		// A Close that empties the topic removes it from the registry. A
		// Subscribe landing in that window must still end up on the topic
		// object Publish resolves, never on the removed one.
		for range 1000 {
			old, err := hub.Subscribe(ctx, "user:alice")
			require.NoError(t, err)

			start := make(chan struct{})
			done := make(chan struct{})
			go func() {
				defer close(done)
				<-start
				_ = old.Close()
			}()

			close(start)
			sub, err := hub.Subscribe(ctx, "user:alice")
			require.NoError(t, err)
			<-done

			require.NoError(t, hub.Publish(ctx, "user:alice", "ping"))
			msg := receiveOne(t, sub)
			assert.Equal(t, "ping", msg.Payload)
			require.NoError(t, sub.Close())
		}
	})
}
