package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkmeet/trialkit/pkg/cache"
)

func TestLRUCache(t *testing.T) {
	t.Parallel()

	t.Run("get and put", func(t *testing.T) {
		t.Parallel()

		c := cache.NewLRUCache[string, int](2)
		c.Put("a", 1)

		v, ok := c.Get("a")
		require.True(t, ok)
		assert.Equal(t, 1, v)

		_, ok = c.Get("missing")
		assert.False(t, ok)
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		t.Parallel()

		c := cache.NewLRUCache[string, int](2)
		c.Put("a", 1)
		c.Put("b", 2)

		// Touch "a" so "b" becomes the eviction candidate.
		_, ok := c.Get("a")
		require.True(t, ok)

		c.Put("c", 3)

		_, ok = c.Get("b")
		assert.False(t, ok)
		_, ok = c.Get("a")
		assert.True(t, ok)
		_, ok = c.Get("c")
		assert.True(t, ok)
	})

	t.Run("update resets value", func(t *testing.T) {
		t.Parallel()

		c := cache.NewLRUCache[string, int](2)
		c.Put("a", 1)
		c.Put("a", 2)

		v, ok := c.Get("a")
		require.True(t, ok)
		assert.Equal(t, 2, v)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("remove", func(t *testing.T) {
		t.Parallel()

		c := cache.NewLRUCache[string, int](2)
		c.Put("a", 1)

		v, ok := c.Remove("a")
		require.True(t, ok)
		assert.Equal(t, 1, v)

		_, ok = c.Get("a")
		assert.False(t, ok)

		_, ok = c.Remove("a")
		assert.False(t, ok)
	})

	t.Run("clear", func(t *testing.T) {
		t.Parallel()

		c := cache.NewLRUCache[string, int](4)
		c.Put("a", 1)
		c.Put("b", 2)
		c.Clear()
		assert.Equal(t, 0, c.Len())
	})

	t.Run("zero capacity panics", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() { cache.NewLRUCache[string, int](0) })
	})
}

func TestLRUCacheTTL(t *testing.T) {
	t.Parallel()

	c := cache.NewLRUCacheWithTTL[string, int](4, 20*time.Millisecond)
	c.Put("a", 1)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	time.Sleep(40 * time.Millisecond)

	_, ok = c.Get("a")
	assert.False(t, ok, "entry should have expired")

	// A fresh Put resets the expiry window.
	c.Put("a", 2)
	v, ok = c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}
