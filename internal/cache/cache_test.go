package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTL(t *testing.T) {
	t.Parallel()

	t.Run("get before expiry", func(t *testing.T) {
		t.Parallel()
		c := NewTTL[int]()
		c.Set("k", 42, time.Minute)
		v, ok := c.Get("k")
		require.True(t, ok)
		assert.Equal(t, 42, v)
	})

	t.Run("expires", func(t *testing.T) {
		t.Parallel()
		c := NewTTL[string]()
		now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
		c.SetNow(func() time.Time { return now })
		c.Set("k", "v", 10*time.Minute)

		now = now.Add(9 * time.Minute)
		_, ok := c.Get("k")
		assert.True(t, ok)

		now = now.Add(2 * time.Minute)
		_, ok = c.Get("k")
		assert.False(t, ok)
	})

	t.Run("miss", func(t *testing.T) {
		t.Parallel()
		c := NewTTL[int]()
		_, ok := c.Get("absent")
		assert.False(t, ok)
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()
		c := NewTTL[int]()
		c.Set("k", 1, time.Minute)
		c.Delete("k")
		_, ok := c.Get("k")
		assert.False(t, ok)
	})

	t.Run("prune", func(t *testing.T) {
		t.Parallel()
		c := NewTTL[int]()
		now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
		c.SetNow(func() time.Time { return now })
		c.Set("live", 1, time.Hour)
		c.Set("dead", 2, time.Minute)

		now = now.Add(30 * time.Minute)
		assert.Equal(t, 1, c.Prune())
		assert.Equal(t, 1, c.Len())
	})
}
