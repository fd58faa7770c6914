package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAllow(t *testing.T) {
	ctx := context.Background()

	t.Run("allows up to the limit", func(t *testing.T) {
		limiter := NewMemory(3, time.Hour)
		for i := 0; i < 3; i++ {
			ok, err := limiter.Allow(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok, "attempt %d", i)
		}
		ok, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("keys are independent", func(t *testing.T) {
		limiter := NewMemory(1, time.Hour)
		ok, _ := limiter.Allow(ctx, "a")
		assert.True(t, ok)
		ok, _ = limiter.Allow(ctx, "b")
		assert.True(t, ok)
		ok, _ = limiter.Allow(ctx, "a")
		assert.False(t, ok)
	})

	t.Run("window slides", func(t *testing.T) {
		now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		limiter := NewMemory(2, time.Hour)
		limiter.now = func() time.Time { return now }

		ok, _ := limiter.Allow(ctx, "k")
		assert.True(t, ok)
		ok, _ = limiter.Allow(ctx, "k")
		assert.True(t, ok)
		ok, _ = limiter.Allow(ctx, "k")
		assert.False(t, ok)

		// One attempt falls out of the window; one slot opens.
		now = now.Add(61 * time.Minute)
		ok, _ = limiter.Allow(ctx, "k")
		assert.True(t, ok)
		ok, _ = limiter.Allow(ctx, "k")
		assert.False(t, ok)
	})

	t.Run("rejected attempts consume no quota", func(t *testing.T) {
		now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		limiter := NewMemory(1, time.Hour)
		limiter.now = func() time.Time { return now }

		ok, _ := limiter.Allow(ctx, "k")
		assert.True(t, ok)

		// Hammering while limited must not extend the lockout.
		for i := 0; i < 10; i++ {
			now = now.Add(time.Minute)
			ok, _ = limiter.Allow(ctx, "k")
			assert.False(t, ok)
		}

		// One hour after the single allowed attempt, the key is free.
		now = now.Add(51 * time.Minute)
		ok, _ = limiter.Allow(ctx, "k")
		assert.True(t, ok)
	})
}
