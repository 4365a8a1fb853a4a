package generator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCostLimiter(t *testing.T) {
	t.Run("allows requests within budget", func(t *testing.T) {
		limiter := NewCostLimiter(10.0)

		assert.True(t, limiter.AllowRequest(5.0))
		assert.Equal(t, 5.0, limiter.Spent())
		assert.Equal(t, 5.0, limiter.Remaining())

		assert.True(t, limiter.AllowRequest(3.0))
		assert.Equal(t, 8.0, limiter.Spent())
	})

	t.Run("denies requests exceeding budget", func(t *testing.T) {
		limiter := NewCostLimiter(10.0)
		limiter.AllowRequest(9.0)

		assert.False(t, limiter.AllowRequest(2.0))
		assert.Equal(t, 9.0, limiter.Spent(), "spending should not increase when denied")
	})

	t.Run("allows request exactly at budget", func(t *testing.T) {
		limiter := NewCostLimiter(10.0)

		assert.True(t, limiter.AllowRequest(10.0))
		assert.Equal(t, 0.0, limiter.Remaining())
		assert.False(t, limiter.AllowRequest(0.01))
	})

	t.Run("resets on a new UTC day", func(t *testing.T) {
		now := time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC)
		limiter := NewCostLimiter(1.0)
		limiter.now = func() time.Time { return now }

		assert.True(t, limiter.AllowRequest(1.0))
		assert.False(t, limiter.AllowRequest(0.5))

		now = now.Add(2 * time.Minute)
		assert.Equal(t, 0.0, limiter.Spent())
		assert.True(t, limiter.AllowRequest(0.5))
	})
}

func TestEstimateTokenCost(t *testing.T) {
	assert.InDelta(t, 0.15, EstimateTokenCost(1_000_000, 0), 1e-9)
	assert.InDelta(t, 0.60, EstimateTokenCost(0, 1_000_000), 1e-9)
	assert.InDelta(t, 0.000135, EstimateTokenCost(100, 200), 1e-9)
}
