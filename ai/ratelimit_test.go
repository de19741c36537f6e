package ai

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterAllowsWithinBudget(t *testing.T) {
	l := NewSlidingWindowLimiter()

	for i := 0; i < 5; i++ {
		assert.NoError(t, l.Check("user-1", "model-a", 5))
	}
}

func TestLimiterRejectsWhenExhausted(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewSlidingWindowLimiter()
	l.now = func() time.Time { return now }

	require.NoError(t, l.Check("user-1", "model-a", 2))
	now = now.Add(10 * time.Second)
	require.NoError(t, l.Check("user-1", "model-a", 2))
	now = now.Add(10 * time.Second)

	err := l.Check("user-1", "model-a", 2)
	var rateLimit *RateLimitError
	require.ErrorAs(t, err, &rateLimit)
	assert.Equal(t, "model-a", rateLimit.Model)
	assert.Equal(t, 2, rateLimit.Limit)
	// Oldest request was 20s ago, so the window frees up in 40s.
	assert.Equal(t, 40*time.Second, rateLimit.ResetIn)
}

func TestLimiterWindowSlides(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewSlidingWindowLimiter()
	l.now = func() time.Time { return now }

	require.NoError(t, l.Check("user-1", "model-a", 1))
	require.Error(t, l.Check("user-1", "model-a", 1))

	now = now.Add(61 * time.Second)
	assert.NoError(t, l.Check("user-1", "model-a", 1))
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l := NewSlidingWindowLimiter()

	require.NoError(t, l.Check("user-1", "model-a", 1))
	assert.Error(t, l.Check("user-1", "model-a", 1))

	// Different user, different model: separate budgets.
	assert.NoError(t, l.Check("user-2", "model-a", 1))
	assert.NoError(t, l.Check("user-1", "model-b", 1))
}

func TestLimiterUnlimitedWhenZero(t *testing.T) {
	l := NewSlidingWindowLimiter()
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Check("user-1", "model-a", 0))
	}
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(&RateLimitError{Model: "m", Limit: 1, ResetIn: time.Second}))
	assert.False(t, IsTransient(&QuotaExceededError{Provider: "p", Err: errors.New("out")}))
	assert.False(t, IsTransient(&AuthError{Provider: "p", Err: errors.New("bad key")}))
	assert.False(t, IsTransient(&SafetyBlockError{Provider: "p", Reason: "harm"}))
	assert.True(t, IsTransient(&ServiceUnavailableError{Provider: "p", Err: errors.New("503")}))
	assert.True(t, IsTransient(errors.New("connection reset")))
}
