package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/xboard-presence/internal/cache"
)

func TestRateLimiterAllowsUpToLimit(t *testing.T) {
	limiter, err := NewRateLimiter(cache.NewStore(cache.Options{}), 2, time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := limiter.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, first.Allowed)
	assert.Equal(t, 1, first.Remaining)

	second, err := limiter.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, second.Allowed)
	assert.Equal(t, 0, second.Remaining)

	third, err := limiter.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, third.Allowed)
	assert.True(t, third.ResetAt.After(time.Now()))

	other, err := limiter.Allow(ctx, "user:2")
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	limiter.Reset(ctx, "user:1")
	again, err := limiter.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, again.Allowed)
}

func TestRateLimiterValidates(t *testing.T) {
	_, err := NewRateLimiter(nil, 1, time.Minute)
	require.Error(t, err)
	_, err = NewRateLimiter(cache.NewStore(cache.Options{}), 0, time.Minute)
	require.Error(t, err)
}
