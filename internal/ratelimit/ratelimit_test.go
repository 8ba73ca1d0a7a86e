package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/donare/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, time.Duration(0), RetryAfter(1.5, 2))
	assert.Equal(t, 500*time.Millisecond, RetryAfter(0, 2))
	assert.Equal(t, 250*time.Millisecond, RetryAfter(0.5, 2))
	assert.Equal(t, time.Duration(0), RetryAfter(0, 0))
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 10*time.Second, bucketTTL(2, 10))
	assert.Equal(t, time.Second, bucketTTL(100, 1))
	assert.Equal(t, time.Second, bucketTTL(0, 10))
}

func TestMutationLimiterDisabled(t *testing.T) {
	limiter, err := NewMutationLimiter(config.Config{}, nil, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, limiter.Enabled())

	result, err := limiter.Allow(context.Background(), "donor-1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	cfg := config.Config{RateLimit: config.RateLimitConfig{Enabled: true, MutationRate: 1, MutationBurst: 1}}
	limiter, err = NewMutationLimiter(cfg, nil, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, limiter.Enabled())
}

func TestNilLockerIsInert(t *testing.T) {
	assert.Nil(t, NewLocker(nil))
	var locker *Locker
	lease, ok, err := locker.TryLock(context.Background(), "k", time.Second)
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Nil(t, lease)
	assert.NoError(t, locker.Release(context.Background(), &Lease{key: "k", token: "token"}))
}
