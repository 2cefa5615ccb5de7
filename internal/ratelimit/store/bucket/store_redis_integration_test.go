//go:build integration

package bucket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arisan/pkg/testutil/containers"
)

func TestRedisStore(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	s := NewRedis(rc.Client)

	for i := range 2 {
		res, err := s.Allow(ctx, "rl:test", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 1-i, res.Remaining)
	}

	res, err := s.Allow(ctx, "rl:test", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.GreaterOrEqual(t, res.RetryAfter, 1)

	ttl, err := rc.Client.PTTL(ctx, "rl:test").Result()
	require.NoError(t, err)
	assert.Positive(t, ttl, "window keys expire on their own")

	require.NoError(t, s.Reset(ctx, "rl:test"))
	res, err = s.Allow(ctx, "rl:test", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
