package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/krishimitra/pkg/cache"
)

func TestRedisRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	c, err := cache.Connect(ctx, cache.Options{Addr: mr.Addr(), Prefix: "krishi:"})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "k", map[string]int{"n": 3}, time.Minute))
	assert.True(t, mr.Exists("krishi:k"))

	var got map[string]int
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, 3, got["n"])

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, c.Get(ctx, "k", &got), cache.ErrMiss)

	require.NoError(t, c.Del(ctx, "k", "absent"))
	require.NoError(t, c.Ping(ctx))
}

func TestConnectFailsFast(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := cache.Connect(context.Background(), cache.Options{Addr: addr})
	assert.Error(t, err)
}
