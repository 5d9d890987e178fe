package viewcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, ttl), mr, client
}

func TestCache_SetGet(t *testing.T) {
	cache, _, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "/admin")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "/admin", []byte(`{"total_count":1}`)))
	data, ok, err := cache.Get(ctx, "/admin")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"total_count":1}`, string(data))
}

func TestCache_TTLExpires(t *testing.T) {
	cache, mr, _ := newTestCache(t, 30*time.Second)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "/admin", []byte("x")))
	assert.Equal(t, 30*time.Second, mr.TTL("carepulse:view:/admin"))

	mr.FastForward(31 * time.Second)
	_, ok, err := cache.Get(ctx, "/admin")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_InvalidateDeletes(t *testing.T) {
	cache, mr, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "/admin", []byte("x")))
	require.NoError(t, cache.Set(ctx, "/other", []byte("y")))
	require.NoError(t, cache.Invalidate(ctx, "/admin"))

	_, ok, err := cache.Get(ctx, "/admin")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("carepulse:view:/admin"))
	assert.True(t, mr.Exists("carepulse:view:/other"))

	require.NoError(t, cache.Invalidate(ctx, "/missing"))
}

func TestCache_NilIsNoop(t *testing.T) {
	cache := New(nil, time.Minute)
	assert.Nil(t, cache)

	ctx := context.Background()
	_, ok, err := cache.Get(ctx, "/admin")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, cache.Set(ctx, "/admin", []byte("x")))
	assert.NoError(t, cache.Invalidate(ctx, "/admin"))
}

func TestCache_RedisDown(t *testing.T) {
	cache, mr, _ := newTestCache(t, time.Minute)
	mr.Close()

	_, _, err := cache.Get(context.Background(), "/admin")
	assert.Error(t, err)
}
