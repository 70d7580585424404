package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr, client
}

func TestCacheBuildKeyAndBump(t *testing.T) {
	cache, _, _ := newTestCache(t)
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "analytics", "dashboard", "2024")
	require.NoError(t, err)
	assert.Equal(t, "analytics:dashboard:2024:v1", key)

	require.NoError(t, cache.Bump(ctx))
	key, err = cache.BuildKey(ctx, "analytics", "dashboard", "2024")
	require.NoError(t, err)
	assert.Equal(t, "analytics:dashboard:2024:v2", key)
}

func TestCacheFetchJSONUsesStoredValue(t *testing.T) {
	cache, mr, _ := newTestCache(t)
	ctx := context.Background()
	calls := 0
	loader := func(context.Context) (interface{}, error) {
		calls++
		return YearPoint{Year: 2024, Total: 12.5}, nil
	}

	var first, second YearPoint
	require.NoError(t, cache.FetchJSON(ctx, "k", &first, loader))
	require.NoError(t, cache.FetchJSON(ctx, "k", &second, loader))

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists("k"))
	assert.Equal(t, time.Minute, mr.TTL("k"))
}

func TestCacheFetchJSONLoaderError(t *testing.T) {
	cache, mr, _ := newTestCache(t)
	boom := errors.New("boom")
	var out YearPoint
	err := cache.FetchJSON(context.Background(), "k", &out, func(context.Context) (interface{}, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("k"))
}

func TestCacheFetchJSONDegradesWhenRedisDown(t *testing.T) {
	cache, mr, _ := newTestCache(t)
	mr.Close()

	var out YearPoint
	err := cache.FetchJSON(context.Background(), "k", &out, func(context.Context) (interface{}, error) {
		return YearPoint{Year: 2023, Total: 1}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2023, out.Year)
}

func TestCacheDiscardsUndecodableEntry(t *testing.T) {
	cache, mr, _ := newTestCache(t)
	require.NoError(t, mr.Set("k", "not json"))

	var out YearPoint
	require.NoError(t, cache.FetchJSON(context.Background(), "k", &out, func(context.Context) (interface{}, error) {
		return YearPoint{Year: 2022}, nil
	}))
	assert.Equal(t, 2022, out.Year)
	stored, err := mr.Get("k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"year":2022,"total":0}`, stored)
}

func TestNilCacheIsPassThrough(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "a:b", key)
	require.NoError(t, cache.Bump(ctx))

	var out YearPoint
	require.NoError(t, cache.FetchJSON(ctx, key, &out, func(context.Context) (interface{}, error) {
		return YearPoint{Year: 2021}, nil
	}))
	assert.Equal(t, 2021, out.Year)
}

func TestListenForInvalidationMovesVersionForward(t *testing.T) {
	cache, _, client := newTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := cache.Version(ctx)
	require.NoError(t, err)
	require.NoError(t, cache.ListenForInvalidation(ctx, ""))

	require.Eventually(t, func() bool {
		n, err := client.PubSubNumSub(ctx, bumpChannel).Result()
		return err == nil && n[bumpChannel] == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, client.Publish(ctx, bumpChannel, "7").Err())
	require.Eventually(t, func() bool {
		v, err := cache.Version(ctx)
		return err == nil && v == 7
	}, time.Second, 10*time.Millisecond)

	// Stale announcements never move the version backwards.
	require.NoError(t, client.Publish(ctx, bumpChannel, "3").Err())
	time.Sleep(50 * time.Millisecond)
	v, err := cache.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
}
