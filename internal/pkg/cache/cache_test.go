package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolveTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestStoreRoundTrip(t *testing.T) {
	rdb := resolveTestRedis(t)
	ctx := context.Background()
	store := NewStore(rdb, "test:store:")

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.True(t, IsMiss(err))
}

func TestLockerIsExclusive(t *testing.T) {
	rdb := resolveTestRedis(t)
	ctx := context.Background()
	locker := NewLocker(rdb, "test:lock:")
	rdb.Del(ctx, "test:lock:user_1")

	release, err := locker.Acquire(ctx, "user_1", 5*time.Second)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "user_1", 5*time.Second)
	assert.ErrorIs(t, err, ErrLockHeld)

	release()
	release2, err := locker.Acquire(ctx, "user_1", 5*time.Second)
	require.NoError(t, err)
	release2()
}
