package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisLockAcquireRelease(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	l1 := NewRedisLock(client, "batch-processor", time.Minute)
	ok, err := l1.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// Second holder cannot acquire while l1 holds the lock.
	l2 := NewRedisLock(client, "batch-processor", time.Minute)
	ok, err = l2.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, l1.Release(ctx))

	ok, err = l2.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedisLockReleaseOnlyOwn(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	l1 := NewRedisLock(client, "batch-processor", time.Minute)
	ok, err := l1.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// A non-owner release must not free the lock.
	l2 := NewRedisLock(client, "batch-processor", time.Minute)
	require.NoError(t, l2.Release(ctx))

	l3 := NewRedisLock(client, "batch-processor", time.Minute)
	ok, err = l3.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNewPrefersRedis(t *testing.T) {
	client := newTestRedis(t)
	l := New(client, nil, "batch-processor", time.Minute)
	if _, ok := l.(*RedisLock); !ok {
		t.Fatalf("expected RedisLock, got %T", l)
	}
}
