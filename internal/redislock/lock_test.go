package redislock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestLockManager(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	m := NewLockManager(client)

	t.Run("second acquire fails until release", func(t *testing.T) {
		l1, err := m.AcquireLock(ctx, "test-sweeper-1", 5*time.Second)
		require.NoError(t, err)

		_, err = m.AcquireLock(ctx, "test-sweeper-1", 5*time.Second)
		assert.ErrorIs(t, err, ErrLockNotAcquired)

		require.NoError(t, l1.Release(ctx))
		l2, err := m.AcquireLock(ctx, "test-sweeper-1", 5*time.Second)
		require.NoError(t, err)
		require.NoError(t, l2.Release(ctx))
	})

	t.Run("release after expiry reports not owned", func(t *testing.T) {
		l, err := m.AcquireLock(ctx, "test-sweeper-2", 50*time.Millisecond)
		require.NoError(t, err)
		time.Sleep(150 * time.Millisecond)
		assert.ErrorIs(t, l.Release(ctx), ErrLockNotOwned)
	})

	t.Run("extend keeps the lease", func(t *testing.T) {
		l, err := m.AcquireLock(ctx, "test-sweeper-3", time.Second)
		require.NoError(t, err)
		require.NoError(t, l.Extend(ctx, 5*time.Second))
		ttl, err := client.PTTL(ctx, "lock:test-sweeper-3").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Second)
		require.NoError(t, l.Release(ctx))
	})

	t.Run("try lock", func(t *testing.T) {
		release, err := m.TryLock(ctx, "test-sweeper-4", time.Second)
		require.NoError(t, err)
		_, err = m.TryLock(ctx, "test-sweeper-4", time.Second)
		assert.ErrorIs(t, err, ErrLockNotAcquired)
		require.NoError(t, release(ctx))
	})
}
