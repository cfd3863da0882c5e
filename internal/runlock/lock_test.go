package runlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis starts an in-memory Redis and a client for it.
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	if err := client.Ping(context.Background()).Err(); err != nil {
		mr.Close()
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestAcquireIsExclusive(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	first := New(client, time.Minute)
	second := New(client, time.Minute)

	require.NoError(t, first.Acquire(ctx))
	assert.ErrorIs(t, second.Acquire(ctx), ErrHeld)

	require.NoError(t, first.Release(ctx))
	require.NoError(t, second.Acquire(ctx))
	require.NoError(t, second.Release(ctx))
}

func TestReleaseOnlyFreesOwnLock(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	stale := New(client, time.Minute)
	require.NoError(t, stale.Acquire(ctx))

	// the stale run's lock expires and a new run takes over
	mr.FastForward(2 * time.Minute)
	fresh := New(client, time.Minute)
	require.NoError(t, fresh.Acquire(ctx))

	require.NoError(t, stale.Release(ctx))

	holder, err := fresh.Holder(ctx)
	require.NoError(t, err)
	assert.Equal(t, fresh.token, holder, "the newer run must keep its lock")
}

func TestLockExpires(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	l := New(client, 30*time.Second)
	require.NoError(t, l.Acquire(ctx))
	assert.Equal(t, 30*time.Second, mr.TTL(DefaultKey))

	mr.FastForward(31 * time.Second)
	holder, err := l.Holder(ctx)
	require.NoError(t, err)
	assert.Empty(t, holder)
}

func TestReleaseWithoutAcquire(t *testing.T) {
	client, _ := setupTestRedis(t)
	assert.NoError(t, New(client, time.Minute).Release(context.Background()))
}
