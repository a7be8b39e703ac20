package redislock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rosterforge/rosterd/internal/collab/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set, skipping integration test")
	}

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("failed to ping test redis: %v", err)
	}

	keys, _ := client.Keys(ctx, keyPrefix+"*").Result()
	if len(keys) > 0 {
		client.Del(ctx, keys...)
	}

	t.Cleanup(func() { client.Close() })
	return client
}

func TestStore_TryAcquire_GrantsAndPersistsAcrossGet(t *testing.T) {
	client := setupTestRedis(t)
	store := New(client, DefaultConfig())
	key := domain.LockKey{Type: domain.LockTypeWorkerAssignment, ResourceID: "2026-01-01:0"}

	lock, err := store.TryAcquire(context.Background(), key, "alice", time.Minute, nil)
	require.NoError(t, err)

	got, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, lock.ID(), got.ID())
	assert.True(t, got.IsOwnedBy("alice"))
}

func TestStore_TryAcquire_RefusesWhenHeldByAnotherOwner(t *testing.T) {
	client := setupTestRedis(t)
	store := New(client, DefaultConfig())
	key := domain.LockKey{Type: domain.LockTypeWorkerAssignment, ResourceID: "2026-01-01:0"}

	_, err := store.TryAcquire(context.Background(), key, "alice", time.Minute, nil)
	require.NoError(t, err)

	held, err := store.TryAcquire(context.Background(), key, "bob", time.Minute, nil)
	assert.ErrorIs(t, err, domain.ErrLockHeld)
	require.NotNil(t, held)
	assert.True(t, held.IsOwnedBy("alice"))
}

func TestStore_TryAcquire_ExtendsForSameOwner(t *testing.T) {
	client := setupTestRedis(t)
	store := New(client, DefaultConfig())
	key := domain.LockKey{Type: domain.LockTypeWorkerAssignment, ResourceID: "2026-01-01:0"}

	first, err := store.TryAcquire(context.Background(), key, "alice", time.Minute, nil)
	require.NoError(t, err)

	second, err := store.TryAcquire(context.Background(), key, "alice", time.Hour, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID(), second.ID())
}

func TestStore_Release_RemovesOwnedLock(t *testing.T) {
	client := setupTestRedis(t)
	store := New(client, DefaultConfig())
	key := domain.LockKey{Type: domain.LockTypeWorkerAssignment, ResourceID: "2026-01-01:0"}

	lock, err := store.TryAcquire(context.Background(), key, "alice", time.Minute, nil)
	require.NoError(t, err)

	ok, err := store.Release(context.Background(), lock.ID(), "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_Release_RefusesForNonOwner(t *testing.T) {
	client := setupTestRedis(t)
	store := New(client, DefaultConfig())
	key := domain.LockKey{Type: domain.LockTypeWorkerAssignment, ResourceID: "2026-01-01:0"}

	lock, err := store.TryAcquire(context.Background(), key, "alice", time.Minute, nil)
	require.NoError(t, err)

	ok, err := store.Release(context.Background(), lock.ID(), "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Sweep_IsANoOp(t *testing.T) {
	client := setupTestRedis(t)
	store := New(client, DefaultConfig())

	expired, err := store.Sweep(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, expired, "Redis expires keys natively via PX; Sweep has nothing to collect")
}

func TestStore_Count_ReflectsHeldLocks(t *testing.T) {
	client := setupTestRedis(t)
	store := New(client, DefaultConfig())

	_, err := store.TryAcquire(context.Background(), domain.LockKey{Type: domain.LockTypeWorkerAssignment, ResourceID: "a"}, "alice", time.Minute, nil)
	require.NoError(t, err)
	_, err = store.TryAcquire(context.Background(), domain.LockKey{Type: domain.LockTypeShiftEdit, ResourceID: "b"}, "bob", time.Minute, nil)
	require.NoError(t, err)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
