package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rosterforge/rosterd/internal/collab/domain"
	"github.com/rosterforge/rosterd/internal/collab/infrastructure/memlock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCore() *Core {
	return NewCore(memlock.New(), nil, DefaultConfig(), nil)
}

func TestCore_CreateSession_EndSession_RoundTrips(t *testing.T) {
	c := newTestCore()
	ctx := context.Background()

	sessionID, err := c.CreateSession(ctx, "alice", []string{"edit"}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, sessionID)

	ok, err := c.EndSession(ctx, sessionID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.EndSession(ctx, sessionID)
	require.NoError(t, err)
	assert.False(t, ok, "ending an already-ended session is a no-op")
}

func TestCore_CreateSession_RejectsEmptyUserID(t *testing.T) {
	c := newTestCore()
	_, err := c.CreateSession(context.Background(), "", nil, nil)
	assert.Error(t, err)
}

func TestCore_TouchSession_ReturnsFalseForUnknownSession(t *testing.T) {
	c := newTestCore()
	ok, err := c.TouchSession(uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCore_AcquireLock_GrantsFreshLock(t *testing.T) {
	c := newTestCore()
	ctx := context.Background()

	lockID, err := c.AcquireLock(ctx, "alice", domain.LockTypeWorkerAssignment, "2026-01-01:0", 0, nil, false, nil)
	require.NoError(t, err)
	require.NotNil(t, lockID)

	lock, err := c.CheckLock(ctx, domain.LockTypeWorkerAssignment, "2026-01-01:0")
	require.NoError(t, err)
	require.NotNil(t, lock)
	assert.Equal(t, *lockID, lock.ID())
	assert.True(t, lock.IsOwnedBy("alice"))
}

func TestCore_AcquireLock_RefusesWithoutWaitReturnsNil(t *testing.T) {
	c := newTestCore()
	ctx := context.Background()

	_, err := c.AcquireLock(ctx, "alice", domain.LockTypeWorkerAssignment, "2026-01-01:0", 0, nil, false, nil)
	require.NoError(t, err)

	lockID, err := c.AcquireLock(ctx, "bob", domain.LockTypeWorkerAssignment, "2026-01-01:0", 0, nil, false, nil)
	require.NoError(t, err)
	assert.Nil(t, lockID)
}

func TestCore_AcquireLock_SameOwnerExtendsExistingLock(t *testing.T) {
	c := newTestCore()
	ctx := context.Background()

	first, err := c.AcquireLock(ctx, "alice", domain.LockTypeWorkerAssignment, "2026-01-01:0", time.Minute, nil, false, nil)
	require.NoError(t, err)

	second, err := c.AcquireLock(ctx, "alice", domain.LockTypeWorkerAssignment, "2026-01-01:0", time.Hour, nil, false, nil)
	require.NoError(t, err)
	assert.Equal(t, *first, *second)
}

func TestCore_AcquireLock_WaitTrueQueuesAndNotifiesOnRelease(t *testing.T) {
	c := newTestCore()
	ctx := context.Background()

	firstLockID, err := c.AcquireLock(ctx, "alice", domain.LockTypeWorkerAssignment, "2026-01-01:0", time.Minute, nil, false, nil)
	require.NoError(t, err)

	var granted *domain.Lock
	notified := make(chan struct{}, 1)
	token, err := c.AcquireLock(ctx, "bob", domain.LockTypeWorkerAssignment, "2026-01-01:0", time.Minute, nil, true, func(l *domain.Lock) {
		granted = l
		notified <- struct{}{}
	})
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.NotEqual(t, *firstLockID, *token, "a queued token is not the held lock's id")

	status := c.Status(ctx)
	assert.Equal(t, 1, status.QueueDepths["worker_assignment:2026-01-01:0"])

	ok, err := c.ReleaseLock(ctx, *firstLockID, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	select {
	case <-notified:
	case <-time.After(time.Second):
		t.Fatal("waiter was not notified after release")
	}
	require.NotNil(t, granted)
	assert.True(t, granted.IsOwnedBy("bob"))

	status = c.Status(ctx)
	assert.Equal(t, 0, status.QueueDepths["worker_assignment:2026-01-01:0"])
}

func TestCore_ReleaseLock_RefusesForNonOwner(t *testing.T) {
	c := newTestCore()
	ctx := context.Background()

	lockID, err := c.AcquireLock(ctx, "alice", domain.LockTypeWorkerAssignment, "2026-01-01:0", 0, nil, false, nil)
	require.NoError(t, err)

	ok, err := c.ReleaseLock(ctx, *lockID, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCore_EndSession_ReleasesTrackedLocksAndNotifiesWaiter(t *testing.T) {
	c := newTestCore()
	ctx := context.Background()

	sessionID, err := c.CreateSession(ctx, "alice", nil, nil)
	require.NoError(t, err)

	_, err = c.AcquireLock(ctx, "alice", domain.LockTypeWorkerAssignment, "2026-01-01:0", time.Minute, nil, false, nil)
	require.NoError(t, err)

	notified := make(chan *domain.Lock, 1)
	_, err = c.AcquireLock(ctx, "bob", domain.LockTypeWorkerAssignment, "2026-01-01:0", time.Minute, nil, true, func(l *domain.Lock) {
		notified <- l
	})
	require.NoError(t, err)

	ok, err := c.EndSession(ctx, sessionID)
	require.NoError(t, err)
	assert.True(t, ok)

	select {
	case lock := <-notified:
		require.NotNil(t, lock)
		assert.True(t, lock.IsOwnedBy("bob"))
	case <-time.After(time.Second):
		t.Fatal("waiter was not notified after session end")
	}
}

func TestCore_DetectConflict_ReturnsNilWhenResourceIsFree(t *testing.T) {
	c := newTestCore()
	ctx := context.Background()

	conflict, err := c.DetectConflict(ctx, string(domain.LockTypeShiftEdit), "2026-01-01:0", "alice", map[string]any{"worker": "w1"})
	require.NoError(t, err)
	assert.Nil(t, conflict)
}

func TestCore_DetectConflict_ReturnsNilWhenCallerHoldsTheLock(t *testing.T) {
	c := newTestCore()
	ctx := context.Background()

	_, err := c.AcquireLock(ctx, "alice", domain.LockTypeShiftEdit, "2026-01-01:0", time.Minute, nil, false, nil)
	require.NoError(t, err)

	conflict, err := c.DetectConflict(ctx, string(domain.LockTypeShiftEdit), "2026-01-01:0", "alice", nil)
	require.NoError(t, err)
	assert.Nil(t, conflict)
}

func TestCore_DetectConflict_ReturnsConflictWhenHeldByAnotherUser(t *testing.T) {
	c := newTestCore()
	ctx := context.Background()

	_, err := c.AcquireLock(ctx, "alice", domain.LockTypeShiftEdit, "2026-01-01:0", time.Minute, nil, false, nil)
	require.NoError(t, err)

	conflict, err := c.DetectConflict(ctx, string(domain.LockTypeShiftEdit), "2026-01-01:0", "bob", map[string]any{"worker": "w2"})
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, "alice", conflict.HolderUserID())
	assert.Equal(t, "bob", conflict.UserID())

	status := c.Status(ctx)
	assert.Equal(t, 1, status.PendingConflicts)
}

func TestCore_ResolveConflict_IsIdempotent(t *testing.T) {
	c := newTestCore()
	ctx := context.Background()

	_, err := c.AcquireLock(ctx, "alice", domain.LockTypeShiftEdit, "2026-01-01:0", time.Minute, nil, false, nil)
	require.NoError(t, err)
	conflict, err := c.DetectConflict(ctx, string(domain.LockTypeShiftEdit), "2026-01-01:0", "bob", nil)
	require.NoError(t, err)
	require.NotNil(t, conflict)

	ok, err := c.ResolveConflict(ctx, conflict.ID(), domain.StrategyLastWriterWins, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.ResolveConflict(ctx, conflict.ID(), domain.StrategyLastWriterWins, nil)
	require.NoError(t, err)
	assert.False(t, ok, "resolving an already-resolved conflict is a no-op")

	status := c.Status(ctx)
	assert.Equal(t, 0, status.PendingConflicts)
}

func TestCore_ResolveConflict_ReturnsFalseForUnknownConflict(t *testing.T) {
	c := newTestCore()
	ok, err := c.ResolveConflict(context.Background(), uuid.New(), domain.StrategyManual, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCore_Status_ReportsUsersOnlineAndActiveSessions(t *testing.T) {
	c := newTestCore()
	ctx := context.Background()

	_, err := c.CreateSession(ctx, "alice", nil, nil)
	require.NoError(t, err)
	_, err = c.CreateSession(ctx, "bob", nil, nil)
	require.NoError(t, err)

	status := c.Status(ctx)
	assert.Equal(t, 2, status.ActiveSessions)
	assert.Equal(t, 2, status.UsersOnline)
}

func TestCore_DistinctLockTypesOnSameResourceDoNotConflict(t *testing.T) {
	c := newTestCore()
	ctx := context.Background()

	_, err := c.AcquireLock(ctx, "alice", domain.LockTypeWorkerAssignment, "2026-01-01:0", time.Minute, nil, false, nil)
	require.NoError(t, err)

	lockID, err := c.AcquireLock(ctx, "bob", domain.LockTypeShiftEdit, "2026-01-01:0", time.Minute, nil, false, nil)
	require.NoError(t, err)
	assert.NotNil(t, lockID)
}
