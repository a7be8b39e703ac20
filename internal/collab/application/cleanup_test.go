package application

import (
	"context"
	"testing"
	"time"

	"github.com/rosterforge/rosterd/internal/collab/domain"
	"github.com/rosterforge/rosterd/internal/collab/infrastructure/memlock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupTicker_SweepOnce_ReleasesExpiredLocksAndNotifiesWaiter(t *testing.T) {
	core := NewCore(memlock.New(), nil, DefaultConfig(), nil)
	ctx := context.Background()

	_, err := core.AcquireLock(ctx, "alice", domain.LockTypeWorkerAssignment, "2026-01-01:0", 100*time.Millisecond, nil, false, nil)
	require.NoError(t, err)

	notified := make(chan *domain.Lock, 1)
	_, err = core.AcquireLock(ctx, "bob", domain.LockTypeWorkerAssignment, "2026-01-01:0", time.Minute, nil, true, func(l *domain.Lock) {
		notified <- l
	})
	require.NoError(t, err)

	ticker := NewCleanupTicker(core, CleanupTickerConfig{
		Interval:       time.Hour,
		SessionTimeout: time.Hour,
		ConflictTTL:    24 * time.Hour,
	}, nil)
	time.Sleep(150 * time.Millisecond)
	ticker.SweepOnce(ctx)

	select {
	case lock := <-notified:
		require.NotNil(t, lock)
		assert.True(t, lock.IsOwnedBy("bob"))
	default:
		t.Fatal("waiter was not notified after sweep freed the expired lock")
	}
}

func TestCleanupTicker_SweepOnce_ExpiresIdleSessionsAndReleasesTheirLocks(t *testing.T) {
	core := NewCore(memlock.New(), nil, DefaultConfig(), nil)
	ctx := context.Background()

	sessionID, err := core.CreateSession(ctx, "alice", nil, nil)
	require.NoError(t, err)
	_, err = core.AcquireLock(ctx, "alice", domain.LockTypeWorkerAssignment, "2026-01-01:0", time.Hour, nil, false, nil)
	require.NoError(t, err)

	core.mu.Lock()
	core.sessions[sessionID].Touch(time.Now().Add(-2 * time.Hour))
	core.mu.Unlock()

	ticker := NewCleanupTicker(core, CleanupTickerConfig{
		Interval:       time.Hour,
		SessionTimeout: time.Hour,
		ConflictTTL:    24 * time.Hour,
	}, nil)
	ticker.SweepOnce(ctx)

	status := core.Status(ctx)
	assert.Equal(t, 0, status.ActiveSessions)

	lock, err := core.CheckLock(ctx, domain.LockTypeWorkerAssignment, "2026-01-01:0")
	require.NoError(t, err)
	assert.Nil(t, lock, "idle session expiry must release its tracked locks")
}

func TestCleanupTicker_SweepOnce_GarbageCollectsOldResolvedConflicts(t *testing.T) {
	core := NewCore(memlock.New(), nil, DefaultConfig(), nil)
	ctx := context.Background()

	_, err := core.AcquireLock(ctx, "alice", domain.LockTypeShiftEdit, "2026-01-01:0", time.Hour, nil, false, nil)
	require.NoError(t, err)
	conflict, err := core.DetectConflict(ctx, string(domain.LockTypeShiftEdit), "2026-01-01:0", "bob", nil)
	require.NoError(t, err)
	require.NotNil(t, conflict)

	core.mu.Lock()
	resolved := core.conflicts[conflict.ID()].Resolve(domain.StrategyLastWriterWins, nil, time.Now().Add(-48*time.Hour))
	core.mu.Unlock()
	require.True(t, resolved)

	ticker := NewCleanupTicker(core, CleanupTickerConfig{
		Interval:       time.Hour,
		SessionTimeout: time.Hour,
		ConflictTTL:    24 * time.Hour,
	}, nil)
	ticker.SweepOnce(ctx)

	core.mu.Lock()
	_, stillPresent := core.conflicts[conflict.ID()]
	core.mu.Unlock()
	assert.False(t, stillPresent)
}

func TestCleanupTicker_StartStop_TogglesRunningFlag(t *testing.T) {
	core := NewCore(memlock.New(), nil, DefaultConfig(), nil)
	ticker := NewCleanupTicker(core, DefaultCleanupTickerConfig(), nil)

	assert.False(t, ticker.IsRunning())
	ticker.Start(context.Background())
	assert.True(t, ticker.IsRunning())
	ticker.Start(context.Background())
	assert.True(t, ticker.IsRunning(), "a second Start is a no-op")
	ticker.Stop()
	assert.False(t, ticker.IsRunning())
}
