package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rosterforge/rosterd/internal/collab/domain"
	"github.com/rosterforge/rosterd/internal/shared/infrastructure/migrations"
	sharedPersistence "github.com/rosterforge/rosterd/internal/shared/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupAuditTestDB(t *testing.T) *sql.DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrations.RunSQLiteMigrations(context.Background(), sqlDB))
	return sqlDB
}

func TestSQLiteAuditStore_Append_ListBySession_RoundTripsAllFields(t *testing.T) {
	db := setupAuditTestDB(t)
	store := NewSQLiteAuditStore(db)
	sessionID := uuid.New()
	conflictID := uuid.New()
	now := time.Now().Truncate(time.Second)

	event := domain.AuditEvent{
		ID:         uuid.New(),
		Type:       domain.AuditConflictResolved,
		SessionID:  sessionID,
		UserID:     "alice",
		LockType:   domain.LockTypeShiftEdit,
		ResourceID: "2026-01-05:0",
		ConflictID: conflictID,
		Strategy:   domain.StrategyLastWriterWins,
		OccurredAt: now,
	}
	require.NoError(t, store.Append(context.Background(), event))

	events, err := store.ListBySession(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	got := events[0]
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, event.Type, got.Type)
	assert.Equal(t, event.UserID, got.UserID)
	assert.Equal(t, event.LockType, got.LockType)
	assert.Equal(t, event.ResourceID, got.ResourceID)
	assert.Equal(t, event.ConflictID, got.ConflictID)
	assert.Equal(t, event.Strategy, got.Strategy)
	assert.True(t, event.OccurredAt.Equal(got.OccurredAt))
}

func TestSQLiteAuditStore_Append_ToleratesOmittedOptionalFields(t *testing.T) {
	db := setupAuditTestDB(t)
	store := NewSQLiteAuditStore(db)
	sessionID := uuid.New()

	event := domain.AuditEvent{
		ID:         uuid.New(),
		Type:       domain.AuditSessionCreated,
		SessionID:  sessionID,
		UserID:     "alice",
		OccurredAt: time.Now().Truncate(time.Second),
	}
	require.NoError(t, store.Append(context.Background(), event))

	events, err := store.ListBySession(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Empty(t, events[0].LockType)
	assert.Empty(t, events[0].ResourceID)
	assert.Equal(t, uuid.Nil, events[0].ConflictID)
}

func TestSQLiteAuditStore_Append_ComposesWithAmbientTransaction(t *testing.T) {
	db := setupAuditTestDB(t)
	store := NewSQLiteAuditStore(db)
	uow := sharedPersistence.NewSQLiteUnitOfWork(db)
	sessionID := uuid.New()

	ctx, err := uow.Begin(context.Background())
	require.NoError(t, err)

	require.NoError(t, store.Append(ctx, domain.AuditEvent{
		ID: uuid.New(), Type: domain.AuditSessionCreated, SessionID: sessionID, UserID: "alice", OccurredAt: time.Now(),
	}))
	require.NoError(t, uow.Commit(ctx))

	events, err := store.ListBySession(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
