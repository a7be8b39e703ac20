package persistence

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rosterforge/rosterd/internal/roster/domain"
	"github.com/rosterforge/rosterd/internal/shared/infrastructure/migrations"
	sharedPersistence "github.com/rosterforge/rosterd/internal/shared/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSchedulePostgresPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Skipf("failed to connect to test database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("failed to ping test database: %v", err)
	}

	require.NoError(t, migrations.RunPostgresMigrations(ctx, pool))
	_, _ = pool.Exec(ctx, "DELETE FROM schedules")

	t.Cleanup(pool.Close)
	return pool
}

func TestPostgresScheduleRepository_Save_Create(t *testing.T) {
	pool := setupSchedulePostgresPool(t)
	repo := NewPostgresScheduleRepository(pool)
	ctx := context.Background()

	sched := newTestScheduleForRepo(t)
	require.NoError(t, repo.Save(ctx, sched))

	found, err := repo.FindByID(ctx, sched.ID())
	require.NoError(t, err)
	assert.Equal(t, sched.ID(), found.ID())
	assert.Equal(t, sched.FilledCount(), found.FilledCount())
	w, ok := found.At(day(2026, 1, 1), 0)
	require.True(t, ok)
	assert.True(t, w.Equals(domain.NewWorkerID("a")))
}

func TestPostgresScheduleRepository_Save_Update(t *testing.T) {
	pool := setupSchedulePostgresPool(t)
	repo := NewPostgresScheduleRepository(pool)
	ctx := context.Background()

	sched := newTestScheduleForRepo(t)
	require.NoError(t, repo.Save(ctx, sched))

	require.NoError(t, sched.Assign(domain.NewWorkerID("b"), day(2026, 1, 2), 0, false))
	require.NoError(t, repo.Save(ctx, sched))

	found, err := repo.FindByID(ctx, sched.ID())
	require.NoError(t, err)
	assert.Equal(t, 2, found.FilledCount())
}

func TestPostgresScheduleRepository_Save_RejectsStaleVersion(t *testing.T) {
	pool := setupSchedulePostgresPool(t)
	repo := NewPostgresScheduleRepository(pool)
	ctx := context.Background()

	sched := newTestScheduleForRepo(t)
	require.NoError(t, repo.Save(ctx, sched))

	stale, err := repo.FindByID(ctx, sched.ID())
	require.NoError(t, err)

	require.NoError(t, sched.Assign(domain.NewWorkerID("b"), day(2026, 1, 2), 0, false))
	require.NoError(t, repo.Save(ctx, sched))

	require.NoError(t, stale.Assign(domain.NewWorkerID("c"), day(2026, 1, 2), 0, false))
	err = repo.Save(ctx, stale)
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestPostgresScheduleRepository_FindByID_ReturnsNotFoundForUnknownID(t *testing.T) {
	pool := setupSchedulePostgresPool(t)
	repo := NewPostgresScheduleRepository(pool)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrScheduleNotFound)
}

func TestPostgresScheduleRepository_Delete(t *testing.T) {
	pool := setupSchedulePostgresPool(t)
	repo := NewPostgresScheduleRepository(pool)
	ctx := context.Background()

	sched := newTestScheduleForRepo(t)
	require.NoError(t, repo.Save(ctx, sched))
	require.NoError(t, repo.Delete(ctx, sched.ID()))

	_, err := repo.FindByID(ctx, sched.ID())
	assert.ErrorIs(t, err, ErrScheduleNotFound)
}

func TestPostgresScheduleRepository_Save_ComposesWithAmbientTransaction(t *testing.T) {
	pool := setupSchedulePostgresPool(t)
	repo := NewPostgresScheduleRepository(pool)
	uow := sharedPersistence.NewPostgresUnitOfWork(pool)
	sched := newTestScheduleForRepo(t)

	txCtx, err := uow.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, repo.Save(txCtx, sched))
	require.NoError(t, uow.Commit(txCtx))

	found, err := repo.FindByID(context.Background(), sched.ID())
	require.NoError(t, err)
	assert.Equal(t, sched.ID(), found.ID())
}
