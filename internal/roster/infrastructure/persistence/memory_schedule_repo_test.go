package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rosterforge/rosterd/internal/roster/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestScheduleForRepo(t *testing.T) *domain.Schedule {
	t.Helper()
	sched, err := domain.NewSchedule(day(2026, 1, 1), day(2026, 1, 2), domain.NewSlotSchedule(1), domain.NewHolidayCalendar())
	require.NoError(t, err)
	require.NoError(t, sched.Assign(domain.NewWorkerID("a"), day(2026, 1, 1), 0, false))
	return sched
}

func TestInMemoryScheduleRepository_SaveAndFindByID(t *testing.T) {
	repo := NewInMemoryScheduleRepository()
	sched := newTestScheduleForRepo(t)

	require.NoError(t, repo.Save(context.Background(), sched))

	got, err := repo.FindByID(context.Background(), sched.ID())
	require.NoError(t, err)
	assert.Equal(t, sched.FilledCount(), got.FilledCount())
	w, ok := got.At(day(2026, 1, 1), 0)
	require.True(t, ok)
	assert.True(t, w.Equals(domain.NewWorkerID("a")))
}

func TestInMemoryScheduleRepository_FindByID_ReturnsNotFoundForUnknownID(t *testing.T) {
	repo := NewInMemoryScheduleRepository()
	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrScheduleNotFound)
}

func TestInMemoryScheduleRepository_Save_StoresDefensiveClone(t *testing.T) {
	repo := NewInMemoryScheduleRepository()
	sched := newTestScheduleForRepo(t)
	require.NoError(t, repo.Save(context.Background(), sched))

	require.NoError(t, sched.Unassign(domain.NewWorkerID("a"), day(2026, 1, 1), 0))

	got, err := repo.FindByID(context.Background(), sched.ID())
	require.NoError(t, err)
	_, ok := got.At(day(2026, 1, 1), 0)
	assert.True(t, ok, "mutating the caller's schedule after Save must not affect the stored copy")
}

func TestInMemoryScheduleRepository_FindByID_ReturnsIndependentClones(t *testing.T) {
	repo := NewInMemoryScheduleRepository()
	sched := newTestScheduleForRepo(t)
	require.NoError(t, repo.Save(context.Background(), sched))

	first, err := repo.FindByID(context.Background(), sched.ID())
	require.NoError(t, err)
	require.NoError(t, first.Unassign(domain.NewWorkerID("a"), day(2026, 1, 1), 0))

	second, err := repo.FindByID(context.Background(), sched.ID())
	require.NoError(t, err)
	_, ok := second.At(day(2026, 1, 1), 0)
	assert.True(t, ok, "mutating one returned clone must not affect a later read")
}

func TestInMemoryScheduleRepository_Delete(t *testing.T) {
	repo := NewInMemoryScheduleRepository()
	sched := newTestScheduleForRepo(t)
	require.NoError(t, repo.Save(context.Background(), sched))

	require.NoError(t, repo.Delete(context.Background(), sched.ID()))

	_, err := repo.FindByID(context.Background(), sched.ID())
	assert.ErrorIs(t, err, ErrScheduleNotFound)
}

func TestInMemoryScheduleRepository_Delete_IsIdempotentForUnknownID(t *testing.T) {
	repo := NewInMemoryScheduleRepository()
	assert.NoError(t, repo.Delete(context.Background(), uuid.New()))
}
