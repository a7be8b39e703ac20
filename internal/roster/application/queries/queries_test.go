package queries

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rosterforge/rosterd/internal/roster/application/services"
	"github.com/rosterforge/rosterd/internal/roster/domain"
	"github.com/rosterforge/rosterd/internal/roster/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRandomID() uuid.UUID { return uuid.New() }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedScheduleForQueries(t *testing.T, repo *persistence.InMemoryScheduleRepository) (*domain.Schedule, []*domain.Worker, map[domain.WorkerID]int) {
	t.Helper()
	a := domain.NewWorker(domain.NewWorkerID("a"), 1.0)
	b := domain.NewWorker(domain.NewWorkerID("b"), 1.0)
	sched, err := domain.NewSchedule(day(2026, 1, 1), day(2026, 1, 4), domain.NewSlotSchedule(1), domain.NewHolidayCalendar())
	require.NoError(t, err)
	require.NoError(t, sched.Assign(a.ID(), day(2026, 1, 1), 0, false))
	require.NoError(t, sched.Assign(a.ID(), day(2026, 1, 2), 0, false))
	require.NoError(t, sched.Assign(a.ID(), day(2026, 1, 3), 0, false))
	require.NoError(t, sched.Assign(b.ID(), day(2026, 1, 4), 0, false))
	require.NoError(t, repo.Save(context.Background(), sched))
	targets := map[domain.WorkerID]int{a.ID(): 1, b.ID(): 3}
	return sched, []*domain.Worker{a, b}, targets
}

func TestGetStatisticsHandler_Handle_ReturnsDeviationPerWorker(t *testing.T) {
	repo := persistence.NewInMemoryScheduleRepository()
	sched, workers, targets := seedScheduleForQueries(t, repo)
	handler := NewGetStatisticsHandler(repo)

	dtos, err := handler.Handle(context.Background(), GetStatisticsQuery{
		ScheduleID: sched.ID(),
		Workers:    workers,
		Targets:    targets,
	})

	require.NoError(t, err)
	require.Len(t, dtos, 2)
	for _, dto := range dtos {
		if dto.Worker == "a" {
			assert.Equal(t, 3, dto.Assigned)
			assert.Equal(t, 2, dto.Deviation)
		}
	}
}

func TestGetStatisticsHandler_Handle_ReturnsErrorWhenScheduleMissing(t *testing.T) {
	repo := persistence.NewInMemoryScheduleRepository()
	handler := NewGetStatisticsHandler(repo)

	_, err := handler.Handle(context.Background(), GetStatisticsQuery{
		ScheduleID: mustRandomID(),
	})
	assert.ErrorIs(t, err, persistence.ErrScheduleNotFound)
}

func TestFindSwapSuggestionsHandler_Handle_DefaultsTopKWhenNonPositive(t *testing.T) {
	repo := persistence.NewInMemoryScheduleRepository()
	sched, workers, targets := seedScheduleForQueries(t, repo)
	handler := NewFindSwapSuggestionsHandler(repo)

	dtos, err := handler.Handle(context.Background(), FindSwapSuggestionsQuery{
		ScheduleID: sched.ID(),
		Workers:    workers,
		Targets:    targets,
		Config:     services.DefaultSchedulerConfig(day(2026, 1, 1), day(2026, 1, 4)),
		TopK:       0,
	})

	require.NoError(t, err)
	require.NotEmpty(t, dtos)
	assert.Equal(t, "direct_transfer", dtos[0].Kind)
	assert.Equal(t, "a", dtos[0].Over)
	assert.Equal(t, "b", dtos[0].Under)
}

func TestFindSwapSuggestionsHandler_Handle_ReturnsErrorWhenScheduleMissing(t *testing.T) {
	repo := persistence.NewInMemoryScheduleRepository()
	handler := NewFindSwapSuggestionsHandler(repo)

	_, err := handler.Handle(context.Background(), FindSwapSuggestionsQuery{
		ScheduleID: mustRandomID(),
	})
	assert.ErrorIs(t, err, persistence.ErrScheduleNotFound)
}
