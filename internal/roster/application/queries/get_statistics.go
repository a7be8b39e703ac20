package queries

import (
	"context"

	"github.com/google/uuid"
	"github.com/rosterforge/rosterd/internal/roster/application/services"
	"github.com/rosterforge/rosterd/internal/roster/domain"
)

// WorkerStatsDTO is the wire shape of services.WorkerStats.
type WorkerStatsDTO struct {
	Worker           string
	Target           int
	Assigned         int
	Deviation        int
	DeviationPct     float64
	WeekendCount     int
	HolidayCount     int
	PostDistribution map[int]int
}

// GetStatisticsQuery requests the per-worker statistics for a stored
// schedule given its worker roster and computed targets.
type GetStatisticsQuery struct {
	ScheduleID uuid.UUID
	Workers    []*domain.Worker
	Targets    map[domain.WorkerID]int
}

func (GetStatisticsQuery) QueryName() string { return "roster.get_statistics" }

// GetStatisticsHandler handles GetStatisticsQuery.
type GetStatisticsHandler struct {
	scheduleRepo domain.ScheduleRepository
}

// NewGetStatisticsHandler creates a new GetStatisticsHandler.
func NewGetStatisticsHandler(scheduleRepo domain.ScheduleRepository) *GetStatisticsHandler {
	return &GetStatisticsHandler{scheduleRepo: scheduleRepo}
}

// Handle executes the GetStatisticsQuery.
func (h *GetStatisticsHandler) Handle(ctx context.Context, query GetStatisticsQuery) ([]WorkerStatsDTO, error) {
	sched, err := h.scheduleRepo.FindByID(ctx, query.ScheduleID)
	if err != nil {
		return nil, err
	}

	stats := services.ComputeStatistics(sched, query.Workers, query.Targets)
	dtos := make([]WorkerStatsDTO, len(stats))
	for i, s := range stats {
		dtos[i] = WorkerStatsDTO{
			Worker:           s.Worker.String(),
			Target:           s.Target,
			Assigned:         s.Assigned,
			Deviation:        s.Deviation,
			DeviationPct:     s.DeviationPct,
			WeekendCount:     s.WeekendCount,
			HolidayCount:     s.HolidayCount,
			PostDistribution: s.PostDistribution,
		}
	}
	return dtos, nil
}
