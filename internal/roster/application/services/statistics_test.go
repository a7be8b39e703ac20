package services

import (
	"testing"

	"github.com/rosterforge/rosterd/internal/roster/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStatistics_DeviationAndCounts(t *testing.T) {
	a := domain.NewWorker(domain.NewWorkerID("a"), 1.0)
	b := domain.NewWorker(domain.NewWorkerID("b"), 1.0)
	sched := newTestSchedule(t, day(2026, 1, 1), day(2026, 1, 4), 1)

	// Jan 3 2026 is a Saturday.
	require.NoError(t, sched.Assign(a.ID(), day(2026, 1, 1), 0, false))
	require.NoError(t, sched.Assign(a.ID(), day(2026, 1, 3), 0, false))
	require.NoError(t, sched.Assign(b.ID(), day(2026, 1, 2), 0, false))
	require.NoError(t, sched.Assign(b.ID(), day(2026, 1, 4), 0, false))

	targets := map[domain.WorkerID]int{a.ID(): 1, b.ID(): 3}
	stats := ComputeStatistics(sched, []*domain.Worker{a, b}, targets)

	require.Len(t, stats, 2)
	var aStats, bStats WorkerStats
	for _, s := range stats {
		switch s.Worker {
		case a.ID():
			aStats = s
		case b.ID():
			bStats = s
		}
	}

	assert.Equal(t, 2, aStats.Assigned)
	assert.Equal(t, 1, aStats.Deviation)
	assert.Equal(t, 1, aStats.WeekendCount, "Jan 3 is a Saturday")

	assert.Equal(t, 2, bStats.Assigned)
	assert.Equal(t, -1, bStats.Deviation)
}

func TestFindSwapSuggestions_DirectTransferPreferredOverExchange(t *testing.T) {
	over := domain.NewWorker(domain.NewWorkerID("over"), 1.0)
	under := domain.NewWorker(domain.NewWorkerID("under"), 1.0)
	sched := newTestSchedule(t, day(2026, 1, 1), day(2026, 1, 3), 1)

	require.NoError(t, sched.Assign(over.ID(), day(2026, 1, 1), 0, false))
	require.NoError(t, sched.Assign(over.ID(), day(2026, 1, 2), 0, false))
	require.NoError(t, sched.Assign(over.ID(), day(2026, 1, 3), 0, false))

	workers := []*domain.Worker{over, under}
	byID := map[domain.WorkerID]*domain.Worker{over.ID(): over, under.ID(): under}
	targets := map[domain.WorkerID]int{over.ID(): 1, under.ID(): 2}
	cfg := DefaultSchedulerConfig(day(2026, 1, 1), day(2026, 1, 3))

	suggestions := FindSwapSuggestions(sched, workers, byID, targets, cfg, 5)

	require.NotEmpty(t, suggestions)
	assert.Equal(t, "direct_transfer", suggestions[0].Kind)
	assert.Equal(t, over.ID(), suggestions[0].Over)
	assert.Equal(t, under.ID(), suggestions[0].Under)
	assert.Len(t, suggestions[0].Dates, 1)
}

func TestFindSwapSuggestions_RanksByMinAbsDeviation(t *testing.T) {
	a := domain.NewWorker(domain.NewWorkerID("a"), 1.0)
	b := domain.NewWorker(domain.NewWorkerID("b"), 1.0)
	c := domain.NewWorker(domain.NewWorkerID("c"), 1.0)
	sched := newTestSchedule(t, day(2026, 1, 1), day(2026, 1, 5), 1)

	require.NoError(t, sched.Assign(a.ID(), day(2026, 1, 1), 0, false))
	require.NoError(t, sched.Assign(a.ID(), day(2026, 1, 2), 0, false))
	require.NoError(t, sched.Assign(a.ID(), day(2026, 1, 3), 0, false))
	require.NoError(t, sched.Assign(a.ID(), day(2026, 1, 4), 0, false))
	require.NoError(t, sched.Assign(b.ID(), day(2026, 1, 5), 0, false))

	workers := []*domain.Worker{a, b, c}
	byID := map[domain.WorkerID]*domain.Worker{a.ID(): a, b.ID(): b, c.ID(): c}
	// a: assigned 4, target 1 -> dev +3. b: assigned 1, target 1 -> dev 0.
	// c: assigned 0, target 2 -> dev -2.
	targets := map[domain.WorkerID]int{a.ID(): 1, b.ID(): 1, c.ID(): 2}
	cfg := DefaultSchedulerConfig(day(2026, 1, 1), day(2026, 1, 5))

	suggestions := FindSwapSuggestions(sched, workers, byID, targets, cfg, 5)

	require.NotEmpty(t, suggestions)
	assert.Equal(t, a.ID(), suggestions[0].Over)
	assert.Equal(t, c.ID(), suggestions[0].Under)
	assert.InDelta(t, 2.0, suggestions[0].Improvement, 0.001)
}

func TestFindSwapSuggestions_RespectsTopK(t *testing.T) {
	a := domain.NewWorker(domain.NewWorkerID("a"), 1.0)
	b := domain.NewWorker(domain.NewWorkerID("b"), 1.0)
	sched := newTestSchedule(t, day(2026, 1, 1), day(2026, 1, 1), 1)
	require.NoError(t, sched.Assign(a.ID(), day(2026, 1, 1), 0, false))

	workers := []*domain.Worker{a, b}
	byID := map[domain.WorkerID]*domain.Worker{a.ID(): a, b.ID(): b}
	targets := map[domain.WorkerID]int{a.ID(): 0, b.ID(): 1}
	cfg := DefaultSchedulerConfig(day(2026, 1, 1), day(2026, 1, 1))

	suggestions := FindSwapSuggestions(sched, workers, byID, targets, cfg, 0)
	assert.Empty(t, suggestions)
}
