package services

import (
	"sort"
	"time"

	"github.com/rosterforge/rosterd/internal/roster/domain"
)

// WorkerStats is one worker's per-generation summary (spec.md §4.6).
type WorkerStats struct {
	Worker           domain.WorkerID
	Target           int
	Assigned         int
	Deviation        int // assigned - target
	DeviationPct     float64
	WeekendCount     int
	HolidayCount     int
	PostDistribution map[int]int
}

// ComputeStatistics derives WorkerStats for every worker from the current
// schedule and target map.
func ComputeStatistics(sched *domain.Schedule, workers []*domain.Worker, targets map[domain.WorkerID]int) []WorkerStats {
	stats := make([]WorkerStats, 0, len(workers))
	for _, w := range workers {
		dates := sched.Assignments(w.ID())
		postDist := make(map[int]int)
		weekend, holiday := 0, 0
		for _, d := range dates {
			post := findWorkerPost(sched, w.ID(), d)
			if post >= 0 {
				postDist[post]++
			}
			class := sched.ClassifyDate(d)
			if class.IsWeekendLike() {
				weekend++
			}
			if class == domain.DateClassHoliday {
				holiday++
			}
		}

		target := targets[w.ID()]
		assigned := len(dates)
		deviation := assigned - target
		devPct := 0.0
		if target != 0 {
			devPct = float64(deviation) / float64(target) * 100
		}

		stats = append(stats, WorkerStats{
			Worker:           w.ID(),
			Target:           target,
			Assigned:         assigned,
			Deviation:        deviation,
			DeviationPct:     devPct,
			WeekendCount:     weekend,
			HolidayCount:     holiday,
			PostDistribution: postDist,
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Worker.String() < stats[j].Worker.String() })
	return stats
}

// SwapSuggestion is one proposed rebalancing move between an over-assigned
// worker O and an under-assigned worker U. Dates holds one entry for a
// direct_transfer (the date moving from O to U) and two for a
// mutual_exchange (O's date first, U's date second).
type SwapSuggestion struct {
	Kind        string // "direct_transfer" or "mutual_exchange"
	Over        domain.WorkerID
	Under       domain.WorkerID
	Dates       []time.Time
	Improvement float64 // min(|dev_O|, |dev_U|) before the move
}

// FindSwapSuggestions implements spec.md §4.6's adjustment search: for every
// over/under-assigned pair, it looks for a direct transfer first (moving one
// of O's non-mandatory assignments to U), then a mutual exchange, ranking
// all discovered moves by min(|dev_O|, |dev_U|) before the move (larger
// means more room to improve) and returning the top K.
func FindSwapSuggestions(
	sched *domain.Schedule,
	workers []*domain.Worker,
	byID map[domain.WorkerID]*domain.Worker,
	targets map[domain.WorkerID]int,
	cfg SchedulerConfig,
	topK int,
) []SwapSuggestion {
	stats := ComputeStatistics(sched, workers, targets)
	statsByID := make(map[domain.WorkerID]WorkerStats, len(stats))
	for _, s := range stats {
		statsByID[s.Worker] = s
	}

	var over, under []*domain.Worker
	for _, w := range workers {
		d := statsByID[w.ID()].Deviation
		if d > 0 {
			over = append(over, w)
		} else if d < 0 {
			under = append(under, w)
		}
	}

	var suggestions []SwapSuggestion
	for _, o := range over {
		for _, u := range under {
			if o.ID().Equals(u.ID()) {
				continue
			}
			improvement := float64(minAbs(statsByID[o.ID()].Deviation, statsByID[u.ID()].Deviation))

			if s, ok := findDirectTransfer(sched, byID, cfg, o, u, improvement); ok {
				suggestions = append(suggestions, s)
				continue
			}
			if s, ok := findMutualExchange(sched, byID, cfg, o, u, improvement); ok {
				suggestions = append(suggestions, s)
			}
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool { return suggestions[i].Improvement > suggestions[j].Improvement })
	if len(suggestions) > topK {
		suggestions = suggestions[:topK]
	}
	return suggestions
}

// findDirectTransfer looks for one of O's non-mandatory assignments that U
// could take over without violating a hard constraint.
func findDirectTransfer(
	sched *domain.Schedule,
	byID map[domain.WorkerID]*domain.Worker,
	cfg SchedulerConfig,
	o, u *domain.Worker,
	improvement float64,
) (SwapSuggestion, bool) {
	for _, d := range sched.Assignments(o.ID()) {
		if sched.IsMandatoryAssignment(o.ID(), d) {
			continue
		}
		onDate := withoutWorker(workersOnDate(sched, byID, d), o.ID())
		ok, _, _ := CanAssign(u, d, sched, onDate, cfg.GapBetweenShifts, cfg.MaxConsecutiveWeekends, false)
		if !ok {
			continue
		}
		return SwapSuggestion{
			Kind: "direct_transfer", Over: o.ID(), Under: u.ID(),
			Dates: []time.Time{d}, Improvement: improvement,
		}, true
	}
	return SwapSuggestion{}, false
}

// findMutualExchange looks for a pair of dates (one from O, one from U)
// whose holders could swap without violating a hard constraint.
func findMutualExchange(
	sched *domain.Schedule,
	byID map[domain.WorkerID]*domain.Worker,
	cfg SchedulerConfig,
	o, u *domain.Worker,
	improvement float64,
) (SwapSuggestion, bool) {
	for _, d1 := range sched.Assignments(o.ID()) {
		if sched.IsMandatoryAssignment(o.ID(), d1) {
			continue
		}
		for _, d2 := range sched.Assignments(u.ID()) {
			if d1.Equal(d2) || sched.IsMandatoryAssignment(u.ID(), d2) {
				continue
			}

			onD2 := withoutWorker(workersOnDate(sched, byID, d2), u.ID())
			onD1 := withoutWorker(workersOnDate(sched, byID, d1), o.ID())
			okO, _, _ := CanAssign(o, d2, sched, onD2, cfg.GapBetweenShifts, cfg.MaxConsecutiveWeekends, false)
			okU, _, _ := CanAssign(u, d1, sched, onD1, cfg.GapBetweenShifts, cfg.MaxConsecutiveWeekends, false)
			if !okO || !okU {
				continue
			}
			return SwapSuggestion{
				Kind: "mutual_exchange", Over: o.ID(), Under: u.ID(),
				Dates: []time.Time{d1, d2}, Improvement: improvement,
			}, true
		}
	}
	return SwapSuggestion{}, false
}

func withoutWorker(workers []*domain.Worker, id domain.WorkerID) []*domain.Worker {
	out := make([]*domain.Worker, 0, len(workers))
	for _, w := range workers {
		if !w.ID().Equals(id) {
			out = append(out, w)
		}
	}
	return out
}

func minAbs(a, b int) int {
	if absIntVal(a) < absIntVal(b) {
		return absIntVal(a)
	}
	return absIntVal(b)
}

func absIntVal(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
