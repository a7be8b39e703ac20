// Package services implements the roster engine's dual-phase pipeline:
// quota computation, candidate scoring, the strict initial distributor,
// the relaxed iterative improver, the constraint checker, and the
// statistics/adjustment engine that ties them together.
package services

import (
	"sort"
	"time"

	"github.com/rosterforge/rosterd/internal/roster/domain"
)

// ComputeTargets computes each worker's target shift count for a schedule
// carrying totalSlots posts in total, using the largest-remainder method
// (spec.md §4.1) so that the targets sum exactly to totalSlots whenever no
// worker has a target_shifts override, and to totalSlots overall otherwise
// (the override amount plus the remainder distributed across the rest).
//
// A worker with work_percentage == 0 and no override is treated as
// excluded (target 0), per spec.md §9's resolution of that open question.
func ComputeTargets(workers []*domain.Worker, totalSlots int) map[domain.WorkerID]int {
	targets := make(map[domain.WorkerID]int, len(workers))

	remaining := totalSlots
	var free []*domain.Worker
	for _, w := range workers {
		if override, ok := w.TargetShiftsOverride(); ok {
			targets[w.ID()] = override
			remaining -= override
			continue
		}
		free = append(free, w)
	}
	if remaining < 0 {
		remaining = 0
	}

	sumPct := 0.0
	for _, w := range free {
		sumPct += w.WorkPercentage()
	}
	if sumPct <= 0 {
		for _, w := range free {
			targets[w.ID()] = 0
		}
		return targets
	}

	type share struct {
		worker *domain.Worker
		floor  int
		frac   float64
	}
	shares := make([]share, 0, len(free))
	flooredTotal := 0
	for _, w := range free {
		if w.WorkPercentage() <= 0 {
			shares = append(shares, share{worker: w, floor: 0, frac: 0})
			continue
		}
		raw := float64(remaining) * w.WorkPercentage() / sumPct
		floor := int(raw)
		shares = append(shares, share{worker: w, floor: floor, frac: raw - float64(floor)})
		flooredTotal += floor
	}

	leftover := remaining - flooredTotal
	sort.SliceStable(shares, func(i, j int) bool {
		if shares[i].frac != shares[j].frac {
			return shares[i].frac > shares[j].frac
		}
		return shares[i].worker.ID().String() < shares[j].worker.ID().String()
	})
	for i := range shares {
		bonus := 0
		if i < leftover {
			bonus = 1
		}
		targets[shares[i].worker.ID()] = shares[i].floor + bonus
	}

	return targets
}

// TotalSlots sums slots(D) over every date in dates.
func TotalSlots(slotSchedule *domain.SlotSchedule, dates []time.Time) int {
	total := 0
	for _, d := range dates {
		total += slotSchedule.SlotCount(d)
	}
	return total
}
