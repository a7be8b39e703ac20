package services

import (
	"testing"
	"time"

	"github.com/rosterforge/rosterd/internal/roster/domain"
	"github.com/stretchr/testify/assert"
)

func TestComputeTargets_SumsToTotalSlots(t *testing.T) {
	workers := []*domain.Worker{
		domain.NewWorker(domain.NewWorkerID("a"), 1.0),
		domain.NewWorker(domain.NewWorkerID("b"), 1.0),
		domain.NewWorker(domain.NewWorkerID("c"), 0.5),
	}

	targets := ComputeTargets(workers, 10)

	sum := 0
	for _, v := range targets {
		sum += v
	}
	assert.Equal(t, 10, sum)
	assert.Equal(t, 3, len(targets))
}

func TestComputeTargets_ZeroPercentageExcludedWithoutOverride(t *testing.T) {
	workers := []*domain.Worker{
		domain.NewWorker(domain.NewWorkerID("a"), 1.0),
		domain.NewWorker(domain.NewWorkerID("b"), 0),
	}

	targets := ComputeTargets(workers, 8)

	assert.Equal(t, 0, targets[domain.NewWorkerID("b")])
	assert.Equal(t, 8, targets[domain.NewWorkerID("a")])
}

func TestComputeTargets_OverrideConsumesSlotsBeforeApportionment(t *testing.T) {
	workers := []*domain.Worker{
		domain.NewWorker(domain.NewWorkerID("a"), 1.0, domain.WithTargetShifts(4)),
		domain.NewWorker(domain.NewWorkerID("b"), 1.0),
		domain.NewWorker(domain.NewWorkerID("c"), 1.0),
	}

	targets := ComputeTargets(workers, 10)

	assert.Equal(t, 4, targets[domain.NewWorkerID("a")])
	sum := 0
	for _, v := range targets {
		sum += v
	}
	assert.Equal(t, 10, sum)
	// remaining 6 split evenly between b and c
	assert.Equal(t, 3, targets[domain.NewWorkerID("b")])
	assert.Equal(t, 3, targets[domain.NewWorkerID("c")])
}

func TestComputeTargets_LargestRemainderBreaksTiesByWorkerID(t *testing.T) {
	// Three equal-percentage workers splitting 10 slots: 10/3 = 3.33 each,
	// floors sum to 9, one worker gets the leftover +1. The tie on
	// fractional part (.33 each) must be broken deterministically by id.
	workers := []*domain.Worker{
		domain.NewWorker(domain.NewWorkerID("z"), 1.0),
		domain.NewWorker(domain.NewWorkerID("y"), 1.0),
		domain.NewWorker(domain.NewWorkerID("x"), 1.0),
	}

	targets := ComputeTargets(workers, 10)

	sum := 0
	for _, v := range targets {
		sum += v
	}
	assert.Equal(t, 10, sum)
	assert.Equal(t, 4, targets[domain.NewWorkerID("x")])
	assert.Equal(t, 3, targets[domain.NewWorkerID("y")])
	assert.Equal(t, 3, targets[domain.NewWorkerID("z")])
}

func TestTotalSlots_SumsAcrossDates(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	dates := domain.Dates(start, end)

	slots := domain.NewSlotSchedule(2, domain.SlotRule{Start: start, End: start.AddDate(0, 0, 1), Count: 3})

	total := TotalSlots(slots, dates)

	// Jan 1-2 have 3 slots (rule), Jan 3-5 have 2 (default) = 3+3+2+2+2 = 12
	assert.Equal(t, 12, total)
}
