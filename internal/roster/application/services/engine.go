package services

import (
	"context"
	"sync/atomic"

	"github.com/rosterforge/rosterd/internal/roster/domain"
)

// Progress reports are percent-complete, [0,100], updated atomically so a
// host can poll it from another goroutine without synchronizing with the
// engine (spec.md §5: "the engine is CPU-bound and non-blocking... hosts
// wishing to report progress poll a progress field updated atomically").
const (
	progressPhase1Done int32 = 60
	progressPhase2Done int32 = 95
	progressComplete   int32 = 100
)

// Result is the engine's external contract (spec.md §6): the finished
// schedule, any mandatory days the distributor could not place, the
// constraint checker's final pass, per-worker statistics, and whether
// generation was cancelled before Phase-2 converged.
type Result struct {
	Schedule            *domain.Schedule
	UnresolvedMandatory []domain.UnresolvedMandatory
	Violations          []domain.Violation
	Statistics          []WorkerStats
	Cancelled           bool
	Phase1Seed          int64
	Phase2Iterations    int
}

// Engine runs the two-phase generation pipeline end to end: Phase-1's
// strict multi-attempt distributor, Phase-2's relaxed iterative improver
// (when enabled), and a final defensive constraint-check pass.
type Engine struct {
	progress atomic.Int32
}

// NewEngine returns an idle Engine ready to run Generate.
func NewEngine() *Engine {
	return &Engine{}
}

// Progress returns the last reported completion percentage, [0,100].
func (e *Engine) Progress() int32 {
	return e.progress.Load()
}

// Generate runs Phase-1 then, if cfg.EnableDualMode, Phase-2, against the
// given worker roster. cfg is checked with Validate first, and a failing
// config is returned as a *ConfigValidationError. Phase-1
// failures (no workers, a seed-derivation error) are returned as errors;
// everything else — partial fills, unresolved mandatories, remaining
// violations — is surfaced through Result rather than as an error, per
// spec.md §4.8's "never fails hard" contract.
func (e *Engine) Generate(ctx context.Context, cfg SchedulerConfig, workers []*domain.Worker) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e.progress.Store(0)

	slotSchedule := buildSlotSchedule(cfg)
	totalSlots := TotalSlots(slotSchedule, domain.Dates(cfg.StartDate, cfg.EndDate))
	targets := ComputeTargets(workers, totalSlots)

	attempt, cancelled, err := RunPhase1(ctx, cfg, workers, targets)
	if err != nil {
		return nil, err
	}
	e.progress.Store(progressPhase1Done)

	byID := make(map[domain.WorkerID]*domain.Worker, len(workers))
	for _, w := range workers {
		byID[w.ID()] = w
	}

	sched := attempt.Schedule
	tallies := BuildTallies(sched, workers)
	unresolved := attempt.Unresolved
	phase2Iterations := 0

	if cfg.EnableDualMode && !cancelled {
		improverResult := RunPhase2(ctx, cfg, workers, byID, targets, sched, tallies, unresolved, attempt.Seed)
		sched = improverResult.Schedule
		tallies = improverResult.Tallies
		phase2Iterations = improverResult.Iterations
		cancelled = cancelled || improverResult.Cancelled
	}
	e.progress.Store(progressPhase2Done)

	violations := CheckConstraints(sched, byID, cfg.GapBetweenShifts, cfg.MaxConsecutiveWeekends, unresolved)
	stats := ComputeStatistics(sched, workers, targets)

	e.progress.Store(progressComplete)

	return &Result{
		Schedule:            sched,
		UnresolvedMandatory: unresolved,
		Violations:          violations,
		Statistics:          stats,
		Cancelled:           cancelled,
		Phase1Seed:          attempt.Seed,
		Phase2Iterations:    phase2Iterations,
	}, nil
}
