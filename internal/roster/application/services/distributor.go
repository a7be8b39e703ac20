package services

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	mathrand "math/rand"
	"runtime"
	"sort"
	"time"

	"github.com/rosterforge/rosterd/internal/roster/domain"
	"golang.org/x/sync/errgroup"
)

// AttemptResult is one Phase-1 draft: a schedule with no hard-constraint
// violations, its unresolved mandatories, and the (filled_count,
// equity_score) pair used to rank attempts lexicographically.
type AttemptResult struct {
	Seed        int64
	Schedule    *domain.Schedule
	Unresolved  []domain.UnresolvedMandatory
	FilledCount int
	EquityScore float64
}

type mandatoryCandidate struct {
	worker       *domain.Worker
	date         time.Time
	availability int // length of the tightest work-period window, for tie-break ordering
}

// RunPhase1 runs cfg.NumInitialAttempts independent strict-distribution
// attempts, optionally in parallel, and returns the best by lexicographic
// (filled_count, equity_score) order. Cancellation is checked between
// attempts (spec.md §5); on cancellation the best-so-far result is
// returned with cancelled=true.
func RunPhase1(
	ctx context.Context,
	cfg SchedulerConfig,
	workers []*domain.Worker,
	targets map[domain.WorkerID]int,
) (*AttemptResult, bool, error) {
	if len(workers) == 0 {
		return nil, false, errors.New("roster: no workers supplied")
	}

	baseSeed, err := resolveBaseSeed(cfg.Seed)
	if err != nil {
		return nil, false, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	results := make([]*AttemptResult, cfg.NumInitialAttempts)

	for i := 0; i < cfg.NumInitialAttempts; i++ {
		i := i
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			seed := baseSeed + int64(i)
			res, attemptErr := runAttempt(cfg, workers, targets, seed)
			if attemptErr != nil {
				return attemptErr
			}
			results[i] = res
			return nil
		})
	}

	waitErr := g.Wait()
	cancelled := ctx.Err() != nil
	if waitErr != nil && !errors.Is(waitErr, context.Canceled) && !cancelled {
		return nil, false, waitErr
	}

	best := chooseBestAttempt(results)
	if best == nil {
		return nil, cancelled, errors.New("roster: phase-1 produced no attempts")
	}
	return best, cancelled, nil
}

func chooseBestAttempt(results []*AttemptResult) *AttemptResult {
	var best *AttemptResult
	for _, r := range results {
		if r == nil {
			continue
		}
		if best == nil || betterAttempt(r, best) {
			best = r
		}
	}
	return best
}

func betterAttempt(a, b *AttemptResult) bool {
	if a.FilledCount != b.FilledCount {
		return a.FilledCount > b.FilledCount
	}
	return a.EquityScore > b.EquityScore
}

// runAttempt is a pure function of (cfg, workers, targets, seed): it never
// touches shared mutable state, so independent attempts may run on
// independent goroutines safely.
func runAttempt(
	cfg SchedulerConfig,
	workers []*domain.Worker,
	targets map[domain.WorkerID]int,
	seed int64,
) (*AttemptResult, error) {
	rng := mathrand.New(mathrand.NewSource(seed))

	slotSchedule := buildSlotSchedule(cfg)
	holidays := domain.NewHolidayCalendar(cfg.Holidays...)

	sched, err := domain.NewSchedule(cfg.StartDate, cfg.EndDate, slotSchedule, holidays)
	if err != nil {
		return nil, err
	}

	byID := make(map[domain.WorkerID]*domain.Worker, len(workers))
	for _, w := range workers {
		byID[w.ID()] = w
	}
	tallies := make(map[domain.WorkerID]*WorkerTally, len(workers))
	for _, w := range workers {
		tallies[w.ID()] = NewWorkerTally()
	}

	unresolved := placeMandatories(sched, workers, byID, tallies)

	dates := sched.Dates()
	rng.Shuffle(len(dates), func(i, j int) { dates[i], dates[j] = dates[j], dates[i] })

	for _, d := range dates {
		slots := sched.SlotCount(d)
		lastPost := slots - 1
		weekendLike := sched.ClassifyDate(d).IsWeekendLike()

		for post := 0; post < slots; post++ {
			if _, occupied := sched.At(d, post); occupied {
				continue
			}
			worker, ok := pickBestCandidate(sched, workers, byID, tallies, targets, d, post, post == lastPost, weekendLike, cfg, rng)
			if !ok {
				continue
			}
			if assignErr := sched.Assign(worker.ID(), d, post, false); assignErr != nil {
				continue
			}
			tallies[worker.ID()].Record(d, post, post == lastPost, weekendLike)
		}
	}

	equity := 0.0
	for _, w := range workers {
		equity -= absInt(tallies[w.ID()].Assigned - targets[w.ID()])
	}

	return &AttemptResult{
		Seed:        seed,
		Schedule:    sched,
		Unresolved:  unresolved,
		FilledCount: sched.FilledCount(),
		EquityScore: equity,
	}, nil
}

// placeMandatories implements spec.md §4.3 step 1: mandatories are placed
// first, in date order, ties broken by tighter work_periods length
// ascending (most constrained workers placed first). Mandatories that
// cannot be placed without violating a hard constraint are recorded as
// unresolved, never silently dropped.
func placeMandatories(
	sched *domain.Schedule,
	workers []*domain.Worker,
	byID map[domain.WorkerID]*domain.Worker,
	tallies map[domain.WorkerID]*WorkerTally,
) []domain.UnresolvedMandatory {
	var candidates []mandatoryCandidate
	for _, w := range workers {
		for _, d := range w.MandatoryDays() {
			candidates = append(candidates, mandatoryCandidate{
				worker:       w,
				date:         d,
				availability: workPeriodTightness(w),
			})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].date.Equal(candidates[j].date) {
			return candidates[i].date.Before(candidates[j].date)
		}
		return candidates[i].availability < candidates[j].availability
	})

	var unresolved []domain.UnresolvedMandatory
	for _, c := range candidates {
		d := c.date
		slots := sched.SlotCount(d)
		weekendLike := sched.ClassifyDate(d).IsWeekendLike()
		lastPost := slots - 1
		placed := false
		var lastReason string

		for post := 0; post < slots; post++ {
			if _, occupied := sched.At(d, post); occupied {
				continue
			}
			ok, _, reason := CanAssign(c.worker, d, sched, workersOnDate(sched, byID, d), 0, 1<<30, true)
			if !ok {
				lastReason = reason
				continue
			}
			if err := sched.Assign(c.worker.ID(), d, post, true); err != nil {
				lastReason = err.Error()
				continue
			}
			tallies[c.worker.ID()].Record(d, post, post == lastPost, weekendLike)
			placed = true
			break
		}
		if !placed {
			reason := lastReason
			if reason == "" {
				reason = "no open post available"
			}
			unresolved = append(unresolved, domain.UnresolvedMandatory{
				Worker: c.worker.ID(), Date: d, Reason: reason,
			})
		}
	}
	return unresolved
}

func workersOnDate(sched *domain.Schedule, byID map[domain.WorkerID]*domain.Worker, d time.Time) []*domain.Worker {
	ids := sched.WorkersOn(d)
	out := make([]*domain.Worker, 0, len(ids))
	for _, id := range ids {
		if w, ok := byID[id]; ok {
			out = append(out, w)
		}
	}
	return out
}

// workPeriodTightness returns the total number of days covered by a
// worker's declared work periods, used as the "most constrained first"
// tie-break. Workers with no declared work periods (always available) sort
// last, as the least constrained.
func workPeriodTightness(w *domain.Worker) int {
	periods := w.WorkPeriods()
	if len(periods) == 0 {
		return 1 << 30
	}
	total := 0
	for _, p := range periods {
		total += p.Days()
	}
	return total
}

func pickBestCandidate(
	sched *domain.Schedule,
	workers []*domain.Worker,
	byID map[domain.WorkerID]*domain.Worker,
	tallies map[domain.WorkerID]*WorkerTally,
	targets map[domain.WorkerID]int,
	d time.Time,
	post int,
	lastPost bool,
	weekendLike bool,
	cfg SchedulerConfig,
	rng *mathrand.Rand,
) (*domain.Worker, bool) {
	onDate := workersOnDate(sched, byID, d)

	type scored struct {
		worker *domain.Worker
		score  float64
	}
	var feasible []scored

	for _, w := range workers {
		ok, _, _ := CanAssign(w, d, sched, onDate, cfg.GapBetweenShifts, cfg.MaxConsecutiveWeekends, false)
		if !ok {
			continue
		}
		s := Score(w, d, post, lastPost, targets[w.ID()], sched.SlotCount(d), tallies[w.ID()], cfg.Weights, weekendLike, proportionalShare(w, workers, targets, "weekend"), proportionalShare(w, workers, targets, "lastpost"))
		feasible = append(feasible, scored{worker: w, score: s})
	}
	if len(feasible) == 0 {
		return nil, false
	}

	sort.SliceStable(feasible, func(i, j int) bool { return feasible[i].score > feasible[j].score })
	top := feasible[0].score
	var tied []scored
	for _, f := range feasible {
		if f.score == top {
			tied = append(tied, f)
		}
	}
	return tied[rng.Intn(len(tied))].worker, true
}

// proportionalShare returns a worker's proportional share of a secondary
// quota (weekend-like assignments or last-post assignments) derived from
// its overall target relative to the sum of all targets. kind selects
// which secondary quota is being estimated; both use the same
// target-proportion heuristic since spec.md leaves the exact distribution
// unspecified beyond "proportional share".
func proportionalShare(w *domain.Worker, workers []*domain.Worker, targets map[domain.WorkerID]int, kind string) float64 {
	_ = kind
	sumTargets := 0
	for _, other := range workers {
		sumTargets += targets[other.ID()]
	}
	if sumTargets == 0 {
		return 0
	}
	return float64(targets[w.ID()]) / float64(sumTargets)
}

func buildSlotSchedule(cfg SchedulerConfig) *domain.SlotSchedule {
	rules := make([]domain.SlotRule, 0, len(cfg.VariableShifts))
	for _, r := range cfg.VariableShifts {
		rules = append(rules, domain.SlotRule{Start: r.Start, End: r.End, Count: r.Count})
	}
	return domain.NewSlotSchedule(cfg.NumShifts, rules...)
}

func resolveBaseSeed(seed *int64) (int64, error) {
	if seed != nil {
		return *seed, nil
	}
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("roster: failed to derive a random seed: %w", err)
	}
	return int64(binary.BigEndian.Uint64(buf[:]) & 0x7fffffffffffffff), nil
}

func absInt(n int) float64 {
	if n < 0 {
		return float64(-n)
	}
	return float64(n)
}
