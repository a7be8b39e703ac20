package services

import (
	"context"
	"math"
	mathrand "math/rand"
	"sort"
	"time"

	"github.com/rosterforge/rosterd/internal/roster/domain"
)

// trialState bundles a schedule and its worker tallies so a candidate
// transformation can be applied speculatively and discarded without
// disturbing the caller's accepted state if it fails to strictly improve
// the objective.
type trialState struct {
	sched   *domain.Schedule
	tallies map[domain.WorkerID]*WorkerTally
}

func cloneTrialState(s *trialState) *trialState {
	return &trialState{sched: s.sched.Clone(), tallies: cloneTallies(s.tallies)}
}

func cloneTallies(in map[domain.WorkerID]*WorkerTally) map[domain.WorkerID]*WorkerTally {
	out := make(map[domain.WorkerID]*WorkerTally, len(in))
	for id, t := range in {
		postCounts := make(map[int]int, len(t.PostCounts))
		for k, v := range t.PostCounts {
			postCounts[k] = v
		}
		var lastDate *time.Time
		if t.LastAssignedDate != nil {
			d := *t.LastAssignedDate
			lastDate = &d
		}
		out[id] = &WorkerTally{
			Assigned:         t.Assigned,
			PostCounts:       postCounts,
			LastPostCount:    t.LastPostCount,
			WeekendLikeCount: t.WeekendLikeCount,
			LastAssignedDate: lastDate,
		}
	}
	return out
}

// ImproverResult is Phase-2's output: the improved schedule, its final
// tallies, the number of passes it ran, and whether it was cancelled.
type ImproverResult struct {
	Schedule   *domain.Schedule
	Tallies    map[domain.WorkerID]*WorkerTally
	Iterations int
	Cancelled  bool
}

const lastPostAdjustmentMaxIterations = 50

// RunPhase2 runs the relaxed iterative improver (spec.md §4.4) against the
// best Phase-1 draft. Every transformation checks its placement with
// CanAssign before committing. The full constraint checker runs once before
// returning; its result is discarded, and no iteration is reverted on its
// basis.
func RunPhase2(
	ctx context.Context,
	cfg SchedulerConfig,
	workers []*domain.Worker,
	byID map[domain.WorkerID]*domain.Worker,
	targets map[domain.WorkerID]int,
	sched *domain.Schedule,
	tallies map[domain.WorkerID]*WorkerTally,
	unresolved []domain.UnresolvedMandatory,
	seed int64,
) *ImproverResult {
	rng := mathrand.New(mathrand.NewSource(seed))
	state := &trialState{sched: sched, tallies: tallies}

	iterations := 0
	cancelled := false

	for iterations < cfg.MaxImprovementLoops {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		iterations++

		changed := false
		if applyGapFill(state, workers, byID, targets, cfg, rng) {
			changed = true
		}
		if applyDirectTransfers(state, workers, byID, targets, cfg) {
			changed = true
		}
		if applyMutualExchanges(state, workers, byID, targets, cfg) {
			changed = true
		}
		if !changed {
			break
		}
	}

	for i := 0; i < lastPostAdjustmentMaxIterations && iterations < cfg.MaxImprovementLoops; i++ {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		if !applyLastPostRebalance(state, workers, byID, targets, cfg) {
			break
		}
		iterations++
	}

	// Closing constraint check. Each transformation already validated itself
	// via CanAssign before committing, so no revert is attempted here; the
	// returned violations are discarded and state is not mutated further.
	_ = CheckConstraints(state.sched, byID, cfg.GapBetweenShifts, cfg.MaxConsecutiveWeekends, unresolved)

	return &ImproverResult{
		Schedule:   state.sched,
		Tallies:    state.tallies,
		Iterations: iterations,
		Cancelled:  cancelled,
	}
}

func computeObjective(
	state *trialState,
	workers []*domain.Worker,
	targets map[domain.WorkerID]int,
	weights ObjectiveWeights,
) float64 {
	empty := len(state.sched.EmptySlots())

	deviation := 0.0
	sumTargets := 0
	for _, w := range workers {
		deviation += math.Abs(float64(state.tallies[w.ID()].Assigned - targets[w.ID()]))
		sumTargets += targets[w.ID()]
	}

	totalLastPostSlots := 0
	totalWeekendSlots := 0
	for _, d := range state.sched.Dates() {
		if state.sched.SlotCount(d) > 0 {
			totalLastPostSlots++
		}
		if state.sched.ClassifyDate(d).IsWeekendLike() {
			totalWeekendSlots += state.sched.SlotCount(d)
		}
	}

	lastPostImbalance := 0.0
	weekendImbalance := 0.0
	for _, w := range workers {
		t := state.tallies[w.ID()]
		share := 0.0
		if sumTargets > 0 {
			share = float64(targets[w.ID()]) / float64(sumTargets)
		}
		lastPostImbalance += math.Abs(float64(t.LastPostCount) - share*float64(totalLastPostSlots))
		weekendImbalance += math.Abs(float64(t.WeekendLikeCount) - share*float64(totalWeekendSlots))
	}

	return weights.Empty*float64(empty) +
		weights.Deviation*deviation +
		weights.LastPostImbalance*lastPostImbalance +
		weights.WeekendImbalance*weekendImbalance
}

// applyGapFill attempts to fill every currently empty post, first by direct
// assignment, then via a bounded displacement chain (K=3). Each successful
// fill is committed immediately since filling strictly decreases J whenever
// weights.Empty > 0, which DefaultObjectiveWeights guarantees; the general
// strict-decrease gate is still enforced via the before/after comparison.
func applyGapFill(
	state *trialState,
	workers []*domain.Worker,
	byID map[domain.WorkerID]*domain.Worker,
	targets map[domain.WorkerID]int,
	cfg SchedulerConfig,
	rng *mathrand.Rand,
) bool {
	changed := false
	for _, gap := range state.sched.EmptySlots() {
		if _, occupied := state.sched.At(gap.Date, gap.Post); occupied {
			continue
		}
		before := computeObjective(state, workers, targets, cfg.ObjectiveWeights)

		trial := cloneTrialState(state)
		filled := directAssign(trial, workers, byID, targets, gap.Date, gap.Post, cfg, rng)
		if !filled {
			filled = attemptDisplacementChain(trial, byID, workers, targets, cfg, gap.Date, gap.Post, 3)
		}
		if !filled {
			continue
		}
		after := computeObjective(trial, workers, targets, cfg.ObjectiveWeights)
		if after < before {
			*state = *trial
			changed = true
		}
	}
	return changed
}

func directAssign(
	state *trialState,
	workers []*domain.Worker,
	byID map[domain.WorkerID]*domain.Worker,
	targets map[domain.WorkerID]int,
	d time.Time,
	post int,
	cfg SchedulerConfig,
	rng *mathrand.Rand,
) bool {
	lastPost := state.sched.SlotCount(d) - 1
	weekendLike := state.sched.ClassifyDate(d).IsWeekendLike()
	worker, ok := pickBestCandidate(state.sched, workers, byID, state.tallies, targets, d, post, post == lastPost, weekendLike, cfg, rng)
	if !ok {
		return false
	}
	if err := state.sched.Assign(worker.ID(), d, post, false); err != nil {
		return false
	}
	state.tallies[worker.ID()].Record(d, post, post == lastPost, weekendLike)
	return true
}

// attemptDisplacementChain implements the bounded-length-K displacement
// chain of spec.md §4.4: when no worker can be placed directly into
// (d, post), look for a worker W blocked only by incompatibility with an
// occupant X of that date, relocate X elsewhere (recursively, up to depth
// K), and place W once X is out of the way.
func attemptDisplacementChain(
	state *trialState,
	byID map[domain.WorkerID]*domain.Worker,
	workers []*domain.Worker,
	targets map[domain.WorkerID]int,
	cfg SchedulerConfig,
	d time.Time,
	post int,
	depth int,
) bool {
	if depth <= 0 {
		return false
	}
	lastPost := state.sched.SlotCount(d) - 1
	weekendLike := state.sched.ClassifyDate(d).IsWeekendLike()

	for _, w := range workers {
		if state.sched.IsAssignedOn(w.ID(), d) {
			continue
		}
		onDate := workersOnDate(state.sched, byID, d)
		ok, kind, _ := CanAssign(w, d, state.sched, onDate, cfg.GapBetweenShifts, cfg.MaxConsecutiveWeekends, false)
		if ok || kind != domain.ViolationIncompatibility {
			continue
		}
		for _, x := range onDate {
			if !w.IsIncompatibleWith(x) {
				continue
			}
			if state.sched.IsMandatoryAssignment(x.ID(), d) {
				continue
			}
			xPost := findWorkerPost(state.sched, x.ID(), d)
			if xPost < 0 {
				continue
			}
			if relocateWorker(state, byID, x, d, xPost, depth-1) {
				if err := state.sched.Assign(w.ID(), d, post, false); err == nil {
					state.tallies[w.ID()].Record(d, post, post == lastPost, weekendLike)
					return true
				}
			}
		}
	}
	return false
}

func findWorkerPost(sched *domain.Schedule, w domain.WorkerID, d time.Time) int {
	for p := 0; p < sched.SlotCount(d); p++ {
		if id, occ := sched.At(d, p); occ && id.Equals(w) {
			return p
		}
	}
	return -1
}

// relocateWorker moves x off (fromDate, fromPost) onto any other legal
// empty post in the schedule, used as the single displacement step within
// a chain.
func relocateWorker(
	state *trialState,
	byID map[domain.WorkerID]*domain.Worker,
	x *domain.Worker,
	fromDate time.Time,
	fromPost int,
	depth int,
) bool {
	fromLastPost := state.sched.SlotCount(fromDate)-1 == fromPost
	fromWeekendLike := state.sched.ClassifyDate(fromDate).IsWeekendLike()

	for _, d2 := range state.sched.Dates() {
		if d2.Equal(fromDate) {
			continue
		}
		for p2 := 0; p2 < state.sched.SlotCount(d2); p2++ {
			if _, occ := state.sched.At(d2, p2); occ {
				continue
			}
			onDate2 := workersOnDate(state.sched, byID, d2)
			ok, _, _ := CanAssign(x, d2, state.sched, onDate2, 0, 1<<30, false)
			if !ok {
				continue
			}
			if err := state.sched.Move(x.ID(), fromDate, fromPost, d2, p2); err != nil {
				continue
			}
			lastPost2 := state.sched.SlotCount(d2) - 1
			weekendLike2 := state.sched.ClassifyDate(d2).IsWeekendLike()
			state.tallies[x.ID()].Unrecord(fromPost, fromLastPost, fromWeekendLike)
			state.tallies[x.ID()].Record(d2, p2, p2 == lastPost2, weekendLike2)
			return true
		}
	}
	return false
}

// applyDirectTransfers moves a non-mandatory assignment from an
// over-assigned worker to an under-assigned worker wherever feasible
// (spec.md §4.4's "direct transfer").
func applyDirectTransfers(
	state *trialState,
	workers []*domain.Worker,
	byID map[domain.WorkerID]*domain.Worker,
	targets map[domain.WorkerID]int,
	cfg SchedulerConfig,
) bool {
	changed := false
	over, under := deviationSortedWorkers(state, workers, targets)

	for _, a := range over {
		for _, b := range under {
			if a.ID().Equals(b.ID()) {
				continue
			}
			if tryDirectTransfer(state, workers, byID, targets, cfg, a, b) {
				changed = true
			}
		}
	}
	return changed
}

func deviationSortedWorkers(state *trialState, workers []*domain.Worker, targets map[domain.WorkerID]int) (over, under []*domain.Worker) {
	for _, w := range workers {
		dev := state.tallies[w.ID()].Assigned - targets[w.ID()]
		if dev > 0 {
			over = append(over, w)
		} else if dev < 0 {
			under = append(under, w)
		}
	}
	sort.Slice(over, func(i, j int) bool {
		return state.tallies[over[i].ID()].Assigned-targets[over[i].ID()] > state.tallies[over[j].ID()].Assigned-targets[over[j].ID()]
	})
	sort.Slice(under, func(i, j int) bool {
		return state.tallies[under[i].ID()].Assigned-targets[under[i].ID()] < state.tallies[under[j].ID()].Assigned-targets[under[j].ID()]
	})
	return over, under
}

func tryDirectTransfer(
	state *trialState,
	workers []*domain.Worker,
	byID map[domain.WorkerID]*domain.Worker,
	targets map[domain.WorkerID]int,
	cfg SchedulerConfig,
	a, b *domain.Worker,
) bool {
	for _, d := range state.sched.Assignments(a.ID()) {
		if state.sched.IsMandatoryAssignment(a.ID(), d) {
			continue
		}
		post := findWorkerPost(state.sched, a.ID(), d)
		if post < 0 {
			continue
		}

		before := computeObjective(state, workers, targets, cfg.ObjectiveWeights)
		trial := cloneTrialState(state)

		lastPost := trial.sched.SlotCount(d) - 1
		weekendLike := trial.sched.ClassifyDate(d).IsWeekendLike()
		if err := trial.sched.Unassign(a.ID(), d, post); err != nil {
			continue
		}
		trial.tallies[a.ID()].Unrecord(post, post == lastPost, weekendLike)

		onDate := workersOnDate(trial.sched, byID, d)
		ok, _, _ := CanAssign(b, d, trial.sched, onDate, cfg.GapBetweenShifts, cfg.MaxConsecutiveWeekends, false)
		if !ok {
			continue
		}
		if err := trial.sched.Assign(b.ID(), d, post, false); err != nil {
			continue
		}
		trial.tallies[b.ID()].Record(d, post, post == lastPost, weekendLike)

		after := computeObjective(trial, workers, targets, cfg.ObjectiveWeights)
		if after < before {
			*state = *trial
			return true
		}
	}
	return false
}

// applyMutualExchanges swaps two workers' assignments on distinct dates
// when both directions of the swap are individually feasible and the
// result strictly improves J (spec.md §4.4's "mutual exchange").
func applyMutualExchanges(
	state *trialState,
	workers []*domain.Worker,
	byID map[domain.WorkerID]*domain.Worker,
	targets map[domain.WorkerID]int,
	cfg SchedulerConfig,
) bool {
	changed := false
	over, under := deviationSortedWorkers(state, workers, targets)

	for _, a := range over {
		for _, b := range under {
			if a.ID().Equals(b.ID()) {
				continue
			}
			if tryMutualExchange(state, workers, byID, targets, cfg, a, b) {
				changed = true
			}
		}
	}
	return changed
}

func tryMutualExchange(
	state *trialState,
	workers []*domain.Worker,
	byID map[domain.WorkerID]*domain.Worker,
	targets map[domain.WorkerID]int,
	cfg SchedulerConfig,
	a, b *domain.Worker,
) bool {
	for _, d1 := range state.sched.Assignments(a.ID()) {
		if state.sched.IsMandatoryAssignment(a.ID(), d1) {
			continue
		}
		postA := findWorkerPost(state.sched, a.ID(), d1)
		if postA < 0 {
			continue
		}
		for _, d2 := range state.sched.Assignments(b.ID()) {
			if d1.Equal(d2) || state.sched.IsMandatoryAssignment(b.ID(), d2) {
				continue
			}
			postB := findWorkerPost(state.sched, b.ID(), d2)
			if postB < 0 {
				continue
			}

			before := computeObjective(state, workers, targets, cfg.ObjectiveWeights)
			trial := cloneTrialState(state)

			lastPost1 := trial.sched.SlotCount(d1) - 1
			weekendLike1 := trial.sched.ClassifyDate(d1).IsWeekendLike()
			lastPost2 := trial.sched.SlotCount(d2) - 1
			weekendLike2 := trial.sched.ClassifyDate(d2).IsWeekendLike()

			if err := trial.sched.Unassign(a.ID(), d1, postA); err != nil {
				continue
			}
			trial.tallies[a.ID()].Unrecord(postA, postA == lastPost1, weekendLike1)
			if err := trial.sched.Unassign(b.ID(), d2, postB); err != nil {
				continue
			}
			trial.tallies[b.ID()].Unrecord(postB, postB == lastPost2, weekendLike2)

			onD2 := workersOnDate(trial.sched, byID, d2)
			okA, _, _ := CanAssign(a, d2, trial.sched, onD2, cfg.GapBetweenShifts, cfg.MaxConsecutiveWeekends, false)
			onD1 := workersOnDate(trial.sched, byID, d1)
			okB, _, _ := CanAssign(b, d1, trial.sched, onD1, cfg.GapBetweenShifts, cfg.MaxConsecutiveWeekends, false)
			if !okA || !okB {
				continue
			}

			if err := trial.sched.Assign(a.ID(), d2, postB, false); err != nil {
				continue
			}
			trial.tallies[a.ID()].Record(d2, postB, postB == lastPost2, weekendLike2)
			if err := trial.sched.Assign(b.ID(), d1, postA, false); err != nil {
				continue
			}
			trial.tallies[b.ID()].Record(d1, postA, postA == lastPost1, weekendLike1)

			after := computeObjective(trial, workers, targets, cfg.ObjectiveWeights)
			if after < before {
				*state = *trial
				return true
			}
		}
	}
	return false
}

// applyLastPostRebalance redistributes last-post occupancy toward workers
// below their proportional last-post share, as the final polishing
// sub-phase (spec.md §4.4).
func applyLastPostRebalance(
	state *trialState,
	workers []*domain.Worker,
	byID map[domain.WorkerID]*domain.Worker,
	targets map[domain.WorkerID]int,
	cfg SchedulerConfig,
) bool {
	sumTargets := 0
	for _, w := range workers {
		sumTargets += targets[w.ID()]
	}
	if sumTargets == 0 {
		return false
	}

	totalLastPostSlots := 0
	for _, d := range state.sched.Dates() {
		if state.sched.SlotCount(d) > 0 {
			totalLastPostSlots++
		}
	}

	var over, under []*domain.Worker
	for _, w := range workers {
		share := float64(targets[w.ID()]) / float64(sumTargets) * float64(totalLastPostSlots)
		dev := float64(state.tallies[w.ID()].LastPostCount) - share
		if dev > 0.5 {
			over = append(over, w)
		} else if dev < -0.5 {
			under = append(under, w)
		}
	}

	for _, o := range over {
		for _, u := range under {
			if o.ID().Equals(u.ID()) {
				continue
			}
			if tryLastPostTransfer(state, workers, targets, cfg, byID, o, u) {
				return true
			}
		}
	}
	return false
}

func tryLastPostTransfer(
	state *trialState,
	workers []*domain.Worker,
	targets map[domain.WorkerID]int,
	cfg SchedulerConfig,
	byID map[domain.WorkerID]*domain.Worker,
	o, u *domain.Worker,
) bool {
	for _, d := range state.sched.Assignments(o.ID()) {
		lastPost := state.sched.SlotCount(d) - 1
		post := findWorkerPost(state.sched, o.ID(), d)
		if post != lastPost || state.sched.IsMandatoryAssignment(o.ID(), d) {
			continue
		}

		before := computeObjective(state, workers, targets, cfg.ObjectiveWeights)
		trial := cloneTrialState(state)

		weekendLike := trial.sched.ClassifyDate(d).IsWeekendLike()
		if err := trial.sched.Unassign(o.ID(), d, post); err != nil {
			continue
		}
		trial.tallies[o.ID()].Unrecord(post, true, weekendLike)

		onDate := workersOnDate(trial.sched, byID, d)
		ok, _, _ := CanAssign(u, d, trial.sched, onDate, cfg.GapBetweenShifts, cfg.MaxConsecutiveWeekends, false)
		if !ok {
			continue
		}
		if err := trial.sched.Assign(u.ID(), d, post, false); err != nil {
			continue
		}
		trial.tallies[u.ID()].Record(d, post, true, weekendLike)

		after := computeObjective(trial, workers, targets, cfg.ObjectiveWeights)
		if after < before {
			*state = *trial
			return true
		}
	}
	return false
}

