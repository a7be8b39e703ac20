package services

import (
	"math"
	"time"

	"github.com/rosterforge/rosterd/internal/roster/domain"
)

// ScoreWeights are the α/β/γ/δ calibration knobs from spec.md §4.2. Their
// exact values are explicitly left as implementation-free tuning
// parameters by the specification; DefaultScoreWeights picks values that
// satisfy the three qualitative orderings §4.2 demands: workers below
// quota dominate, under-quota last-post workers are preferred for the
// last post, and the weekend cap acts as a hard stop elsewhere in the
// pipeline rather than through this score.
type ScoreWeights struct {
	Alpha float64 // quota deficit weight
	Beta  float64 // post-balance weight
	Gamma float64 // weekend-balance weight
	Delta float64 // recent-density penalty weight
}

// DefaultScoreWeights returns rosterd's default calibration.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{Alpha: 1.0, Beta: 0.4, Gamma: 0.4, Delta: 0.25}
}

// WorkerTally tracks the running counts a draft-in-progress needs to score
// candidates without re-scanning the whole schedule on every call. The
// distributor and improver own one tally per worker and update it as they
// mutate the schedule.
type WorkerTally struct {
	Assigned         int
	PostCounts       map[int]int
	LastPostCount    int
	WeekendLikeCount int
	LastAssignedDate *time.Time
}

// NewWorkerTally returns a zeroed tally.
func NewWorkerTally() *WorkerTally {
	return &WorkerTally{PostCounts: make(map[int]int)}
}

// Record updates the tally to reflect a new assignment on d at post,
// isLastPost and isWeekendLike describing that date/post pair.
func (t *WorkerTally) Record(d time.Time, post int, isLastPost, isWeekendLike bool) {
	t.Assigned++
	t.PostCounts[post]++
	if isLastPost {
		t.LastPostCount++
	}
	if isWeekendLike {
		t.WeekendLikeCount++
	}
	date := d
	t.LastAssignedDate = &date
}

// Unrecord reverses Record, used by Phase-2 transformations that move or
// revert an assignment.
func (t *WorkerTally) Unrecord(post int, isLastPost, isWeekendLike bool) {
	t.Assigned--
	t.PostCounts[post]--
	if isLastPost {
		t.LastPostCount--
	}
	if isWeekendLike {
		t.WeekendLikeCount--
	}
}

// BuildTallies derives a fresh WorkerTally set from the current state of
// sched, used when resuming scoring against a schedule that was not built
// incrementally by this process (e.g. a live collaboration-core edit).
func BuildTallies(sched *domain.Schedule, workers []*domain.Worker) map[domain.WorkerID]*WorkerTally {
	tallies := make(map[domain.WorkerID]*WorkerTally, len(workers))
	for _, w := range workers {
		tallies[w.ID()] = NewWorkerTally()
	}
	for _, d := range sched.Dates() {
		lastPost := sched.SlotCount(d) - 1
		weekendLike := sched.ClassifyDate(d).IsWeekendLike()
		for post := 0; post < sched.SlotCount(d); post++ {
			id, ok := sched.At(d, post)
			if !ok {
				continue
			}
			tally, known := tallies[id]
			if !known {
				tally = NewWorkerTally()
				tallies[id] = tally
			}
			tally.Record(d, post, post == lastPost, weekendLike)
		}
	}
	return tallies
}

// GapPredicateOK implements the gap predicate from spec.md §4.2: the
// minimum distance from candidate date d to every existing assignment of w
// must be at least gapBetweenShifts+1 days, and the values {7,14} are
// additionally forbidden when d and the existing assignment share a
// weekday ("7/14 same-weekday rule"). Mandatory placements are exempt:
// callers evaluating a date that is itself mandatory for w should not
// call this at all, per spec.md's "mandatories are inviolate" rule.
func GapPredicateOK(assignments []time.Time, d time.Time, gapBetweenShifts int) bool {
	minGap := gapBetweenShifts + 1
	for _, other := range assignments {
		distDays := int(math.Abs(d.Sub(other).Hours()) / 24)
		if distDays < minGap {
			return false
		}
		if (distDays == 7 || distDays == 14) && d.Weekday() == other.Weekday() {
			return false
		}
	}
	return true
}

// WeekendCapOK implements the weekend-cap predicate: assigning w to d must
// not push any 21-day window containing d over maxConsecutiveWeekends
// weekend-like assignments. assignments is w's existing assignment dates;
// d is the candidate (not yet in assignments); isWeekendLike classifies a
// date as weekend-like.
func WeekendCapOK(assignments []time.Time, d time.Time, maxConsecutiveWeekends int, isWeekendLike func(time.Time) bool) bool {
	if !isWeekendLike(d) {
		return true
	}
	candidate := append(append([]time.Time{}, assignments...), d)
	for offset := -20; offset <= 0; offset++ {
		windowStart := d.AddDate(0, 0, offset)
		windowEnd := windowStart.AddDate(0, 0, 20)
		count := 0
		for _, a := range candidate {
			if !a.Before(windowStart) && !a.After(windowEnd) && isWeekendLike(a) {
				count++
			}
		}
		if count > maxConsecutiveWeekends {
			return false
		}
	}
	return true
}

// CanAssign implements the feasibility predicate of spec.md §4.2.
// incompatibleOn lists the workers currently occupying d (for the
// incompatibility check); mandatory indicates the candidate day is
// mandatory for w, which exempts the gap and weekend-cap checks.
func CanAssign(
	w *domain.Worker,
	d time.Time,
	sched *domain.Schedule,
	incompatibleOn []*domain.Worker,
	gapBetweenShifts int,
	maxConsecutiveWeekends int,
	mandatory bool,
) (bool, domain.ViolationKind, string) {
	if !w.IsAvailable(d) {
		if w.IsDayOff(d) {
			return false, domain.ViolationDaysOff, "worker has a day off on this date"
		}
		return false, domain.ViolationWorkPeriod, "date falls outside worker's work periods"
	}
	if sched.IsAssignedOn(w.ID(), d) {
		return false, domain.ViolationDuplicateOnDay, "worker already assigned on this date"
	}
	for _, other := range incompatibleOn {
		if w.IsIncompatibleWith(other) {
			return false, domain.ViolationIncompatibility, "incompatible with " + other.ID().String()
		}
	}
	if !mandatory {
		assignments := sched.Assignments(w.ID())
		if !GapPredicateOK(assignments, d, gapBetweenShifts) {
			return false, domain.ViolationGap, "violates minimum gap or 7/14 same-weekday rule"
		}
		if !WeekendCapOK(assignments, d, maxConsecutiveWeekends, func(t time.Time) bool {
			return sched.ClassifyDate(t).IsWeekendLike()
		}) {
			return false, domain.ViolationWeekendCap, "would exceed max consecutive weekends in a 21-day window"
		}
	}
	return true, "", ""
}

// Score computes the candidate score for placing w on d at post, per
// spec.md §4.2. Higher is better; ties are broken by the caller's RNG.
func Score(
	w *domain.Worker,
	d time.Time,
	post int,
	lastPost bool,
	target int,
	totalPosts int,
	tally *WorkerTally,
	weights ScoreWeights,
	weekendLike bool,
	weekendShare float64,
	lastPostShare float64,
) float64 {
	quotaDeficit := float64(target - tally.Assigned)

	postBalance := 0.0
	if lastPost {
		postBalance = lastPostShare - float64(tally.LastPostCount)
	}

	weekendBalance := 0.0
	if weekendLike {
		weekendBalance = weekendShare - float64(tally.WeekendLikeCount)
	}

	recentDensity := 0.0
	if tally.LastAssignedDate != nil {
		days := math.Abs(d.Sub(*tally.LastAssignedDate).Hours()) / 24
		if days < 1 {
			days = 1
		}
		recentDensity = 1.0 / days
	}

	return weights.Alpha*quotaDeficit +
		weights.Beta*postBalance +
		weights.Gamma*weekendBalance -
		weights.Delta*recentDensity
}
