package services

import (
	"fmt"
	"time"

	"github.com/rosterforge/rosterd/internal/roster/domain"
)

// removeDate returns a copy of dates with the first occurrence of target removed.
func removeDate(dates []time.Time, target time.Time) []time.Time {
	out := make([]time.Time, 0, len(dates))
	removed := false
	for _, d := range dates {
		if !removed && d.Equal(target) {
			removed = true
			continue
		}
		out = append(out, d)
	}
	return out
}

// CheckConstraints is the single source of truth for hard/soft violations
// (spec.md §4.5): a pure function over a schedule and its configuration,
// used by Engine.Generate to fill Result.Violations, by RunPhase2's closing
// check, and by the test suite. It never mutates
// sched. unresolved lists mandatory days already reported as unresolvable
// by the distributor, so they are not double-reported here as missing.
func CheckConstraints(
	sched *domain.Schedule,
	workers map[domain.WorkerID]*domain.Worker,
	gapBetweenShifts int,
	maxConsecutiveWeekends int,
	unresolved []domain.UnresolvedMandatory,
) []domain.Violation {
	var violations []domain.Violation

	skip := make(map[string]bool, len(unresolved))
	for _, u := range unresolved {
		skip[u.Worker.String()+"|"+u.Date.Format("2006-01-02")] = true
	}

	dates := sched.Dates()

	for _, d := range dates {
		seen := make(map[string]bool)
		workersOn := sched.WorkersOn(d)
		for _, id := range workersOn {
			if seen[id.String()] {
				violations = append(violations, domain.Violation{
					Kind: domain.ViolationDuplicateOnDay, Date: d, Worker: id,
					Reason: "worker occupies more than one post on this date",
				})
			}
			seen[id.String()] = true

			w, ok := workers[id]
			if !ok {
				continue
			}
			if w.IsDayOff(d) {
				violations = append(violations, domain.Violation{
					Kind: domain.ViolationDaysOff, Date: d, Worker: id,
					Reason: "assigned on a declared day off",
				})
			}
			if !w.IsWithinWorkPeriods(d) {
				violations = append(violations, domain.Violation{
					Kind: domain.ViolationWorkPeriod, Date: d, Worker: id,
					Reason: "assigned outside declared work periods",
				})
			}
		}

		for i := 0; i < len(workersOn); i++ {
			for j := i + 1; j < len(workersOn); j++ {
				wi, okI := workers[workersOn[i]]
				wj, okJ := workers[workersOn[j]]
				if okI && okJ && wi.IsIncompatibleWith(wj) {
					violations = append(violations, domain.Violation{
						Kind: domain.ViolationIncompatibility, Date: d,
						Worker: workersOn[i], Other: workersOn[j],
						Reason: "incompatible workers share a date",
					})
				}
			}
		}

		slots := sched.SlotCount(d)
		for post := 0; post < slots; post++ {
			if _, ok := sched.At(d, post); !ok {
				violations = append(violations, domain.Violation{
					Kind: domain.ViolationUncovered, Date: d, Post: post,
					Reason: "no feasible candidate for this post",
				})
			}
		}
	}

	for _, w := range workers {
		assignments := sched.Assignments(w.ID())
		for _, md := range w.MandatoryDays() {
			key := w.ID().String() + "|" + md.Format("2006-01-02")
			if skip[key] {
				continue
			}
			if !sched.IsAssignedOn(w.ID(), md) {
				violations = append(violations, domain.Violation{
					Kind: domain.ViolationMandatoryMissing, Date: md, Worker: w.ID(),
					Reason: "mandatory day not present in schedule",
				})
			}
		}

		for i := 0; i < len(assignments); i++ {
			for j := i + 1; j < len(assignments); j++ {
				d1, d2 := assignments[i], assignments[j]
				if sched.IsMandatoryAssignment(w.ID(), d1) || sched.IsMandatoryAssignment(w.ID(), d2) {
					continue
				}
				distDays := int(d2.Sub(d1).Hours() / 24)
				if distDays < gapBetweenShifts+1 {
					violations = append(violations, domain.Violation{
						Kind: domain.ViolationGap, Date: d2, Worker: w.ID(),
						Reason: fmt.Sprintf("only %d day(s) since prior assignment on %s", distDays, d1.Format("2006-01-02")),
					})
				} else if (distDays == 7 || distDays == 14) && d1.Weekday() == d2.Weekday() {
					violations = append(violations, domain.Violation{
						Kind: domain.ViolationWeeklyPattern, Date: d2, Worker: w.ID(),
						Reason: fmt.Sprintf("%d-day same-weekday recurrence with %s", distDays, d1.Format("2006-01-02")),
					})
				}
			}
		}

		for _, d := range assignments {
			if !sched.ClassifyDate(d).IsWeekendLike() {
				continue
			}
			if sched.IsMandatoryAssignment(w.ID(), d) {
				continue
			}
			isWeekendLike := func(t time.Time) bool { return sched.ClassifyDate(t).IsWeekendLike() }
			if !WeekendCapOK(removeDate(assignments, d), d, maxConsecutiveWeekends, isWeekendLike) {
				violations = append(violations, domain.Violation{
					Kind: domain.ViolationWeekendCap, Date: d, Worker: w.ID(),
					Reason: "exceeds max consecutive weekends in a 21-day window",
				})
			}
		}
	}

	return violations
}
