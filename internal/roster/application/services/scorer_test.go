package services

import (
	"testing"
	"time"

	"github.com/rosterforge/rosterd/internal/roster/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestGapPredicateOK_MinimumGap(t *testing.T) {
	existing := []time.Time{day(2026, 1, 1)}

	assert.False(t, GapPredicateOK(existing, day(2026, 1, 2), 2), "1 day apart violates a 2-day minimum gap")
	assert.False(t, GapPredicateOK(existing, day(2026, 1, 3), 2), "2 days apart still violates a 2-day minimum gap (need 3)")
	assert.True(t, GapPredicateOK(existing, day(2026, 1, 4), 2), "3 days apart satisfies a 2-day minimum gap")
}

func TestGapPredicateOK_SameWeekdayRecurrenceForbidden(t *testing.T) {
	// Jan 1 2026 is a Thursday; Jan 8 is also a Thursday, 7 days later.
	existing := []time.Time{day(2026, 1, 1)}

	assert.False(t, GapPredicateOK(existing, day(2026, 1, 8), 0), "7-day same-weekday recurrence is forbidden")
	assert.False(t, GapPredicateOK(existing, day(2026, 1, 15), 0), "14-day same-weekday recurrence is forbidden")
}

func TestGapPredicateOK_DifferentWeekdayAtEightDaysAllowed(t *testing.T) {
	existing := []time.Time{day(2026, 1, 1)}
	// Jan 9 2026 is a Friday, 8 days after the Thursday Jan 1 assignment —
	// different weekday, not a 7-day multiple, so no violation.
	assert.True(t, GapPredicateOK(existing, day(2026, 1, 9), 0))
}

func TestWeekendCapOK_RespectsSlidingWindow(t *testing.T) {
	isWeekendLike := func(t time.Time) bool {
		return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
	}

	// Three prior weekend assignments already inside a 21-day window.
	existing := []time.Time{
		day(2026, 1, 3),  // Saturday
		day(2026, 1, 10), // Saturday
		day(2026, 1, 17), // Saturday
	}
	candidate := day(2026, 1, 18) // Sunday, in the Jan 3 - Jan 23 window

	assert.False(t, WeekendCapOK(existing, candidate, 3, isWeekendLike), "a 4th weekend in the window exceeds a cap of 3")
	assert.True(t, WeekendCapOK(existing, candidate, 4, isWeekendLike), "a cap of 4 permits the 4th weekend")
}

func TestWeekendCapOK_NonWeekendCandidateAlwaysOK(t *testing.T) {
	isWeekendLike := func(t time.Time) bool { return t.Weekday() == time.Saturday }
	assert.True(t, WeekendCapOK(nil, day(2026, 1, 5), 0, isWeekendLike))
}

func TestCanAssign_RejectsDayOff(t *testing.T) {
	w := domain.NewWorker(domain.NewWorkerID("a"), 1.0, domain.WithDaysOff(domain.NewDateRange(day(2026, 1, 1), day(2026, 1, 1))))
	sched := newTestSchedule(t, day(2026, 1, 1), day(2026, 1, 10), 1)

	ok, kind, _ := CanAssign(w, day(2026, 1, 1), sched, nil, 0, 99, false)
	assert.False(t, ok)
	assert.Equal(t, domain.ViolationDaysOff, kind)
}

func TestCanAssign_RejectsIncompatibility(t *testing.T) {
	a := domain.NewWorker(domain.NewWorkerID("a"), 1.0)
	b := domain.NewWorker(domain.NewWorkerID("b"), 1.0, domain.WithIncompatibleWith(domain.NewWorkerID("a")))
	domain.NormalizeIncompatibilities([]*domain.Worker{a, b})
	sched := newTestSchedule(t, day(2026, 1, 1), day(2026, 1, 10), 1)

	ok, kind, _ := CanAssign(b, day(2026, 1, 1), sched, []*domain.Worker{a}, 0, 99, false)
	assert.False(t, ok)
	assert.Equal(t, domain.ViolationIncompatibility, kind)
}

func TestCanAssign_MandatoryExemptsGapAndWeekendChecks(t *testing.T) {
	w := domain.NewWorker(domain.NewWorkerID("a"), 1.0)
	sched := newTestSchedule(t, day(2026, 1, 1), day(2026, 1, 10), 1)
	require.NoError(t, sched.Assign(w.ID(), day(2026, 1, 1), 0, false))

	// Gap violation if not mandatory (only 1 day apart, needs at least 2).
	ok, _, _ := CanAssign(w, day(2026, 1, 2), sched, nil, 1, 99, false)
	assert.False(t, ok)

	// Same candidate passes when flagged mandatory.
	ok, _, _ = CanAssign(w, day(2026, 1, 2), sched, nil, 1, 99, true)
	assert.True(t, ok)
}

func newTestSchedule(t *testing.T, start, end time.Time, slotsPerDay int) *domain.Schedule {
	t.Helper()
	sched, err := domain.NewSchedule(start, end, domain.NewSlotSchedule(slotsPerDay), domain.NewHolidayCalendar())
	require.NoError(t, err)
	return sched
}
