package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorker_TargetShiftsOverride(t *testing.T) {
	w := NewWorker(NewWorkerID("a"), 1.0)
	_, ok := w.TargetShiftsOverride()
	assert.False(t, ok)

	w = NewWorker(NewWorkerID("a"), 1.0, WithTargetShifts(6))
	n, ok := w.TargetShiftsOverride()
	assert.True(t, ok)
	assert.Equal(t, 6, n)
}

func TestWorker_IsDayOff(t *testing.T) {
	off := NewDateRange(
		time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	)
	w := NewWorker(NewWorkerID("a"), 1.0, WithDaysOff(off))

	assert.True(t, w.IsDayOff(time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)))
	assert.False(t, w.IsDayOff(time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC)))
}

func TestWorker_IsWithinWorkPeriods_EmptyMeansAlwaysAvailable(t *testing.T) {
	w := NewWorker(NewWorkerID("a"), 1.0)
	assert.True(t, w.IsWithinWorkPeriods(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)))
}

func TestWorker_IsWithinWorkPeriods_RestrictsToDeclaredRanges(t *testing.T) {
	period := NewDateRange(
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	)
	w := NewWorker(NewWorkerID("a"), 1.0, WithWorkPeriods(period))

	assert.True(t, w.IsWithinWorkPeriods(time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)))
	assert.False(t, w.IsWithinWorkPeriods(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)))
}

func TestWorker_IsAvailable_CombinesWorkPeriodsAndDaysOff(t *testing.T) {
	period := NewDateRange(
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	)
	off := NewDateRange(
		time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
	)
	w := NewWorker(NewWorkerID("a"), 1.0, WithWorkPeriods(period), WithDaysOff(off))

	assert.True(t, w.IsAvailable(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)))
	assert.False(t, w.IsAvailable(time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)), "day off within work period")
	assert.False(t, w.IsAvailable(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)), "outside work period")
}

func TestWorker_IsMandatory(t *testing.T) {
	d := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	w := NewWorker(NewWorkerID("a"), 1.0, WithMandatoryDays(d))

	assert.True(t, w.IsMandatory(d))
	assert.False(t, w.IsMandatory(d.AddDate(0, 0, 1)))
}

func TestWorker_IsIncompatibleWith_SelfNeverIncompatible(t *testing.T) {
	a := NewWorker(NewWorkerID("a"), 1.0)
	assert.False(t, a.IsIncompatibleWith(a))
	assert.False(t, a.IsIncompatibleWith(nil))
}

func TestWorker_IsIncompatibleWith_GroupFlag(t *testing.T) {
	a := NewWorker(NewWorkerID("a"), 1.0, WithIncompatibilityFlag())
	b := NewWorker(NewWorkerID("b"), 1.0, WithIncompatibilityFlag())
	c := NewWorker(NewWorkerID("c"), 1.0)

	assert.True(t, a.IsIncompatibleWith(b))
	assert.False(t, a.IsIncompatibleWith(c))
}

func TestWorker_IsIncompatibleWith_PairwiseIsDirectionAgnostic(t *testing.T) {
	a := NewWorker(NewWorkerID("a"), 1.0, WithIncompatibleWith(NewWorkerID("b")))
	b := NewWorker(NewWorkerID("b"), 1.0)

	assert.True(t, a.IsIncompatibleWith(b), "a declared b incompatible")
	assert.True(t, b.IsIncompatibleWith(a), "predicate checks both directions even before normalization")
}

func TestWorker_IncompatibleWith_ReturnsDeclaredPairsOnly(t *testing.T) {
	a := NewWorker(NewWorkerID("a"), 1.0, WithIncompatibleWith(NewWorkerID("b"), NewWorkerID("c")))
	ids := a.IncompatibleWith()
	assert.Len(t, ids, 2)
}

func TestNormalizeIncompatibilities_SymmetrizesPairwiseDeclarations(t *testing.T) {
	a := NewWorker(NewWorkerID("a"), 1.0, WithIncompatibleWith(NewWorkerID("b")))
	b := NewWorker(NewWorkerID("b"), 1.0)

	NormalizeIncompatibilities([]*Worker{a, b})

	assert.Len(t, b.IncompatibleWith(), 1, "b should now declare a incompatible too")
}

func TestNormalizeIncompatibilities_LinksAllFlaggedWorkersPairwise(t *testing.T) {
	a := NewWorker(NewWorkerID("a"), 1.0, WithIncompatibilityFlag())
	b := NewWorker(NewWorkerID("b"), 1.0, WithIncompatibilityFlag())
	c := NewWorker(NewWorkerID("c"), 1.0, WithIncompatibilityFlag())

	NormalizeIncompatibilities([]*Worker{a, b, c})

	assert.Len(t, a.IncompatibleWith(), 2)
	assert.Len(t, b.IncompatibleWith(), 2)
	assert.Len(t, c.IncompatibleWith(), 2)
}

func TestWorkerID_Equality(t *testing.T) {
	a := NewWorkerID("x")
	b := NewWorkerID("x")
	c := NewWorkerID("y")

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
	assert.True(t, NewWorkerID("").IsZero())
	assert.False(t, a.IsZero())
}

func TestDateRange_ContainsAndDays(t *testing.T) {
	r := NewDateRange(
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
	)
	assert.True(t, r.Contains(time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 5, r.Days())
}
