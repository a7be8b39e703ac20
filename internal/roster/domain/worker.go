package domain

import "time"

// WorkerID is a stable, opaque worker identifier. Wrapping the bare string
// in a value object (mirroring the shared UserID value object) centralizes
// equality/hashing and keeps future identifier formats from rippling
// through every package that references a worker.
type WorkerID struct {
	value string
}

// NewWorkerID creates a WorkerID from a string. Blank ids are permitted
// here and NewWorker does not reject them either; IsZero detects them.
func NewWorkerID(value string) WorkerID {
	return WorkerID{value: value}
}

// String returns the underlying identifier.
func (w WorkerID) String() string { return w.value }

// IsZero reports whether the id is the empty value.
func (w WorkerID) IsZero() bool { return w.value == "" }

// Equals implements domain.ValueObject-style comparison used by the
// incompatibility graph and assignment indexes.
func (w WorkerID) Equals(other WorkerID) bool { return w.value == other.value }

// DateRange is an inclusive civil-date range, normalized to midnight UTC on
// both ends so date arithmetic never has to account for time-of-day.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange normalizes both ends of a date range. An End before Start is
// kept as given (Days then reports 0).
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: NormalizeDate(start), End: NormalizeDate(end)}
}

// Contains reports whether d falls within the inclusive range.
func (r DateRange) Contains(d time.Time) bool {
	d = NormalizeDate(d)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days returns the number of calendar days spanned by the range, inclusive.
func (r DateRange) Days() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// NormalizeDate truncates a time.Time to a civil date at midnight UTC.
func NormalizeDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Worker represents a doctor in the scheduling pool, along with the
// attributes spec.md §3 requires the engine to honor.
type Worker struct {
	id                  WorkerID
	workPercentage      float64
	targetShiftsOverride *int
	autoCalculateShifts bool
	isIncompatible      bool // group flag: cannot co-assign with any other group-flagged worker
	incompatibleWith    map[WorkerID]struct{}
	mandatoryDays       map[time.Time]struct{}
	daysOff             []DateRange
	workPeriods         []DateRange
}

// WorkerOption configures optional Worker attributes at construction time.
type WorkerOption func(*Worker)

// WithTargetShifts overrides the computed quota for this worker.
func WithTargetShifts(n int) WorkerOption {
	return func(w *Worker) { w.targetShiftsOverride = &n }
}

// WithIncompatibilityFlag marks the worker as a member of the group
// incompatibility flag (cannot co-assign with any other flagged worker).
func WithIncompatibilityFlag() WorkerOption {
	return func(w *Worker) { w.isIncompatible = true }
}

// WithIncompatibleWith adds pairwise incompatibilities.
func WithIncompatibleWith(ids ...WorkerID) WorkerOption {
	return func(w *Worker) {
		for _, id := range ids {
			w.incompatibleWith[id] = struct{}{}
		}
	}
}

// WithMandatoryDays marks dates the worker must be assigned on.
func WithMandatoryDays(dates ...time.Time) WorkerOption {
	return func(w *Worker) {
		for _, d := range dates {
			w.mandatoryDays[NormalizeDate(d)] = struct{}{}
		}
	}
}

// WithDaysOff marks date ranges the worker must not be assigned on.
func WithDaysOff(ranges ...DateRange) WorkerOption {
	return func(w *Worker) { w.daysOff = append(w.daysOff, ranges...) }
}

// WithWorkPeriods restricts availability to the given ranges. An empty set
// (the default) means "always available inside the global period".
func WithWorkPeriods(ranges ...DateRange) WorkerOption {
	return func(w *Worker) { w.workPeriods = append(w.workPeriods, ranges...) }
}

// NewWorker constructs a Worker. workPercentage of 0 is accepted and treated
// as "excluded" by the quota calculator (spec.md §9 Open Questions).
func NewWorker(id WorkerID, workPercentage float64, opts ...WorkerOption) *Worker {
	w := &Worker{
		id:                  id,
		workPercentage:      workPercentage,
		autoCalculateShifts: true,
		incompatibleWith:    make(map[WorkerID]struct{}),
		mandatoryDays:       make(map[time.Time]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) ID() WorkerID              { return w.id }
func (w *Worker) WorkPercentage() float64   { return w.workPercentage }
func (w *Worker) IsGroupIncompatible() bool { return w.isIncompatible }

// TargetShiftsOverride returns the host-supplied quota override, if any.
func (w *Worker) TargetShiftsOverride() (int, bool) {
	if w.targetShiftsOverride == nil {
		return 0, false
	}
	return *w.targetShiftsOverride, true
}

// IncompatibleWith returns the ids this worker explicitly declares
// incompatible, not including partners linked only by the shared
// group-incompatibility flag. Intended for serializing a worker back out
// to a document; prefer IsIncompatibleWith for feasibility checks, since
// that also accounts for the group flag and the reverse direction.
func (w *Worker) IncompatibleWith() []WorkerID {
	ids := make([]WorkerID, 0, len(w.incompatibleWith))
	for id := range w.incompatibleWith {
		ids = append(ids, id)
	}
	return ids
}

// IsMandatory reports whether d is a mandatory assignment day for this worker.
func (w *Worker) IsMandatory(d time.Time) bool {
	_, ok := w.mandatoryDays[NormalizeDate(d)]
	return ok
}

// MandatoryDays returns a copy of the mandatory day set.
func (w *Worker) MandatoryDays() []time.Time {
	days := make([]time.Time, 0, len(w.mandatoryDays))
	for d := range w.mandatoryDays {
		days = append(days, d)
	}
	return days
}

// DaysOff returns the declared days-off ranges, for serializing a worker
// back out to a document.
func (w *Worker) DaysOff() []DateRange {
	out := make([]DateRange, len(w.daysOff))
	copy(out, w.daysOff)
	return out
}

// IsDayOff reports whether d falls inside any of the worker's days-off ranges.
func (w *Worker) IsDayOff(d time.Time) bool {
	for _, r := range w.daysOff {
		if r.Contains(d) {
			return true
		}
	}
	return false
}

// IsWithinWorkPeriods reports whether d falls inside at least one declared
// work period. An empty work-period set means "always available".
func (w *Worker) IsWithinWorkPeriods(d time.Time) bool {
	if len(w.workPeriods) == 0 {
		return true
	}
	for _, r := range w.workPeriods {
		if r.Contains(d) {
			return true
		}
	}
	return false
}

// WorkPeriods returns the declared availability ranges.
func (w *Worker) WorkPeriods() []DateRange { return w.workPeriods }

// IsAvailable reports combined availability: inside a work period, and not
// on a day off. Mandatory days are NOT exempted here — callers enforcing
// the "mandatories are inviolate" rule must check IsMandatory separately.
func (w *Worker) IsAvailable(d time.Time) bool {
	return w.IsWithinWorkPeriods(d) && !w.IsDayOff(d)
}

// IsIncompatibleWith reports pairwise or group incompatibility with other.
func (w *Worker) IsIncompatibleWith(other *Worker) bool {
	if other == nil || w.id.Equals(other.id) {
		return false
	}
	if w.isIncompatible && other.isIncompatible {
		return true
	}
	if _, ok := w.incompatibleWith[other.id]; ok {
		return true
	}
	_, ok := other.incompatibleWith[w.id]
	return ok
}

// NormalizeIncompatibilities symmetrizes the incompatibility relation:
// if A declares B incompatible, B is made to declare A incompatible too,
// and every pair of group-flagged workers is linked. Called once by the
// engine before generation so downstream code can treat the adjacency as
// a plain symmetric set (spec.md §9 design notes).
func NormalizeIncompatibilities(workers []*Worker) {
	for _, w := range workers {
		for otherID := range w.incompatibleWith {
			for _, other := range workers {
				if other.id.Equals(otherID) {
					other.incompatibleWith[w.id] = struct{}{}
				}
			}
		}
	}
	flagged := make([]*Worker, 0)
	for _, w := range workers {
		if w.isIncompatible {
			flagged = append(flagged, w)
		}
	}
	for i := range flagged {
		for j := range flagged {
			if i == j {
				continue
			}
			flagged[i].incompatibleWith[flagged[j].id] = struct{}{}
		}
	}
}
