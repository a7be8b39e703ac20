package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rosterforge/rosterd/internal/shared/domain"
)

// Slot is one post position on a date: either a worker id or the null
// sentinel (empty post), represented here as a nil *WorkerID.
type Slot = *WorkerID

// Schedule is the aggregate root holding the day-by-day assignment grid
// plus its inverted assignments index. It is built fresh by Phase-1,
// mutated in place by Phase-2 and by collaboration-core-guarded live
// edits, and never partially observable: every exported mutator leaves
// invariants 1-4 and 6 of the data model intact, or returns an error
// without mutating.
type Schedule struct {
	domain.BaseAggregateRoot

	periodStart  time.Time
	periodEnd    time.Time
	slots        *SlotSchedule
	holidays     *HolidayCalendar
	days         map[time.Time][]Slot
	assignments  map[string]map[time.Time]struct{} // worker id -> dates
	mandatoryTag map[string]map[time.Time]struct{} // worker id -> dates assigned because mandatory
	cancelled    bool
}

// NewSchedule builds an empty schedule over [start, end] with every post
// on every date set to the null sentinel.
func NewSchedule(start, end time.Time, slots *SlotSchedule, holidays *HolidayCalendar) (*Schedule, error) {
	start, end = NormalizeDate(start), NormalizeDate(end)
	if end.Before(start) {
		return nil, fmt.Errorf("roster: end date %s precedes start date %s", end, start)
	}
	s := &Schedule{
		BaseAggregateRoot: domain.NewBaseAggregateRoot(),
		periodStart:       start,
		periodEnd:         end,
		slots:             slots,
		holidays:          holidays,
		days:              make(map[time.Time][]Slot),
		assignments:       make(map[string]map[time.Time]struct{}),
		mandatoryTag:      make(map[string]map[time.Time]struct{}),
	}
	for _, d := range Dates(start, end) {
		s.days[d] = make([]Slot, slots.SlotCount(d))
	}
	return s, nil
}

// PeriodStart and PeriodEnd return the inclusive scheduling period.
func (s *Schedule) PeriodStart() time.Time { return s.periodStart }
func (s *Schedule) PeriodEnd() time.Time   { return s.periodEnd }

// Dates returns every civil date in the scheduling period, sorted.
func (s *Schedule) Dates() []time.Time {
	out := make([]time.Time, 0, len(s.days))
	for d := range s.days {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// SlotCount returns the number of posts open on date d.
func (s *Schedule) SlotCount(d time.Time) int {
	return len(s.days[NormalizeDate(d)])
}

// ClassifyDate returns the DateClass of d under this schedule's holiday calendar.
func (s *Schedule) ClassifyDate(d time.Time) DateClass {
	return s.holidays.ClassifyDate(d)
}

// At returns the worker id occupying (d, post), or ("", false) if empty or
// out of range.
func (s *Schedule) At(d time.Time, post int) (WorkerID, bool) {
	row, ok := s.days[NormalizeDate(d)]
	if !ok || post < 0 || post >= len(row) {
		return WorkerID{}, false
	}
	if row[post] == nil {
		return WorkerID{}, false
	}
	return *row[post], true
}

// WorkersOn returns the distinct worker ids assigned on date d, in post order.
func (s *Schedule) WorkersOn(d time.Time) []WorkerID {
	row := s.days[NormalizeDate(d)]
	out := make([]WorkerID, 0, len(row))
	for _, slot := range row {
		if slot != nil {
			out = append(out, *slot)
		}
	}
	return out
}

// IsAssignedOn reports whether worker w already occupies any post on date d.
func (s *Schedule) IsAssignedOn(w WorkerID, d time.Time) bool {
	dates, ok := s.assignments[w.String()]
	if !ok {
		return false
	}
	_, assigned := dates[NormalizeDate(d)]
	return assigned
}

// Assignments returns the sorted dates on which worker w is assigned.
func (s *Schedule) Assignments(w WorkerID) []time.Time {
	dates, ok := s.assignments[w.String()]
	if !ok {
		return nil
	}
	out := make([]time.Time, 0, len(dates))
	for d := range dates {
		out = append(out, d)
	}
	return SortedDates(out)
}

// AssignmentCount returns how many dates worker w is assigned across the schedule.
func (s *Schedule) AssignmentCount(w WorkerID) int {
	return len(s.assignments[w.String()])
}

// IsMandatoryAssignment reports whether worker w's presence on date d was
// placed to satisfy a mandatory-day requirement, and is therefore inviolable
// by Phase-2 transformations.
func (s *Schedule) IsMandatoryAssignment(w WorkerID, d time.Time) bool {
	dates, ok := s.mandatoryTag[w.String()]
	if !ok {
		return false
	}
	_, tagged := dates[NormalizeDate(d)]
	return tagged
}

// Assign places worker w on (d, post). mandatory marks the assignment as
// inviolable. Returns an error if the post is out of range, already
// occupied, or the worker already holds another post that day (invariant 2).
func (s *Schedule) Assign(w WorkerID, d time.Time, post int, mandatory bool) error {
	d = NormalizeDate(d)
	row, ok := s.days[d]
	if !ok {
		return fmt.Errorf("roster: date %s outside schedule period", d)
	}
	if post < 0 || post >= len(row) {
		return fmt.Errorf("roster: post %d out of range for date %s (slots=%d)", post, d, len(row))
	}
	if row[post] != nil {
		return fmt.Errorf("roster: post %d on %s already occupied", post, d)
	}
	if s.IsAssignedOn(w, d) {
		return fmt.Errorf("roster: worker %s already assigned on %s", w, d)
	}

	id := w
	row[post] = &id

	if s.assignments[w.String()] == nil {
		s.assignments[w.String()] = make(map[time.Time]struct{})
	}
	s.assignments[w.String()][d] = struct{}{}

	if mandatory {
		if s.mandatoryTag[w.String()] == nil {
			s.mandatoryTag[w.String()] = make(map[time.Time]struct{})
		}
		s.mandatoryTag[w.String()][d] = struct{}{}
	}

	s.IncrementVersion()
	return nil
}

// Unassign removes worker w from (d, post). Returns an error if the post is
// empty, occupied by a different worker, or the assignment is tagged
// mandatory (Phase-2's inviolability rule — callers must check
// IsMandatoryAssignment before calling Unassign if they intend to tolerate
// that case gracefully instead of erroring).
func (s *Schedule) Unassign(w WorkerID, d time.Time, post int) error {
	d = NormalizeDate(d)
	row, ok := s.days[d]
	if !ok {
		return fmt.Errorf("roster: date %s outside schedule period", d)
	}
	if post < 0 || post >= len(row) {
		return fmt.Errorf("roster: post %d out of range for date %s", post, d)
	}
	if row[post] == nil || !row[post].Equals(w) {
		return fmt.Errorf("roster: worker %s does not occupy post %d on %s", w, post, d)
	}
	if s.IsMandatoryAssignment(w, d) {
		return fmt.Errorf("roster: assignment of %s on %s is mandatory and cannot be unassigned", w, d)
	}

	row[post] = nil
	delete(s.assignments[w.String()], d)
	if len(s.assignments[w.String()]) == 0 {
		delete(s.assignments, w.String())
	}

	s.IncrementVersion()
	return nil
}

// Move relocates worker w from (fromDate, fromPost) to (toDate, toPost) as a
// single atomic step used by Phase-2's displacement chains: it fails
// without mutating if either half of the move would fail.
func (s *Schedule) Move(w WorkerID, fromDate time.Time, fromPost int, toDate time.Time, toPost int) error {
	fromDate, toDate = NormalizeDate(fromDate), NormalizeDate(toDate)
	fromRow, ok := s.days[fromDate]
	if !ok || fromPost < 0 || fromPost >= len(fromRow) || fromRow[fromPost] == nil || !fromRow[fromPost].Equals(w) {
		return fmt.Errorf("roster: worker %s not at post %d on %s", w, fromPost, fromDate)
	}
	if s.IsMandatoryAssignment(w, fromDate) {
		return fmt.Errorf("roster: assignment of %s on %s is mandatory and cannot be moved", w, fromDate)
	}
	toRow, ok := s.days[toDate]
	if !ok || toPost < 0 || toPost >= len(toRow) {
		return fmt.Errorf("roster: post %d out of range for date %s", toPost, toDate)
	}
	if toRow[toPost] != nil {
		return fmt.Errorf("roster: post %d on %s already occupied", toPost, toDate)
	}
	if !fromDate.Equal(toDate) && s.IsAssignedOn(w, toDate) {
		return fmt.Errorf("roster: worker %s already assigned on %s", w, toDate)
	}

	fromRow[fromPost] = nil
	id := w
	toRow[toPost] = &id

	delete(s.assignments[w.String()], fromDate)
	if s.assignments[w.String()] == nil {
		s.assignments[w.String()] = make(map[time.Time]struct{})
	}
	s.assignments[w.String()][toDate] = struct{}{}

	s.IncrementVersion()
	return nil
}

// FilledCount returns the total number of non-empty posts across the schedule.
func (s *Schedule) FilledCount() int {
	count := 0
	for _, row := range s.days {
		for _, slot := range row {
			if slot != nil {
				count++
			}
		}
	}
	return count
}

// EmptySlots returns the (date, post) pairs currently unfilled, sorted by date then post.
func (s *Schedule) EmptySlots() []DatePost {
	var out []DatePost
	for _, d := range s.Dates() {
		row := s.days[d]
		for post, slot := range row {
			if slot == nil {
				out = append(out, DatePost{Date: d, Post: post})
			}
		}
	}
	return out
}

// DatePost identifies a single post position.
type DatePost struct {
	Date time.Time
	Post int
}

// TagMandatory marks the existing assignment of w on d as mandatory,
// without re-validating placement; used when rehydrating a schedule from
// storage where the mandatory set is supplied independently.
func (s *Schedule) TagMandatory(w WorkerID, d time.Time) {
	d = NormalizeDate(d)
	if s.mandatoryTag[w.String()] == nil {
		s.mandatoryTag[w.String()] = make(map[time.Time]struct{})
	}
	s.mandatoryTag[w.String()][d] = struct{}{}
}

// SetCancelled marks the schedule as the output of a cancelled generation run.
func (s *Schedule) SetCancelled(cancelled bool) { s.cancelled = cancelled }

// Cancelled reports whether the generation run that produced this schedule
// was cancelled before completion.
func (s *Schedule) Cancelled() bool { return s.cancelled }

// RehydrationData carries the full persisted state of a Schedule needed to
// reconstruct it outside of NewSchedule's fresh-grid path, for repositories
// loading a previously-generated schedule back from storage.
type RehydrationData struct {
	ID           uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int
	PeriodStart  time.Time
	PeriodEnd    time.Time
	Slots        *SlotSchedule
	Holidays     *HolidayCalendar
	Assignments  map[time.Time]map[int]WorkerID // date -> post -> worker
	Mandatory    map[WorkerID][]time.Time
	Cancelled    bool
}

// RehydrateSchedule reconstructs a Schedule from persisted state without
// re-running any placement logic or re-validating feasibility — the data is
// trusted to have been valid when it was saved.
func RehydrateSchedule(data RehydrationData) *Schedule {
	s := &Schedule{
		BaseAggregateRoot: domain.RehydrateBaseAggregateRoot(
			domain.RehydrateBaseEntity(data.ID, data.CreatedAt, data.UpdatedAt),
			data.Version,
		),
		periodStart:  NormalizeDate(data.PeriodStart),
		periodEnd:    NormalizeDate(data.PeriodEnd),
		slots:        data.Slots,
		holidays:     data.Holidays,
		days:         make(map[time.Time][]Slot),
		assignments:  make(map[string]map[time.Time]struct{}),
		mandatoryTag: make(map[string]map[time.Time]struct{}),
		cancelled:    data.Cancelled,
	}
	for _, d := range Dates(s.periodStart, s.periodEnd) {
		s.days[d] = make([]Slot, data.Slots.SlotCount(d))
	}
	for d, posts := range data.Assignments {
		d = NormalizeDate(d)
		row, ok := s.days[d]
		if !ok {
			continue
		}
		for post, w := range posts {
			if post < 0 || post >= len(row) {
				continue
			}
			id := w
			row[post] = &id
			if s.assignments[w.String()] == nil {
				s.assignments[w.String()] = make(map[time.Time]struct{})
			}
			s.assignments[w.String()][d] = struct{}{}
		}
	}
	for w, dates := range data.Mandatory {
		for _, d := range dates {
			s.TagMandatory(w, d)
		}
	}
	return s
}

// Clone returns a deep copy of the schedule, used by Phase-1 attempts (each
// attempt mutates its own copy) and by the host before handing a draft to
// UI layers for inspection.
func (s *Schedule) Clone() *Schedule {
	clone := &Schedule{
		BaseAggregateRoot: domain.RehydrateBaseAggregateRoot(
			domain.RehydrateBaseEntity(s.ID(), s.CreatedAt(), s.UpdatedAt()),
			s.Version(),
		),
		periodStart:       s.periodStart,
		periodEnd:         s.periodEnd,
		slots:             s.slots,
		holidays:          s.holidays,
		days:              make(map[time.Time][]Slot, len(s.days)),
		assignments:       make(map[string]map[time.Time]struct{}, len(s.assignments)),
		mandatoryTag:      make(map[string]map[time.Time]struct{}, len(s.mandatoryTag)),
		cancelled:         s.cancelled,
	}
	for d, row := range s.days {
		newRow := make([]Slot, len(row))
		for i, slot := range row {
			if slot != nil {
				id := *slot
				newRow[i] = &id
			}
		}
		clone.days[d] = newRow
	}
	for worker, dates := range s.assignments {
		copied := make(map[time.Time]struct{}, len(dates))
		for d := range dates {
			copied[d] = struct{}{}
		}
		clone.assignments[worker] = copied
	}
	for worker, dates := range s.mandatoryTag {
		copied := make(map[time.Time]struct{}, len(dates))
		for d := range dates {
			copied[d] = struct{}{}
		}
		clone.mandatoryTag[worker] = copied
	}
	return clone
}
