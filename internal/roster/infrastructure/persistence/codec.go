package persistence

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rosterforge/rosterd/internal/roster/domain"
)

// scheduleRow is the JSON-encoded payload stored alongside a schedule's
// indexed id/period columns. It captures everything RehydrateSchedule
// needs: the slot configuration, holiday calendar, and the full
// assignment/mandatory grid — but not the version/timestamps, which are
// tracked as their own columns so the row can be queried and ordered
// without decoding the payload.
type scheduleRow struct {
	SlotDefault   int                     `json:"slot_default"`
	SlotRules     []slotRuleRow           `json:"slot_rules"`
	Holidays      []string                `json:"holidays"`
	Assignments   map[string]map[int]string `json:"assignments"` // date -> post -> worker id
	Mandatory     map[string][]string     `json:"mandatory"`     // worker id -> dates
	Cancelled     bool                    `json:"cancelled"`
}

type slotRuleRow struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Count int    `json:"count"`
}

const dateLayout = "2006-01-02"

func encodeSchedule(sched *domain.Schedule) ([]byte, error) {
	row := scheduleRow{
		Assignments: make(map[string]map[int]string),
		Mandatory:   make(map[string][]string),
	}

	defaultSlots := sched.SlotCount(sched.PeriodStart())
	for _, d := range sched.Dates() {
		if sched.ClassifyDate(d) == domain.DateClassHoliday {
			row.Holidays = append(row.Holidays, d.Format(dateLayout))
		}
		slots := sched.SlotCount(d)
		if slots != defaultSlots {
			key := d.Format(dateLayout)
			row.SlotRules = append(row.SlotRules, slotRuleRow{Start: key, End: key, Count: slots})
		}
		for post := 0; post < slots; post++ {
			id, ok := sched.At(d, post)
			if !ok {
				continue
			}
			key := d.Format(dateLayout)
			if row.Assignments[key] == nil {
				row.Assignments[key] = make(map[int]string)
			}
			row.Assignments[key][post] = id.String()
			if sched.IsMandatoryAssignment(id, d) {
				row.Mandatory[id.String()] = append(row.Mandatory[id.String()], key)
			}
		}
	}
	if end := sched.PeriodEnd(); sched.ClassifyDate(end) == domain.DateClassPreHoliday {
		row.Holidays = append(row.Holidays, end.AddDate(0, 0, 1).Format(dateLayout))
	}
	row.Cancelled = sched.Cancelled()
	row.SlotDefault = defaultSlots

	return json.Marshal(row)
}

func decodeSchedule(
	id uuid.UUID,
	createdAt, updatedAt time.Time,
	version int,
	periodStart, periodEnd time.Time,
	payload []byte,
) (*domain.Schedule, error) {
	var row scheduleRow
	if err := json.Unmarshal(payload, &row); err != nil {
		return nil, err
	}

	holidays := make([]time.Time, 0, len(row.Holidays))
	for _, h := range row.Holidays {
		t, err := time.Parse(dateLayout, h)
		if err != nil {
			return nil, err
		}
		holidays = append(holidays, t)
	}
	holidayCal := domain.NewHolidayCalendar(holidays...)

	rules := make([]domain.SlotRule, 0, len(row.SlotRules))
	for _, r := range row.SlotRules {
		start, err := time.Parse(dateLayout, r.Start)
		if err != nil {
			return nil, err
		}
		end, err := time.Parse(dateLayout, r.End)
		if err != nil {
			return nil, err
		}
		rules = append(rules, domain.SlotRule{Start: start, End: end, Count: r.Count})
	}
	slotSchedule := domain.NewSlotSchedule(row.SlotDefault, rules...)

	assignments := make(map[time.Time]map[int]domain.WorkerID, len(row.Assignments))
	for dateStr, posts := range row.Assignments {
		d, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			return nil, err
		}
		byPost := make(map[int]domain.WorkerID, len(posts))
		for post, workerID := range posts {
			byPost[post] = domain.NewWorkerID(workerID)
		}
		assignments[d] = byPost
	}

	mandatory := make(map[domain.WorkerID][]time.Time, len(row.Mandatory))
	for workerID, dates := range row.Mandatory {
		parsed := make([]time.Time, 0, len(dates))
		for _, dateStr := range dates {
			d, err := time.Parse(dateLayout, dateStr)
			if err != nil {
				return nil, err
			}
			parsed = append(parsed, d)
		}
		mandatory[domain.NewWorkerID(workerID)] = parsed
	}

	return domain.RehydrateSchedule(domain.RehydrationData{
		ID:          id,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		Version:     version,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Slots:       slotSchedule,
		Holidays:    holidayCal,
		Assignments: assignments,
		Mandatory:   mandatory,
		Cancelled:   row.Cancelled,
	}), nil
}
