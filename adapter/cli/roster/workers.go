package roster

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rosterforge/rosterd/internal/roster/domain"
)

// dateRangeDoc is the JSON wire shape of a domain.DateRange.
type dateRangeDoc struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// workerDoc is the JSON wire shape of a domain.Worker, used to load a
// worker roster from a file for the generate/statistics/swaps/report
// commands.
type workerDoc struct {
	ID               string         `json:"id"`
	WorkPercentage   float64        `json:"work_percentage"`
	TargetShifts     *int           `json:"target_shifts,omitempty"`
	IncompatibleFlag bool           `json:"incompatible_flag,omitempty"`
	IncompatibleWith []string       `json:"incompatible_with,omitempty"`
	MandatoryDays    []string       `json:"mandatory_days,omitempty"`
	DaysOff          []dateRangeDoc `json:"days_off,omitempty"`
	WorkPeriods      []dateRangeDoc `json:"work_periods,omitempty"`
}

const civilDateLayout = "2006-01-02"

func parseCivilDate(s string) (time.Time, error) {
	t, err := time.Parse(civilDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

func parseDateRanges(docs []dateRangeDoc) ([]domain.DateRange, error) {
	ranges := make([]domain.DateRange, 0, len(docs))
	for _, d := range docs {
		start, err := parseCivilDate(d.Start)
		if err != nil {
			return nil, err
		}
		end, err := parseCivilDate(d.End)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, domain.NewDateRange(start, end))
	}
	return ranges, nil
}

// loadWorkers reads a JSON array of workerDoc from path and converts it
// into the domain's functional-option Worker construction.
func loadWorkers(path string) ([]*domain.Worker, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workers file: %w", err)
	}

	var docs []workerDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("parse workers file: %w", err)
	}

	workers := make([]*domain.Worker, 0, len(docs))
	for _, d := range docs {
		if d.ID == "" {
			return nil, fmt.Errorf("worker entry missing id")
		}

		var opts []domain.WorkerOption
		if d.TargetShifts != nil {
			opts = append(opts, domain.WithTargetShifts(*d.TargetShifts))
		}
		if d.IncompatibleFlag {
			opts = append(opts, domain.WithIncompatibilityFlag())
		}
		if len(d.IncompatibleWith) > 0 {
			ids := make([]domain.WorkerID, len(d.IncompatibleWith))
			for i, id := range d.IncompatibleWith {
				ids[i] = domain.NewWorkerID(id)
			}
			opts = append(opts, domain.WithIncompatibleWith(ids...))
		}
		if len(d.MandatoryDays) > 0 {
			dates := make([]time.Time, len(d.MandatoryDays))
			for i, s := range d.MandatoryDays {
				dt, err := parseCivilDate(s)
				if err != nil {
					return nil, fmt.Errorf("worker %s: %w", d.ID, err)
				}
				dates[i] = dt
			}
			opts = append(opts, domain.WithMandatoryDays(dates...))
		}
		if len(d.DaysOff) > 0 {
			ranges, err := parseDateRanges(d.DaysOff)
			if err != nil {
				return nil, fmt.Errorf("worker %s: %w", d.ID, err)
			}
			opts = append(opts, domain.WithDaysOff(ranges...))
		}
		if len(d.WorkPeriods) > 0 {
			ranges, err := parseDateRanges(d.WorkPeriods)
			if err != nil {
				return nil, fmt.Errorf("worker %s: %w", d.ID, err)
			}
			opts = append(opts, domain.WithWorkPeriods(ranges...))
		}

		workers = append(workers, domain.NewWorker(domain.NewWorkerID(d.ID), d.WorkPercentage, opts...))
	}

	domain.NormalizeIncompatibilities(workers)
	return workers, nil
}
