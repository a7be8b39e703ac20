// Package serialization implements the host-owned backup document format
// described in spec.md §6: a single JSON document carrying the engine's
// input configuration and output schedule together, with unknown fields
// preserved by loaders for forward compatibility.
package serialization

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/rosterforge/rosterd/internal/roster/application/services"
	"github.com/rosterforge/rosterd/internal/roster/domain"
)

const dateLayout = "2006-01-02"

// WorkerDocument is the wire shape of a domain.Worker.
type WorkerDocument struct {
	ID                string         `json:"id"`
	WorkPercentage    float64        `json:"work_percentage"`
	TargetShifts      *int           `json:"target_shifts,omitempty"`
	GroupIncompatible bool           `json:"group_incompatible,omitempty"`
	IncompatibleWith  []string       `json:"incompatible_with,omitempty"`
	MandatoryDays     []string       `json:"mandatory_days,omitempty"`
	DaysOff           []DateRangeDoc `json:"days_off,omitempty"`
	WorkPeriods       []DateRangeDoc `json:"work_periods,omitempty"`
}

// DateRangeDoc is the wire shape of a domain.DateRange.
type DateRangeDoc struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// VariableShiftDoc is the wire shape of a {start,end,count} slot rule.
type VariableShiftDoc struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Count int    `json:"count"`
}

// BackupDocument is the full durable document of spec.md §6: workers,
// calendar window, slot configuration, and the resulting schedule grid.
// Unknown collects any top-level fields this version of rosterd does not
// recognize when Unmarshal loads a document; Marshal does not write them
// back out.
type BackupDocument struct {
	Workers        []WorkerDocument            `json:"workers"`
	StartDate      string                      `json:"start_date"`
	EndDate        string                      `json:"end_date"`
	NumShifts      int                         `json:"num_shifts"`
	Holidays       []string                    `json:"holidays,omitempty"`
	VariableShifts []VariableShiftDoc          `json:"variable_shifts,omitempty"`
	Schedule       map[string][]*string        `json:"schedule"`
	Unknown        map[string]json.RawMessage  `json:"-"`
}

// Marshal serializes a schedule, its workers, and its generating
// configuration into the backup document format.
func Marshal(sched *domain.Schedule, workers []*domain.Worker, cfg services.SchedulerConfig) ([]byte, error) {
	doc := BackupDocument{
		Workers:   make([]WorkerDocument, 0, len(workers)),
		StartDate: cfg.StartDate.Format(dateLayout),
		EndDate:   cfg.EndDate.Format(dateLayout),
		NumShifts: cfg.NumShifts,
		Schedule:  make(map[string][]*string),
	}

	for _, w := range workers {
		doc.Workers = append(doc.Workers, toWorkerDocument(w))
	}
	sort.Slice(doc.Workers, func(i, j int) bool { return doc.Workers[i].ID < doc.Workers[j].ID })

	for _, h := range cfg.Holidays {
		doc.Holidays = append(doc.Holidays, h.Format(dateLayout))
	}
	for _, v := range cfg.VariableShifts {
		doc.VariableShifts = append(doc.VariableShifts, VariableShiftDoc{
			Start: v.Start.Format(dateLayout), End: v.End.Format(dateLayout), Count: v.Count,
		})
	}

	for _, d := range sched.Dates() {
		slots := sched.SlotCount(d)
		row := make([]*string, slots)
		for post := 0; post < slots; post++ {
			if id, ok := sched.At(d, post); ok {
				v := id.String()
				row[post] = &v
			}
		}
		doc.Schedule[d.Format(dateLayout)] = row
	}

	return json.MarshalIndent(doc, "", "  ")
}

// Unmarshal parses a backup document, preserving unrecognized top-level
// fields in doc.Unknown.
func Unmarshal(data []byte) (*BackupDocument, error) {
	var doc BackupDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("serialization: invalid backup document: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	known := map[string]bool{
		"workers": true, "start_date": true, "end_date": true, "num_shifts": true,
		"holidays": true, "variable_shifts": true, "schedule": true,
	}
	doc.Unknown = make(map[string]json.RawMessage)
	for k, v := range raw {
		if !known[k] {
			doc.Unknown[k] = v
		}
	}

	return &doc, nil
}

// WorkersDomain reconstructs domain.Worker values from the document.
// Pairwise incompatibilities are resolved and symmetrized via
// domain.NormalizeIncompatibilities once every worker exists, since a
// worker's incompatible_with list may reference an id defined later in
// doc.Workers.
func (doc *BackupDocument) WorkersDomain() ([]*domain.Worker, error) {
	workers := make([]*domain.Worker, 0, len(doc.Workers))
	for _, wd := range doc.Workers {
		opts := []domain.WorkerOption{}
		if wd.TargetShifts != nil {
			opts = append(opts, domain.WithTargetShifts(*wd.TargetShifts))
		}
		if wd.GroupIncompatible {
			opts = append(opts, domain.WithIncompatibilityFlag())
		}
		mandatory, err := parseDates(wd.MandatoryDays)
		if err != nil {
			return nil, err
		}
		if len(mandatory) > 0 {
			opts = append(opts, domain.WithMandatoryDays(mandatory...))
		}
		daysOff, err := parseDateRanges(wd.DaysOff)
		if err != nil {
			return nil, err
		}
		if len(daysOff) > 0 {
			opts = append(opts, domain.WithDaysOff(daysOff...))
		}
		workPeriods, err := parseDateRanges(wd.WorkPeriods)
		if err != nil {
			return nil, err
		}
		if len(workPeriods) > 0 {
			opts = append(opts, domain.WithWorkPeriods(workPeriods...))
		}
		if len(wd.IncompatibleWith) > 0 {
			ids := make([]domain.WorkerID, 0, len(wd.IncompatibleWith))
			for _, otherID := range wd.IncompatibleWith {
				ids = append(ids, domain.NewWorkerID(otherID))
			}
			opts = append(opts, domain.WithIncompatibleWith(ids...))
		}

		workers = append(workers, domain.NewWorker(domain.NewWorkerID(wd.ID), wd.WorkPercentage, opts...))
	}

	domain.NormalizeIncompatibilities(workers)
	return workers, nil
}

func toWorkerDocument(w *domain.Worker) WorkerDocument {
	doc := WorkerDocument{
		ID:                w.ID().String(),
		WorkPercentage:    w.WorkPercentage(),
		GroupIncompatible: w.IsGroupIncompatible(),
	}
	if target, ok := w.TargetShiftsOverride(); ok {
		doc.TargetShifts = &target
	}
	for _, d := range w.MandatoryDays() {
		doc.MandatoryDays = append(doc.MandatoryDays, d.Format(dateLayout))
	}
	for _, p := range w.WorkPeriods() {
		doc.WorkPeriods = append(doc.WorkPeriods, DateRangeDoc{Start: p.Start.Format(dateLayout), End: p.End.Format(dateLayout)})
	}
	for _, r := range w.DaysOff() {
		doc.DaysOff = append(doc.DaysOff, DateRangeDoc{Start: r.Start.Format(dateLayout), End: r.End.Format(dateLayout)})
	}
	for _, id := range w.IncompatibleWith() {
		doc.IncompatibleWith = append(doc.IncompatibleWith, id.String())
	}
	sort.Strings(doc.IncompatibleWith)
	return doc
}

func parseDates(raw []string) ([]time.Time, error) {
	out := make([]time.Time, 0, len(raw))
	for _, s := range raw {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("serialization: invalid date %q: %w", s, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func parseDateRanges(raw []DateRangeDoc) ([]domain.DateRange, error) {
	out := make([]domain.DateRange, 0, len(raw))
	for _, r := range raw {
		start, err := time.Parse(dateLayout, r.Start)
		if err != nil {
			return nil, fmt.Errorf("serialization: invalid date %q: %w", r.Start, err)
		}
		end, err := time.Parse(dateLayout, r.End)
		if err != nil {
			return nil, fmt.Errorf("serialization: invalid date %q: %w", r.End, err)
		}
		out = append(out, domain.NewDateRange(start, end))
	}
	return out, nil
}
