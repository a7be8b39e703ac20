package services

import "time"

// VariableShiftRule is the wire/config shape of a {start,end,count} triple
// (spec.md §4.1). It is converted to a domain.SlotRule at engine start.
type VariableShiftRule struct {
	Start time.Time
	End   time.Time
	Count int
}

// SchedulerConfig is the engine's entrypoint configuration (spec.md §6).
// It is immutable for the duration of a single generation run.
type SchedulerConfig struct {
	StartDate              time.Time
	EndDate                time.Time
	NumShifts              int
	VariableShifts         []VariableShiftRule
	Holidays               []time.Time
	GapBetweenShifts       int
	MaxConsecutiveWeekends int
	Tolerance              float64
	NumInitialAttempts     int
	MaxImprovementLoops    int
	EnableDualMode         bool
	Seed                   *int64
	Weights                ScoreWeights
	ObjectiveWeights       ObjectiveWeights
}

// DefaultSchedulerConfig returns spec.md §6's documented defaults, with a
// seed of nil (meaning "draw one random base seed from crypto/rand per run;
// attempt i uses base+i"; the host should set Seed explicitly for
// reproducible generation, per the ordering guarantee in spec.md §5).
func DefaultSchedulerConfig(start, end time.Time) SchedulerConfig {
	return SchedulerConfig{
		StartDate:              start,
		EndDate:                end,
		NumShifts:              1,
		GapBetweenShifts:       2,
		MaxConsecutiveWeekends: 2,
		Tolerance:              0.1,
		NumInitialAttempts:     30,
		MaxImprovementLoops:    150,
		EnableDualMode:         true,
		Weights:                DefaultScoreWeights(),
		ObjectiveWeights:       DefaultObjectiveWeights(),
	}
}

// Validate rejects a config that cannot produce a schedule at all, per
// spec.md §7's configuration-error category: rejected at entry, no
// partial state produced.
func (c SchedulerConfig) Validate() error {
	if c.EndDate.Before(c.StartDate) {
		return &ConfigValidationError{Field: "end_date", Reason: "must not precede start_date"}
	}
	if c.NumShifts < 1 {
		return &ConfigValidationError{Field: "num_shifts", Reason: "must be >= 1"}
	}
	if c.GapBetweenShifts < 0 {
		return &ConfigValidationError{Field: "gap_between_shifts", Reason: "must be >= 0"}
	}
	if c.MaxConsecutiveWeekends < 1 {
		return &ConfigValidationError{Field: "max_consecutive_weekends", Reason: "must be >= 1"}
	}
	if c.Tolerance < 0 || c.Tolerance > 1 {
		return &ConfigValidationError{Field: "tolerance", Reason: "must be within [0,1]"}
	}
	if c.NumInitialAttempts < 1 {
		return &ConfigValidationError{Field: "num_initial_attempts", Reason: "must be >= 1"}
	}
	if c.MaxImprovementLoops < 0 {
		return &ConfigValidationError{Field: "max_improvement_loops", Reason: "must be >= 0"}
	}
	seen := make([]VariableShiftRule, 0, len(c.VariableShifts))
	for _, rule := range c.VariableShifts {
		for _, prior := range seen {
			if rule.Start.Before(prior.End.AddDate(0, 0, 1)) && prior.Start.Before(rule.End.AddDate(0, 0, 1)) {
				return &ConfigValidationError{Field: "variable_shifts", Reason: "overlapping date ranges are not permitted"}
			}
		}
		seen = append(seen, rule)
	}
	return nil
}

// ConfigValidationError reports a single invalid configuration field.
type ConfigValidationError struct {
	Field  string
	Reason string
}

func (e *ConfigValidationError) Error() string {
	return "roster: invalid " + e.Field + ": " + e.Reason
}

// ObjectiveWeights are the w1..w4 weights of Phase-2's objective function J
// (spec.md §4.4). Like ScoreWeights, the specification leaves exact values
// as calibration knobs and only constrains the qualitative ordering the
// objective must preserve.
type ObjectiveWeights struct {
	Empty             float64
	Deviation         float64
	LastPostImbalance float64
	WeekendImbalance  float64
}

// DefaultObjectiveWeights returns rosterd's default Phase-2 objective weights.
func DefaultObjectiveWeights() ObjectiveWeights {
	return ObjectiveWeights{Empty: 10, Deviation: 1, LastPostImbalance: 0.5, WeekendImbalance: 0.5}
}
