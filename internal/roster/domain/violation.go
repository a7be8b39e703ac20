package domain

import "time"

// ViolationKind tags the nature of a constraint violation emitted by the
// constraint checker (spec.md §4.5). It is the single closed vocabulary
// every consumer (Engine.Generate's Result.Violations, Phase-2's closing
// check, the CLI's violation count, and tests) agrees on.
type ViolationKind string

const (
	ViolationIncompatibility  ViolationKind = "incompatibility"
	ViolationGap              ViolationKind = "gap"
	ViolationWeeklyPattern    ViolationKind = "weekly_pattern"
	ViolationWeekendCap       ViolationKind = "weekend_cap"
	ViolationDaysOff          ViolationKind = "days_off"
	ViolationWorkPeriod       ViolationKind = "work_period"
	ViolationDuplicateOnDay   ViolationKind = "duplicate_on_day"
	ViolationMandatoryMissing ViolationKind = "mandatory_missing"
	ViolationUncovered        ViolationKind = "uncovered"
)

// Violation is a single constraint-checker finding. Fields beyond Kind are
// populated as relevant to that kind; zero values mean "not applicable".
type Violation struct {
	Kind    ViolationKind
	Date    time.Time
	Post    int
	Worker  WorkerID
	Other   WorkerID // second worker involved, for incompatibility findings
	Reason  string
}

// UnresolvedMandatory records a mandatory day the distributor could not
// place without creating a hard-constraint violation (spec.md §4.3, §7).
type UnresolvedMandatory struct {
	Worker WorkerID
	Date   time.Time
	Reason string
}
