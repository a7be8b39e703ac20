package domain

import (
	"context"

	"github.com/google/uuid"
)

// ScheduleRepository defines persistence for finalized and in-progress
// schedules. Spec.md §1 treats persistence as host-owned; rosterd still
// offers a reference implementation (SQLite/Postgres/in-memory) so a host
// that has no storage layer of its own can use one out of the box.
type ScheduleRepository interface {
	// Save persists a schedule (create or update), enforcing optimistic
	// concurrency on Version().
	Save(ctx context.Context, schedule *Schedule) error

	// FindByID finds a schedule by its aggregate id.
	FindByID(ctx context.Context, id uuid.UUID) (*Schedule, error)

	// Delete removes a schedule.
	Delete(ctx context.Context, id uuid.UUID) error
}
