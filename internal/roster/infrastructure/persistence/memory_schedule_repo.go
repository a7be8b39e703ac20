package persistence

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rosterforge/rosterd/internal/roster/domain"
)

// ErrScheduleNotFound is returned by FindByID when no schedule exists for
// the given id.
var ErrScheduleNotFound = errors.New("persistence: schedule not found")

// InMemoryScheduleRepository is a process-local domain.ScheduleRepository,
// used by tests and by single-shot CLI invocations that don't need a
// durable backend. Grounded on the teacher's habit of pairing every SQL
// repository with an in-memory test double (e.g.
// `scheduling/infrastructure/persistence/*_test.go` fakes), promoted here
// to a real exported implementation since rosterd's CLI needs one outside
// of tests too.
type InMemoryScheduleRepository struct {
	mu        sync.RWMutex
	schedules map[uuid.UUID]*domain.Schedule
}

// NewInMemoryScheduleRepository creates an empty repository.
func NewInMemoryScheduleRepository() *InMemoryScheduleRepository {
	return &InMemoryScheduleRepository{schedules: make(map[uuid.UUID]*domain.Schedule)}
}

// Save inserts or overwrites the schedule by id, storing a defensive clone
// so later mutation of the caller's reference cannot corrupt the store.
func (r *InMemoryScheduleRepository) Save(ctx context.Context, schedule *domain.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules[schedule.ID()] = schedule.Clone()
	return nil
}

// FindByID returns a clone of the stored schedule, or ErrScheduleNotFound.
func (r *InMemoryScheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sched, ok := r.schedules[id]
	if !ok {
		return nil, ErrScheduleNotFound
	}
	return sched.Clone(), nil
}

// Delete removes the schedule, if present.
func (r *InMemoryScheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.schedules, id)
	return nil
}
