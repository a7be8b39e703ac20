package domain

import (
	"time"

	sharedDomain "github.com/rosterforge/rosterd/internal/shared/domain"
	"github.com/google/uuid"
)

const (
	AggregateType = "Schedule"

	RoutingKeyWorkerAssigned      = "roster.worker.assigned"
	RoutingKeyWorkerUnassigned    = "roster.worker.unassigned"
	RoutingKeyMandatoryUnresolved = "roster.mandatory.unresolved"
	RoutingKeyGenerationCompleted = "roster.generation.completed"
)

// WorkerAssigned is emitted whenever a worker id is placed into a post,
// whether by Phase-1, Phase-2, or a live collaboration-core-guarded edit.
type WorkerAssigned struct {
	sharedDomain.BaseEvent
	Worker    string    `json:"worker_id"`
	Date      time.Time `json:"date"`
	Post      int       `json:"post"`
	Mandatory bool      `json:"mandatory"`
}

// NewWorkerAssigned creates a WorkerAssigned event.
func NewWorkerAssigned(scheduleID uuid.UUID, worker WorkerID, date time.Time, post int, mandatory bool) WorkerAssigned {
	return WorkerAssigned{
		BaseEvent: sharedDomain.NewBaseEvent(scheduleID, AggregateType, RoutingKeyWorkerAssigned),
		Worker:    worker.String(),
		Date:      date,
		Post:      post,
		Mandatory: mandatory,
	}
}

// WorkerUnassigned is emitted when an occupied post is cleared.
type WorkerUnassigned struct {
	sharedDomain.BaseEvent
	Worker string    `json:"worker_id"`
	Date   time.Time `json:"date"`
	Post   int       `json:"post"`
}

// NewWorkerUnassigned creates a WorkerUnassigned event.
func NewWorkerUnassigned(scheduleID uuid.UUID, worker WorkerID, date time.Time, post int) WorkerUnassigned {
	return WorkerUnassigned{
		BaseEvent: sharedDomain.NewBaseEvent(scheduleID, AggregateType, RoutingKeyWorkerUnassigned),
		Worker:    worker.String(),
		Date:      date,
		Post:      post,
	}
}

// MandatoryUnresolved is emitted by Phase-1 when a mandatory day could not
// be honored without creating a hard-constraint violation.
type MandatoryUnresolved struct {
	sharedDomain.BaseEvent
	Worker string    `json:"worker_id"`
	Date   time.Time `json:"date"`
	Reason string    `json:"reason"`
}

// NewMandatoryUnresolved creates a MandatoryUnresolved event.
func NewMandatoryUnresolved(scheduleID uuid.UUID, m UnresolvedMandatory) MandatoryUnresolved {
	return MandatoryUnresolved{
		BaseEvent: sharedDomain.NewBaseEvent(scheduleID, AggregateType, RoutingKeyMandatoryUnresolved),
		Worker:    m.Worker.String(),
		Date:      m.Date,
		Reason:    m.Reason,
	}
}

// GenerationCompleted is emitted once when the engine returns its final result.
type GenerationCompleted struct {
	sharedDomain.BaseEvent
	FilledSlots int  `json:"filled_slots"`
	EmptySlots  int  `json:"empty_slots"`
	Cancelled   bool `json:"cancelled"`
}

// NewGenerationCompleted creates a GenerationCompleted event.
func NewGenerationCompleted(scheduleID uuid.UUID, filled, empty int, cancelled bool) GenerationCompleted {
	return GenerationCompleted{
		BaseEvent:   sharedDomain.NewBaseEvent(scheduleID, AggregateType, RoutingKeyGenerationCompleted),
		FilledSlots: filled,
		EmptySlots:  empty,
		Cancelled:   cancelled,
	}
}
