package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/rosterforge/rosterd/internal/roster/application/services"
	"github.com/rosterforge/rosterd/internal/roster/domain"
	sharedApplication "github.com/rosterforge/rosterd/internal/shared/application"
	sharedDomain "github.com/rosterforge/rosterd/internal/shared/domain"
	"github.com/rosterforge/rosterd/internal/shared/infrastructure/eventbus"
)

// GenerateScheduleCommand carries the engine's full host contract (spec.md
// §6's SchedulerConfig) plus the operator id driving the run.
type GenerateScheduleCommand struct {
	RequestedBy string
	Config      services.SchedulerConfig
	Workers     []*domain.Worker
}

func (GenerateScheduleCommand) CommandName() string { return "roster.generate_schedule" }

// GenerateScheduleResult mirrors services.Result, keeping the command layer
// free of any application-internal type leaking past this boundary.
type GenerateScheduleResult struct {
	ScheduleID          string
	UnresolvedMandatory []domain.UnresolvedMandatory
	Violations          []domain.Violation
	Statistics          []services.WorkerStats
	Cancelled           bool
}

// GenerateScheduleHandler handles GenerateScheduleCommand: runs the engine,
// persists the resulting schedule, and publishes its domain events.
type GenerateScheduleHandler struct {
	scheduleRepo domain.ScheduleRepository
	engine       *services.Engine
	publisher    eventbus.Publisher
	uow          sharedApplication.UnitOfWork
	logger       *slog.Logger
}

// NewGenerateScheduleHandler creates a new GenerateScheduleHandler.
func NewGenerateScheduleHandler(
	scheduleRepo domain.ScheduleRepository,
	engine *services.Engine,
	publisher eventbus.Publisher,
	uow sharedApplication.UnitOfWork,
	logger *slog.Logger,
) *GenerateScheduleHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerateScheduleHandler{
		scheduleRepo: scheduleRepo,
		engine:       engine,
		publisher:    publisher,
		uow:          uow,
		logger:       logger,
	}
}

// Handle executes the GenerateScheduleCommand.
func (h *GenerateScheduleHandler) Handle(ctx context.Context, cmd GenerateScheduleCommand) (*GenerateScheduleResult, error) {
	start := time.Now()

	result, err := h.engine.Generate(ctx, cmd.Config, cmd.Workers)
	if err != nil {
		return nil, err
	}

	for _, m := range result.UnresolvedMandatory {
		result.Schedule.AddDomainEvent(domain.NewMandatoryUnresolved(result.Schedule.ID(), m))
	}
	result.Schedule.AddDomainEvent(domain.NewGenerationCompleted(
		result.Schedule.ID(),
		result.Schedule.FilledCount(),
		len(result.Schedule.EmptySlots()),
		result.Cancelled,
	))

	var out *GenerateScheduleResult
	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		if err := h.scheduleRepo.Save(txCtx, result.Schedule); err != nil {
			return err
		}

		events := result.Schedule.DomainEvents()
		sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(cmd.RequestedBy))
		for _, event := range events {
			payload, marshalErr := json.Marshal(eventEnvelope{
				EventID:       event.EventID().String(),
				AggregateID:   event.AggregateID().String(),
				AggregateType: event.AggregateType(),
				RoutingKey:    event.RoutingKey(),
				OccurredAt:    event.OccurredAt(),
				Metadata:      event.Metadata(),
				Event:         event,
			})
			if marshalErr != nil {
				return marshalErr
			}
			if pubErr := h.publisher.Publish(txCtx, event.RoutingKey(), payload); pubErr != nil {
				return pubErr
			}
		}
		result.Schedule.ClearDomainEvents()

		out = &GenerateScheduleResult{
			ScheduleID:          result.Schedule.ID().String(),
			UnresolvedMandatory: result.UnresolvedMandatory,
			Violations:          result.Violations,
			Statistics:          result.Statistics,
			Cancelled:           result.Cancelled,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("schedule generated",
		"schedule_id", out.ScheduleID,
		"unresolved_mandatories", len(out.UnresolvedMandatory),
		"violations", len(out.Violations),
		"cancelled", out.Cancelled,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return out, nil
}

// eventEnvelope is the wire shape published to the event bus: routing
// metadata alongside the raw event so consumers can decode the full struct
// rather than re-deriving it from individual fields.
type eventEnvelope struct {
	EventID       string               `json:"event_id"`
	AggregateID   string               `json:"aggregate_id"`
	AggregateType string               `json:"aggregate_type"`
	RoutingKey    string               `json:"routing_key"`
	OccurredAt    time.Time            `json:"occurred_at"`
	Metadata      sharedDomain.EventMetadata `json:"metadata"`
	Event         sharedDomain.DomainEvent   `json:"event"`
}
