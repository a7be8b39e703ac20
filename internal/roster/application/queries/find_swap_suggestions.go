package queries

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rosterforge/rosterd/internal/roster/application/services"
	"github.com/rosterforge/rosterd/internal/roster/domain"
)

// SwapSuggestionDTO is the wire shape of services.SwapSuggestion.
type SwapSuggestionDTO struct {
	Kind        string
	Over        string
	Under       string
	Dates       []time.Time
	Improvement float64
}

// FindSwapSuggestionsQuery requests the top-K rebalancing suggestions for a
// stored schedule (spec.md §4.6).
type FindSwapSuggestionsQuery struct {
	ScheduleID uuid.UUID
	Workers    []*domain.Worker
	Targets    map[domain.WorkerID]int
	Config     services.SchedulerConfig
	TopK       int
}

func (FindSwapSuggestionsQuery) QueryName() string { return "roster.find_swap_suggestions" }

// FindSwapSuggestionsHandler handles FindSwapSuggestionsQuery.
type FindSwapSuggestionsHandler struct {
	scheduleRepo domain.ScheduleRepository
}

// NewFindSwapSuggestionsHandler creates a new FindSwapSuggestionsHandler.
func NewFindSwapSuggestionsHandler(scheduleRepo domain.ScheduleRepository) *FindSwapSuggestionsHandler {
	return &FindSwapSuggestionsHandler{scheduleRepo: scheduleRepo}
}

// Handle executes the FindSwapSuggestionsQuery.
func (h *FindSwapSuggestionsHandler) Handle(ctx context.Context, query FindSwapSuggestionsQuery) ([]SwapSuggestionDTO, error) {
	sched, err := h.scheduleRepo.FindByID(ctx, query.ScheduleID)
	if err != nil {
		return nil, err
	}

	byID := make(map[domain.WorkerID]*domain.Worker, len(query.Workers))
	for _, w := range query.Workers {
		byID[w.ID()] = w
	}

	topK := query.TopK
	if topK <= 0 {
		topK = 5
	}

	suggestions := services.FindSwapSuggestions(sched, query.Workers, byID, query.Targets, query.Config, topK)
	dtos := make([]SwapSuggestionDTO, len(suggestions))
	for i, s := range suggestions {
		dtos[i] = SwapSuggestionDTO{
			Kind:        s.Kind,
			Over:        s.Over.String(),
			Under:       s.Under.String(),
			Dates:       s.Dates,
			Improvement: s.Improvement,
		}
	}
	return dtos, nil
}
