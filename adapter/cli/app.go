package cli

import (
	collabApplication "github.com/rosterforge/rosterd/internal/collab/application"
	"github.com/rosterforge/rosterd/internal/roster/application/commands"
	"github.com/rosterforge/rosterd/internal/roster/application/queries"
	"github.com/rosterforge/rosterd/internal/roster/application/services"
	"github.com/rosterforge/rosterd/internal/roster/domain"
	"github.com/rosterforge/rosterd/internal/roster/infrastructure/scheduled"
)

// App holds the CLI's wired dependencies, constructed once in cmd/rosterd
// and handed to every subcommand through SetApp/GetApp.
type App struct {
	// Roster command/query handlers
	GenerateScheduleHandler    *commands.GenerateScheduleHandler
	GetStatisticsHandler       *queries.GetStatisticsHandler
	FindSwapSuggestionsHandler *queries.FindSwapSuggestionsHandler

	ScheduleRepo domain.ScheduleRepository
	Engine       *services.Engine

	// Collaboration core
	Core          *collabApplication.Core
	CleanupTicker *collabApplication.CleanupTicker

	// Background jobs started from the CLI (report command)
	RebalanceJobFactory func(cfg scheduled.RebalanceReportJobConfig) *scheduled.RebalanceReportJob

	// OperatorID identifies the caller for audit/event metadata, defaulting
	// to the local OS user in single-operator mode.
	OperatorID string
}

var app *App

// NewApp constructs an App from its wired dependencies.
func NewApp(
	generateScheduleHandler *commands.GenerateScheduleHandler,
	getStatisticsHandler *queries.GetStatisticsHandler,
	findSwapSuggestionsHandler *queries.FindSwapSuggestionsHandler,
	scheduleRepo domain.ScheduleRepository,
	engine *services.Engine,
	core *collabApplication.Core,
	cleanupTicker *collabApplication.CleanupTicker,
	rebalanceJobFactory func(cfg scheduled.RebalanceReportJobConfig) *scheduled.RebalanceReportJob,
	operatorID string,
) *App {
	return &App{
		GenerateScheduleHandler:    generateScheduleHandler,
		GetStatisticsHandler:       getStatisticsHandler,
		FindSwapSuggestionsHandler: findSwapSuggestionsHandler,
		ScheduleRepo:               scheduleRepo,
		Engine:                     engine,
		Core:                       core,
		CleanupTicker:              cleanupTicker,
		RebalanceJobFactory:        rebalanceJobFactory,
		OperatorID:                 operatorID,
	}
}

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}
