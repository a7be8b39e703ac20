// Package scheduled runs background jobs against the roster engine on a
// cron schedule, independent of the request-driven CLI/command path.
package scheduled

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rosterforge/rosterd/internal/roster/application/services"
	"github.com/rosterforge/rosterd/internal/roster/domain"
	"github.com/rosterforge/rosterd/internal/shared/infrastructure/eventbus"
)

// RebalanceReportRoutingKey is the event bus routing key a
// RebalanceReportJob publishes its nightly report under.
const RebalanceReportRoutingKey = "roster.rebalance_report"

// RebalanceReport is the payload published after each run: current
// deviation statistics and the top swap suggestions a coordinator could
// act on before the next generation run.
type RebalanceReport struct {
	ScheduleID  uuid.UUID               `json:"schedule_id"`
	GeneratedAt time.Time               `json:"generated_at"`
	Statistics  []services.WorkerStats  `json:"statistics"`
	Suggestions []services.SwapSuggestion `json:"suggestions"`
}

// RebalanceReportJobConfig configures a RebalanceReportJob.
type RebalanceReportJobConfig struct {
	// CronSpec is a standard 5-field cron expression (minute hour dom month
	// dow), e.g. "0 2 * * *" for 02:00 daily.
	CronSpec string
	ScheduleID   uuid.UUID
	Workers      []*domain.Worker
	Targets      map[domain.WorkerID]int
	SchedulerCfg services.SchedulerConfig
	TopK         int
}

// RebalanceReportJob periodically recomputes statistics and swap
// suggestions for a schedule and publishes them to the event bus, so a
// host's on-call coordinator starts the day with an up-to-date picture of
// drift without re-running the full engine. Its Start/Stop/IsRunning shape
// mirrors the teacher's outbox.Processor: a goroutine guarded by a
// sync.Mutex-protected running flag, stopped cooperatively rather than via
// context cancellation alone, so a caller can stop and later restart the
// same job instance.
type RebalanceReportJob struct {
	cfg          RebalanceReportJobConfig
	scheduleRepo domain.ScheduleRepository
	publisher    eventbus.Publisher
	logger       *slog.Logger

	cron *cron.Cron

	mu      sync.Mutex
	running bool
}

// NewRebalanceReportJob creates a job that has not yet been started.
func NewRebalanceReportJob(
	cfg RebalanceReportJobConfig,
	scheduleRepo domain.ScheduleRepository,
	publisher eventbus.Publisher,
	logger *slog.Logger,
) *RebalanceReportJob {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	return &RebalanceReportJob{
		cfg:          cfg,
		scheduleRepo: scheduleRepo,
		publisher:    publisher,
		logger:       logger,
	}
}

// Start schedules the job on its cron spec and begins running it in the
// background. Starting an already-running job is a no-op.
func (j *RebalanceReportJob) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(j.cfg.CronSpec, func() {
		if err := j.runOnce(ctx); err != nil {
			j.logger.Error("rebalance report run failed", "error", err, "schedule_id", j.cfg.ScheduleID)
		}
	}); err != nil {
		return err
	}

	j.cron = c
	j.cron.Start()
	j.running = true
	j.logger.Info("rebalance report job started", "cron_spec", j.cfg.CronSpec, "schedule_id", j.cfg.ScheduleID)
	return nil
}

// Stop halts the cron scheduler and waits for any in-flight run to finish.
func (j *RebalanceReportJob) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.running {
		return
	}
	<-j.cron.Stop().Done()
	j.running = false
	j.logger.Info("rebalance report job stopped")
}

// IsRunning reports whether the job's cron scheduler is active.
func (j *RebalanceReportJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// RunOnce executes a single report cycle synchronously, for manual
// invocation or tests that don't want to wait on the cron trigger. The
// `rosterd roster report` CLI command does not call it; it runs Start.
func (j *RebalanceReportJob) RunOnce(ctx context.Context) error {
	return j.runOnce(ctx)
}

func (j *RebalanceReportJob) runOnce(ctx context.Context) error {
	sched, err := j.scheduleRepo.FindByID(ctx, j.cfg.ScheduleID)
	if err != nil {
		return err
	}

	stats := services.ComputeStatistics(sched, j.cfg.Workers, j.cfg.Targets)

	byID := make(map[domain.WorkerID]*domain.Worker, len(j.cfg.Workers))
	for _, w := range j.cfg.Workers {
		byID[w.ID()] = w
	}
	suggestions := services.FindSwapSuggestions(sched, j.cfg.Workers, byID, j.cfg.Targets, j.cfg.SchedulerCfg, j.cfg.TopK)

	report := RebalanceReport{
		ScheduleID:  j.cfg.ScheduleID,
		GeneratedAt: time.Now(),
		Statistics:  stats,
		Suggestions: suggestions,
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}

	if err := j.publisher.Publish(ctx, RebalanceReportRoutingKey, payload); err != nil {
		return err
	}

	j.logger.Info("rebalance report published",
		"schedule_id", j.cfg.ScheduleID,
		"worker_count", len(stats),
		"suggestion_count", len(suggestions),
	)
	return nil
}
