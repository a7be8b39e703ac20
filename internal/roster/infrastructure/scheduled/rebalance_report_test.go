package scheduled

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rosterforge/rosterd/internal/roster/application/services"
	"github.com/rosterforge/rosterd/internal/roster/domain"
	"github.com/rosterforge/rosterd/internal/roster/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type capturingPublisher struct {
	mu       sync.Mutex
	messages []capturedMessage
}

type capturedMessage struct {
	routingKey string
	payload    []byte
}

func (p *capturingPublisher) Publish(_ context.Context, routingKey string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, capturedMessage{routingKey: routingKey, payload: payload})
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func seedScheduleForReport(t *testing.T, repo domain.ScheduleRepository) (*domain.Schedule, []*domain.Worker, map[domain.WorkerID]int) {
	t.Helper()

	a := domain.NewWorker(domain.NewWorkerID("a"), 1.0)
	b := domain.NewWorker(domain.NewWorkerID("b"), 1.0)
	workers := []*domain.Worker{a, b}
	targets := map[domain.WorkerID]int{a.ID(): 2, b.ID(): 2}

	sched, err := domain.NewSchedule(day(2026, 1, 1), day(2026, 1, 4), domain.NewSlotSchedule(1), domain.NewHolidayCalendar())
	require.NoError(t, err)
	require.NoError(t, sched.Assign(a.ID(), day(2026, 1, 1), 0, false))
	require.NoError(t, sched.Assign(a.ID(), day(2026, 1, 2), 0, false))
	require.NoError(t, sched.Assign(a.ID(), day(2026, 1, 3), 0, false))
	require.NoError(t, sched.Assign(b.ID(), day(2026, 1, 4), 0, false))

	require.NoError(t, repo.Save(context.Background(), sched))
	return sched, workers, targets
}

func TestRebalanceReportJob_RunOnce_PublishesReportWithStatisticsAndSuggestions(t *testing.T) {
	repo := persistence.NewInMemoryScheduleRepository()
	sched, workers, targets := seedScheduleForReport(t, repo)
	publisher := &capturingPublisher{}

	cfg := RebalanceReportJobConfig{
		CronSpec:     "0 2 * * *",
		ScheduleID:   sched.ID(),
		Workers:      workers,
		Targets:      targets,
		SchedulerCfg: services.DefaultSchedulerConfig(day(2026, 1, 1), day(2026, 1, 4)),
		TopK:         5,
	}
	job := NewRebalanceReportJob(cfg, repo, publisher, nil)

	require.NoError(t, job.RunOnce(context.Background()))

	require.Len(t, publisher.messages, 1)
	assert.Equal(t, RebalanceReportRoutingKey, publisher.messages[0].routingKey)

	var report RebalanceReport
	require.NoError(t, json.Unmarshal(publisher.messages[0].payload, &report))
	assert.Equal(t, sched.ID(), report.ScheduleID)
	assert.Len(t, report.Statistics, 2)
	assert.NotEmpty(t, report.Suggestions, "the deliberately imbalanced draft should surface at least one swap suggestion")
}

func TestRebalanceReportJob_RunOnce_ReturnsErrorWhenScheduleMissing(t *testing.T) {
	repo := persistence.NewInMemoryScheduleRepository()
	publisher := &capturingPublisher{}

	cfg := RebalanceReportJobConfig{
		CronSpec:     "0 2 * * *",
		ScheduleID:   uuid.New(),
		SchedulerCfg: services.DefaultSchedulerConfig(day(2026, 1, 1), day(2026, 1, 4)),
	}
	job := NewRebalanceReportJob(cfg, repo, publisher, nil)

	err := job.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Empty(t, publisher.messages)
}

func TestRebalanceReportJob_Start_RejectsInvalidCronSpec(t *testing.T) {
	repo := persistence.NewInMemoryScheduleRepository()
	sched, workers, targets := seedScheduleForReport(t, repo)
	publisher := &capturingPublisher{}

	cfg := RebalanceReportJobConfig{
		CronSpec:     "not a cron spec",
		ScheduleID:   sched.ID(),
		Workers:      workers,
		Targets:      targets,
		SchedulerCfg: services.DefaultSchedulerConfig(day(2026, 1, 1), day(2026, 1, 4)),
	}
	job := NewRebalanceReportJob(cfg, repo, publisher, nil)

	err := job.Start(context.Background())
	assert.Error(t, err)
	assert.False(t, job.IsRunning())
}

func TestRebalanceReportJob_StartStop_TogglesRunningFlag(t *testing.T) {
	repo := persistence.NewInMemoryScheduleRepository()
	sched, workers, targets := seedScheduleForReport(t, repo)
	publisher := &capturingPublisher{}

	cfg := RebalanceReportJobConfig{
		CronSpec:     "0 2 * * *",
		ScheduleID:   sched.ID(),
		Workers:      workers,
		Targets:      targets,
		SchedulerCfg: services.DefaultSchedulerConfig(day(2026, 1, 1), day(2026, 1, 4)),
	}
	job := NewRebalanceReportJob(cfg, repo, publisher, nil)

	require.NoError(t, job.Start(context.Background()))
	assert.True(t, job.IsRunning())

	require.NoError(t, job.Start(context.Background()), "starting an already-running job is a no-op, not an error")

	job.Stop()
	assert.False(t, job.IsRunning())
}
