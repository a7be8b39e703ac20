package roster

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rosterforge/rosterd/adapter/cli"
	"github.com/rosterforge/rosterd/internal/roster/application/services"
	"github.com/rosterforge/rosterd/internal/roster/domain"
	"github.com/rosterforge/rosterd/internal/roster/infrastructure/scheduled"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// schedulerConfigFor builds a minimal SchedulerConfig describing sched's
// own period, enough for FindSwapSuggestions' feasibility checks.
func schedulerConfigFor(sched *domain.Schedule) services.SchedulerConfig {
	return services.DefaultSchedulerConfig(sched.PeriodStart(), sched.PeriodEnd())
}

var (
	reportWorkersFile string
	reportCronSpec    string
	reportTopK        int
)

var reportCmd = &cobra.Command{
	Use:   "report <schedule-id>",
	Short: "Run the nightly rebalance-report job against a schedule until interrupted",
	Long: `Report starts the cron-scheduled rebalance report job and blocks until
SIGINT/SIGTERM, publishing fresh statistics and swap suggestions to the
event bus on every firing.

Examples:
  rosterd roster report <schedule-id> --workers workers.json --cron "0 2 * * *"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.RebalanceJobFactory == nil || app.ScheduleRepo == nil {
			return errors.New("roster report requires a configured schedule store and event bus")
		}
		if reportWorkersFile == "" {
			return errors.New("--workers is required")
		}

		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid schedule id: %w", err)
		}
		workers, err := loadWorkers(reportWorkersFile)
		if err != nil {
			return err
		}
		targets, err := computeTargetsForSchedule(cmd, app, id, workers)
		if err != nil {
			return err
		}
		sched, err := app.ScheduleRepo.FindByID(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("find schedule: %w", err)
		}

		job := app.RebalanceJobFactory(scheduled.RebalanceReportJobConfig{
			CronSpec:     reportCronSpec,
			ScheduleID:   id,
			Workers:      workers,
			Targets:      targets,
			SchedulerCfg: schedulerConfigFor(sched),
			TopK:         reportTopK,
		})
		if err := job.Start(cmd.Context()); err != nil {
			return fmt.Errorf("start rebalance report job: %w", err)
		}
		defer job.Stop()

		fmt.Fprintf(cmd.OutOrStdout(), "rebalance report job running on schedule %q; press Ctrl+C to stop\n", reportCronSpec)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportWorkersFile, "workers", "", "path to a JSON worker roster file")
	reportCmd.Flags().StringVar(&reportCronSpec, "cron", "0 2 * * *", "cron expression for the report firing")
	reportCmd.Flags().IntVar(&reportTopK, "top", 5, "number of swap suggestions to include in each report")
}
