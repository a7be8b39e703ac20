package roster

import (
	"errors"
	"fmt"

	"github.com/rosterforge/rosterd/adapter/cli"
	"github.com/rosterforge/rosterd/internal/roster/application/queries"
	"github.com/rosterforge/rosterd/internal/roster/application/services"
	"github.com/rosterforge/rosterd/internal/roster/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var statisticsWorkersFile string

var statisticsCmd = &cobra.Command{
	Use:   "statistics <schedule-id>",
	Short: "Show per-worker shift-count deviation statistics for a schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.GetStatisticsHandler == nil || app.ScheduleRepo == nil {
			return errors.New("roster statistics requires a configured schedule store")
		}
		if statisticsWorkersFile == "" {
			return errors.New("--workers is required")
		}

		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid schedule id: %w", err)
		}
		workers, err := loadWorkers(statisticsWorkersFile)
		if err != nil {
			return err
		}

		targets, err := computeTargetsForSchedule(cmd, app, id, workers)
		if err != nil {
			return err
		}

		stats, err := app.GetStatisticsHandler.Handle(cmd.Context(), queries.GetStatisticsQuery{
			ScheduleID: id,
			Workers:    workers,
			Targets:    targets,
		})
		if err != nil {
			return fmt.Errorf("get statistics: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%-12s %8s %8s %10s %10s %9s %9s\n", "worker", "target", "assigned", "deviation", "dev_pct", "weekends", "holidays")
		for _, s := range stats {
			fmt.Fprintf(cmd.OutOrStdout(), "%-12s %8d %8d %10d %9.1f%% %9d %9d\n",
				s.Worker, s.Target, s.Assigned, s.Deviation, s.DeviationPct*100, s.WeekendCount, s.HolidayCount)
		}
		return nil
	},
}

// computeTargetsForSchedule derives per-worker quota targets from the
// schedule's own slot layout, so statistics/swaps reflect the schedule as
// it was actually generated rather than a config the caller might not have
// on hand.
func computeTargetsForSchedule(cmd *cobra.Command, app *cli.App, id uuid.UUID, workers []*domain.Worker) (map[domain.WorkerID]int, error) {
	sched, err := app.ScheduleRepo.FindByID(cmd.Context(), id)
	if err != nil {
		return nil, fmt.Errorf("find schedule: %w", err)
	}
	totalSlots := 0
	for _, d := range sched.Dates() {
		totalSlots += sched.SlotCount(d)
	}
	return services.ComputeTargets(workers, totalSlots), nil
}

func init() {
	statisticsCmd.Flags().StringVar(&statisticsWorkersFile, "workers", "", "path to a JSON worker roster file")
}
