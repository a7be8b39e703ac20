package roster

import (
	"errors"
	"fmt"

	"github.com/rosterforge/rosterd/adapter/cli"
	"github.com/rosterforge/rosterd/internal/roster/application/queries"
	"github.com/rosterforge/rosterd/internal/roster/application/services"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	swapsWorkersFile string
	swapsTopK        int
	swapsGap         int
	swapsMaxWeekends int
)

var swapsCmd = &cobra.Command{
	Use:   "swaps <schedule-id>",
	Short: "Find top swap suggestions that would reduce shift-count imbalance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.FindSwapSuggestionsHandler == nil || app.ScheduleRepo == nil {
			return errors.New("roster swaps requires a configured schedule store")
		}
		if swapsWorkersFile == "" {
			return errors.New("--workers is required")
		}

		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid schedule id: %w", err)
		}
		workers, err := loadWorkers(swapsWorkersFile)
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
		cfg := services.DefaultSchedulerConfig(sched.PeriodStart(), sched.PeriodEnd())
		if cmd.Flags().Changed("gap") {
			cfg.GapBetweenShifts = swapsGap
		}
		if cmd.Flags().Changed("max-weekends") {
			cfg.MaxConsecutiveWeekends = swapsMaxWeekends
		}

		suggestions, err := app.FindSwapSuggestionsHandler.Handle(cmd.Context(), queries.FindSwapSuggestionsQuery{
			ScheduleID: id,
			Workers:    workers,
			Targets:    targets,
			Config:     cfg,
			TopK:       swapsTopK,
		})
		if err != nil {
			return fmt.Errorf("find swap suggestions: %w", err)
		}

		if len(suggestions) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no swap suggestions: schedule is within tolerance")
			return nil
		}
		for _, s := range suggestions {
			fmt.Fprintf(cmd.OutOrStdout(), "%-6s move from %s to %s, %d date(s), improvement=%.3f\n", s.Kind, s.Over, s.Under, len(s.Dates), s.Improvement)
		}
		return nil
	},
}

func init() {
	swapsCmd.Flags().StringVar(&swapsWorkersFile, "workers", "", "path to a JSON worker roster file")
	swapsCmd.Flags().IntVar(&swapsTopK, "top", 5, "maximum number of suggestions to return")
	swapsCmd.Flags().IntVar(&swapsGap, "gap", 0, "minimum rest days between shifts")
	swapsCmd.Flags().IntVar(&swapsMaxWeekends, "max-weekends", 0, "maximum consecutive weekends a worker may cover")
}
