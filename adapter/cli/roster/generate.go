package roster

import (
	"errors"
	"fmt"
	"time"

	"github.com/rosterforge/rosterd/adapter/cli"
	"github.com/rosterforge/rosterd/internal/roster/application/commands"
	"github.com/rosterforge/rosterd/internal/roster/application/services"
	"github.com/spf13/cobra"
)

var (
	generateWorkersFile string
	generateStart       string
	generateEnd         string
	generateNumShifts   int
	generateGap         int
	generateMaxWeekends int
	generateTolerance   float64
	generateSeed        int64
	generateNoDualMode  bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new on-call roster for a date range",
	Long: `Generate runs the two-phase scheduling engine over a worker roster
and persists the resulting schedule.

Examples:
  rosterd roster generate --workers workers.json --start 2026-01-01 --end 2026-01-31
  rosterd roster generate --workers workers.json --start 2026-02-01 --end 2026-02-28 --seed 42`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.GenerateScheduleHandler == nil {
			return errors.New("roster generate requires a configured engine and schedule store")
		}

		if generateWorkersFile == "" {
			return errors.New("--workers is required")
		}
		workers, err := loadWorkers(generateWorkersFile)
		if err != nil {
			return err
		}

		start, err := parseCivilDate(generateStart)
		if err != nil {
			return err
		}
		end, err := parseCivilDate(generateEnd)
		if err != nil {
			return err
		}

		cfg := services.DefaultSchedulerConfig(start, end)
		if generateNumShifts > 0 {
			cfg.NumShifts = generateNumShifts
		}
		if cmd.Flags().Changed("gap") {
			cfg.GapBetweenShifts = generateGap
		}
		if cmd.Flags().Changed("max-weekends") {
			cfg.MaxConsecutiveWeekends = generateMaxWeekends
		}
		if cmd.Flags().Changed("tolerance") {
			cfg.Tolerance = generateTolerance
		}
		if generateNoDualMode {
			cfg.EnableDualMode = false
		}
		if cmd.Flags().Changed("seed") {
			cfg.Seed = &generateSeed
		}

		result, err := app.GenerateScheduleHandler.Handle(cmd.Context(), commands.GenerateScheduleCommand{
			RequestedBy: app.OperatorID,
			Config:      cfg,
			Workers:     workers,
		})
		if err != nil {
			return fmt.Errorf("generate schedule: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Schedule %s generated (%s to %s)\n", result.ScheduleID, generateStart, generateEnd)
		fmt.Fprintf(cmd.OutOrStdout(), "  unresolved mandatories: %d\n", len(result.UnresolvedMandatory))
		fmt.Fprintf(cmd.OutOrStdout(), "  violations: %d\n", len(result.Violations))
		if result.Cancelled {
			fmt.Fprintln(cmd.OutOrStdout(), "  phase 2 was cancelled before convergence")
		}
		for _, m := range result.UnresolvedMandatory {
			fmt.Fprintf(cmd.OutOrStdout(), "    unresolved: %s on %s (%s)\n", m.Worker.String(), m.Date.Format(civilDateLayout), m.Reason)
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateWorkersFile, "workers", "", "path to a JSON worker roster file")
	generateCmd.Flags().StringVar(&generateStart, "start", time.Now().Format(civilDateLayout), "period start date (YYYY-MM-DD)")
	generateCmd.Flags().StringVar(&generateEnd, "end", time.Now().Format(civilDateLayout), "period end date (YYYY-MM-DD)")
	generateCmd.Flags().IntVar(&generateNumShifts, "num-shifts", 0, "shifts per day (default from engine defaults)")
	generateCmd.Flags().IntVar(&generateGap, "gap", 0, "minimum rest days between shifts")
	generateCmd.Flags().IntVar(&generateMaxWeekends, "max-weekends", 0, "maximum consecutive weekends a worker may cover")
	generateCmd.Flags().Float64Var(&generateTolerance, "tolerance", 0, "acceptable deviation fraction from target shift counts")
	generateCmd.Flags().Int64Var(&generateSeed, "seed", 0, "fix the random seed for reproducible generation")
	generateCmd.Flags().BoolVar(&generateNoDualMode, "no-dual-mode", false, "disable phase 2's iterative improvement pass")
}
