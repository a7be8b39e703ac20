package roster

import (
	"errors"
	"fmt"

	"github.com/rosterforge/rosterd/adapter/cli"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <schedule-id>",
	Short: "Show a stored schedule's summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.ScheduleRepo == nil {
			return errors.New("roster show requires a configured schedule store")
		}

		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid schedule id: %w", err)
		}

		sched, err := app.ScheduleRepo.FindByID(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("find schedule: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Schedule %s\n", id)
		fmt.Fprintf(cmd.OutOrStdout(), "  period:  %s to %s\n", sched.PeriodStart().Format(civilDateLayout), sched.PeriodEnd().Format(civilDateLayout))
		fmt.Fprintf(cmd.OutOrStdout(), "  filled:  %d\n", sched.FilledCount())
		fmt.Fprintf(cmd.OutOrStdout(), "  empty:   %d\n", len(sched.EmptySlots()))
		fmt.Fprintf(cmd.OutOrStdout(), "  cancelled: %t\n", sched.Cancelled())
		return nil
	},
}
