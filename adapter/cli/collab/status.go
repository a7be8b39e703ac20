package collab

import (
	"errors"
	"fmt"

	"github.com/rosterforge/rosterd/adapter/cli"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the collaboration core's current activity counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Core == nil {
			return errors.New("collab status requires a configured core")
		}
		status := app.Core.Status(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "active sessions:    %d\n", status.ActiveSessions)
		fmt.Fprintf(cmd.OutOrStdout(), "active locks:       %d\n", status.ActiveLocks)
		fmt.Fprintf(cmd.OutOrStdout(), "pending conflicts:  %d\n", status.PendingConflicts)
		fmt.Fprintf(cmd.OutOrStdout(), "users online:       %d\n", status.UsersOnline)
		for key, depth := range status.QueueDepths {
			fmt.Fprintf(cmd.OutOrStdout(), "  queue %-30s %d waiting\n", key, depth)
		}
		return nil
	},
}
