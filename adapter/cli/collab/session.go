package collab

import (
	"errors"
	"fmt"

	"github.com/rosterforge/rosterd/adapter/cli"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	sessionUserID      string
	sessionPermissions []string
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Create, end, or touch a collaboration session",
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new session for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Core == nil {
			return errors.New("collab session requires a configured core")
		}
		if sessionUserID == "" {
			return errors.New("--user is required")
		}
		id, err := app.Core.CreateSession(cmd.Context(), sessionUserID, sessionPermissions, nil)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var sessionEndCmd = &cobra.Command{
	Use:   "end <session-id>",
	Short: "End a session, releasing its tracked locks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Core == nil {
			return errors.New("collab session requires a configured core")
		}
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid session id: %w", err)
		}
		ok, err := app.Core.EndSession(cmd.Context(), id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("session %s not found", id)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ended")
		return nil
	},
}

var sessionTouchCmd = &cobra.Command{
	Use:   "touch <session-id>",
	Short: "Refresh a session's last-activity timestamp",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Core == nil {
			return errors.New("collab session requires a configured core")
		}
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid session id: %w", err)
		}
		ok, err := app.Core.TouchSession(id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("session %s not found", id)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "touched")
		return nil
	},
}

func init() {
	sessionCreateCmd.Flags().StringVar(&sessionUserID, "user", "", "user id owning the session")
	sessionCreateCmd.Flags().StringSliceVar(&sessionPermissions, "permissions", nil, "comma-separated permission list")

	sessionCmd.AddCommand(sessionCreateCmd)
	sessionCmd.AddCommand(sessionEndCmd)
	sessionCmd.AddCommand(sessionTouchCmd)
}
