package collab

import (
	"errors"
	"fmt"

	"github.com/rosterforge/rosterd/adapter/cli"
	"github.com/rosterforge/rosterd/internal/collab/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	conflictOpType     string
	conflictResourceID string
	conflictUserID     string
	conflictStrategy   string
)

var conflictCmd = &cobra.Command{
	Use:   "conflict",
	Short: "Detect or resolve an edit conflict",
}

var conflictDetectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Check whether a proposed edit conflicts with the current lock holder",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Core == nil {
			return errors.New("collab conflict requires a configured core")
		}
		if conflictOpType == "" || conflictResourceID == "" || conflictUserID == "" {
			return errors.New("--op-type, --resource, and --user are required")
		}
		conflict, err := app.Core.DetectConflict(cmd.Context(), conflictOpType, conflictResourceID, conflictUserID, nil)
		if err != nil {
			return err
		}
		if conflict == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "no conflict")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "conflict %s: %s wants %s, held by %s\n", conflict.ID(), conflictUserID, conflictResourceID, conflict.HolderUserID())
		return nil
	},
}

var conflictResolveCmd = &cobra.Command{
	Use:   "resolve <conflict-id>",
	Short: "Resolve a pending conflict",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Core == nil {
			return errors.New("collab conflict requires a configured core")
		}
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid conflict id: %w", err)
		}
		ok, err := app.Core.ResolveConflict(cmd.Context(), id, domain.ConflictResolutionStrategy(conflictStrategy), nil)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("resolve refused: already resolved, or the conflict does not exist")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "resolved")
		return nil
	},
}

func init() {
	conflictDetectCmd.Flags().StringVar(&conflictOpType, "op-type", "", "operation type (doubles as the lock type key)")
	conflictDetectCmd.Flags().StringVar(&conflictResourceID, "resource", "", "resource id of the proposed edit")
	conflictDetectCmd.Flags().StringVar(&conflictUserID, "user", "", "user id proposing the edit")

	conflictResolveCmd.Flags().StringVar(&conflictStrategy, "strategy", string(domain.StrategyLastWriterWins), "resolution strategy")

	conflictCmd.AddCommand(conflictDetectCmd)
	conflictCmd.AddCommand(conflictResolveCmd)
}
