// Package collab provides the `rosterd collab` command group: driving the
// collaboration core's session/lock/conflict lifecycle from the command
// line, for scripting and manual operator testing.
package collab

import (
	"github.com/spf13/cobra"
)

// Cmd is the collab command group.
var Cmd = &cobra.Command{
	Use:   "collab",
	Short: "Drive the collaboration core's sessions, locks, and conflicts",
}

func init() {
	Cmd.AddCommand(sessionCmd)
	Cmd.AddCommand(lockCmd)
	Cmd.AddCommand(conflictCmd)
	Cmd.AddCommand(statusCmd)
}
