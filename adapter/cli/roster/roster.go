// Package roster provides the `rosterd roster` command group: generating
// schedules, inspecting their statistics and violations, and finding
// rebalancing swap suggestions.
package roster

import (
	"github.com/spf13/cobra"
)

// Cmd is the roster command group.
var Cmd = &cobra.Command{
	Use:   "roster",
	Short: "Generate and inspect on-call duty rosters",
}

func init() {
	Cmd.AddCommand(generateCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(statisticsCmd)
	Cmd.AddCommand(swapsCmd)
	Cmd.AddCommand(reportCmd)
}
