package commands

import "github.com/spf13/cobra"

func (c *CLI) newZeroStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "zero-stats",
		Short: "Reset ledger counters to zero",
		Args:  cobra.NoArgs,
		RunE:  c.runZeroStats,
	}
}

func (c *CLI) runZeroStats(_ *cobra.Command, _ []string) error {
	return c.app.ZeroStats()
}
