package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/buildcache/buildcache/internal/app"
)

func (c *CLI) newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print cache ledger counters",
		Args:  cobra.NoArgs,
		RunE:  c.printStats,
	}
}

func (c *CLI) printStats(cmd *cobra.Command, _ []string) error {
	stats, err := c.app.Stats()
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), app.FormatStats(stats))
	return err
}
