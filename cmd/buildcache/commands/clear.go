package commands

import "github.com/spf13/cobra"

func (c *CLI) newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cache entries, keep stats structure",
		Args:  cobra.NoArgs,
		RunE:  c.runClear,
	}
}

func (c *CLI) runClear(_ *cobra.Command, _ []string) error {
	return c.app.Clear()
}
