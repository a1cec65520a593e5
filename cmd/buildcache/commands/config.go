package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/buildcache/buildcache/internal/app"
)

func (c *CLI) newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Dump the effective configuration",
		Args:  cobra.NoArgs,
		RunE:  c.printConfig,
	}
}

func (c *CLI) printConfig(cmd *cobra.Command, _ []string) error {
	_, err := fmt.Fprint(cmd.OutOrStdout(), app.FormatConfig(c.app.Config()))
	return err
}
