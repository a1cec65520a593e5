// Package commands implements the maintenance-command CLI for buildcache.
// Wrapped-tool invocations never reach this package: main.go dispatches
// those before cobra ever sees argv (see §6).
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/buildcache/buildcache/internal/build"
	"github.com/buildcache/buildcache/internal/core/domain"
)

// Application is the maintenance-command surface the CLI drives.
type Application interface {
	Stats() (domain.StatsSnapshot, error)
	ZeroStats() error
	Clear() error
	Config() domain.Config
}

// CLI represents the maintenance command line interface for buildcache.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	c := &CLI{app: a}

	rootCmd := &cobra.Command{
		Use:           "buildcache",
		Short:         "A transparent compiler invocation cache",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
		RunE:          c.runRootFlags,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.Flags().BoolP("show-stats", "s", false, "Print cache ledger counters")
	rootCmd.Flags().BoolP("zero-stats", "z", false, "Reset ledger counters to zero")
	rootCmd.Flags().BoolP("clear", "C", false, "Remove all cache entries, keep stats structure")
	rootCmd.Flags().BoolP("get-config", "c", false, "Dump the effective configuration")

	c.rootCmd = rootCmd

	rootCmd.AddCommand(c.newStatsCmd())
	rootCmd.AddCommand(c.newZeroStatsCmd())
	rootCmd.AddCommand(c.newClearCmd())
	rootCmd.AddCommand(c.newConfigCmd())
	rootCmd.AddCommand(c.newVersionCmd())
	rootCmd.AddCommand(c.newDumpManifestCmd())

	return c
}

// runRootFlags backs the flag-only invocation form (`buildcache --show-stats`,
// …), the spec's primary maintenance interface; the subcommands registered
// alongside it exist for discoverability only.
func (c *CLI) runRootFlags(cmd *cobra.Command, _ []string) error {
	switch {
	case flagSet(cmd, "show-stats"):
		return c.printStats(cmd, nil)
	case flagSet(cmd, "zero-stats"):
		return c.runZeroStats(cmd, nil)
	case flagSet(cmd, "clear"):
		return c.runClear(cmd, nil)
	case flagSet(cmd, "get-config"):
		return c.printConfig(cmd, nil)
	default:
		return cmd.Help()
	}
}

func flagSet(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}
