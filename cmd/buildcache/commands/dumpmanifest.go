package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/buildcache/buildcache/internal/adapters/store"
)

// newDumpManifestCmd restores ccache's manifest inspection tooling, dropped
// from the distillation (see SPEC_FULL.md's supplemented features). It reads
// straight off disk rather than through Application, since dumping a
// manifest is a debugging aid independent of any running cache instance.
func (c *CLI) newDumpManifestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump-manifest <path>",
		Short: "Pretty-print a manifest file's recorded headers and hashes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := store.DumpManifest(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), text)
			return err
		},
	}
}
