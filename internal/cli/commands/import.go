package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapexplore/internal/importer"
)

// NewImportCommand creates the import command.
func NewImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import [data-dir]",
		Short: "Import templates and documents from a data directory",
		Long: `Import the templates and XML documents listed in the manifest.yaml of a
data directory. Imports are idempotent: re-importing the same directory
updates the existing records.`,
		Example: `  # Import the configured data_dir
  leapexplore import

  # Import a specific directory
  leapexplore import ./data`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			dir := cmdCtx.Cfg.DataDir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return errors.New("no data directory: pass one or set data_dir")
			}

			res, err := importer.New(cmdCtx.Store, cmdCtx.Logger).Import(cmd.Context(), dir)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d managers, %d templates, %d documents from %s\n",
				res.Managers, res.Templates, res.Documents, dir)
			return nil
		},
	}
}
