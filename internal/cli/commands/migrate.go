package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			version, err := cmdCtx.Store.GetMigrationVersion()
			if err != nil {
				return fmt.Errorf("failed to read migration version: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Database %s is at version %d\n", cmdCtx.Store.Driver(), version)
			return nil
		},
	}
}
