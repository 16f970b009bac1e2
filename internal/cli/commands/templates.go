package commands

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapexplore/internal/explore"
	"github.com/leapstack-labs/leapexplore/pkg/core"
)

// NewTemplatesCommand creates the templates command group.
func NewTemplatesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Inspect imported templates",
	}
	cmd.AddCommand(newTemplatesListCommand())
	return cmd
}

func newTemplatesListCommand() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the active templates",
		Long: `List the active global templates, and the templates owned by --user.

Only the current version of each template is shown; this is the version
the explore by example index links to.`,
		Example: `  # List global templates
  leapexplore templates list

  # Include the templates of a user, as JSON
  leapexplore templates list --user alice -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			svc := explore.NewService(cmdCtx.Store, cmdCtx.Logger)
			global, owned, err := svc.ActiveTemplates(cmd.Context(), user)
			if err != nil {
				return err
			}

			var rows []table.Row
			for _, vm := range append(global, owned...) {
				rows = append(rows, templateRow(vm))
			}
			return renderTable(cmd.OutOrStdout(), cmdCtx.Cfg.Output,
				table.Row{"Template", "Title", "Owner", "Versions"}, rows)
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Also list the templates owned by this user")
	return cmd
}

func templateRow(vm *core.TemplateVersionManager) table.Row {
	owner := vm.UserID
	if vm.IsGlobal() {
		owner = "global"
	}
	return table.Row{vm.Current, vm.Title, owner, strconv.Itoa(len(vm.Versions))}
}
