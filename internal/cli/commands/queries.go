package commands

import (
	"errors"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapexplore/internal/explore"
	"github.com/leapstack-labs/leapexplore/pkg/core"
)

// NewQueriesCommand creates the queries command group.
func NewQueriesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queries",
		Short: "Inspect saved queries",
	}
	cmd.AddCommand(newQueriesListCommand())
	return cmd
}

func newQueriesListCommand() *cobra.Command {
	var (
		app      bool
		user     string
		template string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved queries",
		Long: `List the saved queries of a user for a template, or with --app the
queries saved by the application itself.`,
		Example: `  # Queries bob saved on a template
  leapexplore queries list --user bob --template <template-id>

  # Queries created by the application
  leapexplore queries list --app`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !app && (user == "" || template == "") {
				return errors.New("either --app or both --user and --template are required")
			}

			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			svc := explore.NewService(cmdCtx.Store, cmdCtx.Logger)
			var queries []*core.SavedQuery
			if app {
				queries, err = svc.SavedQueriesCreatedByApp(cmd.Context())
			} else {
				queries, err = svc.SavedQueries(cmd.Context(), user, template)
			}
			if err != nil {
				return err
			}

			rows := make([]table.Row, 0, len(queries))
			for _, q := range queries {
				rows = append(rows, table.Row{q.ID, q.TemplateID, q.UserID, q.DisplayedQuery, q.CreatedAt.Format(time.DateTime)})
			}
			return renderTable(cmd.OutOrStdout(), cmdCtx.Cfg.Output,
				table.Row{"ID", "Template", "Owner", "Query", "Created"}, rows)
		},
	}

	cmd.Flags().BoolVar(&app, "app", false, "List the queries created by the application")
	cmd.Flags().StringVar(&user, "user", "", "Owner of the queries")
	cmd.Flags().StringVar(&template, "template", "", "Template the queries target")
	return cmd
}
