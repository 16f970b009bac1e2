package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapexplore/internal/cli/config"
	"github.com/leapstack-labs/leapexplore/internal/explore"
	"github.com/leapstack-labs/leapexplore/internal/importer"
	"github.com/leapstack-labs/leapexplore/internal/querybuilder"
	"github.com/leapstack-labs/leapexplore/internal/state/statetest"
	"github.com/leapstack-labs/leapexplore/internal/testutil"
)

const manifest = `templates:
  - title: Book
    versions:
      - file: book.xsd
    data:
      - file: dune.xml
  - title: Notes
    owner: alice
    versions:
      - file: book.xsd
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.FromContext(context.Background())
	cfg.Database.DSN = filepath.Join(t.TempDir(), "state", "explore.db")
	cfg.Output = outputText
	return cfg
}

func dataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		importer.ManifestFile: manifest,
		"book.xsd":            statetest.BookSchema,
		"dune.xml":            `<book><title>Dune</title></book>`,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
	}
	return dir
}

func run(t *testing.T, cfg *config.Config, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	ctx := config.WithConfig(context.Background(), cfg)
	ctx = config.WithLogger(ctx, testutil.NewTestLogger(t))

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestImportCommand(t *testing.T) {
	cfg := testConfig(t)
	dir := dataDir(t)

	out, err := run(t, cfg, NewImportCommand(), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 managers, 2 templates, 1 documents")

	t.Run("uses data_dir", func(t *testing.T) {
		cfg.DataDir = dir
		_, err := run(t, cfg, NewImportCommand())
		require.NoError(t, err)
	})

	t.Run("requires a directory", func(t *testing.T) {
		cfg.DataDir = ""
		_, err := run(t, cfg, NewImportCommand())
		require.ErrorContains(t, err, "no data directory")
	})
}

func TestMigrateCommand(t *testing.T) {
	out, err := run(t, testConfig(t), NewMigrateCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "Database sqlite is at version")
}

func TestTemplatesListCommand(t *testing.T) {
	cfg := testConfig(t)
	_, err := run(t, cfg, NewImportCommand(), dataDir(t))
	require.NoError(t, err)

	out, err := run(t, cfg, NewTemplatesCommand(), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Book")
	assert.Contains(t, out, "global")
	assert.NotContains(t, out, "Notes")

	out, err = run(t, cfg, NewTemplatesCommand(), "list", "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Notes")
	assert.Contains(t, out, "alice")
}

func TestQueriesListCommand(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	cmdCtx, cleanup, err := NewCommandContext(commandWithConfig(t, cfg))
	require.NoError(t, err)
	_, err = importer.New(cmdCtx.Store, cmdCtx.Logger).Import(ctx, dataDir(t))
	require.NoError(t, err)

	svc := explore.NewService(cmdCtx.Store, cmdCtx.Logger)
	global, _, err := svc.ActiveTemplates(ctx, "")
	require.NoError(t, err)
	require.Len(t, global, 1)
	templateID := global[0].Current

	_, err = svc.SaveQuery(ctx, "bob", templateID, []querybuilder.Criterion{
		{ID: "c1", Field: "book.title", Operator: querybuilder.OpEqual, Value: "Dune"},
	})
	require.NoError(t, err)
	cleanup()

	t.Run("user queries", func(t *testing.T) {
		out, err := run(t, cfg, NewQueriesCommand(), "list", "--user", "bob", "--template", templateID)
		require.NoError(t, err)
		assert.Contains(t, out, "book.title is Dune")
	})

	t.Run("app queries", func(t *testing.T) {
		out, err := run(t, cfg, NewQueriesCommand(), "list", "--app")
		require.NoError(t, err)
		assert.Contains(t, out, "(0 rows)")
	})

	t.Run("missing flags", func(t *testing.T) {
		_, err := run(t, cfg, NewQueriesCommand(), "list", "--user", "bob")
		require.ErrorContains(t, err, "--app")
	})
}

func commandWithConfig(t *testing.T, cfg *config.Config) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	ctx := config.WithConfig(context.Background(), cfg)
	cmd.SetContext(config.WithLogger(ctx, testutil.NewTestLogger(t)))
	return cmd
}

func TestRenderTable(t *testing.T) {
	header := table.Row{"ID", "Query"}
	rows := []table.Row{{"q1", "title is *Dune*"}}

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderTable(&buf, outputText, header, rows))
		assert.Contains(t, buf.String(), "q1")
		assert.Contains(t, buf.String(), "title is *Dune*")
		assert.Contains(t, buf.String(), "+-")
	})

	t.Run("markdown", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderTable(&buf, outputMarkdown, header, rows))
		assert.Contains(t, buf.String(), "|")
		assert.Contains(t, buf.String(), "Dune")
		assert.NotContains(t, buf.String(), "+-")
	})

	t.Run("auto is markdown when not a terminal", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderTable(&buf, outputAuto, header, rows))
		assert.Contains(t, buf.String(), "|")
		assert.NotContains(t, buf.String(), "+-")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderTable(&buf, outputJSON, header, rows))

		var got []map[string]string
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, []map[string]string{{"ID": "q1", "Query": "title is *Dune*"}}, got)
	})

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderTable(&buf, outputText, header, nil))
		assert.Equal(t, "(0 rows)\n", buf.String())
	})
}

func TestCommandMetadata(t *testing.T) {
	serve := NewServeCommand()
	assert.Equal(t, "serve", serve.Use)
	assert.NotEmpty(t, serve.Example)
	for _, flag := range []string{"port", "watch", "dev", "session-dir", "allow-anonymous", "exporters", "results-page-size", "open"} {
		assert.NotNil(t, serve.Flags().Lookup(flag), "flag %q should exist", flag)
	}

	assert.Equal(t, "import [data-dir]", NewImportCommand().Use)
	assert.NotNil(t, NewQueriesCommand().Commands()[0].Flags().Lookup("app"))
}
