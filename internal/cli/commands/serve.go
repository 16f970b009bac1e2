package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapexplore/internal/importer"
	"github.com/leapstack-labs/leapexplore/internal/ui"
	exploreFeature "github.com/leapstack-labs/leapexplore/internal/ui/features/explore"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var open bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the explore by example web server",
		Long: `Start the web server providing the explore by example views:
template selection, field selection, query builder and results.

When data_dir is set it is imported on startup, and with --watch it is
re-imported whenever a schema, document or the manifest changes.`,
		Example: `  # Serve on the default port
  leapexplore serve --data-dir ./data

  # Serve on a custom port without signing in
  leapexplore serve --port 3000 --allow-anonymous`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, open)
		},
	}

	cmd.Flags().Int("port", 0, "Port to serve on (default: 8765)")
	cmd.Flags().Bool("watch", true, "Re-import the data directory when it changes")
	cmd.Flags().Bool("dev", false, "Serve static files from disk and enable hot reload")
	cmd.Flags().String("session-dir", "", "Store sessions in this directory instead of cookies")
	cmd.Flags().Bool("allow-anonymous", false, "Allow exploring without signing in")
	cmd.Flags().Bool("exporters", true, "Enable result exporters")
	cmd.Flags().Int("results-page-size", 0, "Results per page")
	cmd.Flags().BoolVar(&open, "open", false, "Open the browser")

	return cmd
}

func runServe(cmd *cobra.Command, open bool) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := cmdCtx.Cfg
	logger := cmdCtx.Logger

	if cfg.DataDir != "" {
		res, err := importer.New(cmdCtx.Store, logger).Import(cmd.Context(), cfg.DataDir)
		if err != nil {
			return fmt.Errorf("initial import failed: %w", err)
		}
		logger.Info("data directory imported",
			"dir", cfg.DataDir,
			"templates", res.Templates,
			"documents", res.Documents,
		)
	}

	secret := cfg.Server.SessionSecret
	if secret == "" {
		secret = uuid.NewString()
		logger.Warn("server.session_secret is not set, sessions will not survive a restart")
	}

	server, err := ui.NewServer(ui.Config{
		Store:             cmdCtx.Store,
		Port:              cfg.Server.Port,
		Watch:             cfg.Server.Watch,
		Dev:               cfg.Server.Dev,
		DataDir:           cfg.DataDir,
		SessionSecret:     secret,
		SessionDir:        cfg.Server.SessionDir,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		Explore: exploreFeature.Config{
			AllowAnonymous:  cfg.Explore.AllowAnonymous,
			Exporters:       cfg.Explore.Exporters,
			ResultsPageSize: cfg.Explore.ResultsPageSize,
		},
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	url := fmt.Sprintf("http://localhost:%d%s/", cfg.Server.Port, exploreFeature.BasePath)
	if open {
		go openBrowser(url)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Starting server on %s\n", url)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Serve(ctx)
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(context.Background(), "open", url)
	case "linux":
		cmd = exec.CommandContext(context.Background(), "xdg-open", url)
	case "windows":
		cmd = exec.CommandContext(context.Background(), "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return
	}

	_ = cmd.Start()
}
