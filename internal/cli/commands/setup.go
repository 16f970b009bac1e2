package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapexplore/internal/cli/config"
	"github.com/leapstack-labs/leapexplore/internal/state"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
	Store  *state.SQLStore
}

// NewCommandContext opens and migrates the configured store.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := config.FromContext(cmd.Context())
	logger := config.GetLogger(cmd.Context())

	store, err := openStore(cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &CommandContext{
		Cfg:    cfg,
		Logger: logger,
		Store:  store,
	}, func() { _ = store.Close() }, nil
}

func openStore(db config.DatabaseConfig, logger *slog.Logger) (*state.SQLStore, error) {
	if db.Driver == state.DriverSQLite && db.DSN != "" && db.DSN != ":memory:" {
		if dir := filepath.Dir(db.DSN); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}

	store := state.NewSQLStore(logger)
	if err := store.Open(db.Driver, db.DSN); err != nil {
		return nil, err
	}
	return store, nil
}
