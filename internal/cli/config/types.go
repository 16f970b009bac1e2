// Package config provides configuration management for the leapexplore CLI.
package config

import "time"

// Default configuration values.
const (
	DefaultConfigFile        = "leapexplore.yaml"
	DefaultPort              = 8765
	DefaultDriver            = "sqlite"
	DefaultDSN               = ".leapexplore/state.db"
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultResultsPageSize   = 10
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultOutput            = "auto" // TTY=text, otherwise markdown
)

// Config holds all CLI configuration options.
type Config struct {
	DataDir  string         `koanf:"data_dir"`
	Output   string         `koanf:"output"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Explore  ExploreConfig  `koanf:"explore"`
	Log      LogConfig      `koanf:"log"`
}

// ServerConfig holds configuration for the web server.
type ServerConfig struct {
	Port              int           `koanf:"port"`
	Watch             bool          `koanf:"watch"`
	Dev               bool          `koanf:"dev"`
	SessionSecret     string        `koanf:"session_secret"`
	SessionDir        string        `koanf:"session_dir"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
}

// DatabaseConfig selects the store backend.
type DatabaseConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
}

// ExploreConfig holds the explore by example options.
type ExploreConfig struct {
	AllowAnonymous  bool `koanf:"allow_anonymous"`
	Exporters       bool `koanf:"exporters"`
	ResultsPageSize int  `koanf:"results_page_size"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaults() map[string]any {
	return map[string]any{
		"output":                     DefaultOutput,
		"server.port":                DefaultPort,
		"server.watch":               true,
		"server.read_header_timeout": DefaultReadHeaderTimeout.String(),
		"database.driver":            DefaultDriver,
		"database.dsn":               DefaultDSN,
		"explore.exporters":          true,
		"explore.results_page_size":  DefaultResultsPageSize,
		"log.level":                  DefaultLogLevel,
		"log.format":                 DefaultLogFormat,
	}
}
