package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver: unsupported driver %q (want sqlite or postgres)", c.Database.Driver))
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required for postgres"))
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: %d is out of range", c.Server.Port))
	}
	if c.Server.ReadHeaderTimeout < 0 {
		errs = append(errs, errors.New("server.read_header_timeout must not be negative"))
	}
	if c.Explore.ResultsPageSize <= 0 {
		errs = append(errs, fmt.Errorf("explore.results_page_size must be positive, got %d", c.Explore.ResultsPageSize))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}

	switch c.Output {
	case "auto", "text", "markdown", "json":
	default:
		errs = append(errs, fmt.Errorf("output: unknown format %q", c.Output))
	}

	return errors.Join(errs...)
}
