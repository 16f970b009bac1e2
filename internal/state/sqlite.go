// Package state provides the SQL-backed implementation of the collaborator APIs
// in pkg/core: templates, queries, saved queries, data structures, persistent
// queries and data documents.
package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/leapstack-labs/leapexplore/pkg/core"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var _ core.Store = (*SQLStore)(nil)

// SQLStore implements core.Store on top of database/sql.
type SQLStore struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// NewSQLStore creates a new store instance.
// If logger is nil, a discard logger is used.
func NewSQLStore(logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLStore{logger: logger}
}

// NewSQLStoreWithDB wraps an existing connection. Used by tests.
func NewSQLStoreWithDB(db *sql.DB, driver string, logger *slog.Logger) *SQLStore {
	s := NewSQLStore(logger)
	s.db = db
	s.driver = driver
	return s
}

// Open opens a connection for the given driver.
// For sqlite, dsn is a file path or ":memory:".
func (s *SQLStore) Open(driver, dsn string) error {
	var (
		db  *sql.DB
		err error
	)

	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		db, err = sql.Open("sqlite", sqliteDSN(dsn))
		if err == nil {
			// A second connection to :memory: would see an empty database.
			db.SetMaxOpenConns(1)
			db.SetConnMaxLifetime(0)
		}
	case DriverPostgres:
		db, err = sql.Open("pgx", dsn)
	default:
		return fmt.Errorf("unsupported database driver: %s", driver)
	}
	if err != nil {
		return fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping %s database: %w", driver, err)
	}

	if driver == DriverSQLite {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	s.logger.Debug("opened database", slog.String("driver", driver))

	s.db = db
	s.driver = driver
	return nil
}

func sqliteDSN(path string) string {
	if path == ":memory:" || path == "" {
		return ":memory:"
	}
	return fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB returns the underlying connection.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Driver returns the name of the open driver.
func (s *SQLStore) Driver() string {
	return s.driver
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) checkOpen() error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	return nil
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// placeholders returns "?, ?, ?" for n values.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeStrings(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeDataSources(raw string) ([]core.DataSource, error) {
	if raw == "" {
		return nil, nil
	}
	var out []core.DataSource
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
