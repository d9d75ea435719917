// Package adapter provides the database adapter contract used to read
// datasets from, and write merge results to, SQL databases.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves with this package from their init() functions.
package adapter

import (
	"context"
	"database/sql"

	"github.com/leapstack-labs/leapmerge/pkg/dataset"
)

// Config describes a database connection.
type Config struct {
	// Type is the registered adapter name (duckdb, sqlite, postgres).
	Type string
	// Path is the database file for embedded databases, or a connection URL.
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	// Options are driver-level string options such as sslmode.
	Options map[string]string
	// Params are adapter-specific settings decoded by the adapter itself.
	Params map[string]any
}

// Rows wraps *sql.Rows returned by Query.
type Rows struct {
	*sql.Rows
}

// Adapter defines the interface that all database adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// ListTables returns the user tables in creation or name order.
	ListTables(ctx context.Context) ([]string, error)

	// ReadTable reads a whole table into a dataset.
	ReadTable(ctx context.Context, table string) (*dataset.Dataset, error)

	// WriteTable replaces table with the contents of ds.
	WriteTable(ctx context.Context, table string, ds *dataset.Dataset) error

	// DialectName returns the SQL dialect name of the adapter.
	DialectName() string
}
