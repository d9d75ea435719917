// Package loader reads tabular files and database tables into datasets.
//
// The format is chosen from the file extension:
//
//	.csv                     comma-separated, encoding detected
//	.txt .tsv                tab-separated UTF-8
//	.xlsx .xlsm              first worksheet
//	.db .sqlite .sqlite3     SQLite table (first table, or path#table)
//	.duckdb                  DuckDB table (first table, or path#table)
//	.parquet .json .ndjson   read through an in-memory DuckDB
//	postgres://...#table     PostgreSQL table
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapmerge/pkg/adapter"
	"github.com/leapstack-labs/leapmerge/pkg/adapters/duckdb"
	"github.com/leapstack-labs/leapmerge/pkg/dataset"

	_ "github.com/leapstack-labs/leapmerge/pkg/adapters/postgres" // postgres adapter
	_ "github.com/leapstack-labs/leapmerge/pkg/adapters/sqlite"   // sqlite adapter
)

// ErrEmptyDataset is returned when a source holds no rows.
var ErrEmptyDataset = errors.New("file is empty")

// UnsupportedFormatError is returned for an extension the loader cannot read.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Ext == "" {
		return "unsupported file format: missing extension"
	}
	return fmt.Sprintf("unsupported file format: %s", e.Ext)
}

// Loader reads datasets from files and databases.
type Loader struct {
	logger *slog.Logger
}

// New creates a loader. A nil logger discards diagnostics.
func New(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{logger: logger}
}

// Extensions returns the file extensions the loader understands.
func Extensions() []string {
	return []string{".csv", ".txt", ".tsv", ".xlsx", ".xlsm", ".db", ".sqlite", ".sqlite3", ".duckdb", ".parquet", ".json", ".ndjson"}
}

// Load reads source into a dataset. The dataset is named after the file, or
// after the table for database sources.
func (l *Loader) Load(ctx context.Context, source string) (*dataset.Dataset, error) {
	path, table := SplitSource(source)

	var (
		ds  *dataset.Dataset
		err error
	)
	if typ, ok := adapter.ForSource(path); ok {
		cfg := adapter.Config{Type: typ, Path: path}
		if typ == "sqlite" {
			cfg.Options = map[string]string{"mode": "ro"}
		}
		ds, err = l.loadTable(ctx, cfg, table)
	} else {
		ext := strings.ToLower(filepath.Ext(path))
		switch ext {
		case ".csv":
			ds, err = l.loadDelimited(path, ',', true)
		case ".txt", ".tsv":
			ds, err = l.loadDelimited(path, '\t', false)
		case ".xlsx", ".xlsm":
			ds, err = l.loadExcel(path)
		case ".parquet", ".json", ".ndjson":
			ds, err = l.loadViaDuckDB(ctx, path)
		default:
			return nil, &UnsupportedFormatError{Ext: ext}
		}
	}
	if err != nil {
		return nil, err
	}

	if ds.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDataset, source)
	}
	l.logger.Info("loaded dataset",
		slog.String("source", source),
		slog.Int("rows", ds.Len()),
		slog.Int("columns", len(ds.Columns)))
	return ds, nil
}

// SplitSource separates an optional "#table" suffix from a database source.
// A "#" in a plain file name is part of the path.
func SplitSource(source string) (path, table string) {
	i := strings.LastIndex(source, "#")
	if i < 0 {
		return source, ""
	}
	if _, ok := adapter.ForSource(source[:i]); ok || strings.Contains(source[:i], "://") {
		return source[:i], source[i+1:]
	}
	return source, ""
}

func (l *Loader) loadTable(ctx context.Context, cfg adapter.Config, table string) (*dataset.Dataset, error) {
	adp, err := adapter.Open(ctx, cfg, l.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cfg.Type, err)
	}
	defer func() { _ = adp.Close() }()

	if table == "" {
		tables, err := adp.ListTables(ctx)
		if err != nil {
			return nil, err
		}
		if len(tables) == 0 {
			return nil, fmt.Errorf("%w: no tables in %s", ErrEmptyDataset, cfg.Path)
		}
		table = tables[0]
		l.logger.Debug("using first table", slog.String("table", table))
	}

	ds, err := adp.ReadTable(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", table, err)
	}
	return ds, nil
}

func (l *Loader) loadViaDuckDB(ctx context.Context, path string) (*dataset.Dataset, error) {
	adp := duckdb.New(l.logger)
	if err := adp.Connect(ctx, adapter.Config{}); err != nil {
		return nil, err
	}
	defer func() { _ = adp.Close() }()

	return adp.ReadFile(ctx, path)
}
