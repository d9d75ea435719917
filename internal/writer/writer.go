// Package writer saves merge results to files and databases.
package writer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapmerge/internal/loader"
	"github.com/leapstack-labs/leapmerge/internal/normalize"
	"github.com/leapstack-labs/leapmerge/pkg/adapter"
	"github.com/leapstack-labs/leapmerge/pkg/dataset"
	"github.com/xuri/excelize/v2"
)

// DefaultTable is the table merge results are written to in databases.
const DefaultTable = "merged"

// DefaultSheet is the worksheet written to .xlsx files.
const DefaultSheet = "Sheet1"

// DefaultExt is appended to output paths with an unknown or missing extension.
const DefaultExt = ".xlsx"

// Writer saves datasets.
type Writer struct {
	logger *slog.Logger
}

// New creates a writer. A nil logger discards diagnostics.
func New(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Writer{logger: logger}
}

// ResolvePath returns the path Save will actually write to.
func ResolvePath(path string) string {
	if file, _ := loader.SplitSource(path); isDatabase(file) {
		return path
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".xlsx", ".json":
		return path
	}
	return path + DefaultExt
}

func isDatabase(file string) bool {
	_, ok := adapter.ForSource(file)
	return ok
}

// Save writes ds to path and returns the path written. Database targets
// accept a "#table" suffix; the default table is DefaultTable.
func (w *Writer) Save(ctx context.Context, path string, ds *dataset.Dataset) (string, error) {
	if ds == nil {
		return "", fmt.Errorf("nothing to save")
	}
	path = ResolvePath(path)

	var err error
	file, table := loader.SplitSource(path)
	if typ, ok := adapter.ForSource(file); ok {
		if table == "" {
			table = DefaultTable
		}
		err = w.saveTable(ctx, adapter.Config{Type: typ, Path: file}, table, ds)
	} else {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv":
			err = saveCSV(path, ds)
		case ".json":
			err = saveJSON(path, ds)
		default:
			err = saveExcel(path, ds)
		}
	}
	if err != nil {
		return "", err
	}

	w.logger.Info("saved result",
		slog.String("path", path),
		slog.Int("rows", ds.Len()),
		slog.Int("columns", len(ds.Columns)))
	return path, nil
}

func (w *Writer) saveTable(ctx context.Context, cfg adapter.Config, table string, ds *dataset.Dataset) error {
	adp, err := adapter.Open(ctx, cfg, w.logger)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", cfg.Type, err)
	}
	defer func() { _ = adp.Close() }()

	if err := adp.WriteTable(ctx, table, ds); err != nil {
		return fmt.Errorf("failed to write table %s: %w", table, err)
	}
	return nil
}

func saveCSV(path string, ds *dataset.Dataset) (err error) {
	f, err := os.Create(path) //nolint:gosec // user-supplied output path
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	cw := csv.NewWriter(f)
	if err := cw.Write(ds.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	rec := make([]string, len(ds.Columns))
	for _, row := range ds.Rows {
		for i, col := range ds.Columns {
			rec[i] = normalize.Text(row[col])
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// saveJSON writes an array of objects whose keys keep the column order.
func saveJSON(path string, ds *dataset.Dataset) error {
	var b strings.Builder
	b.WriteString("[")
	for r, row := range ds.Rows {
		if r > 0 {
			b.WriteString(",")
		}
		b.WriteString("\n  {")
		for i, col := range ds.Columns {
			if i > 0 {
				b.WriteString(", ")
			}
			k, err := json.Marshal(col)
			if err != nil {
				return err
			}
			v, err := json.Marshal(jsonValue(row[col]))
			if err != nil {
				return fmt.Errorf("failed to encode %s: %w", col, err)
			}
			b.Write(k)
			b.WriteString(": ")
			b.Write(v)
		}
		b.WriteString("}")
	}
	if ds.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString("]\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// jsonValue maps values JSON cannot represent (NaN, infinities) to null.
func jsonValue(v any) any {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil
	}
	return v
}

func saveExcel(path string, ds *dataset.Dataset) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	header := make([]any, len(ds.Columns))
	for i, col := range ds.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(DefaultSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for r, rec := range ds.Records() {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(DefaultSheet, cell, &rec); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
