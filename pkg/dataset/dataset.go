// Package dataset provides the in-memory tabular model shared by the
// loader, the matching engine and the writers.
//
// A Dataset is an ordered list of column names plus a list of rows, where
// each row maps a column name to a scalar. Scalars are one of nil, string,
// int64, float64 or bool. A row that lacks a column is treated as holding nil
// for it.
package dataset

import (
	"maps"
	"slices"
)

// Row maps column names to scalar values.
type Row map[string]any

// Dataset is a named, ordered, in-memory table.
type Dataset struct {
	Name    string
	Columns []string
	Rows    []Row
}

// New builds a dataset from rows. The column set is the union of every row's
// keys in first-encountered order; keys inside a single row are visited in
// sorted order since map iteration is unordered.
func New(name string, rows []Row) *Dataset {
	seen := make(map[string]struct{})
	var cols []string
	for _, r := range rows {
		for _, k := range slices.Sorted(maps.Keys(r)) {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			cols = append(cols, k)
		}
	}
	return &Dataset{Name: name, Columns: cols, Rows: rows}
}

// FromRecords builds a dataset from a header and string records. Records
// shorter than the header are padded with nil; extra trailing fields are
// dropped.
func FromRecords(name string, header []string, records [][]string) *Dataset {
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = nil
			}
		}
		rows = append(rows, row)
	}
	return &Dataset{Name: name, Columns: slices.Clone(header), Rows: rows}
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// HasColumn reports whether col is one of the dataset's columns.
func (d *Dataset) HasColumn(col string) bool {
	if d == nil {
		return false
	}
	return slices.Contains(d.Columns, col)
}

// Values returns the values of col in row order.
func (d *Dataset) Values(col string) []any {
	out := make([]any, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = r[col]
	}
	return out
}

// Clone returns a deep copy of the dataset. Scalars are immutable, so copying
// each row map is enough.
func (d *Dataset) Clone() *Dataset {
	rows := make([]Row, len(d.Rows))
	for i, r := range d.Rows {
		rows[i] = maps.Clone(r)
		if rows[i] == nil {
			rows[i] = Row{}
		}
	}
	return &Dataset{Name: d.Name, Columns: slices.Clone(d.Columns), Rows: rows}
}

// Head returns a dataset sharing the first n rows. A negative n returns
// every row.
func (d *Dataset) Head(n int) *Dataset {
	if n < 0 || n > len(d.Rows) {
		n = len(d.Rows)
	}
	return &Dataset{Name: d.Name, Columns: d.Columns, Rows: d.Rows[:n]}
}

// Records returns the rows as slices aligned with Columns.
func (d *Dataset) Records() [][]any {
	out := make([][]any, len(d.Rows))
	for i, r := range d.Rows {
		rec := make([]any, len(d.Columns))
		for j, c := range d.Columns {
			rec[j] = r[c]
		}
		out[i] = rec
	}
	return out
}
