package engine

import "github.com/leapstack-labs/leapmerge/pkg/dataset"

// DefaultPreviewRows is the number of sample rows shown per dataset.
const DefaultPreviewRows = 5

// DatasetPreview summarizes one loaded dataset.
type DatasetPreview struct {
	Slot        Slot             `json:"slot" yaml:"slot"`
	Name        string           `json:"name" yaml:"name"`
	Source      string           `json:"source" yaml:"source"`
	Rows        int              `json:"rows" yaml:"rows"`
	Columns     int              `json:"columns" yaml:"columns"`
	ColumnNames []string         `json:"column_names" yaml:"column_names"`
	Sample      *dataset.Dataset `json:"-" yaml:"-"`
	SampleRows  [][]any          `json:"sample_rows" yaml:"sample_rows"`
}

// Preview summarizes every loaded dataset with up to maxRows sample rows
// each. A non-positive maxRows uses DefaultPreviewRows.
func (e *Engine) Preview(maxRows int) []DatasetPreview {
	if maxRows <= 0 {
		maxRows = DefaultPreviewRows
	}
	out := make([]DatasetPreview, 0, 2)
	for i, ds := range e.datasets {
		if ds == nil {
			continue
		}
		sample := ds.Head(maxRows)
		out = append(out, DatasetPreview{
			Slot:        Slot(i + 1),
			Name:        ds.Name,
			Source:      e.sources[i],
			Rows:        ds.Len(),
			Columns:     len(ds.Columns),
			ColumnNames: ds.Columns,
			Sample:      sample,
			SampleRows:  sample.Records(),
		})
	}
	return out
}
