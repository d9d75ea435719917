package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapmerge/internal/normalize"
)

// Table writes headers and rows as a box-drawn table in text mode and as
// a markdown table otherwise.
func (r *Renderer) Table(headers []string, rows [][]any) {
	t := table.NewWriter()

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	t.AppendHeader(header)

	for _, row := range rows {
		out := make(table.Row, len(row))
		for i, v := range row {
			out[i] = FormatCell(v)
		}
		t.AppendRow(out)
	}

	if r.EffectiveMode() == ModeText {
		t.SetStyle(table.StyleLight)
		r.Println(t.Render())
		return
	}
	r.Println(t.RenderMarkdown())
}

// FormatCell renders one dataset value for display on a single line.
// Missing values are shown as empty cells.
func FormatCell(v any) string {
	return strings.ReplaceAll(normalize.Text(v), "\n", " ")
}

// FormatRatio renders a ratio in [0, 1] as a percentage.
func FormatRatio(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}
