package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapmerge/internal/cli/output"
	"github.com/leapstack-labs/leapmerge/internal/engine"
	"github.com/spf13/cobra"
)

// NewPreviewCommand creates the preview command.
func NewPreviewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview <file1> <file2>",
		Short: "Show the size, columns and first rows of two files",
		Long: `Load two files and show their name, row and column counts, column names
and the first rows of each.

Supported inputs: .csv, .txt/.tsv (tab separated), .xlsx/.xlsm, .json/.ndjson,
.parquet, .db/.sqlite/.sqlite3, .duckdb and postgres:// URLs. Database inputs
read their first table unless one is named with #table.

Output adapts to environment:
  - Terminal: Styled, colored output
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json, yaml`,
		Example: `  # Preview two CSV files
  leapmerge preview customers.csv orders.csv

  # Show ten rows of each
  leapmerge preview customers.xlsx warehouse.db#orders --rows 10

  # Preview as JSON
  leapmerge preview a.csv b.csv -o json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, args[0], args[1])
		},
	}

	cmd.Flags().Int("rows", engine.DefaultPreviewRows, "Number of sample rows per file")

	return cmd
}

func runPreview(cmd *cobra.Command, first, second string) error {
	cmdCtx := NewCommandContext(cmd)
	if err := cmdCtx.loadFiles(cmd.Context(), first, second); err != nil {
		return err
	}

	previews := cmdCtx.Engine.Preview(cmdCtx.Cfg.PreviewRows)
	r := cmdCtx.Renderer

	if ok, err := r.Structured(previews); ok {
		return err
	}

	for _, p := range previews {
		renderDatasetPreview(r, p)
	}
	return nil
}

func renderDatasetPreview(r *output.Renderer, p engine.DatasetPreview) {
	r.Header(1, fmt.Sprintf("File %d: %s", p.Slot, p.Name))
	r.KeyValue("Source", p.Source)
	r.KeyValue("Rows", p.Rows)
	r.KeyValue("Columns", p.Columns)
	r.Println()
	r.Table(p.ColumnNames, p.SampleRows)
	if p.Rows > len(p.SampleRows) {
		r.Muted(fmt.Sprintf("... %d more rows", p.Rows-len(p.SampleRows)))
	}
	r.Println()
}
