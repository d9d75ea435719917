package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapmerge/internal/cli/output"
	"github.com/leapstack-labs/leapmerge/internal/detect"
	"github.com/spf13/cobra"
)

// DetectOutput is the structured result of the detect command.
type DetectOutput struct {
	File1      string             `json:"file1" yaml:"file1"`
	File2      string             `json:"file2" yaml:"file2"`
	Candidates []detect.Candidate `json:"candidates" yaml:"candidates"`
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect <file1> <file2>",
		Short: "Find column pairs that can join two files",
		Long: `Rank every column pair of two files by how well it works as a join key.

A column is considered only when most of its values are unique. Each pair is
scored from the similarity of the column names and the overlap of their
normalized values; pairs below the minimum match ratio are dropped.`,
		Example: `  # Detect keys between two files
  leapmerge detect customers.csv orders.xlsx

  # Lower the score threshold
  leapmerge detect a.csv b.csv --min-match-ratio 0.2`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args[0], args[1])
		},
	}

	addDetectionFlags(cmd)

	return cmd
}

func addDetectionFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("min-match-ratio", detect.DefaultMinMatchRatio, "Lowest candidate score kept (0-1)")
	cmd.Flags().Float64("min-uniqueness", detect.DefaultMinUniqueness, "Uniqueness a column must exceed to be a key (0-1)")
}

func runDetect(cmd *cobra.Command, first, second string) error {
	cmdCtx := NewCommandContext(cmd)
	if err := cmdCtx.loadFiles(cmd.Context(), first, second); err != nil {
		return err
	}

	candidates, err := cmdCtx.Engine.DetectKeys()
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if ok, err := r.Structured(DetectOutput{File1: first, File2: second, Candidates: candidates}); ok {
		return err
	}

	renderCandidates(r, candidates)
	return nil
}

func renderCandidates(r *output.Renderer, candidates []detect.Candidate) {
	r.Header(1, "Key Candidates")
	if len(candidates) == 0 {
		r.Warning("No potential keys found. Choose the key columns manually with --key1 and --key2.")
		return
	}

	rows := make([][]any, len(candidates))
	for i, c := range candidates {
		rows[i] = []any{
			i + 1,
			c.ColumnA,
			c.ColumnB,
			output.FormatRatio(c.Score),
			c.MatchCount,
			output.FormatRatio(c.NameSimilarity),
			output.FormatRatio(c.ValueOverlap),
			c.Category,
		}
	}
	r.Table([]string{"#", "File 1", "File 2", "Score", "Matches", "Name", "Overlap", "Category"}, rows)

	best := candidates[0]
	r.Println()
	r.Success(fmt.Sprintf("Best key: %s ↔ %s (%s)", best.ColumnA, best.ColumnB, output.FormatRatio(best.Score)))
	if others := len(candidates) - 1; others > 0 {
		r.Muted(fmt.Sprintf("%d other options available", others))
	}
}
