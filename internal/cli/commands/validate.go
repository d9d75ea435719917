package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapmerge/internal/cli/output"
	"github.com/leapstack-labs/leapmerge/internal/validate"
	"github.com/spf13/cobra"
)

// ValidateOptions holds options for the validate command.
type ValidateOptions struct {
	Key1 string
	Key2 string
}

// ValidateOutput is the structured result of the validate command.
type ValidateOutput struct {
	Key1   string           `json:"key1" yaml:"key1"`
	Key2   string           `json:"key2" yaml:"key2"`
	Report *validate.Report `json:"report" yaml:"report"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	opts := &ValidateOptions{}

	cmd := &cobra.Command{
		Use:   "validate <file1> <file2>",
		Short: "Check how well two columns work as a join key",
		Long: `Report the uniqueness of each key column and how many key values the two
files share. Warnings are shown when a key has duplicates or the files
overlap poorly. Low scores never fail the command.`,
		Example: `  # Validate a key pair
  leapmerge validate customers.csv orders.csv --key1 id --key2 customer_id`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Key1, "key1", "", "Key column in the first file")
	cmd.Flags().StringVar(&opts.Key2, "key2", "", "Key column in the second file")
	_ = cmd.MarkFlagRequired("key1")
	_ = cmd.MarkFlagRequired("key2")

	return cmd
}

func runValidate(cmd *cobra.Command, first, second string, opts *ValidateOptions) error {
	cmdCtx := NewCommandContext(cmd)
	if err := cmdCtx.loadFiles(cmd.Context(), first, second); err != nil {
		return err
	}

	report, err := cmdCtx.Engine.ValidateKeys(opts.Key1, opts.Key2)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if ok, err := r.Structured(ValidateOutput{Key1: opts.Key1, Key2: opts.Key2, Report: report}); ok {
		return err
	}

	renderValidation(r, opts.Key1, opts.Key2, report)
	return nil
}

func renderValidation(r *output.Renderer, key1, key2 string, report *validate.Report) {
	r.Header(1, fmt.Sprintf("Key Validation: %s ↔ %s", key1, key2))

	r.Table(
		[]string{"", "File 1", "File 2"},
		[][]any{
			{"Values", report.File1Total, report.File2Total},
			{"Unique", report.File1Unique, report.File2Unique},
			{"Uniqueness", output.FormatRatio(report.File1Uniqueness), output.FormatRatio(report.File2Uniqueness)},
			{"Matched", output.FormatRatio(report.MatchRatioFile1), output.FormatRatio(report.MatchRatioFile2)},
		},
	)
	r.KeyValue("Common values", report.CommonValues)
	r.Println()

	for _, w := range report.Warnings {
		r.Warning(w)
	}
	if report.Valid && len(report.Warnings) == 0 {
		r.Success("Key columns look good")
	}
}
