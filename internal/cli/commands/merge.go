package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/leapstack-labs/leapmerge/internal/cli/output"
	"github.com/leapstack-labs/leapmerge/internal/engine"
	"github.com/leapstack-labs/leapmerge/internal/merge"
	"github.com/spf13/cobra"
)

// ErrNoKeyCandidates is returned when merge is run without keys and none
// can be detected.
var ErrNoKeyCandidates = errors.New("no key candidates found; choose the key columns with --key1 and --key2")

// MergeOptions holds options for the merge command.
type MergeOptions struct {
	Key1   string
	Key2   string
	Out    string
	Report bool
	Watch  bool
}

// MergeOutput is the structured result of the merge command.
type MergeOutput struct {
	Result     *merge.Result `json:"result" yaml:"result"`
	Output     string        `json:"output,omitempty" yaml:"output,omitempty"`
	ReportPath string        `json:"report,omitempty" yaml:"report,omitempty"`
	AutoKey    bool          `json:"auto_key" yaml:"auto_key"`
}

// NewMergeCommand creates the merge command.
func NewMergeCommand() *cobra.Command {
	opts := &MergeOptions{}

	cmd := &cobra.Command{
		Use:   "merge <file1> <file2>",
		Short: "Join two files on a key column pair",
		Long: `Join the rows of two files on a key column pair and optionally save the result.

Without --key1/--key2 the best detected key pair is used. Key values are
matched after trimming, case folding and dropping a trailing ".0"; missing
keys never match. Columns of the second file whose names are already taken
get a "_right" suffix.

Join types:
  left   keep every row of the first file (default)
  right  keep every row of the second file
  inner  keep only matching rows
  outer  keep every row of both files

The result is saved by extension: .csv, .xlsx, .json, .db/.sqlite/.sqlite3,
.duckdb (table "merged", or name one with #table) or a postgres:// URL.
Any other extension gets .xlsx appended.`,
		Example: `  # Auto-detect the key and save as Excel
  leapmerge merge customers.csv orders.csv --out merged.xlsx

  # Inner join on explicit keys and write a report
  leapmerge merge a.csv b.xlsx --key1 id --key2 customer_id --join inner --out result.csv --report

  # Re-run whenever an input file changes
  leapmerge merge a.csv b.csv --out merged.csv --watch`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Key1, "key1", "", "Key column in the first file (default: best detected)")
	cmd.Flags().StringVar(&opts.Key2, "key2", "", "Key column in the second file (default: best detected)")
	cmd.Flags().String("join", string(merge.JoinLeft), "Join type (left|right|inner|outer)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "Save the merged result to this path")
	cmd.Flags().BoolVar(&opts.Report, "report", false, "Write a YAML merge report next to the output")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Re-run when an input file changes")
	addDetectionFlags(cmd)

	_ = cmd.RegisterFlagCompletionFunc("join", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		types := merge.JoinTypes()
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = t.String()
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runMerge(cmd *cobra.Command, first, second string, opts *MergeOptions) error {
	if err := requireKeys(opts.Key1, opts.Key2); err != nil {
		return err
	}
	if opts.Report && opts.Out == "" {
		return fmt.Errorf("--report requires --out")
	}

	cmdCtx := NewCommandContext(cmd)
	if err := mergeOnce(cmd.Context(), cmdCtx, first, second, opts); err != nil {
		return err
	}
	if !opts.Watch {
		return nil
	}

	paths, err := watchPaths(first, second)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmdCtx.Renderer.Muted(fmt.Sprintf("Watching %s for changes. Press Ctrl+C to stop.", strings.Join(paths, ", ")))
	return watchFiles(ctx, cmdCtx.Logger, paths, func() {
		if err := mergeOnce(ctx, cmdCtx, first, second, opts); err != nil {
			cmdCtx.Renderer.Error(err.Error())
			cmdCtx.Logger.Warn("merge re-run failed", slog.Any("error", err))
		}
	})
}

// mergeOnce loads both files, merges them and saves the result.
func mergeOnce(ctx context.Context, cmdCtx *CommandContext, first, second string, opts *MergeOptions) error {
	if err := cmdCtx.loadFiles(ctx, first, second); err != nil {
		return err
	}

	eng := cmdCtx.Engine
	key1, key2 := opts.Key1, opts.Key2
	auto := key1 == ""
	if auto {
		if _, err := eng.DetectKeys(); err != nil {
			return err
		}
		best, ok := eng.BestCandidate()
		if !ok {
			return ErrNoKeyCandidates
		}
		key1, key2 = best.ColumnA, best.ColumnB
	}

	result, err := eng.Merge(key1, key2, cmdCtx.Cfg.Merge.JoinType)
	if err != nil {
		return err
	}

	out := MergeOutput{Result: result, AutoKey: auto}
	if opts.Out != "" {
		if out.Output, err = eng.Save(ctx, opts.Out); err != nil {
			return fmt.Errorf("failed to save result: %w", err)
		}
		if opts.Report {
			if out.ReportPath, err = eng.SaveReport(out.Output); err != nil {
				return fmt.Errorf("failed to save report: %w", err)
			}
		}
	}

	r := cmdCtx.Renderer
	if ok, err := r.Structured(out); ok {
		return err
	}
	renderMerge(r, out, cmdCtx.Cfg.PreviewRows)
	return nil
}

func renderMerge(r *output.Renderer, out MergeOutput, previewRows int) {
	res := out.Result

	r.Header(1, "Merge Result")
	key := res.Key
	if res.RightKey != res.Key {
		key = fmt.Sprintf("%s ↔ %s", res.Key, res.RightKey)
	}
	if out.AutoKey {
		key += " (auto-detected)"
	}
	r.KeyValue("Key", key)
	r.KeyValue("Join", fmt.Sprintf("%s: %s", res.Join, res.Join.Description()))
	r.KeyValue("Rows", fmt.Sprintf("%d (file 1: %d, file 2: %d, matched: %d)", res.Rows, res.LeftRows, res.RightRows, res.Matched))
	r.KeyValue("Columns", res.Columns)
	for _, from := range slices.Sorted(maps.Keys(res.Renamed)) {
		r.KeyValue("Renamed", fmt.Sprintf("%s → %s", from, res.Renamed[from]))
	}

	if out.Output == "" {
		if previewRows <= 0 {
			previewRows = engine.DefaultPreviewRows
		}
		head := res.Dataset.Head(previewRows)
		r.Println()
		r.Table(head.Columns, head.Records())
		if res.Rows > head.Len() {
			r.Muted(fmt.Sprintf("... %d more rows. Use --out to save the full result.", res.Rows-head.Len()))
		}
		return
	}

	r.Println()
	r.Success(fmt.Sprintf("Merge successful! Saved to: %s", out.Output))
	if out.ReportPath != "" {
		r.Success(fmt.Sprintf("Report saved to: %s", out.ReportPath))
	}
}
