package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapmerge/internal/tui"
	"github.com/spf13/cobra"
)

// InteractiveOptions holds options for the interactive command.
type InteractiveOptions struct {
	Out    string
	Report bool
}

// NewInteractiveCommand creates the interactive command.
func NewInteractiveCommand() *cobra.Command {
	opts := &InteractiveOptions{}

	cmd := &cobra.Command{
		Use:     "interactive <file1> <file2>",
		Aliases: []string{"i"},
		Short:   "Choose the key and join type in a terminal UI",
		Long: `Load two files, then pick the key pair from the detected candidates
(or choose the columns by hand), review its validation and merge.`,
		Example: `  leapmerge interactive customers.csv orders.xlsx --out merged.csv`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Out, "out", "", "Save the merged result to this path")
	cmd.Flags().BoolVar(&opts.Report, "report", false, "Write a YAML merge report next to the output")
	cmd.Flags().String("join", "", "Initially selected join type (left|right|inner|outer)")
	addDetectionFlags(cmd)

	return cmd
}

func runInteractive(cmd *cobra.Command, first, second string, opts *InteractiveOptions) error {
	if opts.Report && opts.Out == "" {
		return fmt.Errorf("--report requires --out")
	}

	cmdCtx := NewCommandContext(cmd)
	if !cmdCtx.Renderer.IsTTY() {
		return fmt.Errorf("interactive mode needs a terminal; use merge instead")
	}

	result, err := tui.Run(cmd.Context(), cmdCtx.Engine, tui.Options{
		First:  first,
		Second: second,
		Out:    opts.Out,
		Report: opts.Report,
		Join:   cmdCtx.Cfg.Merge.JoinType,
		Logger: cmdCtx.Logger,
	}, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if result == nil {
		cmdCtx.Renderer.Muted("Cancelled")
	}
	return nil
}
