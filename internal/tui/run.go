package tui

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/leapstack-labs/leapmerge/internal/engine"
	"github.com/leapstack-labs/leapmerge/internal/merge"
)

// Run runs the interactive flow until the user quits, reading keys from the
// terminal and drawing to out. It returns the merge result, or nil when the
// user quit before merging.
func Run(ctx context.Context, eng *engine.Engine, opts Options, out io.Writer) (*merge.Result, error) {
	p := tea.NewProgram(New(ctx, eng, opts),
		tea.WithContext(ctx),
		tea.WithOutput(out),
	)
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("interactive session failed: %w", err)
	}
	m, ok := final.(Model)
	if !ok {
		return nil, fmt.Errorf("unexpected model type %T", final)
	}
	if err := m.Err(); err != nil {
		return nil, err
	}
	return m.Result(), nil
}
