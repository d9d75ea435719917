// Package tui implements the interactive merge flow as a bubbletea program:
// load both files, choose a key pair, review its validation, pick a join
// type and merge.
package tui

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/leapstack-labs/leapmerge/internal/detect"
	"github.com/leapstack-labs/leapmerge/internal/engine"
	"github.com/leapstack-labs/leapmerge/internal/merge"
	"github.com/leapstack-labs/leapmerge/internal/validate"
)

type stage int

const (
	stageLoading stage = iota
	stageSelectKey
	stagePickColumn1
	stagePickColumn2
	stageConfirm
	stageMerging
	stageDone
	stageFailed
)

// Options configures an interactive session.
type Options struct {
	First  string
	Second string
	// Out is where the result is saved. Empty skips saving.
	Out    string
	Report bool
	// Join is the initially selected join type.
	Join   merge.JoinType
	Logger *slog.Logger
}

type loadedMsg struct {
	candidates []detect.Candidate
	err        error
}

type validatedMsg struct {
	report *validate.Report
	err    error
}

type mergedMsg struct {
	result     *merge.Result
	output     string
	reportPath string
	err        error
}

// Model is the bubbletea model of the merge flow. Engine calls run as
// commands; key presses other than quit are ignored while one is running.
type Model struct {
	ctx    context.Context
	eng    *engine.Engine
	opts   Options
	logger *slog.Logger
	styles styles

	stage   stage
	busy    bool
	notice  string
	err     error
	spinner spinner.Model
	table   table.Model

	candidates []detect.Candidate
	key1       string
	key2       string
	report     *validate.Report
	join       merge.JoinType
	result     *merge.Result
	output     string
	reportPath string
}

// New creates the model. Loading starts when the program runs Init.
func New(ctx context.Context, eng *engine.Engine, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	join := opts.Join
	if join == "" {
		join = merge.JoinLeft
	}
	return Model{
		ctx:     ctx,
		eng:     eng,
		opts:    opts,
		logger:  logger,
		styles:  defaultStyles(),
		stage:   stageLoading,
		busy:    true,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		join:    join,
	}
}

// Init starts loading both files.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCmd())
}

// Err returns the error that ended the session, if any.
func (m Model) Err() error {
	if m.stage == stageFailed {
		return m.err
	}
	return nil
}

// Result returns the merge result once the flow is done.
func (m Model) Result() *merge.Result {
	return m.result
}

func (m Model) loadCmd() tea.Cmd {
	ctx, eng, first, second := m.ctx, m.eng, m.opts.First, m.opts.Second
	return func() tea.Msg {
		if err := eng.LoadPair(ctx, first, second); err != nil {
			return loadedMsg{err: err}
		}
		candidates, err := eng.DetectKeys()
		return loadedMsg{candidates: candidates, err: err}
	}
}

func (m Model) validateCmd() tea.Cmd {
	eng, key1, key2 := m.eng, m.key1, m.key2
	return func() tea.Msg {
		report, err := eng.ValidateKeys(key1, key2)
		return validatedMsg{report: report, err: err}
	}
}

func (m Model) mergeCmd() tea.Cmd {
	ctx, eng, key1, key2, join, out, withReport := m.ctx, m.eng, m.key1, m.key2, m.join, m.opts.Out, m.opts.Report
	return func() tea.Msg {
		result, err := eng.Merge(key1, key2, join)
		if err != nil {
			return mergedMsg{err: err}
		}
		msg := mergedMsg{result: result}
		if out == "" {
			return msg
		}
		if msg.output, err = eng.Save(ctx, out); err != nil {
			return mergedMsg{err: fmt.Errorf("failed to save result: %w", err)}
		}
		if withReport {
			if msg.reportPath, err = eng.SaveReport(msg.output); err != nil {
				return mergedMsg{err: fmt.Errorf("failed to save report: %w", err)}
			}
		}
		return msg
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		m.busy = false
		if msg.err != nil {
			m.stage, m.err = stageFailed, msg.err
			return m, nil
		}
		m.candidates = msg.candidates
		if len(m.candidates) == 0 {
			m.notice = "No potential keys found. Pick the key columns manually."
			m.pickColumn(stagePickColumn1)
			return m, nil
		}
		m.stage = stageSelectKey
		m.table = candidateTable(m.candidates)
		return m, nil

	case validatedMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.report = msg.report
		m.stage = stageConfirm
		return m, nil

	case mergedMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			m.stage = stageConfirm
			return m, nil
		}
		m.err = nil
		m.result, m.output, m.reportPath = msg.result, msg.output, msg.reportPath
		m.stage = stageDone
		m.logger.Info("interactive merge completed", slog.Int("rows", msg.result.Rows), slog.String("output", msg.output))
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if s := msg.String(); s == "ctrl+c" || s == "q" {
		return m, tea.Quit
	}
	if m.busy {
		return m, nil
	}

	switch m.stage {
	case stageSelectKey:
		switch msg.String() {
		case "enter":
			c := m.candidates[m.table.Cursor()]
			m.key1, m.key2 = c.ColumnA, c.ColumnB
			return m.startValidate()
		case "m":
			m.pickColumn(stagePickColumn1)
			return m, nil
		}

	case stagePickColumn1, stagePickColumn2:
		switch msg.String() {
		case "enter":
			row := m.table.SelectedRow()
			if row == nil {
				return m, nil
			}
			if m.stage == stagePickColumn1 {
				m.key1 = row[0]
				m.pickColumn(stagePickColumn2)
				return m, nil
			}
			m.key2 = row[0]
			return m.startValidate()
		case "esc":
			return m.back(), nil
		}

	case stageConfirm:
		switch msg.String() {
		case "left", "shift+tab", "h":
			m.join = cycleJoin(m.join, -1)
		case "right", "tab", "l":
			m.join = cycleJoin(m.join, 1)
		case "enter":
			m.stage, m.busy, m.err = stageMerging, true, nil
			return m, tea.Batch(m.spinner.Tick, m.mergeCmd())
		case "esc":
			return m.back(), nil
		}
		return m, nil

	case stageDone, stageFailed:
		if msg.String() == "enter" || msg.String() == "esc" {
			return m, tea.Quit
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) startValidate() (tea.Model, tea.Cmd) {
	m.busy, m.err = true, nil
	return m, tea.Batch(m.spinner.Tick, m.validateCmd())
}

// back returns to key selection, or to manual column picking when nothing
// was detected.
func (m Model) back() Model {
	m.err = nil
	if len(m.candidates) > 0 {
		m.stage = stageSelectKey
		m.table = candidateTable(m.candidates)
		return m
	}
	m.pickColumn(stagePickColumn1)
	return m
}

func (m *Model) pickColumn(s stage) {
	slot := engine.First
	if s == stagePickColumn2 {
		slot = engine.Second
	}
	m.stage = s
	m.table = columnTable(m.eng.Dataset(slot).Columns)
}

func cycleJoin(j merge.JoinType, step int) merge.JoinType {
	types := merge.JoinTypes()
	for i, t := range types {
		if t == j {
			return types[(i+step+len(types))%len(types)]
		}
	}
	return types[0]
}
