package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/leapstack-labs/leapmerge/internal/detect"
	"github.com/leapstack-labs/leapmerge/internal/merge"
)

const tableHeight = 8

type styles struct {
	title    lipgloss.Style
	label    lipgloss.Style
	muted    lipgloss.Style
	success  lipgloss.Style
	warning  lipgloss.Style
	errText  lipgloss.Style
	selected lipgloss.Style
	option   lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).MarginBottom(1),
		label:    lipgloss.NewStyle().Bold(true),
		muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		success:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		warning:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		errText:  lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		selected: lipgloss.NewStyle().Bold(true).Reverse(true).Padding(0, 1),
		option:   lipgloss.NewStyle().Padding(0, 1),
	}
}

func newTable(columns []table.Column, rows []table.Row) table.Model {
	height := min(len(rows)+1, tableHeight)
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	s.Selected = s.Selected.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("12"))
	t.SetStyles(s)
	return t
}

func candidateTable(candidates []detect.Candidate) table.Model {
	w1, w2 := len("File 1"), len("File 2")
	rows := make([]table.Row, len(candidates))
	for i, c := range candidates {
		w1, w2 = max(w1, len(c.ColumnA)), max(w2, len(c.ColumnB))
		rows[i] = table.Row{
			c.ColumnA,
			c.ColumnB,
			fmt.Sprintf("%.1f%%", c.Score*100),
			fmt.Sprintf("%d", c.MatchCount),
			c.Category,
		}
	}
	return newTable([]table.Column{
		{Title: "File 1", Width: w1},
		{Title: "File 2", Width: w2},
		{Title: "Score", Width: 7},
		{Title: "Matches", Width: 7},
		{Title: "Category", Width: 10},
	}, rows)
}

func columnTable(columns []string) table.Model {
	w := len("Column")
	rows := make([]table.Row, len(columns))
	for i, c := range columns {
		w = max(w, len(c))
		rows[i] = table.Row{c}
	}
	return newTable([]table.Column{{Title: "Column", Width: w}}, rows)
}

// View renders the current stage.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.title.Render("LeapMerge"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", m.styles.label.Render("File 1:"), m.opts.First)
	fmt.Fprintf(&b, "%s %s\n\n", m.styles.label.Render("File 2:"), m.opts.Second)

	switch m.stage {
	case stageLoading:
		fmt.Fprintf(&b, "%s Loading files and detecting keys...\n", m.spinner.View())

	case stageSelectKey:
		b.WriteString("Select the key pair to merge on:\n\n")
		b.WriteString(m.table.View())
		b.WriteString("\n")
		m.writeBusy(&b, "Validating")
		b.WriteString(m.help("↑/↓ move • enter select • m pick manually • q quit"))

	case stagePickColumn1, stagePickColumn2:
		if m.notice != "" {
			b.WriteString(m.styles.warning.Render(m.notice))
			b.WriteString("\n\n")
		}
		if m.stage == stagePickColumn1 {
			b.WriteString("Select the key column of file 1:\n\n")
		} else {
			fmt.Fprintf(&b, "File 1 key: %s\nSelect the key column of file 2:\n\n", m.key1)
		}
		b.WriteString(m.table.View())
		b.WriteString("\n")
		m.writeBusy(&b, "Validating")
		b.WriteString(m.help("↑/↓ move • enter select • esc back • q quit"))

	case stageConfirm, stageMerging:
		m.writeReport(&b)
		b.WriteString("\nJoin type: ")
		b.WriteString(m.joinOptions())
		fmt.Fprintf(&b, "\n%s\n", m.styles.muted.Render(m.join.Description()))
		if m.opts.Out != "" {
			fmt.Fprintf(&b, "Output: %s\n", m.opts.Out)
		}
		b.WriteString("\n")
		m.writeBusy(&b, "Merging")
		b.WriteString(m.help("←/→ join type • enter merge • esc change keys • q quit"))

	case stageDone:
		m.writeDone(&b)
		b.WriteString(m.help("enter quit"))

	case stageFailed:
		fmt.Fprintf(&b, "%s %v\n\n", m.styles.errText.Render("Error:"), m.err)
		b.WriteString(m.help("enter quit"))
	}

	if m.err != nil && m.stage != stageFailed {
		fmt.Fprintf(&b, "\n%s %v\n", m.styles.errText.Render("Error:"), m.err)
	}
	return b.String()
}

func (m Model) writeBusy(b *strings.Builder, what string) {
	if m.busy {
		fmt.Fprintf(b, "%s %s...\n", m.spinner.View(), what)
	}
}

func (m Model) writeReport(b *strings.Builder) {
	r := m.report
	fmt.Fprintf(b, "%s %s ↔ %s\n\n", m.styles.label.Render("Key:"), m.key1, m.key2)
	if r == nil {
		return
	}
	fmt.Fprintf(b, "File 1: %d unique of %d (%.1f%%), %.1f%% matched\n",
		r.File1Unique, r.File1Total, r.File1Uniqueness*100, r.MatchRatioFile1*100)
	fmt.Fprintf(b, "File 2: %d unique of %d (%.1f%%), %.1f%% matched\n",
		r.File2Unique, r.File2Total, r.File2Uniqueness*100, r.MatchRatioFile2*100)
	fmt.Fprintf(b, "Common values: %d\n", r.CommonValues)
	for _, w := range r.Warnings {
		fmt.Fprintf(b, "%s\n", m.styles.warning.Render("! "+w))
	}
}

func (m Model) joinOptions() string {
	parts := make([]string, 0, len(merge.JoinTypes()))
	for _, j := range merge.JoinTypes() {
		if j == m.join {
			parts = append(parts, m.styles.selected.Render(string(j)))
		} else {
			parts = append(parts, m.styles.option.Render(string(j)))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) writeDone(b *strings.Builder) {
	r := m.result
	b.WriteString(m.styles.success.Render("✓ Merge complete"))
	b.WriteString("\n\n")
	fmt.Fprintf(b, "%s %s join on %s\n", m.styles.label.Render("Join:"), r.Join, r.Key)
	fmt.Fprintf(b, "%s %d (%d matched; %d left, %d right)\n",
		m.styles.label.Render("Rows:"), r.Rows, r.Matched, r.LeftRows, r.RightRows)
	fmt.Fprintf(b, "%s %d\n", m.styles.label.Render("Columns:"), r.Columns)
	if m.output != "" {
		fmt.Fprintf(b, "%s %s\n", m.styles.label.Render("Saved to:"), m.output)
	}
	if m.reportPath != "" {
		fmt.Fprintf(b, "%s %s\n", m.styles.label.Render("Report:"), m.reportPath)
	}
	b.WriteString("\n")
}

func (m Model) help(keys string) string {
	return m.styles.muted.Render(keys) + "\n"
}
