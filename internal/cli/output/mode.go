// Package output renders command results for terminals, scripts and agents.
package output

import "strings"

// OutputMode selects how a Renderer formats its output.
type OutputMode string

// Output modes.
const (
	// ModeAuto picks text on a terminal and markdown otherwise.
	ModeAuto     OutputMode = "auto"
	ModeText     OutputMode = "text"
	ModeMarkdown OutputMode = "markdown"
	ModeJSON     OutputMode = "json"
	ModeYAML     OutputMode = "yaml"
)

// Modes lists every output mode in flag-completion order.
func Modes() []OutputMode {
	return []OutputMode{ModeAuto, ModeText, ModeMarkdown, ModeJSON, ModeYAML}
}

// Mode converts a config or flag value to an OutputMode. Empty and unknown
// values fall back to ModeAuto; "md" is accepted for markdown.
func Mode(s string) OutputMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return ModeText
	case "markdown", "md":
		return ModeMarkdown
	case "json":
		return ModeJSON
	case "yaml", "yml":
		return ModeYAML
	default:
		return ModeAuto
	}
}

// Structured reports whether the mode emits machine-readable documents.
func (m OutputMode) Structured() bool {
	return m == ModeJSON || m == ModeYAML
}
