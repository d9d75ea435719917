package writer

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leapstack-labs/leapmerge/internal/loader"
	"github.com/leapstack-labs/leapmerge/internal/merge"
	"github.com/leapstack-labs/leapmerge/internal/validate"
	"gopkg.in/yaml.v3"
)

// Report summarizes one merge run for the report file written next to the
// output.
type Report struct {
	GeneratedAt time.Time        `yaml:"generated_at"`
	Output      string           `yaml:"output"`
	Left        string           `yaml:"left"`
	Right       string           `yaml:"right"`
	Validation  *validate.Report `yaml:"validation,omitempty"`
	Merge       *merge.Result    `yaml:"merge"`
}

// ReportPath returns the report path for an output path: the output without
// its extension (and without any #table suffix) plus "_report.yaml".
func ReportPath(output string) string {
	file, _ := loader.SplitSource(output)
	if strings.Contains(file, "://") {
		return "merge_report.yaml"
	}
	return strings.TrimSuffix(file, filepath.Ext(file)) + "_report.yaml"
}

// SaveReport writes r as YAML next to r.Output and returns the report path.
func (w *Writer) SaveReport(r Report) (string, error) {
	if r.Merge == nil {
		return "", fmt.Errorf("report has no merge result")
	}
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = time.Now()
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	path := ReportPath(r.Output)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	w.logger.Debug("saved report", slog.String("path", path))
	return path, nil
}
