package config

import (
	"fmt"
	"slices"
)

// OutputModes lists the accepted values of the output setting.
var OutputModes = []string{"auto", "text", "markdown", "json", "yaml"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	ratios := []struct {
		key string
		val float64
	}{
		{"detection.min_match_ratio", c.Detection.MinMatchRatio},
		{"detection.min_uniqueness", c.Detection.MinUniqueness},
		{"validation.min_uniqueness", c.Validation.MinUniqueness},
		{"validation.min_overlap", c.Validation.MinOverlap},
	}
	for _, r := range ratios {
		if r.val < 0 || r.val > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %v", r.key, r.val)
		}
	}

	if c.OutputFormat != "" && !slices.Contains(OutputModes, c.OutputFormat) {
		return fmt.Errorf("unknown output format %q\nHint: use one of %v", c.OutputFormat, OutputModes)
	}
	if c.PreviewRows < 0 {
		return fmt.Errorf("preview_rows must not be negative")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
