// Package config provides configuration management for the LeapMerge CLI.
package config

import (
	"log/slog"

	"github.com/leapstack-labs/leapmerge/internal/detect"
	"github.com/leapstack-labs/leapmerge/internal/engine"
	"github.com/leapstack-labs/leapmerge/internal/merge"
	"github.com/leapstack-labs/leapmerge/internal/normalize"
	"github.com/leapstack-labs/leapmerge/internal/validate"
)

// Config holds all CLI configuration options.
type Config struct {
	Detection    DetectionConfig  `koanf:"detection"`
	Validation   ValidationConfig `koanf:"validation"`
	Merge        MergeConfig      `koanf:"merge"`
	Normalize    NormalizeConfig  `koanf:"normalize"`
	PreviewRows  int              `koanf:"preview_rows"`
	OutputFormat string           `koanf:"output"`
	Verbose      bool             `koanf:"verbose"`
	LogLevel     string           `koanf:"log_level"`
	LogFile      string           `koanf:"log_file"`
	Serve        ServeConfig      `koanf:"serve"`
}

// DetectionConfig holds key detection thresholds.
type DetectionConfig struct {
	MinMatchRatio float64 `koanf:"min_match_ratio"`
	MinUniqueness float64 `koanf:"min_uniqueness"`
}

// ValidationConfig holds the validation warning thresholds.
type ValidationConfig struct {
	MinUniqueness float64 `koanf:"min_uniqueness"`
	MinOverlap    float64 `koanf:"min_overlap"`
}

// MergeConfig holds merge defaults.
type MergeConfig struct {
	JoinType merge.JoinType `koanf:"join_type"`
}

// NormalizeConfig selects the key normalization rules.
type NormalizeConfig struct {
	SuffixRule normalize.SuffixRule `koanf:"suffix_rule"`
}

// ServeConfig holds HTTP server settings.
type ServeConfig struct {
	Addr          string `koanf:"addr"`
	SessionSecret string `koanf:"session_secret"`
}

// Default configuration values.
const (
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel    = "warn"
	DefaultPreviewRows = 5
	DefaultServeAddr   = "127.0.0.1:8765"
)

// Defaults returns the default configuration as a flat key map.
func Defaults() map[string]any {
	return map[string]any{
		"detection.min_match_ratio": detect.DefaultMinMatchRatio,
		"detection.min_uniqueness":  detect.DefaultMinUniqueness,
		"validation.min_uniqueness": validate.DefaultOptions().MinUniqueness,
		"validation.min_overlap":    validate.DefaultOptions().MinOverlap,
		"merge.join_type":           string(merge.JoinLeft),
		"normalize.suffix_rule":     string(normalize.SuffixDecimal),
		"preview_rows":              DefaultPreviewRows,
		"output":                    DefaultOutput,
		"verbose":                   false,
		"log_level":                 DefaultLogLevel,
		"log_file":                  "",
		"serve.addr":                DefaultServeAddr,
		"serve.session_secret":      "",
	}
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Detection:    DetectionConfig{MinMatchRatio: detect.DefaultMinMatchRatio, MinUniqueness: detect.DefaultMinUniqueness},
		Validation:   ValidationConfig(validate.DefaultOptions()),
		Merge:        MergeConfig{JoinType: merge.JoinLeft},
		Normalize:    NormalizeConfig{SuffixRule: normalize.SuffixDecimal},
		PreviewRows:  DefaultPreviewRows,
		OutputFormat: DefaultOutput,
		LogLevel:     DefaultLogLevel,
		Serve:        ServeConfig{Addr: DefaultServeAddr},
	}
}

// EngineConfig builds the engine configuration.
func (c *Config) EngineConfig(logger *slog.Logger) engine.Config {
	return engine.Config{
		Normalizer: normalize.Normalizer{Rule: c.Normalize.SuffixRule},
		Detection: detect.Options{
			MinMatchRatio: c.Detection.MinMatchRatio,
			MinUniqueness: c.Detection.MinUniqueness,
		},
		Validation: validate.Options{
			MinUniqueness: c.Validation.MinUniqueness,
			MinOverlap:    c.Validation.MinOverlap,
		},
		Logger: logger,
	}
}
