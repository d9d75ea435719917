package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapmerge/internal/merge"
	"github.com/leapstack-labs/leapmerge/internal/normalize"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory so no project config or
// .env file is picked up.
func inTempDir(t *testing.T) string {
	t.Helper()
	ResetConfig()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	inTempDir(t)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_YAMLFile(t *testing.T) {
	dir := inTempDir(t)
	writeConfig(t, dir, "leapmerge.yaml", `detection:
  min_match_ratio: 0.5
merge:
  join_type: INNER
normalize:
  suffix_rule: literal
preview_rows: 10
`)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Detection.MinMatchRatio)
	assert.Equal(t, 0.7, cfg.Detection.MinUniqueness)
	assert.Equal(t, merge.JoinInner, cfg.Merge.JoinType)
	assert.Equal(t, normalize.SuffixLiteral, cfg.Normalize.SuffixRule)
	assert.Equal(t, 10, cfg.PreviewRows)
	assert.Equal(t, "leapmerge.yaml", filepath.Base(GetConfigFileUsed()))
}

func TestLoadConfig_SearchesUpward(t *testing.T) {
	dir := inTempDir(t)
	writeConfig(t, dir, "leapmerge.yml", "preview_rows: 3\n")
	sub := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0750))
	t.Chdir(sub)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.PreviewRows)
}

func TestLoadConfig_TOMLFile(t *testing.T) {
	dir := inTempDir(t)
	path := writeConfig(t, dir, "custom.toml", `output = "json"

[validation]
min_overlap = 0.1

[serve]
addr = ":9000"
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, 0.1, cfg.Validation.MinOverlap)
	assert.Equal(t, ":9000", cfg.Serve.Addr)
}

func TestLoadConfig_EnvPrecedenceOverFile(t *testing.T) {
	dir := inTempDir(t)
	path := writeConfig(t, dir, "leapmerge.yaml", "detection:\n  min_match_ratio: 0.4\n")
	t.Setenv("LEAPMERGE_DETECTION__MIN_MATCH_RATIO", "0.6")
	t.Setenv("LEAPMERGE_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 0.6, cfg.Detection.MinMatchRatio, "env var should override config file")
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := inTempDir(t)
	writeConfig(t, dir, ".env", "LEAPMERGE_MERGE__JOIN_TYPE=outer\nUNRELATED=1\n")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, merge.JoinOuter, cfg.Merge.JoinType)

	t.Setenv("LEAPMERGE_MERGE__JOIN_TYPE", "right")
	cfg, err = LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, merge.JoinRight, cfg.Merge.JoinType, "process env should override .env")
}

func TestLoadConfig_FlagPrecedence(t *testing.T) {
	dir := inTempDir(t)
	path := writeConfig(t, dir, "leapmerge.yaml", "merge:\n  join_type: inner\n")
	t.Setenv("LEAPMERGE_MERGE__JOIN_TYPE", "outer")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("join", "", "join type")
	flags.Float64("min-match-ratio", 0, "ratio")
	flags.String("log-level", "", "log level")
	require.NoError(t, flags.Set("join", "right"))
	require.NoError(t, flags.Set("log-level", "error"))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)

	assert.Equal(t, merge.JoinRight, cfg.Merge.JoinType, "flag value should override config file and env var")
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, 0.3, cfg.Detection.MinMatchRatio, "unset flag should not override defaults")
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{"ratio out of range", "detection:\n  min_match_ratio: 1.5\n", "detection.min_match_ratio"},
		{"unknown output", "output: html\n", "unknown output format"},
		{"unknown join", "merge:\n  join_type: sideways\n", "unknown join type"},
		{"unknown suffix rule", "normalize:\n  suffix_rule: fancy\n", "unknown suffix rule"},
		{"bad log level", "log_level: loud\n", "invalid log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := inTempDir(t)
			path := writeConfig(t, dir, "leapmerge.yaml", tt.content)

			_, err := LoadConfig(path, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	inTempDir(t)
	_, err := LoadConfig("does-not-exist.yaml", nil)
	assert.Error(t, err)
}

func TestEngineConfig(t *testing.T) {
	cfg := Default()
	cfg.Normalize.SuffixRule = normalize.SuffixLiteral
	cfg.Detection.MinMatchRatio = 0.45

	ec := cfg.EngineConfig(nil)
	assert.Equal(t, normalize.SuffixLiteral, ec.Normalizer.Rule)
	assert.Equal(t, 0.45, ec.Detection.MinMatchRatio)
	assert.Equal(t, 0.7, ec.Validation.MinUniqueness)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelWarn},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("chatty")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.LogFile = filepath.Join(dir, "logs", "leapmerge.log")

	var stderr bytes.Buffer
	logger, cleanup, err := NewLogger(cfg, &stderr)
	require.NoError(t, err)

	logger.Info("hidden at warn level")
	logger.Warn("careful", slog.String("file", "a.csv"))
	cleanup()

	assert.NotContains(t, stderr.String(), "hidden")
	assert.Contains(t, stderr.String(), "careful")

	data, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"careful"`)
	assert.Contains(t, string(data), `"file":"a.csv"`)
}

func TestNewLogger_Verbose(t *testing.T) {
	cfg := Default()
	cfg.Verbose = true

	var stderr bytes.Buffer
	logger, cleanup, err := NewLogger(cfg, &stderr)
	require.NoError(t, err)
	defer cleanup()

	logger.Debug("details")
	assert.Contains(t, stderr.String(), "details")
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	logger := slog.New(slog.DiscardHandler)
	ctx := context.WithValue(context.Background(), LoggerKey(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}
