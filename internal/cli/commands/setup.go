package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapmerge/internal/cli/config"
	"github.com/leapstack-labs/leapmerge/internal/cli/output"
	"github.com/leapstack-labs/leapmerge/internal/engine"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with a fresh engine and a
// renderer writing to the command's output streams.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   engine.New(cfg.EngineConfig(logger)),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// getConfig returns the configuration loaded by the root command, or the
// defaults when a command runs on its own.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

// loadFiles loads both input files, showing a spinner on terminals.
func (c *CommandContext) loadFiles(ctx context.Context, first, second string) error {
	r := c.Renderer

	var spinner *output.Spinner
	if r.EffectiveMode() == output.ModeText {
		spinner = r.NewSpinner("Loading files...")
		spinner.Start()
	}

	if err := c.Engine.LoadPair(ctx, first, second); err != nil {
		if spinner != nil {
			spinner.Fail("Failed to load files")
		}
		return err
	}

	if spinner != nil {
		spinner.Stop()
	}
	return nil
}

// requireKeys checks that --key1 and --key2 are either both set or both
// empty.
func requireKeys(key1, key2 string) error {
	if (key1 == "") != (key2 == "") {
		return fmt.Errorf("--key1 and --key2 must be given together")
	}
	return nil
}
