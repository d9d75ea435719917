package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/leapmerge/internal/server"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the merge API over HTTP",
		Long: `Start a local HTTP server exposing the merge engine as a JSON API.

Each browser session gets its own engine, identified by a signed cookie.
Idle sessions are dropped after an hour. Set serve.session_secret (or
LEAPMERGE_SERVE__SESSION_SECRET) to keep sessions valid across restarts.

Endpoints (under /api):
  POST   /datasets/{1|2}  load a file into a slot
  GET    /preview         preview both datasets
  POST   /detect          rank key candidates
  POST   /validate        validate a key pair
  POST   /merge           merge the datasets
  GET    /result          show the merge result
  POST   /result/save     save the merge result
  DELETE /session         reset the session
  GET    /events          stream session state (SSE)`,
		Example: `  # Serve on the default address
  leapmerge serve

  # Serve on all interfaces
  leapmerge serve --addr 0.0.0.0:9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default: 127.0.0.1:8765)")

	return cmd
}

func runServe(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg

	srv := server.New(server.Config{
		Addr:          cfg.Serve.Addr,
		SessionSecret: cfg.Serve.SessionSecret,
		Engine:        cfg.EngineConfig(cmdCtx.Logger),
		Logger:        cmdCtx.Logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := cmdCtx.Renderer
	r.Success(fmt.Sprintf("Serving on http://%s/api", cfg.Serve.Addr))
	r.Muted("Press Ctrl+C to stop")

	return srv.Serve(ctx)
}
