package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/randomizedcoder/simrun/internal/mcpserver"
	"github.com/randomizedcoder/simrun/internal/notify"
)

// recentMessages bounds the notifications kept for simulation_status.
const recentMessages = 200

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run as MCP server (communicates via stdio)",
	Long: `Run as an MCP server that communicates via stdio.
Exposes tools: detect_dialect, lookup_keyword, run_simulation,
terminate_simulation, simulation_status.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP(cmd.Context())
	},
}

func runMCP(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(false)
	defer a.close()

	ring := notify.NewRing(recentMessages)
	ctrl := a.newController(ring)
	if err := a.startMetrics(ctrl); err != nil {
		return err
	}

	a.logger.Info("starting", "mode", "mcp", "version", version, "configured", cfg.Configured())
	return mcpserver.Run(ctx, &mcpserver.Config{
		Controller: ctrl,
		Docs:       a.docs,
		Stats:      a.stats,
		Recent:     ring,
	}, version)
}
