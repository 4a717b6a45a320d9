package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/randomizedcoder/simrun/internal/lsp"
)

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Run as a language server (communicates via stdio)",
	Long: `Run as a Language Server Protocol server over stdio.
Provides completion and hover from the code's documentation table, a
simrun/status notification for the run/terminate control and the
workspace commands <code>.run and <code>.terminate.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLSP(cmd.Context())
	},
}

// stdio joins stdin and stdout into one stream for the JSON-RPC codec.
type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdio) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}

func runLSP(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(false)
	defer a.close()

	srv := lsp.NewServer(lsp.Config{
		Docs:    a.docs,
		Logger:  a.logger,
		Version: version,
	})
	ctrl := a.newController(srv)
	srv.Bind(ctrl)
	defer ctrl.Close()

	if err := a.startMetrics(ctrl); err != nil {
		return err
	}

	a.logger.Info("starting", "mode", "lsp", "version", version, "configured", cfg.Configured())
	return srv.Serve(ctx, stdio{})
}
