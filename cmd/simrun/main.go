// Package main provides the simrun CLI entry point.
//
// simrun runs FRAPCON, FRAPTRAN and SERPENT on their input files. It
// detects which code an input file is written for, starts at most one
// process per code, streams its output and reports how it finished. The
// same controller is served to editors over LSP, to agents over MCP and to
// a terminal dashboard.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/randomizedcoder/simrun/internal/config"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/simrun
var version = "dev"

var cfg = config.DefaultConfig()

var rootCmd = &cobra.Command{
	Use:   "simrun",
	Short: "Run nuclear fuel and reactor physics codes on their input files",
	Long: `simrun detects whether an input file is for FRAPCON, FRAPTRAN or SERPENT,
runs the configured executable on it (one process per code at a time),
streams the output and reports how the run finished.

Executables are configured per code, lowest precedence first:
  --settings file   {"frapcon.executablePath": "/opt/frapcon/bin/frapcon"}
  environment       SIMRUN_FRAPCON_EXECUTABLE=/opt/frapcon/bin/frapcon
  flags             --exe frapcon=/opt/frapcon/bin/frapcon`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return prepare()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	// The version needs no configuration.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "simrun %s\n", version)
	},
}

func init() {
	config.BindPersistentFlags(rootCmd.PersistentFlags(), cfg)
	config.BindRunFlags(runCmd.Flags(), cfg)
	statusCmd.Flags().StringVar(&statusAddr, "addr", "127.0.0.1:17092", "metrics address of the simrun to query")

	rootCmd.AddCommand(lspCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
