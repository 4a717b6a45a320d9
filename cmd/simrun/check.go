package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randomizedcoder/simrun/internal/preflight"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and system limits",
	Long: `Run the preflight checks: resource limits, each code's executable,
documentation table and keyword table. Exits non-zero only when a
configured executable cannot be found.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(false)
		result := preflight.RunAll(preflight.Options{
			Registry:    a.registry,
			Executables: cfg.Executable,
			Docs:        a.docs,
		})
		preflight.PrintResults(cmd.OutOrStdout(), result)
		if !result.Passed {
			return fmt.Errorf("preflight checks failed")
		}
		return nil
	},
}
