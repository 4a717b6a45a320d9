package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/randomizedcoder/simrun/internal/dialect"
	"github.com/randomizedcoder/simrun/internal/logging"
)

var detectCmd = &cobra.Command{
	Use:   "detect <file>...",
	Short: "Print the code each input file is written for",
	Long: `Detect the code of each file: by extension first, then by the
first keyword found in its contents. Prints "<file>\t<code>" per file,
with "-" when nothing matched.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.NewLogger(cfg.LogFormat, cfg.LogLevel, cfg.Verbose)
		base := dialect.Default()
		r := base.WithKeywords(dialect.LoadKeywords(cfg.ResourceDir, base, logger))

		out := cmd.OutOrStdout()
		for _, file := range args {
			text, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			id, ok := r.Detect(filepath.Base(file), string(text))
			if !ok {
				id = "-"
			}
			fmt.Fprintf(out, "%s\t%s\n", file, id)
		}
		return nil
	},
}
