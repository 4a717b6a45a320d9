package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/randomizedcoder/simrun/internal/metrics"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the runs of another simrun started with --metrics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		url := statusAddr
		if !strings.Contains(url, "://") {
			url = "http://" + url
		}
		snap, err := metrics.NewScraper().Scrape(ctx, strings.TrimSuffix(url, "/")+"/metrics")
		if err != nil {
			return fmt.Errorf("scrape %s: %w", statusAddr, err)
		}

		out := cmd.OutOrStdout()
		running := snap.Running()
		if len(running) == 0 {
			fmt.Fprintln(out, "Running:  (none)")
		} else {
			fmt.Fprintf(out, "Running:  %s\n", strings.Join(running, ", "))
		}

		codes := make([]string, 0, len(snap.Started))
		for code := range snap.Started {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			f := snap.Finished[code]
			fmt.Fprintf(out, "%-9s started %.0f  success %.0f  failure %.0f  terminated %.0f\n",
				code, snap.Started[code],
				f[metrics.OutcomeSuccess], f[metrics.OutcomeFailure], f[metrics.OutcomeTerminated])
		}
		return nil
	},
}
