package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/randomizedcoder/simrun/internal/config"
	"github.com/randomizedcoder/simrun/internal/controller"
	"github.com/randomizedcoder/simrun/internal/dialect"
	"github.com/randomizedcoder/simrun/internal/docs"
	"github.com/randomizedcoder/simrun/internal/logging"
	"github.com/randomizedcoder/simrun/internal/metrics"
	"github.com/randomizedcoder/simrun/internal/notify"
	"github.com/randomizedcoder/simrun/internal/stats"
	"github.com/randomizedcoder/simrun/internal/workspace"
)

// prepare resolves and validates cfg before any command runs.
func prepare() error {
	ids := dialect.Default().IDs()
	if err := config.Resolve(cfg, ids, os.LookupEnv); err != nil {
		return err
	}
	return config.Validate(cfg, ids)
}

// app is the state shared by the long-running commands.
type app struct {
	logger    *slog.Logger
	registry  *dialect.Registry
	docs      map[string]*docs.Table
	stats     *stats.RunStats
	collector *metrics.Collector
	gatherer  prometheus.Gatherer
	metrics   *metrics.Server
	started   time.Time
}

// newApp loads the resource tables. quiet discards logs, which the
// terminal dashboard needs so log lines do not tear its rendering.
func newApp(quiet bool) *app {
	var logger *slog.Logger
	if quiet {
		logger = logging.NewLoggerWithWriter(io.Discard, "json", "info")
	} else {
		logger = logging.NewLogger(cfg.LogFormat, cfg.LogLevel, cfg.Verbose)
	}
	logging.SetDefault(logger)

	base := dialect.Default()
	registry := base.WithKeywords(dialect.LoadKeywords(cfg.ResourceDir, base, logger))

	a := &app{
		logger:   logger,
		registry: registry,
		docs:     docs.LoadAll(cfg.ResourceDir, registry, logger),
		stats:    stats.NewRunStats(),
		started:  time.Now(),
	}
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		a.collector = metrics.NewCollectorWithRegistry(reg)
		a.gatherer = reg
	}
	return a
}

// newController builds a controller reporting to n.
func (a *app) newController(n notify.Notifier) *controller.Controller {
	return controller.New(controller.Config{
		Registry:         a.registry,
		Workspace:        workspace.NewStore(),
		Executables:      cfg.Executable,
		Notifier:         n,
		Logger:           a.logger,
		Metrics:          a.collector,
		Stats:            a.stats,
		LegacyExitReport: cfg.LegacyExitReport,
	})
}

// startMetrics serves /metrics and /status for ctrl when enabled.
func (a *app) startMetrics(ctrl *controller.Controller) error {
	if a.collector == nil {
		return nil
	}
	a.metrics = metrics.NewServer(cfg.MetricsAddr, a.gatherer, func() any {
		return map[string]any{
			"version":   version,
			"uptime_s":  time.Since(a.started).Seconds(),
			"processes": ctrl.Handles(),
			"runs":      a.stats.Summaries(),
		}
	}, a.logger)
	return a.metrics.Start()
}

// close stops the metrics server.
func (a *app) close() {
	if a.metrics == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.metrics.Shutdown(ctx); err != nil {
		a.logger.Warn("metrics_shutdown_failed", "error", err)
	}
}

// names maps code id to display name for summaries.
func (a *app) names() map[string]string {
	m := make(map[string]string)
	for _, d := range a.registry.All() {
		m[d.ID] = d.DisplayName
	}
	return m
}
