// Package metrics provides Prometheus metrics for simrun.
//
// All metrics are labelled by dialect id ("code"), which is a fixed set, so
// cardinality stays tiny.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Rejection reasons for simrun_runs_rejected_total.
const (
	ReasonAlreadyRunning = "already_running"
	ReasonNotConfigured  = "not_configured"
	ReasonNoDocument     = "no_document"
	ReasonSaveFailed     = "save_failed"
	ReasonSpawnFailed    = "spawn_failed"
)

// Outcomes for simrun_runs_finished_total.
const (
	OutcomeSuccess    = "success"
	OutcomeFailure    = "failure"
	OutcomeTerminated = "terminated"
)

// Metric names shared with the scraper.
const (
	nameActive   = "simrun_active_processes"
	nameStarted  = "simrun_runs_started_total"
	nameFinished = "simrun_runs_finished_total"
)

// Collector owns the run metrics. A nil *Collector is valid and records
// nothing.
type Collector struct {
	runsStarted  *prometheus.CounterVec
	runsRejected *prometheus.CounterVec
	runsFinished *prometheus.CounterVec
	active       *prometheus.GaugeVec
	outputChunks *prometheus.CounterVec
	outputBytes  *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
}

// NewCollector creates a collector registered with the default registry.
func NewCollector() *Collector {
	return NewCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector with a custom registry.
// Useful for testing.
func NewCollectorWithRegistry(registry prometheus.Registerer) *Collector {
	c := &Collector{
		runsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: nameStarted,
				Help: "Simulation processes spawned",
			},
			[]string{"code"},
		),
		runsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simrun_runs_rejected_total",
				Help: "Run requests that did not spawn a process",
			},
			[]string{"code", "reason"},
		),
		runsFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: nameFinished,
				Help: "Simulation processes that exited",
			},
			[]string{"code", "outcome"},
		),
		active: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: nameActive,
				Help: "Simulation processes currently running (0 or 1 per code)",
			},
			[]string{"code"},
		),
		outputChunks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simrun_output_chunks_total",
				Help: "Output chunks forwarded as notifications",
			},
			[]string{"code", "stream"},
		),
		outputBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simrun_output_bytes_total",
				Help: "Output bytes read from simulation processes",
			},
			[]string{"code", "stream"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "simrun_run_duration_seconds",
				Help:    "Wall time of simulation runs",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600, 14400},
			},
			[]string{"code"},
		),
	}

	registry.MustRegister(
		c.runsStarted,
		c.runsRejected,
		c.runsFinished,
		c.active,
		c.outputChunks,
		c.outputBytes,
		c.runDuration,
	)
	return c
}

// RunStarted records a spawned process.
func (c *Collector) RunStarted(code string) {
	if c == nil {
		return
	}
	c.runsStarted.WithLabelValues(code).Inc()
	c.active.WithLabelValues(code).Set(1)
}

// RunRejected records a run request that spawned nothing.
func (c *Collector) RunRejected(code, reason string) {
	if c == nil {
		return
	}
	c.runsRejected.WithLabelValues(code, reason).Inc()
}

// RunFinished records a process exit.
func (c *Collector) RunFinished(code, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.runsFinished.WithLabelValues(code, outcome).Inc()
	c.runDuration.WithLabelValues(code).Observe(d.Seconds())
}

// SetActive sets whether a process for code is tracked.
func (c *Collector) SetActive(code string, running bool) {
	if c == nil {
		return
	}
	v := 0.0
	if running {
		v = 1
	}
	c.active.WithLabelValues(code).Set(v)
}

// OutputChunk records one forwarded output chunk of n bytes.
func (c *Collector) OutputChunk(code, stream string, n int) {
	if c == nil {
		return
	}
	c.outputChunks.WithLabelValues(code, stream).Inc()
	c.outputBytes.WithLabelValues(code, stream).Add(float64(n))
}
