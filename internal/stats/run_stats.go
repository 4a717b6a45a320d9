// Package stats tracks run-duration distributions per simulation code.
//
// Durations are kept in a t-digest per code so memory stays bounded no
// matter how many runs a long-lived server sees.
package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/influxdata/tdigest"
)

// digestCompression gives ~100 centroids per digest (~10KB).
const digestCompression = 100

// Outcome classifies how a run ended.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
	OutcomeTerminated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// codeStats is the per-code accumulator. Guarded by RunStats.mu.
type codeStats struct {
	digest     *tdigest.TDigest
	count      int64
	succeeded  int64
	failed     int64
	terminated int64
	max        time.Duration
	last       time.Duration
	lastExit   int
}

// RunStats aggregates completed runs per code id. Safe for concurrent use.
type RunStats struct {
	mu    sync.Mutex
	codes map[string]*codeStats
}

// NewRunStats creates an empty aggregator.
func NewRunStats() *RunStats {
	return &RunStats{codes: make(map[string]*codeStats)}
}

// Record adds one completed run.
func (s *RunStats) Record(codeID string, d time.Duration, outcome Outcome, exitCode int) {
	if s == nil {
		return
	}
	if d < 0 {
		d = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.codes[codeID]
	if !ok {
		cs = &codeStats{digest: tdigest.NewWithCompression(digestCompression)}
		s.codes[codeID] = cs
	}
	cs.digest.Add(float64(d), 1)
	cs.count++
	switch outcome {
	case OutcomeSuccess:
		cs.succeeded++
	case OutcomeFailure:
		cs.failed++
	case OutcomeTerminated:
		cs.terminated++
	}
	if d > cs.max {
		cs.max = d
	}
	cs.last = d
	cs.lastExit = exitCode
}

// Summary is a point-in-time view of one code's runs.
type Summary struct {
	CodeID       string
	Runs         int64
	Succeeded    int64
	Failed       int64
	Terminated   int64
	P50          time.Duration
	P95          time.Duration
	Max          time.Duration
	Last         time.Duration
	LastExitCode int
}

// Summary returns the summary for codeID; ok is false when no run was recorded.
func (s *RunStats) Summary(codeID string) (Summary, bool) {
	if s == nil {
		return Summary{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.codes[codeID]
	if !ok {
		return Summary{}, false
	}
	return cs.summary(codeID), true
}

// Summaries returns every recorded code, sorted by id.
func (s *RunStats) Summaries() []Summary {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Summary, 0, len(s.codes))
	for id, cs := range s.codes {
		out = append(out, cs.summary(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CodeID < out[j].CodeID })
	return out
}

func (cs *codeStats) summary(id string) Summary {
	return Summary{
		CodeID:       id,
		Runs:         cs.count,
		Succeeded:    cs.succeeded,
		Failed:       cs.failed,
		Terminated:   cs.terminated,
		P50:          time.Duration(cs.digest.Quantile(0.50)),
		P95:          time.Duration(cs.digest.Quantile(0.95)),
		Max:          cs.max,
		Last:         cs.last,
		LastExitCode: cs.lastExit,
	}
}
