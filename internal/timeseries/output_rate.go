// Package timeseries tracks how fast a running code writes output.
//
// Simulation codes print progress as they iterate, so a rate that drops to
// zero while the process is alive usually means it is stuck or in a long
// solve. The tracker keeps cumulative byte counts sampled on the caller's
// tick and answers rolling averages from a fixed ring of samples.
package timeseries

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	// ringSize holds two minutes of samples at the dashboard's 500ms tick.
	ringSize = 240

	WindowRecent = 5 * time.Second
	WindowMinute = 60 * time.Second
)

// Clock interface for testing with deterministic time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type sample struct {
	at    time.Time
	bytes int64
}

// OutputRate accumulates output bytes and computes rolling rates.
//
//	rate := NewOutputRate()
//	rate.Add(len(chunk))   // per output chunk, lock-free
//	rate.Sample()          // per UI tick
//	r := rate.Rate()
type OutputRate struct {
	total atomic.Int64

	mu      sync.RWMutex
	samples []sample
	next    int // overwrite position once the ring is full
	start   time.Time
	clock   Clock
}

// Rates is a snapshot of an OutputRate, in bytes per second.
type Rates struct {
	Total   int64
	Recent  float64 // over WindowRecent
	Minute  float64 // over WindowMinute
	Overall float64
	// Idle is how long the total has not changed. Zero when bytes arrived
	// after the last sample.
	Idle time.Duration
}

// NewOutputRate creates a tracker on the wall clock.
func NewOutputRate() *OutputRate {
	return NewOutputRateWithClock(realClock{})
}

// NewOutputRateWithClock creates a tracker with a custom clock for testing.
func NewOutputRateWithClock(clock Clock) *OutputRate {
	r := &OutputRate{clock: clock}
	r.Reset()
	return r
}

// Add counts n output bytes. Non-positive n is ignored.
func (r *OutputRate) Add(n int) {
	if n > 0 {
		r.total.Add(int64(n))
	}
}

// Sample records the current total.
func (r *OutputRate) Sample() {
	s := sample{at: r.clock.Now(), bytes: r.total.Load()}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.samples) < ringSize {
		r.samples = append(r.samples, s)
		return
	}
	r.samples[r.next] = s
	r.next = (r.next + 1) % ringSize
}

// Rate computes the current rates.
func (r *OutputRate) Rate() Rates {
	now := r.clock.Now()
	total := r.total.Load()

	r.mu.RLock()
	defer r.mu.RUnlock()

	rates := Rates{Total: total}
	if elapsed := now.Sub(r.start).Seconds(); elapsed > 0 {
		rates.Overall = float64(total) / elapsed
	}
	rates.Recent = r.over(now, total, WindowRecent)
	rates.Minute = r.over(now, total, WindowMinute)
	rates.Idle = r.idle(now, total)
	return rates
}

// over returns bytes/s since the newest sample at least window old, or
// since the oldest sample when history is shorter. Caller holds mu.
func (r *OutputRate) over(now time.Time, total int64, window time.Duration) float64 {
	cutoff := now.Add(-window)

	var base *sample
	for i := range r.samples {
		s := &r.samples[i]
		if s.at.After(cutoff) {
			continue
		}
		if base == nil || s.at.After(base.at) {
			base = s
		}
	}
	if base == nil {
		base = r.oldest()
	}
	if base == nil {
		return 0
	}

	secs := now.Sub(base.at).Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(total-base.bytes) / secs
}

// idle walks back from the newest sample to the first one with a smaller
// total. Caller holds mu.
func (r *OutputRate) idle(now time.Time, total int64) time.Duration {
	n := len(r.samples)
	if n == 0 {
		return 0
	}
	newest := r.at(n - 1)
	if newest.bytes != total {
		return 0
	}
	since := newest.at
	for i := n - 2; i >= 0; i-- {
		s := r.at(i)
		if s.bytes != newest.bytes {
			break
		}
		since = s.at
	}
	if newest.bytes == 0 {
		since = r.start
	}
	return now.Sub(since)
}

// at returns the i-th sample in age order, oldest first. Caller holds mu.
func (r *OutputRate) at(i int) sample {
	if len(r.samples) < ringSize {
		return r.samples[i]
	}
	return r.samples[(r.next+i)%ringSize]
}

func (r *OutputRate) oldest() *sample {
	if len(r.samples) == 0 {
		return nil
	}
	if len(r.samples) < ringSize {
		return &r.samples[0]
	}
	return &r.samples[r.next]
}

// Reset clears all data, e.g. when a new run starts.
func (r *OutputRate) Reset() {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.total.Store(0)
	r.samples = append(r.samples[:0], sample{at: now})
	r.next = 0
	r.start = now
}

// SampleCount returns the number of retained samples.
func (r *OutputRate) SampleCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.samples)
}
