package stats

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestRunStats_Record(t *testing.T) {
	s := NewRunStats()
	s.Record("frapcon", 1*time.Second, OutcomeSuccess, 0)
	s.Record("frapcon", 3*time.Second, OutcomeFailure, 2)
	s.Record("frapcon", 2*time.Second, OutcomeTerminated, 137)

	sum, ok := s.Summary("frapcon")
	if !ok {
		t.Fatal("Summary(frapcon) not found")
	}
	if sum.Runs != 3 {
		t.Errorf("Runs = %d, want 3", sum.Runs)
	}
	if sum.Succeeded != 1 || sum.Failed != 1 || sum.Terminated != 1 {
		t.Errorf("outcomes = %d/%d/%d, want 1/1/1", sum.Succeeded, sum.Failed, sum.Terminated)
	}
	if sum.Max != 3*time.Second {
		t.Errorf("Max = %v, want 3s", sum.Max)
	}
	if sum.Last != 2*time.Second || sum.LastExitCode != 137 {
		t.Errorf("Last = %v/%d, want 2s/137", sum.Last, sum.LastExitCode)
	}
	if sum.P50 < time.Second || sum.P50 > 3*time.Second {
		t.Errorf("P50 = %v, want within [1s, 3s]", sum.P50)
	}
}

func TestRunStats_Missing(t *testing.T) {
	s := NewRunStats()
	if _, ok := s.Summary("serpent"); ok {
		t.Error("Summary(serpent) found on empty stats")
	}
	if got := s.Summaries(); len(got) != 0 {
		t.Errorf("Summaries() = %v, want empty", got)
	}
}

func TestRunStats_NilSafe(t *testing.T) {
	var s *RunStats
	s.Record("frapcon", time.Second, OutcomeSuccess, 0)
	if _, ok := s.Summary("frapcon"); ok {
		t.Error("nil stats returned a summary")
	}
	if s.Summaries() != nil {
		t.Error("nil stats returned summaries")
	}
}

func TestRunStats_SummariesSorted(t *testing.T) {
	s := NewRunStats()
	s.Record("serpent", time.Second, OutcomeSuccess, 0)
	s.Record("frapcon", time.Second, OutcomeSuccess, 0)
	s.Record("fraptran", time.Second, OutcomeSuccess, 0)

	got := s.Summaries()
	want := []string{"frapcon", "fraptran", "serpent"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].CodeID != id {
			t.Errorf("Summaries()[%d] = %q, want %q", i, got[i].CodeID, id)
		}
	}
}

func TestRunStats_Concurrent(t *testing.T) {
	s := NewRunStats()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Record("frapcon", time.Duration(i)*time.Millisecond, OutcomeSuccess, 0)
		}(i)
	}
	wg.Wait()

	sum, _ := s.Summary("frapcon")
	if sum.Runs != 50 {
		t.Errorf("Runs = %d, want 50", sum.Runs)
	}
	if sum.Max != 49*time.Millisecond {
		t.Errorf("Max = %v, want 49ms", sum.Max)
	}
}

func TestOutcome_String(t *testing.T) {
	tests := []struct {
		o    Outcome
		want string
	}{
		{OutcomeSuccess, "success"},
		{OutcomeFailure, "failure"},
		{OutcomeTerminated, "terminated"},
		{Outcome(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.o.String(); got != tt.want {
			t.Errorf("Outcome(%d).String() = %q, want %q", tt.o, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		want     string
	}{
		{"zero", 0, "00:00:00"},
		{"one second", time.Second, "00:00:01"},
		{"one hour", time.Hour, "01:00:00"},
		{"mixed", 2*time.Hour + 30*time.Minute + 45*time.Second, "02:30:45"},
		{"sub-second", 500 * time.Millisecond, "00:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.duration); got != tt.want {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.duration, got, tt.want)
			}
		})
	}
}

func TestFormatShort(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0 ms"},
		{250 * time.Millisecond, "250 ms"},
		{1500 * time.Millisecond, "1.5 s"},
		{90 * time.Second, "00:01:30"},
	}
	for _, tt := range tests {
		if got := FormatShort(tt.d); got != tt.want {
			t.Errorf("FormatShort(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestExitCodeLabel(t *testing.T) {
	tests := map[int]string{0: "(clean)", 1: "(error)", 137: "(SIGKILL)", 143: "(SIGTERM)", 2: ""}
	for code, want := range tests {
		if got := ExitCodeLabel(code); got != want {
			t.Errorf("ExitCodeLabel(%d) = %q, want %q", code, got, want)
		}
	}
}

func TestFormatExitSummary(t *testing.T) {
	s := NewRunStats()
	s.Record("frapcon", 2*time.Second, OutcomeSuccess, 0)

	out := FormatExitSummary(s.Summaries(), map[string]string{"frapcon": "FRAPCON"}, time.Minute)
	for _, want := range []string{"simrun Exit Summary", "00:01:00", "FRAPCON", "2.0 s"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}

	empty := FormatExitSummary(nil, nil, 0)
	if !strings.Contains(empty, "No simulation runs completed") {
		t.Errorf("empty summary = %q", empty)
	}
}
