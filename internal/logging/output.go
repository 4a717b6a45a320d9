package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

const (
	// MaxLineLength is the maximum length of a recorded output line.
	MaxLineLength = 4096

	// MaxRecentLines is the number of lines kept per stream.
	MaxRecentLines = 100
)

// OutputRecorder keeps the tail of one output stream of a simulation run
// and logs every complete line. Chunks are split on newlines; a trailing
// partial line is held until the next chunk or Flush.
type OutputRecorder struct {
	codeID string
	stream string
	logger *slog.Logger

	mu      sync.Mutex
	partial strings.Builder
	lines   []string
	next    int
	count   int
}

// NewOutputRecorder creates a recorder for the named stream ("stdout" or "stderr").
func NewOutputRecorder(codeID, stream string, logger *slog.Logger) *OutputRecorder {
	return &OutputRecorder{
		codeID: codeID,
		stream: stream,
		logger: logger,
		lines:  make([]string, MaxRecentLines),
	}
}

// Write records a chunk. It never fails so it can sit behind io.Writer.
func (r *OutputRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	var complete []string
	for _, b := range p {
		if b == '\n' {
			complete = append(complete, r.partial.String())
			r.partial.Reset()
			continue
		}
		if r.partial.Len() < MaxLineLength {
			r.partial.WriteByte(b)
		}
	}
	for _, line := range complete {
		r.store(line)
	}
	r.mu.Unlock()

	for _, line := range complete {
		r.logLine(line)
	}
	return len(p), nil
}

// Flush records any pending partial line.
func (r *OutputRecorder) Flush() {
	r.mu.Lock()
	if r.partial.Len() == 0 {
		r.mu.Unlock()
		return
	}
	line := r.partial.String()
	r.partial.Reset()
	r.store(line)
	r.mu.Unlock()

	r.logLine(line)
}

// store must be called with mu held.
func (r *OutputRecorder) store(line string) {
	line = strings.TrimRight(line, "\r")
	r.lines[r.next] = line
	r.next = (r.next + 1) % MaxRecentLines
	if r.count < MaxRecentLines {
		r.count++
	}
}

func (r *OutputRecorder) logLine(line string) {
	if r.logger == nil {
		return
	}
	r.logger.Log(context.Background(), classifyLine(line), "simulation_output",
		"code", r.codeID,
		"stream", r.stream,
		"line", line,
	)
}

// classifyLine picks a log level from the content of an output line.
func classifyLine(line string) slog.Level {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "fatal"),
		strings.Contains(lower, "error"):
		return slog.LevelWarn
	case strings.Contains(lower, "warning"):
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// RecentLines returns up to n of the most recent lines, oldest first.
func (r *OutputRecorder) RecentLines(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n > r.count {
		n = r.count
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		idx := (r.next - n + i + MaxRecentLines) % MaxRecentLines
		out = append(out, r.lines[idx])
	}
	return out
}

// LastLine returns the most recent non-empty line, or "".
func (r *OutputRecorder) LastLine() string {
	lines := r.RecentLines(MaxRecentLines)
	for i := len(lines) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(lines[i]); s != "" {
			return s
		}
	}
	return ""
}
