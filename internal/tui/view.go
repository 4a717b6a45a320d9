package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/docker/go-units"

	"github.com/randomizedcoder/simrun/internal/stats"
	"github.com/randomizedcoder/simrun/internal/status"
)

// =============================================================================
// Main View Rendering
// =============================================================================

// renderDashboard renders the single dashboard page.
func (m Model) renderDashboard() string {
	sections := []string{
		m.renderHeader(),
		m.renderStatus(),
		m.renderProcesses(),
	}
	if len(m.summaries) > 0 {
		sections = append(sections, m.renderRunStats())
	}
	sections = append(sections, m.renderOutput(), m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// Header
// =============================================================================

func (m Model) renderHeader() string {
	file := "(no file)"
	if m.path != "" {
		file = filepath.Base(m.path)
	}
	header := fmt.Sprintf(
		" simrun │ %s │ %s │ Elapsed: %s ",
		m.name,
		file,
		stats.FormatDuration(m.Elapsed()),
	)
	return headerStyle.Width(m.width).Render(header)
}

// =============================================================================
// Status Control
// =============================================================================

func (m Model) renderStatus() string {
	line := status.Render(m.status)
	if line == "" {
		line = dimStyle.Render("No simulation code detected for the active file.")
	}
	rows := []string{sectionHeaderStyle.Render("Status"), line}
	if m.lastErr != nil {
		rows = append(rows, valueBadStyle.Render(m.lastErr.Error()))
	}
	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// =============================================================================
// Live Processes
// =============================================================================

func (m Model) renderProcesses() string {
	rows := []string{sectionHeaderStyle.Render("Processes")}
	if len(m.handles) == 0 {
		rows = append(rows, dimStyle.Render("Nothing running."))
	}
	for _, h := range m.handles {
		rows = append(rows, fmt.Sprintf("%s  %s  %s  %s",
			valueGoodStyle.Render(fmt.Sprintf("%-9s", h.Name)),
			mutedStyle.Render(fmt.Sprintf("pid %-7d", h.PID)),
			valueStyle.Render(stats.FormatDuration(h.Uptime)),
			dimStyle.Render(filepath.Base(h.Path)),
		))
		if h.CodeID == m.codeID {
			rows = append(rows, m.renderOutputRate())
		}
	}
	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// renderOutputRate shows how fast the run is writing output. Long silences
// are highlighted.
func (m Model) renderOutputRate() string {
	r := m.OutputRate()
	idle := valueStyle
	if r.Idle >= idleWarning {
		idle = valueWarnStyle
	}
	return lipgloss.JoinHorizontal(lipgloss.Left,
		labelStyle.Render("  output:"),
		valueStyle.Render(formatBytes(int64(r.Recent))+"/s"),
		mutedStyle.Render(fmt.Sprintf("  60s %s/s  total %s  idle ", formatBytes(int64(r.Minute)), formatBytes(r.Total))),
		idle.Render(stats.FormatShort(r.Idle)),
	)
}

// idleWarning is when a silent run is highlighted.
const idleWarning = 30 * time.Second

// formatBytes formats a byte count with decimal units, e.g. "1.5kB".
func formatBytes(n int64) string {
	return units.HumanSize(float64(n))
}

// =============================================================================
// Run Statistics
// =============================================================================

func (m Model) renderRunStats() string {
	rows := []string{sectionHeaderStyle.Render("Runs")}
	for _, s := range m.summaries {
		rows = append(rows,
			RenderKeyValue(s.CodeID, fmt.Sprintf("%d runs  %d ok  %d failed  %d terminated",
				s.Runs, s.Succeeded, s.Failed, s.Terminated)),
			lipgloss.JoinHorizontal(lipgloss.Left,
				labelStyle.Render(""),
				mutedStyle.Render(fmt.Sprintf("p50 %s  p95 %s  max %s  last exit ",
					stats.FormatShort(s.P50), stats.FormatShort(s.P95), stats.FormatShort(s.Max))),
				ExitStyle(s.LastExitCode).Render(strings.TrimSpace(
					fmt.Sprintf("%d %s", s.LastExitCode, stats.ExitCodeLabel(s.LastExitCode)))),
			),
		)
	}
	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// =============================================================================
// Output
// =============================================================================

// outputHeight is the number of output lines that fit below the other
// sections.
func (m Model) outputHeight() int {
	used := 16
	if len(m.summaries) > 0 {
		used += 3 + 2*len(m.summaries)
	}
	if n := m.height - used; n > 3 {
		return n
	}
	return 3
}

func (m Model) renderOutput() string {
	rows := []string{sectionHeaderStyle.Render("Output")}
	if len(m.lines) == 0 {
		rows = append(rows, dimStyle.Render("No output yet. Press 'r' to run."))
	}

	lines := m.lines
	if n := m.outputHeight(); len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for _, l := range lines {
		text := strings.TrimRight(l.Message, "\n")
		rows = append(rows, LevelStyle(l.Level).Render(text))
	}
	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// =============================================================================
// Footer
// =============================================================================

func (m Model) renderFooter() string {
	return footerStyle.Render("r run • t terminate • c clear • q quit")
}
