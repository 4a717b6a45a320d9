// Package tui provides a live terminal dashboard for one simulation run.
//
// The TUI uses Bubble Tea for the application framework and Lipgloss for styling.
// It displays:
// - The status control (run or terminate) for the active input file
// - Live processes with pid and uptime
// - Streamed code output and completion messages
// - Per-code run duration percentiles
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/simrun/internal/notify"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorSecondary = lipgloss.Color("#06B6D4") // Cyan

	colorSuccess = lipgloss.Color("#10B981") // Green
	colorWarning = lipgloss.Color("#F59E0B") // Amber
	colorError   = lipgloss.Color("#EF4444") // Red

	colorText      = lipgloss.Color("#E5E7EB") // Light gray
	colorTextMuted = lipgloss.Color("#9CA3AF") // Medium gray
	colorTextDim   = lipgloss.Color("#6B7280") // Dark gray
	colorBorder    = lipgloss.Color("#374151") // Border gray
)

// =============================================================================
// Base Styles
// =============================================================================

var (
	baseStyle = lipgloss.NewStyle().
			Foreground(colorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)
)

// =============================================================================
// Level Styles
// =============================================================================

var (
	infoLineStyle = baseStyle

	warningLineStyle = lipgloss.NewStyle().
				Foreground(colorWarning).
				Bold(true)

	errorLineStyle = lipgloss.NewStyle().
			Foreground(colorError)
)

// =============================================================================
// Layout Styles
// =============================================================================

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorPrimary).
			Bold(true).
			Padding(0, 1).
			MarginBottom(1)

	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(colorBorder)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			MarginTop(1)
)

// =============================================================================
// Value Styles
// =============================================================================

var (
	valueStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true)

	valueGoodStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	valueBadStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	valueWarnStyle = lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			Width(14)
)

// =============================================================================
// Helpers
// =============================================================================

// LevelStyle returns the style for an output line of the given level.
func LevelStyle(l notify.Level) lipgloss.Style {
	switch l {
	case notify.LevelError:
		return errorLineStyle
	case notify.LevelWarning:
		return warningLineStyle
	default:
		return infoLineStyle
	}
}

// ExitStyle returns a style for a last exit code.
func ExitStyle(code int) lipgloss.Style {
	switch {
	case code == 0:
		return valueGoodStyle
	case code < 0:
		return valueWarnStyle
	default:
		return valueBadStyle
	}
}

// RenderKeyValue renders a label-value pair.
func RenderKeyValue(label string, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Left,
		labelStyle.Render(label+":"),
		valueStyle.Render(value),
	)
}
