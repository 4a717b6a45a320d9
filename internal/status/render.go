package status

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	runStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	terminateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	tooltipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF"))
)

// Glyph returns the icon shown in front of the dialect name.
func Glyph(a Action) string {
	switch a {
	case ActionRun:
		return "▶"
	case ActionTerminate:
		return "⏹"
	default:
		return ""
	}
}

// Text is the unstyled status bar text, e.g. "▶ FRAPCON".
func (i Item) Text() string {
	if !i.Visible {
		return ""
	}
	return Glyph(i.Action) + " " + i.Name
}

// Render returns the styled status bar text, or "" when hidden.
func Render(i Item) string {
	if !i.Visible {
		return ""
	}
	style := runStyle
	if i.Action == ActionTerminate {
		style = terminateStyle
	}
	return style.Render(i.Text()) + " " + tooltipStyle.Render("("+i.Tooltip+")")
}
