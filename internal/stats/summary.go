package stats

import (
	"fmt"
	"strings"
	"time"
)

const (
	ruleHeavy = "═══════════════════════════════════════════════════════════════\n"
	ruleLight = "───────────────────────────────────────────────────────────────\n"
)

// FormatExitSummary renders the table printed when `simrun run` exits.
// names maps code id to display name; unknown ids fall back to the id.
func FormatExitSummary(summaries []Summary, names map[string]string, elapsed time.Duration) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(ruleHeavy)
	b.WriteString("                     simrun Exit Summary\n")
	b.WriteString(ruleHeavy)
	fmt.Fprintf(&b, "Session Duration:       %s\n\n", FormatDuration(elapsed))

	if len(summaries) == 0 {
		b.WriteString("(No simulation runs completed)\n")
		b.WriteString(ruleHeavy)
		return b.String()
	}

	fmt.Fprintf(&b, "  %-10s %5s %5s %5s %5s %10s %10s %10s\n",
		"Code", "Runs", "OK", "Fail", "Term", "P50", "P95", "Max")
	b.WriteString("  " + ruleLight)
	for _, s := range summaries {
		name := names[s.CodeID]
		if name == "" {
			name = s.CodeID
		}
		fmt.Fprintf(&b, "  %-10s %5d %5d %5d %5d %10s %10s %10s\n",
			name, s.Runs, s.Succeeded, s.Failed, s.Terminated,
			FormatShort(s.P50), FormatShort(s.P95), FormatShort(s.Max))
	}
	b.WriteString("\n")
	b.WriteString(ruleHeavy)
	return b.String()
}

// ExitCodeLabel returns a human-readable label for common exit codes.
func ExitCodeLabel(code int) string {
	switch code {
	case 0:
		return "(clean)"
	case 1:
		return "(error)"
	case 137:
		return "(SIGKILL)"
	case 143:
		return "(SIGTERM)"
	default:
		return ""
	}
}

// FormatDuration formats a duration as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatShort formats a duration for narrow columns: ms below a second,
// seconds below a minute, HH:MM:SS beyond.
func FormatShort(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%d ms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1f s", d.Seconds())
	default:
		return FormatDuration(d)
	}
}
