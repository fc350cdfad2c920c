// Package text provides small display helpers for terminal output.
package text

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Truncate shortens a string to maxLen runes, adding "..." when it was cut.
// It ignores ANSI escape codes; use TruncateWidth for styled output.
func Truncate(s string, maxLen int) string {
	if maxLen <= 3 {
		return "..."
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

// TruncateWidth shortens a string to maxWidth visual columns, adding "..."
// when it was cut. Escape sequences and wide characters are measured
// correctly, so styled titles keep their styling when truncated.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 3 {
		return "..."
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth, "...")
}
