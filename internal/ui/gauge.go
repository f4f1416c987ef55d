package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Usage bar block characters.
const (
	BarFilled = '█'
	BarEmpty  = '░'
)

// UsageColor returns the threshold color for a resource percentage.
// Higher values indicate pressure: 0-60% green, 60-80% yellow, 80%+ red.
func UsageColor(percent float64) lipgloss.Color {
	switch {
	case percent >= 80:
		return ColorError
	case percent >= 60:
		return ColorWarning
	default:
		return ColorSuccess
	}
}

// RenderUsageBar renders a bracketed usage bar with a trailing percentage,
// e.g. [████████░░░░]  67%. Used for node CPU and memory columns.
func RenderUsageBar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := int(percent/100*float64(width) + 0.5)
	if filled > width {
		filled = width
	}

	bar := strings.Repeat(string(BarFilled), filled) +
		strings.Repeat(string(BarEmpty), width-filled)

	style := lipgloss.NewStyle().Foreground(UsageColor(percent))
	return fmt.Sprintf("[%s] %3.0f%%", style.Render(bar), percent)
}
