package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Accent palette. Hex colors degrade gracefully on 256-color terminals.
const (
	ColorNeonPink   lipgloss.Color = "#ff6ac1"
	ColorNeonCyan   lipgloss.Color = "#5fd7ff"
	ColorNeonPurple lipgloss.Color = "#af87ff"
	ColorNeonGreen  lipgloss.Color = "#5fff87"

	ColorGlassBorder lipgloss.Color = "#3a3a4a"
)

// Semantic colors for status indication
const (
	ColorSuccess lipgloss.Color = "#5fff87" // Green
	ColorError   lipgloss.Color = "#ff5f5f" // Red
	ColorWarning lipgloss.Color = "#ffd75f" // Yellow
	ColorInfo    lipgloss.Color = "#5fd7ff" // Cyan
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "#e4e4e4" // White/default
	ColorSecondary lipgloss.Color = "#87afff" // Blue
	ColorMuted     lipgloss.Color = "#6c6c6c" // Gray
)

// GradientColors cycles pink -> purple -> cyan -> green for spinner frames.
var GradientColors = []lipgloss.Color{
	ColorNeonPink,
	ColorNeonPurple,
	ColorNeonCyan,
	ColorNeonGreen,
}

// SuccessStyle returns a style for success text.
func SuccessStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorSuccess)
}

// ErrorStyle returns a style for error text.
func ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorError)
}

// WarningStyle returns a style for warning text.
func WarningStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorWarning)
}

// InfoStyle returns a style for informational text.
func InfoStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorInfo)
}

// MutedStyle returns a style for secondary text.
func MutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorMuted)
}

// DisableColors switches all subsequent rendering to monochrome.
// Used by the --no-color flag and when stdout is not a terminal.
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// PrintWarning prints a styled warning line to stderr.
func PrintWarning(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", WarningStyle().Render(SymbolWarning), msg)
}

// PrintError prints a styled error line to stderr.
func PrintError(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle().Render(SymbolFail), msg)
}

// PrintSuccess prints a styled success line to stdout.
func PrintSuccess(msg string) {
	fmt.Printf("%s %s\n", SuccessStyle().Render(SymbolSuccess), msg)
}
