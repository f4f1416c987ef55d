package ui

import (
	"bytes"
	"os"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func init() {
	// Force TrueColor output in tests so styling paths are exercised
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestColorConstants(t *testing.T) {
	colors := []lipgloss.Color{
		ColorNeonPink,
		ColorNeonCyan,
		ColorNeonPurple,
		ColorNeonGreen,
		ColorGlassBorder,
		ColorSuccess,
		ColorError,
		ColorWarning,
		ColorInfo,
		ColorPrimary,
		ColorSecondary,
		ColorMuted,
	}

	for _, color := range colors {
		colorStr := string(color)
		assert.NotEmpty(t, colorStr, "color should not be empty")
		assert.True(t, colorStr[0] == '#', "color should start with #: %s", colorStr)
		assert.Len(t, colorStr, 7, "color should be 7 chars (#RRGGBB): %s", colorStr)
	}
}

func TestGradientColors(t *testing.T) {
	assert.Len(t, GradientColors, 4)
	for i, color := range GradientColors {
		assert.NotEmpty(t, string(color), "gradient color %d should not be empty", i)
	}
}

func TestStylesAreFunctional(t *testing.T) {
	styles := []struct {
		name  string
		style lipgloss.Style
	}{
		{"Success", SuccessStyle()},
		{"Error", ErrorStyle()},
		{"Warning", WarningStyle()},
		{"Info", InfoStyle()},
		{"Muted", MutedStyle()},
	}

	for _, tt := range styles {
		t.Run(tt.name, func(t *testing.T) {
			rendered := tt.style.Render("text")
			assert.Contains(t, rendered, "text")
		})
	}
}

func TestPrintWarning(t *testing.T) {
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	PrintWarning("cache is stale")

	w.Close()
	os.Stderr = oldStderr

	var buf bytes.Buffer
	buf.ReadFrom(r)
	output := buf.String()

	assert.Contains(t, output, "cache is stale")
	assert.Contains(t, output, SymbolWarning)
}

func TestDisableColors(t *testing.T) {
	defer lipgloss.SetColorProfile(termenv.TrueColor)

	assert.NotPanics(t, func() {
		DisableColors()
	})

	// Styles still render, just without escape codes
	rendered := SuccessStyle().Render("plain")
	assert.Equal(t, "plain", rendered)
}
