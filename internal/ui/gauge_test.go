package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsageColor(t *testing.T) {
	assert.Equal(t, ColorSuccess, UsageColor(0))
	assert.Equal(t, ColorSuccess, UsageColor(59.9))
	assert.Equal(t, ColorWarning, UsageColor(60))
	assert.Equal(t, ColorWarning, UsageColor(79.9))
	assert.Equal(t, ColorError, UsageColor(80))
	assert.Equal(t, ColorError, UsageColor(100))
}

func TestRenderUsageBar(t *testing.T) {
	bar := RenderUsageBar(50, 10)
	assert.Contains(t, bar, strings.Repeat(string(BarFilled), 5))
	assert.Contains(t, bar, strings.Repeat(string(BarEmpty), 5))
	assert.Contains(t, bar, "50%")
}

func TestRenderUsageBar_Bounds(t *testing.T) {
	full := RenderUsageBar(150, 8)
	assert.Contains(t, full, strings.Repeat(string(BarFilled), 8))
	assert.Contains(t, full, "100%")

	empty := RenderUsageBar(-3, 8)
	assert.Contains(t, empty, strings.Repeat(string(BarEmpty), 8))
	assert.Contains(t, empty, "0%")

	assert.Empty(t, RenderUsageBar(50, 0))
}
