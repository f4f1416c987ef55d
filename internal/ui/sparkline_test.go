package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderSparkline_Empty(t *testing.T) {
	assert.Empty(t, RenderSparkline(nil, 10))
	assert.Empty(t, RenderSparkline([]float64{50}, 0))
}

func TestRenderSparkline_FlatSeries(t *testing.T) {
	out := RenderSparkline([]float64{40, 40, 40}, 10)
	// All values equal renders the middle block for each point
	assert.Contains(t, out, "▅▅▅")
}

func TestRenderSparkline_UsesExtremes(t *testing.T) {
	out := RenderSparkline([]float64{0, 100}, 10)
	assert.Contains(t, out, "▁")
	assert.Contains(t, out, "█")
}

func TestRenderSparkline_TruncatesToWidth(t *testing.T) {
	data := []float64{10, 20, 30, 40, 50, 60, 70, 80}
	out := RenderSparkline(data, 3)

	count := 0
	for _, r := range out {
		for _, b := range sparklineBlockRunes {
			if r == b {
				count++
				break
			}
		}
	}
	assert.Equal(t, 3, count, "only the most recent points are shown")
}
