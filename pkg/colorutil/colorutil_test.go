package colorutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPalette(t *testing.T) {
	p := Palette(5)

	assert.Len(t, p, 5)
	seen := map[[3]uint8]bool{}
	for _, c := range p {
		assert.Equal(t, uint8(255), c.A)
		key := [3]uint8{c.R, c.G, c.B}
		assert.False(t, seen[key], "duplicate colour %v", c)
		seen[key] = true
	}
	assert.Empty(t, Palette(0))
}

func TestRamp(t *testing.T) {
	empty, full := Ramp(0), Ramp(1)
	assert.InDelta(t, 255, int(empty.G), 1)
	assert.InDelta(t, 0, int(empty.R), 1)
	assert.InDelta(t, 255, int(full.R), 1)
	assert.InDelta(t, 0, int(full.G), 1)
	assert.Equal(t, full, Ramp(3))

	mid := Ramp(0.5)
	assert.NotEqual(t, Green, mid)
	assert.NotEqual(t, Red, mid)
}
