// Package colorutil provides the overlay colours of debug images.
package colorutil

import (
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Common overlay colors.
var (
	Red    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Green  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 0, A: 255}
)

// Palette returns n visually distinct, fully saturated colors with hues
// spread evenly around the wheel.
func Palette(n int) []color.RGBA {
	out := make([]color.RGBA, n)
	for i := range out {
		c := colorful.Hsv(360*float64(i)/float64(n), 0.85, 0.95)
		r, g, b := c.RGB255()
		out[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return out
}

// Ramp maps a fill score in [0, 1] to a colour blended from green (empty)
// to red (filled) in Lab space.
func Ramp(score float64) color.RGBA {
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	lo, _ := colorful.MakeColor(Green)
	hi, _ := colorful.MakeColor(Red)
	r, g, b := lo.BlendLab(hi, score).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
