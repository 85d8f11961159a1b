// Package colormap maps point elevations to colors.
// The ramp runs blue at the lowest elevation through green at the middle
// to red at the highest, with each channel clamped to [0, 1].
package colormap

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Color is an RGB triple with channels in [0, 1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Yellow is the highlight color used for measurement overlays.
var Yellow = Color{R: 1, G: 1, B: 0}

// At returns the ramp color for a normalized elevation t in [0, 1].
// Values outside the range clamp to the ramp ends.
func At(t float64) Color {
	return Color{
		R: clamp01(2 * (t - 0.5)),
		G: clamp01(2 * (0.5 - math.Abs(t-0.5))),
		B: clamp01(2 * (0.5 - t)),
	}
}

// ByElevation colors each point by its elevation relative to the set's own
// minimum and maximum. When every point shares one elevation the whole set
// sits at the ramp midpoint. The result is index-aligned with the input.
func ByElevation(points []v3.Vec) []Color {
	if len(points) == 0 {
		return nil
	}

	zMin, zMax := points[0].Z, points[0].Z
	for _, p := range points[1:] {
		if p.Z < zMin {
			zMin = p.Z
		}
		if p.Z > zMax {
			zMax = p.Z
		}
	}

	zRange := zMax - zMin
	colors := make([]Color, len(points))
	for i, p := range points {
		t := 0.5
		if zRange > 0 {
			t = (p.Z - zMin) / zRange
		}
		colors[i] = At(t)
	}
	return colors
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
