package colormap

import (
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

const eps = 1e-9

func colorsClose(a, b Color) bool {
	return math.Abs(a.R-b.R) < eps &&
		math.Abs(a.G-b.G) < eps &&
		math.Abs(a.B-b.B) < eps
}

func TestAtRampEnds(t *testing.T) {
	tests := []struct {
		name string
		t    float64
		want Color
	}{
		{"lowest is pure blue", 0, Color{R: 0, G: 0, B: 1}},
		{"midpoint is pure green", 0.5, Color{R: 0, G: 1, B: 0}},
		{"highest is pure red", 1, Color{R: 1, G: 0, B: 0}},
		{"quarter blends blue and green", 0.25, Color{R: 0, G: 0.5, B: 0.5}},
		{"three quarters blends green and red", 0.75, Color{R: 0.5, G: 0.5, B: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := At(tt.t)
			if !colorsClose(got, tt.want) {
				t.Errorf("At(%v) = %+v, want %+v", tt.t, got, tt.want)
			}
		})
	}
}

func TestAtClampsOutOfRange(t *testing.T) {
	if got := At(-0.5); !colorsClose(got, Color{B: 1}) {
		t.Errorf("At(-0.5) = %+v, want pure blue", got)
	}
	if got := At(1.5); !colorsClose(got, Color{R: 1}) {
		t.Errorf("At(1.5) = %+v, want pure red", got)
	}
}

func TestAtChannelsAlwaysInRange(t *testing.T) {
	for i := -10; i <= 20; i++ {
		c := At(float64(i) / 10)
		for name, v := range map[string]float64{"R": c.R, "G": c.G, "B": c.B} {
			if v < 0 || v > 1 {
				t.Errorf("At(%v): channel %s = %v out of [0,1]", float64(i)/10, name, v)
			}
		}
	}
}

func TestByElevationUsesSetExtremes(t *testing.T) {
	points := []v3.Vec{
		{X: 0, Y: 0, Z: 100}, // lowest -> blue
		{X: 1, Y: 0, Z: 150}, // midpoint -> green
		{X: 2, Y: 0, Z: 200}, // highest -> red
	}
	colors := ByElevation(points)
	if len(colors) != 3 {
		t.Fatalf("got %d colors, want 3", len(colors))
	}
	if !colorsClose(colors[0], Color{B: 1}) {
		t.Errorf("lowest point color = %+v, want pure blue", colors[0])
	}
	if !colorsClose(colors[1], Color{G: 1}) {
		t.Errorf("middle point color = %+v, want pure green", colors[1])
	}
	if !colorsClose(colors[2], Color{R: 1}) {
		t.Errorf("highest point color = %+v, want pure red", colors[2])
	}
}

// Two clouds spanning different elevation bands must each use their own
// extremes: normalization never leaks across files.
func TestByElevationPerSetNormalization(t *testing.T) {
	low := []v3.Vec{{Z: 0}, {Z: 10}}
	high := []v3.Vec{{Z: 1000}, {Z: 1010}}

	lowColors := ByElevation(low)
	highColors := ByElevation(high)

	if !colorsClose(lowColors[0], highColors[0]) {
		t.Errorf("lowest points differ: %+v vs %+v", lowColors[0], highColors[0])
	}
	if !colorsClose(lowColors[1], highColors[1]) {
		t.Errorf("highest points differ: %+v vs %+v", lowColors[1], highColors[1])
	}
	if !colorsClose(lowColors[1], Color{R: 1}) {
		t.Errorf("top of band = %+v, want pure red", lowColors[1])
	}
}

func TestByElevationUniformElevation(t *testing.T) {
	points := []v3.Vec{
		{X: 0, Y: 0, Z: 42},
		{X: 5, Y: 3, Z: 42},
		{X: 9, Y: 1, Z: 42},
	}
	colors := ByElevation(points)
	for i, c := range colors {
		if !colorsClose(c, Color{G: 1}) {
			t.Errorf("point %d: uniform elevation color = %+v, want pure green", i, c)
		}
		if math.IsNaN(c.R) || math.IsNaN(c.G) || math.IsNaN(c.B) {
			t.Fatalf("point %d: NaN channel in %+v", i, c)
		}
	}
}

func TestByElevationEmpty(t *testing.T) {
	if got := ByElevation(nil); got != nil {
		t.Errorf("ByElevation(nil) = %v, want nil", got)
	}
	if got := ByElevation([]v3.Vec{}); got != nil {
		t.Errorf("ByElevation(empty) = %v, want nil", got)
	}
}

func TestByElevationSinglePoint(t *testing.T) {
	colors := ByElevation([]v3.Vec{{X: 1, Y: 2, Z: 3}})
	if len(colors) != 1 {
		t.Fatalf("got %d colors, want 1", len(colors))
	}
	if !colorsClose(colors[0], Color{G: 1}) {
		t.Errorf("single point color = %+v, want pure green (midpoint)", colors[0])
	}
}

func TestByElevationIndexAlignment(t *testing.T) {
	// Shuffled elevations: color[i] must describe points[i], not a sorted order.
	points := []v3.Vec{
		{Z: 50},  // mid -> green
		{Z: 100}, // top -> red
		{Z: 0},   // bottom -> blue
	}
	colors := ByElevation(points)
	if !colorsClose(colors[0], Color{G: 1}) {
		t.Errorf("color[0] = %+v, want green", colors[0])
	}
	if !colorsClose(colors[1], Color{R: 1}) {
		t.Errorf("color[1] = %+v, want red", colors[1])
	}
	if !colorsClose(colors[2], Color{B: 1}) {
		t.Errorf("color[2] = %+v, want blue", colors[2])
	}
}
