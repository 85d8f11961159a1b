// Package scene composes loaded point clouds into a renderable scene.
// The Composer owns the layer state: one colored mesh per loaded file, a
// visibility toggle per layer, and the shared point size. Rebuild discards
// the previous composition and assembles the scene from scratch, so every
// view change goes through the same full teardown path.
package scene

import (
	"fmt"
	"sort"

	"github.com/chazu/cota/pkg/cloud"
	"github.com/chazu/cota/pkg/colormap"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Point size limits for rendered points, in pixels.
const (
	MinPointSize     = 1
	MaxPointSize     = 10
	DefaultPointSize = 5
)

// Composer holds the mutable scene state. The mesh map and the visibility
// map always share exactly the same keys: Add creates both entries, Remove
// deletes both, and nothing else touches the key sets.
type Composer struct {
	meshes    map[string]*Mesh
	visible   map[string]bool
	pointSize int
	overlays  []Line
	current   Snapshot
}

// NewComposer creates an empty Composer at the default point size.
func NewComposer() *Composer {
	c := &Composer{
		meshes:    make(map[string]*Mesh),
		visible:   make(map[string]bool),
		pointSize: DefaultPointSize,
	}
	c.current = c.compose()
	return c
}

// Add composes a cloud and its colors into a layer mesh. The layer starts
// visible. Adding a label that already exists replaces that layer, which
// is what reloading the same file does. Colors must be index-aligned with
// the cloud's points.
func (c *Composer) Add(pc *cloud.PointCloud, colors []colormap.Color) error {
	if len(colors) != len(pc.Points) {
		return fmt.Errorf("scene: layer %q: %d colors for %d points", pc.Label, len(colors), len(pc.Points))
	}
	c.meshes[pc.Label] = &Mesh{
		Label:  pc.Label,
		Points: pc.Points,
		Colors: colors,
		Bounds: pc.Bounds,
	}
	c.visible[pc.Label] = true
	return nil
}

// Remove deletes a layer, both its mesh and its visibility toggle.
func (c *Composer) Remove(label string) error {
	if _, ok := c.meshes[label]; !ok {
		return fmt.Errorf("scene: no layer %q", label)
	}
	delete(c.meshes, label)
	delete(c.visible, label)
	return nil
}

// SetVisible flips a layer's visibility toggle.
func (c *Composer) SetVisible(label string, on bool) error {
	if _, ok := c.visible[label]; !ok {
		return fmt.Errorf("scene: no layer %q", label)
	}
	c.visible[label] = on
	return nil
}

// Has reports whether a layer with the given label exists.
func (c *Composer) Has(label string) bool {
	_, ok := c.meshes[label]
	return ok
}

// Visible reports a layer's toggle state. Unknown labels are not visible.
func (c *Composer) Visible(label string) bool {
	return c.visible[label]
}

// Labels returns all layer labels in sorted order, visible or not.
func (c *Composer) Labels() []string {
	labels := make([]string, 0, len(c.meshes))
	for label := range c.meshes {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Mesh returns the mesh for a label, or nil.
func (c *Composer) Mesh(label string) *Mesh {
	return c.meshes[label]
}

// SetPointSize sets the rendered point size for every layer.
func (c *Composer) SetPointSize(size int) error {
	if size < MinPointSize || size > MaxPointSize {
		return fmt.Errorf("scene: point size %d out of range [%d, %d]", size, MinPointSize, MaxPointSize)
	}
	c.pointSize = size
	return nil
}

// PointSize returns the current rendered point size.
func (c *Composer) PointSize() int {
	return c.pointSize
}

// AddOverlay draws a transient line on top of the current composition.
// Overlays accumulate until the next Rebuild discards them.
func (c *Composer) AddOverlay(l Line) {
	c.overlays = append(c.overlays, l)
}

// Rebuild discards the previous composition and all overlays, then
// assembles the scene again from the layer state: every visible mesh in
// label order, at the current point size, framed by the union of their
// bounds. Calling Rebuild twice without a state change in between yields
// equal snapshots.
func (c *Composer) Rebuild() Snapshot {
	c.overlays = nil
	c.current = c.compose()
	return c.current
}

// Snapshot returns the last composition plus any overlays added since.
func (c *Composer) Snapshot() Snapshot {
	s := c.current
	s.Overlays = append([]Line(nil), c.overlays...)
	return s
}

// compose assembles a Snapshot from the current layer state.
func (c *Composer) compose() Snapshot {
	s := Snapshot{
		Meshes:    []*Mesh{},
		PointSize: c.pointSize,
	}
	first := true
	for _, label := range c.Labels() {
		if !c.visible[label] {
			continue
		}
		m := c.meshes[label]
		s.Meshes = append(s.Meshes, m)
		if first {
			s.Bounds = m.Bounds
			first = false
		} else {
			s.Bounds = s.Bounds.Extend(m.Bounds)
		}
	}
	return s
}

// Snapshot is one composed view of the scene: the visible meshes in label
// order, the point size they render at, the union of their bounds for
// camera framing, and any overlay lines.
type Snapshot struct {
	Meshes    []*Mesh
	PointSize int
	Bounds    sdf.Box3
	Overlays  []Line
}

// Center returns the camera focus point, the middle of the union bounds.
func (s Snapshot) Center() v3.Vec {
	return s.Bounds.Center()
}

// Radius returns half the diagonal of the union bounds, the distance a
// camera needs to frame every visible point. Zero for an empty scene.
func (s Snapshot) Radius() float64 {
	return s.Bounds.Size().Length() / 2
}

// PointTotal returns the number of points across all visible meshes.
func (s Snapshot) PointTotal() int {
	total := 0
	for _, m := range s.Meshes {
		total += m.PointCount()
	}
	return total
}
