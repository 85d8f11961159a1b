package scene

import (
	"github.com/chazu/cota/pkg/colormap"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Mesh is a renderable colored point set built from one loaded file.
// Points and Colors are index-aligned. A Mesh is immutable once composed.
type Mesh struct {
	Label  string
	Points []v3.Vec
	Colors []colormap.Color
	Bounds sdf.Box3
}

// PointCount returns the number of points in the mesh.
func (m *Mesh) PointCount() int {
	return len(m.Points)
}

// IsEmpty returns true if the mesh has no points.
func (m *Mesh) IsEmpty() bool {
	return len(m.Points) == 0
}

// Line is a transient overlay segment drawn on top of the composed scene,
// used for measurement results. Overlays do not survive a rebuild.
type Line struct {
	From  v3.Vec
	To    v3.Vec
	Color colormap.Color
}
