// Package cloud defines the point cloud records for Cota.
// A PointCloud is the immutable result of loading one LAS file: the
// ordered point list plus its axis-aligned bounds. Loaded clouds are
// never mutated; the scene layer composes views over them.
package cloud

import (
	"path/filepath"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// PointCloud holds the points read from a single LAS file.
type PointCloud struct {
	Path   string   // absolute or as-given source path
	Label  string   // display name, the base filename
	Points []v3.Vec // file order is preserved
	Bounds sdf.Box3
}

// New builds a PointCloud from a source path and its points.
// The label is derived from the path and the bounds from the points.
func New(path string, points []v3.Vec) *PointCloud {
	return &PointCloud{
		Path:   path,
		Label:  LabelFor(path),
		Points: points,
		Bounds: BoundsOf(points),
	}
}

// LabelFor returns the display label for a source path, its base filename.
func LabelFor(path string) string {
	return filepath.Base(path)
}

// PointCount returns the number of points in the cloud.
func (pc *PointCloud) PointCount() int {
	return len(pc.Points)
}

// IsEmpty returns true if the cloud has no points.
func (pc *PointCloud) IsEmpty() bool {
	return len(pc.Points) == 0
}

// ZRange returns the elevation extent of the cloud. Zero for empty clouds
// and for clouds where every point shares one elevation.
func (pc *PointCloud) ZRange() float64 {
	return pc.Bounds.Max.Z - pc.Bounds.Min.Z
}

// BoundsOf computes the axis-aligned bounding box of a point set.
// An empty set yields the zero box.
func BoundsOf(points []v3.Vec) sdf.Box3 {
	if len(points) == 0 {
		return sdf.Box3{}
	}
	b := sdf.Box3{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b = b.Include(p)
	}
	return b
}
