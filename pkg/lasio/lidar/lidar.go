// Package lidar implements the lasio.Reader interface over the lasread
// LAS parser. It consumes only point coordinates; intensity, returns, and
// classification fields are read by the parser but ignored here.
package lidar

import (
	"fmt"

	"github.com/chazu/cota/pkg/cloud"
	"github.com/chazu/cota/pkg/lasio"
	v3 "github.com/deadsy/sdfx/vec/v3"
	lidario "github.com/mfbonfigli/gocesiumtiler/third_party/lasread"
)

// Compile-time interface check.
var _ lasio.Reader = (*Reader)(nil)

// Reader reads LAS files from disk.
type Reader struct{}

// New returns a new LAS file Reader.
func New() *Reader {
	return &Reader{}
}

// Read parses the LAS file at path into a PointCloud. Coordinates come back
// already scaled and offset to world units. Any failure, including a file
// that parses but holds zero points, is returned as a *lasio.LoadError.
func (r *Reader) Read(path string) (*cloud.PointCloud, error) {
	lf, err := lidario.NewLasFile(path, "r")
	if err != nil {
		return nil, &lasio.LoadError{Path: path, Err: err}
	}
	defer lf.Close()

	n := int(lf.Header.NumberPoints)
	if n == 0 {
		return nil, &lasio.LoadError{Path: path, Err: fmt.Errorf("file contains no points")}
	}

	points := make([]v3.Vec, 0, n)
	for i := 0; i < n; i++ {
		p, err := lf.LasPoint(i)
		if err != nil {
			return nil, &lasio.LoadError{Path: path, Err: fmt.Errorf("point %d: %w", i, err)}
		}
		d := p.PointData()
		points = append(points, v3.Vec{X: d.X, Y: d.Y, Z: d.Z})
	}

	return cloud.New(path, points), nil
}
