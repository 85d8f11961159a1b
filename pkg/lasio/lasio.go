// Package lasio loads LAS point cloud files.
// It defines the Reader interface implemented by concrete parsers
// (see the lidar subpackage) and a batch Loader that isolates per-file
// failures so one unreadable file never aborts the rest of a selection.
package lasio

import (
	"fmt"

	"github.com/chazu/cota/pkg/cloud"
)

// Reader parses one point cloud file.
// Implementations wrap a concrete LAS parser behind this interface so the
// rest of the system can be exercised without real files.
type Reader interface {
	Read(path string) (*cloud.PointCloud, error)
}

// LoadError is the single user-facing error kind for file loading.
// It carries the path of the offending file and the underlying cause.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Progress reports the outcome of one file within a batch load.
// Exactly one of Cloud and Err is set.
type Progress struct {
	Index int // zero-based position in the batch
	Total int
	Path  string
	Cloud *cloud.PointCloud
	Err   error
}

// ProgressFunc receives a Progress report after each file in a batch.
type ProgressFunc func(Progress)

// Loader loads batches of files through a Reader.
type Loader struct {
	r Reader
}

// NewLoader creates a Loader over the given Reader.
func NewLoader(r Reader) *Loader {
	return &Loader{r: r}
}

// Load reads a single file. Any failure is returned as a *LoadError.
func (l *Loader) Load(path string) (*cloud.PointCloud, error) {
	pc, err := l.r.Read(path)
	if err != nil {
		// Concrete readers already wrap their failures; don't double-wrap.
		if le, ok := err.(*LoadError); ok {
			return nil, le
		}
		return nil, &LoadError{Path: path, Err: err}
	}
	if pc.IsEmpty() {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("file contains no points")}
	}
	return pc, nil
}

// LoadAll reads the given files in order. Failures are collected, logged,
// and reported through progress; the batch always continues to the end.
// The returned clouds hold only the successful loads, in input order.
func (l *Loader) LoadAll(paths []string, progress ProgressFunc) ([]*cloud.PointCloud, []error) {
	var clouds []*cloud.PointCloud
	var errs []error

	for i, path := range paths {
		pc, err := l.Load(path)
		if err != nil {
			Logf("lasio: %v", err)
			errs = append(errs, err)
		} else {
			clouds = append(clouds, pc)
		}
		if progress != nil {
			progress(Progress{
				Index: i,
				Total: len(paths),
				Path:  path,
				Cloud: pc,
				Err:   err,
			})
		}
	}

	return clouds, errs
}
