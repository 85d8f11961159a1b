// Package viewer holds the single control loop of the application.
// Every command, whether it originates from a GUI binding, the command
// console, or a test, goes through the Controller, which serializes them
// under one mutex and owns the loader, the scene composer, and the
// measurement state. Rendering surfaces observe the controller through
// the Events hook; they never reach into the scene state directly.
package viewer

import (
	"fmt"
	"math"
	"sync"

	"github.com/chazu/cota/pkg/cloud"
	"github.com/chazu/cota/pkg/colormap"
	"github.com/chazu/cota/pkg/lasio"
	"github.com/chazu/cota/pkg/scene"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ---------------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------------

// Events receives notifications as commands change the scene. Handlers run
// with the controller lock held and must not call back into the Controller.
type Events interface {
	// SceneChanged fires after every rebuild with the new composition.
	SceneChanged(scene.Snapshot)
	// LoadProgress fires once per file during a batch load.
	LoadProgress(done, total int, path string)
	// Status fires with short user-facing state descriptions.
	Status(text string)
}

// noopEvents discards all notifications.
type noopEvents struct{}

func (noopEvents) SceneChanged(scene.Snapshot)   {}
func (noopEvents) LoadProgress(int, int, string) {}
func (noopEvents) Status(string)                 {}

// ---------------------------------------------------------------------------
// Results
// ---------------------------------------------------------------------------

// LayerInfo describes one loaded layer for listings.
type LayerInfo struct {
	Label      string `json:"label"`
	Path       string `json:"path"`
	Visible    bool   `json:"visible"`
	PointCount int    `json:"pointCount"`
}

// BatchResult reports the outcome of a batch load: the layers that were
// added and the per-file failures. Failures never abort the batch.
type BatchResult struct {
	Loaded []LayerInfo
	Errors []error
}

// Measurement is the result of picking a pair of points: the straight-line
// distance between them and the absolute difference of their elevations.
type Measurement struct {
	From       v3.Vec  `json:"-"`
	To         v3.Vec  `json:"-"`
	Distance   float64 `json:"distance"`
	HeightDiff float64 `json:"heightDiff"`
}

// classifyMessage explains why the classification action has nothing to do:
// the elevation ramp is applied as files load.
const classifyMessage = "Elevation classification is applied automatically when files load. " +
	"Colors run blue (lowest) through green to red (highest), normalized per file."

// ---------------------------------------------------------------------------
// Controller
// ---------------------------------------------------------------------------

// Controller executes viewer commands over one scene. All methods are safe
// for concurrent use; commands run one at a time and are not cancellable.
type Controller struct {
	mu       sync.Mutex
	loader   *lasio.Loader
	composer *scene.Composer
	events   Events

	// history records every successful load for the process lifetime.
	// Removing a layer does not remove its record.
	history []*cloud.PointCloud

	// picked holds the pending measurement point, if any.
	picked []v3.Vec
}

// New creates a Controller reading files through r. A nil events hook
// discards notifications.
func New(r lasio.Reader, ev Events) *Controller {
	if ev == nil {
		ev = noopEvents{}
	}
	return &Controller{
		loader:   lasio.NewLoader(r),
		composer: scene.NewComposer(),
		events:   ev,
	}
}

// LoadFiles loads the given LAS files in order, colors each by elevation,
// and adds each as a visible layer. A file that fails to load is reported
// in the result and the batch continues. One rebuild runs at the end.
func (c *Controller) LoadFiles(paths []string) BatchResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	var res BatchResult
	if len(paths) == 0 {
		return res
	}

	c.events.Status(fmt.Sprintf("Loading %d file(s)...", len(paths)))

	clouds, errs := c.loader.LoadAll(paths, func(p lasio.Progress) {
		c.events.LoadProgress(p.Index+1, p.Total, p.Path)
	})
	res.Errors = errs

	for _, pc := range clouds {
		colors := colormap.ByElevation(pc.Points)
		if err := c.composer.Add(pc, colors); err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		c.history = append(c.history, pc)
		res.Loaded = append(res.Loaded, LayerInfo{
			Label:      pc.Label,
			Path:       pc.Path,
			Visible:    true,
			PointCount: pc.PointCount(),
		})
	}

	snap := c.composer.Rebuild()
	c.events.SceneChanged(snap)
	c.events.Status(fmt.Sprintf("Loaded %d of %d file(s), %d points in view",
		len(res.Loaded), len(paths), snap.PointTotal()))
	return res
}

// ToggleLayer sets a layer's visibility to the given state.
func (c *Controller) ToggleLayer(label string, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.composer.SetVisible(label, on); err != nil {
		return err
	}
	c.events.SceneChanged(c.composer.Rebuild())
	return nil
}

// FlipLayer inverts a layer's visibility and returns the new state.
func (c *Controller) FlipLayer(label string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.composer.Has(label) {
		return false, fmt.Errorf("viewer: no layer %q", label)
	}
	on := !c.composer.Visible(label)
	if err := c.composer.SetVisible(label, on); err != nil {
		return false, err
	}
	c.events.SceneChanged(c.composer.Rebuild())
	return on, nil
}

// SetPointSize sets the rendered point size for all layers.
func (c *Controller) SetPointSize(size int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.composer.SetPointSize(size); err != nil {
		return err
	}
	c.events.SceneChanged(c.composer.Rebuild())
	return nil
}

// RemoveLayer removes a layer from the scene. The load history record for
// the underlying file is kept.
func (c *Controller) RemoveLayer(label string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.composer.Remove(label); err != nil {
		return err
	}
	c.events.SceneChanged(c.composer.Rebuild())
	c.events.Status(fmt.Sprintf("Removed layer %s", label))
	return nil
}

// PickPoint accumulates measurement picks in pairs. The first pick is
// stored and returns nil. The second completes the pair: the measurement
// is computed, a highlight line is overlaid on the scene, and the pick
// buffer resets for the next pair.
func (c *Controller) PickPoint(p v3.Vec) *Measurement {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.picked = append(c.picked, p)
	if len(c.picked) < 2 {
		c.events.Status("First point picked, pick a second point to measure")
		return nil
	}

	a, b := c.picked[0], c.picked[1]
	c.picked = nil

	m := &Measurement{
		From:       a,
		To:         b,
		Distance:   b.Sub(a).Length(),
		HeightDiff: math.Abs(b.Z - a.Z),
	}
	c.composer.AddOverlay(scene.Line{From: a, To: b, Color: colormap.Yellow})
	c.events.SceneChanged(c.composer.Snapshot())
	c.events.Status(fmt.Sprintf("Distance: %.3f, height difference: %.3f", m.Distance, m.HeightDiff))
	return m
}

// Classify explains that elevation classification already happened at load
// time. The action is kept for parity with the toolbar button.
func (c *Controller) Classify() string {
	return classifyMessage
}

// Layers lists the current layers in label order.
func (c *Controller) Layers() []LayerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	infos := []LayerInfo{}
	for _, label := range c.composer.Labels() {
		infos = append(infos, LayerInfo{
			Label:      label,
			Path:       c.sourcePath(label),
			Visible:    c.composer.Visible(label),
			PointCount: c.composer.Mesh(label).PointCount(),
		})
	}
	return infos
}

// Scene returns the current composition including overlays.
func (c *Controller) Scene() scene.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.composer.Snapshot()
}

// History returns every cloud loaded this session, including those whose
// layers were later removed.
func (c *Controller) History() []*cloud.PointCloud {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*cloud.PointCloud(nil), c.history...)
}

// sourcePath resolves a layer label to the path it was last loaded from.
func (c *Controller) sourcePath(label string) string {
	for i := len(c.history) - 1; i >= 0; i-- {
		if c.history[i].Label == label {
			return c.history[i].Path
		}
	}
	return ""
}
