package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/cota/pkg/lasio"
	"github.com/chazu/cota/pkg/lasio/lidar"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ---------------------------------------------------------------------------
// Shared fixtures: stub dialogs and a minimal on-disk LAS writer, so the
// E2E tests run the same path the Wails bindings take, but without the
// Wails runtime or a display.
// ---------------------------------------------------------------------------

// stubDialogs records dialog calls and serves a canned file selection.
type stubDialogs struct {
	paths   []string
	openErr error
	errors  []string
	infos   []string
}

func (d *stubDialogs) OpenLasFiles(ctx context.Context) ([]string, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.paths, nil
}

func (d *stubDialogs) ShowError(ctx context.Context, title, message string) {
	d.errors = append(d.errors, message)
}

func (d *stubDialogs) ShowInfo(ctx context.Context, title, message string) {
	d.infos = append(d.infos, message)
}

func muteLoadLogs(t *testing.T) {
	t.Helper()
	prev := lasio.Logf
	lasio.SetLogger(nil)
	t.Cleanup(func() { lasio.Logf = prev })
}

// lasHeader12 is a LAS 1.2 public header block, 227 bytes little-endian.
type lasHeader12 struct {
	Signature          [4]byte
	FileSourceID       uint16
	GlobalEncoding     uint16
	GUID1              uint32
	GUID2              uint16
	GUID3              uint16
	GUID4              [8]byte
	VersionMajor       uint8
	VersionMinor       uint8
	SystemID           [32]byte
	GeneratingSoftware [32]byte
	CreationDay        uint16
	CreationYear       uint16
	HeaderSize         uint16
	OffsetToPoints     uint32
	NumberOfVLRs       uint32
	PointFormatID      uint8
	PointRecordLen     uint16
	NumberPoints       uint32
	PointsByReturn     [5]uint32
	XScale             float64
	YScale             float64
	ZScale             float64
	XOffset            float64
	YOffset            float64
	ZOffset            float64
	MaxX               float64
	MinX               float64
	MaxY               float64
	MinY               float64
	MaxZ               float64
	MinZ               float64
}

// lasPoint0 is a point data record format 0, 20 bytes.
type lasPoint0 struct {
	X             int32
	Y             int32
	Z             int32
	Intensity     uint16
	BitField      uint8
	Class         uint8
	ScanAngle     int8
	UserData      uint8
	PointSourceID uint16
}

const fixtureScale = 0.001

// writeLasFixture writes a minimal LAS 1.2 format-0 file holding the given
// scaled integer coordinates, and returns the expected world coordinates.
func writeLasFixture(t *testing.T, path string, raw [][3]int32) []v3.Vec {
	t.Helper()

	want := make([]v3.Vec, len(raw))
	for i, r := range raw {
		want[i] = v3.Vec{
			X: float64(r[0]) * fixtureScale,
			Y: float64(r[1]) * fixtureScale,
			Z: float64(r[2]) * fixtureScale,
		}
	}

	h := lasHeader12{
		Signature:      [4]byte{'L', 'A', 'S', 'F'},
		VersionMajor:   1,
		VersionMinor:   2,
		CreationDay:    1,
		CreationYear:   2025,
		HeaderSize:     227,
		OffsetToPoints: 227,
		PointFormatID:  0,
		PointRecordLen: 20,
		NumberPoints:   uint32(len(raw)),
		XScale:         fixtureScale,
		YScale:         fixtureScale,
		ZScale:         fixtureScale,
	}
	copy(h.SystemID[:], "OTHER")
	copy(h.GeneratingSoftware[:], "cota test fixture")
	h.PointsByReturn[0] = uint32(len(raw))

	if len(want) > 0 {
		h.MinX, h.MaxX = want[0].X, want[0].X
		h.MinY, h.MaxY = want[0].Y, want[0].Y
		h.MinZ, h.MaxZ = want[0].Z, want[0].Z
		for _, p := range want[1:] {
			h.MinX = math.Min(h.MinX, p.X)
			h.MaxX = math.Max(h.MaxX, p.X)
			h.MinY = math.Min(h.MinY, p.Y)
			h.MaxY = math.Max(h.MaxY, p.Y)
			h.MinZ = math.Min(h.MinZ, p.Z)
			h.MaxZ = math.Max(h.MaxZ, p.Z)
		}
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &h); err != nil {
		t.Fatalf("write header: %v", err)
	}
	for _, r := range raw {
		p := lasPoint0{
			X: r[0], Y: r[1], Z: r[2],
			BitField:      0x09, // first of one return
			Class:         2,    // ground
			PointSourceID: 1,
		}
		if err := binary.Write(&buf, binary.LittleEndian, &p); err != nil {
			t.Fatalf("write point: %v", err)
		}
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return want
}

// terrainPoints builds a 16x16 grid with elevation rising along the diagonal,
// shifted by the given z base. The count stays above any plausible CPU count
// since the parser splits the record block across workers.
func terrainPoints(zBase int32) [][3]int32 {
	raw := make([][3]int32, 0, 256)
	for i := 0; i < 256; i++ {
		x := int32((i % 16) * 500)
		y := int32((i / 16) * 500)
		z := zBase + int32((i%16+i/16)*250)
		raw = append(raw, [3]int32{x, y, z})
	}
	return raw
}

func newE2EApp() (*App, *stubDialogs) {
	d := &stubDialogs{}
	return newApp(lidar.New(), d), d
}

// ---------------------------------------------------------------------------
// E2E tests
// ---------------------------------------------------------------------------

// TestE2ELoadLasFiles exercises the full pipeline: LAS bytes on disk ->
// reader -> elevation colormap -> scene -> frontend wire format.
func TestE2ELoadLasFiles(t *testing.T) {
	dir := t.TempDir()
	ground := filepath.Join(dir, "ground.las")
	canopy := filepath.Join(dir, "canopy.las")
	writeLasFixture(t, ground, terrainPoints(10000))
	writeLasFixture(t, canopy, terrainPoints(50000))

	app, dialogs := newE2EApp()
	summary := app.LoadPaths([]string{ground, canopy})

	if len(summary.Errors) != 0 {
		t.Fatalf("unexpected load errors: %v", summary.Errors)
	}
	if len(summary.Loaded) != 2 {
		t.Fatalf("expected 2 loaded layers, got %d", len(summary.Loaded))
	}
	if len(dialogs.errors) != 0 {
		t.Fatalf("no error dialogs expected, got %v", dialogs.errors)
	}

	scene := app.Scene()
	if len(scene.Layers) != 2 {
		t.Fatalf("expected 2 scene layers, got %d", len(scene.Layers))
	}
	if scene.PointSize != 5 {
		t.Errorf("expected default point size 5, got %d", scene.PointSize)
	}
	if scene.Radius <= 0 {
		t.Errorf("expected positive scene radius, got %g", scene.Radius)
	}

	for _, layer := range scene.Layers {
		if len(layer.Positions) != 3*256 {
			t.Errorf("layer %s: expected %d position floats, got %d",
				layer.Label, 3*256, len(layer.Positions))
		}
		if len(layer.Colors) != len(layer.Positions) {
			t.Errorf("layer %s: colors and positions must align, got %d and %d",
				layer.Label, len(layer.Colors), len(layer.Positions))
		}
	}

	// Elevation is normalized per file: both grids span their own z range,
	// so each starts at pure blue and ends at pure red.
	for _, layer := range scene.Layers {
		c := layer.Colors
		if c[0] != 0 || c[1] != 0 || c[2] != 1 {
			t.Errorf("layer %s: lowest point = (%g, %g, %g), want pure blue",
				layer.Label, c[0], c[1], c[2])
		}
		last := len(c) - 3
		if c[last] != 1 || c[last+1] != 0 || c[last+2] != 0 {
			t.Errorf("layer %s: highest point = (%g, %g, %g), want pure red",
				layer.Label, c[last], c[last+1], c[last+2])
		}
	}
}

// TestE2ESelectAndLoad drives the load through the file dialog seam.
func TestE2ESelectAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "survey.las")
	writeLasFixture(t, path, terrainPoints(20000))

	app, dialogs := newE2EApp()
	dialogs.paths = []string{path}

	summary := app.SelectAndLoad()
	if len(summary.Loaded) != 1 || summary.Loaded[0].Label != "survey.las" {
		t.Fatalf("expected survey.las to load, got %+v", summary.Loaded)
	}

	layers := app.Layers()
	if len(layers) != 1 || layers[0].PointCount != 256 {
		t.Fatalf("unexpected layer listing: %+v", layers)
	}
}

func TestE2ESelectAndLoadCancelled(t *testing.T) {
	app, _ := newE2EApp()

	// An empty selection (user cancelled) is not an error.
	summary := app.SelectAndLoad()
	if len(summary.Loaded) != 0 || len(summary.Errors) != 0 {
		t.Fatalf("expected empty summary for cancelled dialog, got %+v", summary)
	}
	if len(app.Layers()) != 0 {
		t.Fatal("no layers expected after cancelled dialog")
	}
}

func TestE2ESelectAndLoadDialogFailure(t *testing.T) {
	app, dialogs := newE2EApp()
	dialogs.openErr = fmt.Errorf("display server gone")

	summary := app.SelectAndLoad()
	if len(summary.Errors) != 1 || !strings.Contains(summary.Errors[0], "display server gone") {
		t.Fatalf("expected dialog error in summary, got %+v", summary.Errors)
	}
}

// TestE2ELoadFailureRaisesDialog checks the per-file error dialog and that
// the batch continues past the failure.
func TestE2ELoadFailureRaisesDialog(t *testing.T) {
	muteLoadLogs(t)
	dir := t.TempDir()
	good := filepath.Join(dir, "good.las")
	writeLasFixture(t, good, terrainPoints(10000))
	missing := filepath.Join(dir, "missing.las")

	app, dialogs := newE2EApp()
	summary := app.LoadPaths([]string{missing, good})

	if len(summary.Loaded) != 1 || summary.Loaded[0].Label != "good.las" {
		t.Fatalf("expected good.las to load, got %+v", summary.Loaded)
	}
	if len(summary.Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", summary.Errors)
	}
	if len(dialogs.errors) != 1 || !strings.Contains(dialogs.errors[0], "missing.las") {
		t.Fatalf("expected an error dialog naming the file, got %v", dialogs.errors)
	}
}

// TestE2EConsoleDrivesScene drives the viewer through the console binding.
func TestE2EConsoleDrivesScene(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.las")
	writeLasFixture(t, path, terrainPoints(30000))

	app, _ := newE2EApp()

	res := app.Eval(fmt.Sprintf("(load-las %q)", path))
	if len(res.Errors) != 0 {
		t.Fatalf("console load failed: %v", res.Errors)
	}
	if len(res.Output) == 0 || !strings.Contains(res.Output[0], "loaded site.las (256 points)") {
		t.Fatalf("unexpected console output: %v", res.Output)
	}

	res = app.Eval(`(point-size 8)
(hide "site.las")`)
	if len(res.Errors) != 0 {
		t.Fatalf("console commands failed: %v", res.Errors)
	}

	scene := app.Scene()
	if scene.PointSize != 8 {
		t.Errorf("expected point size 8, got %d", scene.PointSize)
	}
	if len(scene.Layers) != 0 {
		t.Errorf("expected no visible layers after hide, got %d", len(scene.Layers))
	}

	layers := app.Layers()
	if len(layers) != 1 || layers[0].Visible {
		t.Fatalf("layer should exist but be hidden, got %+v", layers)
	}
}

// TestE2EMeasurementFlow exercises the two-pick measurement and its overlay.
func TestE2EMeasurementFlow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.las")
	writeLasFixture(t, path, terrainPoints(10000))

	app, _ := newE2EApp()
	app.LoadPaths([]string{path})

	first := app.PickPoint(0, 0, 0)
	if first.Picked {
		t.Fatalf("first pick should wait for its partner, got %+v", first)
	}

	second := app.PickPoint(3, 4, 12)
	if !second.Picked {
		t.Fatal("second pick should complete the measurement")
	}
	if math.Abs(second.Distance-13) > 1e-9 {
		t.Errorf("distance = %g, want 13", second.Distance)
	}
	if math.Abs(second.HeightDiff-12) > 1e-9 {
		t.Errorf("height difference = %g, want 12", second.HeightDiff)
	}

	scene := app.Scene()
	if len(scene.Lines) != 1 {
		t.Fatalf("expected 1 overlay line, got %d", len(scene.Lines))
	}
	if scene.Lines[0].Color != "#FFFF00" {
		t.Errorf("overlay color = %s, want #FFFF00", scene.Lines[0].Color)
	}
}

// TestE2EClassification checks the informational classification action.
func TestE2EClassification(t *testing.T) {
	app, dialogs := newE2EApp()

	msg := app.StartClassification()
	if !strings.Contains(msg, "classification") {
		t.Errorf("unexpected classification message: %q", msg)
	}
	if len(dialogs.infos) != 1 {
		t.Fatalf("expected an info dialog, got %v", dialogs.infos)
	}
}
