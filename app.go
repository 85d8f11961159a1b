package main

import (
	"context"
	"fmt"
	"log"

	"github.com/chazu/cota/pkg/colormap"
	"github.com/chazu/cota/pkg/console"
	"github.com/chazu/cota/pkg/lasio"
	"github.com/chazu/cota/pkg/lasio/lidar"
	"github.com/chazu/cota/pkg/scene"
	"github.com/chazu/cota/pkg/viewer"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// App is the Wails backend. It exposes the viewer commands to the frontend
// via bindings and pushes scene updates over the event bus.
type App struct {
	ctx     context.Context
	ctrl    *viewer.Controller
	console *console.Console
	dialogs Dialogs
}

// LayerData is the JSON-serializable per-layer point set sent to the
// frontend: flat xyz triples and matching rgb triples, one of each per point.
type LayerData struct {
	Label     string    `json:"label"`
	Positions []float32 `json:"positions"`
	Colors    []float32 `json:"colors"`
}

// LineData is an overlay line in scene coordinates.
type LineData struct {
	From  []float64 `json:"from"`
	To    []float64 `json:"to"`
	Color string    `json:"color"`
}

// SceneData is the full scene snapshot sent to the frontend on every rebuild.
type SceneData struct {
	Layers    []LayerData `json:"layers"`
	Lines     []LineData  `json:"lines"`
	PointSize int         `json:"pointSize"`
	Center    []float64   `json:"center"`
	Radius    float64     `json:"radius"`
}

// LoadSummary reports a batch load to the frontend.
type LoadSummary struct {
	Loaded []viewer.LayerInfo `json:"loaded"`
	Errors []string           `json:"errors"`
}

// MeasurementData reports a pick to the frontend. Picked is false while the
// first point of a pair is waiting for its partner.
type MeasurementData struct {
	Picked     bool    `json:"picked"`
	Distance   float64 `json:"distance"`
	HeightDiff float64 `json:"heightDiff"`
}

// EvalErrorData is a JSON-serializable console error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// ConsoleResult is the full console evaluation result returned to the frontend.
type ConsoleResult struct {
	Output []string        `json:"output"`
	Errors []EvalErrorData `json:"errors"`
}

// NewApp creates the production App wired to the native LAS reader and
// Wails dialogs.
func NewApp() *App {
	return newApp(lidar.New(), wailsDialogs{})
}

// newApp wires an App from its seams. Tests inject stubs here.
func newApp(r lasio.Reader, d Dialogs) *App {
	a := &App{dialogs: d}
	a.ctrl = viewer.New(r, wailsEvents{a})
	a.console = console.New(a.ctrl)
	return a
}

// startup is called by Wails on app startup. The context is saved so the
// event forwarders and dialogs can reach the runtime.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// SelectAndLoad opens the file dialog and loads the selected LAS files.
func (a *App) SelectAndLoad() LoadSummary {
	paths, err := a.dialogs.OpenLasFiles(a.ctx)
	if err != nil {
		log.Printf("file dialog error: %v", err)
		return LoadSummary{Loaded: []viewer.LayerInfo{}, Errors: []string{err.Error()}}
	}
	return a.LoadPaths(paths)
}

// LoadPaths loads the given LAS files. Each file that fails raises an error
// dialog; the rest of the batch still loads.
func (a *App) LoadPaths(paths []string) LoadSummary {
	summary := LoadSummary{Loaded: []viewer.LayerInfo{}, Errors: []string{}}
	if len(paths) == 0 {
		return summary
	}

	res := a.ctrl.LoadFiles(paths)
	summary.Loaded = append(summary.Loaded, res.Loaded...)
	for _, err := range res.Errors {
		summary.Errors = append(summary.Errors, err.Error())
		a.dialogs.ShowError(a.ctx, "Load failed", err.Error())
	}
	return summary
}

// ToggleLayer sets a layer's visibility.
func (a *App) ToggleLayer(label string, visible bool) error {
	return a.ctrl.ToggleLayer(label, visible)
}

// SetPointSize sets the rendered point size for all layers.
func (a *App) SetPointSize(size int) error {
	return a.ctrl.SetPointSize(size)
}

// RemoveLayer removes a layer from the scene.
func (a *App) RemoveLayer(label string) error {
	return a.ctrl.RemoveLayer(label)
}

// PickPoint feeds one picked scene point into the measurement pair.
func (a *App) PickPoint(x, y, z float64) MeasurementData {
	m := a.ctrl.PickPoint(v3.Vec{X: x, Y: y, Z: z})
	if m == nil {
		return MeasurementData{}
	}
	return MeasurementData{Picked: true, Distance: m.Distance, HeightDiff: m.HeightDiff}
}

// StartClassification reports how elevation classification works.
func (a *App) StartClassification() string {
	msg := a.ctrl.Classify()
	a.dialogs.ShowInfo(a.ctx, "Elevation classification", msg)
	return msg
}

// Layers lists the loaded layers in label order.
func (a *App) Layers() []viewer.LayerInfo {
	return a.ctrl.Layers()
}

// Scene returns the current composition in the frontend wire format.
func (a *App) Scene() SceneData {
	return sceneData(a.ctrl.Scene())
}

// Eval runs console source and returns its output and errors.
// This is the binding behind the command console input.
func (a *App) Eval(source string) ConsoleResult {
	result := ConsoleResult{Output: []string{}, Errors: []EvalErrorData{}}

	res, err := a.console.Eval(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		log.Printf("console fatal error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	result.Output = append(result.Output, res.Output...)
	for _, e := range res.Errors {
		result.Errors = append(result.Errors, EvalErrorData{
			Line:    e.Line,
			Col:     e.Col,
			Message: e.Message,
		})
	}
	return result
}

// ---------------------------------------------------------------------------
// Event forwarding
// ---------------------------------------------------------------------------

// wailsEvents forwards controller notifications to the frontend event bus.
// Before startup the context is nil and events are dropped.
type wailsEvents struct {
	a *App
}

func (e wailsEvents) SceneChanged(s scene.Snapshot) {
	if e.a.ctx == nil {
		return
	}
	runtime.EventsEmit(e.a.ctx, "scene:update", sceneData(s))
}

func (e wailsEvents) LoadProgress(done, total int, path string) {
	if e.a.ctx == nil {
		return
	}
	runtime.EventsEmit(e.a.ctx, "load:progress", map[string]interface{}{
		"done":  done,
		"total": total,
		"path":  path,
	})
}

func (e wailsEvents) Status(text string) {
	if e.a.ctx == nil {
		return
	}
	runtime.EventsEmit(e.a.ctx, "status", text)
}

// ---------------------------------------------------------------------------
// Wire conversion
// ---------------------------------------------------------------------------

// sceneData flattens a scene snapshot into the frontend wire format.
func sceneData(s scene.Snapshot) SceneData {
	out := SceneData{
		Layers:    []LayerData{},
		Lines:     []LineData{},
		PointSize: s.PointSize,
		Center:    vecSlice(s.Center()),
		Radius:    s.Radius(),
	}
	for _, m := range s.Meshes {
		ld := LayerData{
			Label:     m.Label,
			Positions: make([]float32, 0, 3*len(m.Points)),
			Colors:    make([]float32, 0, 3*len(m.Colors)),
		}
		for _, p := range m.Points {
			ld.Positions = append(ld.Positions, float32(p.X), float32(p.Y), float32(p.Z))
		}
		for _, c := range m.Colors {
			ld.Colors = append(ld.Colors, float32(c.R), float32(c.G), float32(c.B))
		}
		out.Layers = append(out.Layers, ld)
	}
	for _, l := range s.Overlays {
		out.Lines = append(out.Lines, LineData{
			From:  vecSlice(l.From),
			To:    vecSlice(l.To),
			Color: hexColor(l.Color),
		})
	}
	return out
}

func vecSlice(v v3.Vec) []float64 {
	return []float64{v.X, v.Y, v.Z}
}

func hexColor(c colormap.Color) string {
	return fmt.Sprintf("#%02X%02X%02X", int(c.R*255+0.5), int(c.G*255+0.5), int(c.B*255+0.5))
}
