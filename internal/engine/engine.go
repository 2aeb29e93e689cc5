// Package engine drives one open document: it owns the stage, the camera, the undo
// history and the clipboard, takes commands from the frontend and returns draw commands.
//
// An Engine is not safe for concurrent use. The browser build calls it from the JS event
// loop; the server keeps one per request or guards it with the room lock.
package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/graphif/stagecore/internal/attachment"
	"github.com/graphif/stagecore/internal/camera"
	"github.com/graphif/stagecore/internal/clipboard"
	"github.com/graphif/stagecore/internal/document"
	"github.com/graphif/stagecore/internal/geom"
	"github.com/graphif/stagecore/internal/history"
	"github.com/graphif/stagecore/internal/stage"
)

var (
	ErrEditing     = errors.New("an object is being edited")
	ErrNotEditing  = errors.New("no object is being edited")
	ErrNotEditable = errors.New("object has no editable text")
)

// Options configures a new Engine.
type Options struct {
	ViewSize   geom.Vector
	CameraMode camera.BoundsMode
	// World bounds the camera in wrap and clamp modes.
	World         geom.Rectangle
	HistorySize   int
	AllowSelfLoop bool
	// Attachments resolves image nodes and stores inserted images. Nil leaves images in
	// the loading state.
	Attachments attachment.Store
}

// Engine is the editing session for one document.
type Engine struct {
	opts Options

	stage     *stage.Manager
	camera    *camera.Camera
	history   *history.Manager
	clipboard *clipboard.Clipboard

	// Retained scene
	scene   *Scene
	effects effects

	// Dirty flag - stage changed since the scene was built
	dirty bool

	// uuid of the object whose text is being edited
	editing string
}

// New creates an engine with an empty stage.
func New(opts Options) (*Engine, error) {
	if opts.HistorySize <= 0 {
		opts.HistorySize = history.DefaultCapacity
	}
	e := &Engine{
		opts: opts,
		camera: camera.New(camera.Options{
			ViewSize: opts.ViewSize,
			Mode:     opts.CameraMode,
			World:    opts.World,
		}),
		clipboard: clipboard.New(),
	}
	if err := e.setStage(stage.NewManager()); err != nil {
		return nil, err
	}
	return e, nil
}

// setStage swaps in m and starts a new history with m as its base.
func (e *Engine) setStage(m *stage.Manager) error {
	m.AllowSelfLoop = e.opts.AllowSelfLoop
	h, err := history.New(stage.Codec{Stage: m, Attachments: e.checker()}, e.opts.HistorySize)
	if err != nil {
		return fmt.Errorf("start history: %w", err)
	}
	if e.history != nil {
		e.history.Close()
	}
	e.stage = m
	e.history = h
	e.editing = ""
	e.camera.Unlock()
	e.dirty = true
	return nil
}

func (e *Engine) checker() stage.AttachmentChecker {
	if e.opts.Attachments == nil {
		return nil
	}
	return attachment.Checker{Store: e.opts.Attachments}
}

func (e *Engine) Stage() *stage.Manager           { return e.stage }
func (e *Engine) Camera() *camera.Camera          { return e.camera }
func (e *Engine) History() *history.Manager       { return e.history }
func (e *Engine) Clipboard() *clipboard.Clipboard { return e.clipboard }
func (e *Engine) Attachments() attachment.Store   { return e.opts.Attachments }

// --- Loading ---

// LoadDocument replaces the stage with an interop document.
func (e *Engine) LoadDocument(jsonData string) error {
	doc, err := document.Parse([]byte(jsonData))
	if err != nil {
		return err
	}
	return e.loadDocument(doc)
}

// LoadSampleDocument loads the built-in sample mind map.
func (e *Engine) LoadSampleDocument() error {
	return e.loadDocument(document.NewSampleDocument())
}

func (e *Engine) loadDocument(doc *document.Document) error {
	m, err := stage.FromDocument(doc, e.checker())
	if err != nil {
		return err
	}
	if err := e.setStage(m); err != nil {
		return err
	}
	slog.Info("document loaded", "entities", len(doc.Entities), "associations", len(doc.Associations))
	return nil
}

// LoadStage replaces the stage with a snapshot produced by Snapshot.
func (e *Engine) LoadStage(data []byte) error {
	objs, tags, err := stage.Unmarshal(data, e.checker())
	if err != nil {
		return fmt.Errorf("load stage: %w", err)
	}
	m := stage.NewManager()
	report, err := m.Load(objs, tags)
	if err != nil {
		return err
	}
	if report.Changed() {
		slog.Warn("stage repaired on load", "report", fmt.Sprintf("%+v", report))
	}
	return e.setStage(m)
}

// Snapshot serializes the stage with references preserved.
func (e *Engine) Snapshot() ([]byte, error) {
	return stage.Marshal(e.stage)
}

// Document returns the stage as an interop document.
func (e *Engine) Document() (string, error) {
	data, err := stage.ToDocument(e.stage).Marshal()
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(data), nil
}

// ResolveAttachments rechecks every image node against the attachment store.
func (e *Engine) ResolveAttachments() {
	c := e.checker()
	for _, n := range e.stage.ImageNodes() {
		n.Resolve(c)
	}
	for _, n := range e.stage.SvgNodes() {
		n.Resolve(c)
	}
	e.dirty = true
}

// --- Frame loop ---

// Tick advances camera and effect animations and returns the frame's draw commands.
// This is called once per animation frame from the frontend.
func (e *Engine) Tick() string {
	e.camera.Tick()
	e.effects.tick()
	return e.Render()
}

// Render returns the draw commands of the current frame as JSON.
func (e *Engine) Render() string {
	result, _ := DrawCommandsToJSON(e.RenderList())
	return result
}

// RenderList returns the draw commands of the current frame. The scene is rebuilt only
// when the stage or the camera changed.
func (e *Engine) RenderList() []DrawCommand {
	scene := e.Scene()
	if !e.effects.active() {
		return scene.Commands
	}
	out := make([]DrawCommand, len(scene.Commands), len(scene.Commands)+8)
	copy(out, scene.Commands)
	return e.effects.draw(out, e.camera.Matrix().ToSlice())
}

// Scene returns the retained scene, rebuilding it if needed.
func (e *Engine) Scene() *Scene {
	if e.dirty || e.scene == nil || e.scene.cameraVersion != e.camera.Version() {
		e.scene = BuildScene(e.stage, e.camera)
		e.dirty = false
	}
	return e.scene
}

// Invalidate marks the stage as changed outside the engine.
func (e *Engine) Invalidate() { e.dirty = true }

// --- Queries ---

// HitTest returns the uuid of the topmost object under a view point, or "".
func (e *Engine) HitTest(viewX, viewY float64) string {
	if o := e.hit(geom.V(viewX, viewY)); o != nil {
		return o.UUID()
	}
	return ""
}

func (e *Engine) hit(viewPoint geom.Vector) stage.Object {
	p := e.camera.ViewToWorld(viewPoint)
	if ent := e.stage.FindEntityByLocation(p); ent != nil {
		// A section only wins when no edge passes through the point.
		if _, isSection := ent.(*stage.Section); !isSection {
			return ent
		}
		if a := e.stage.FindAssociationByLocation(p); a != nil {
			return a
		}
		return ent
	}
	if a := e.stage.FindAssociationByLocation(p); a != nil {
		return a
	}
	return nil
}

// GetSelection returns the selected uuids as JSON.
func (e *Engine) GetSelection() string {
	data, _ := json.Marshal(e.selectedIDs())
	return string(data)
}

func (e *Engine) selectedIDs() []string {
	ids := []string{}
	for _, o := range e.stage.SelectedObjects() {
		ids = append(ids, o.UUID())
	}
	return ids
}

// GetSelectionBounds returns the world bounding box of the selection as JSON.
func (e *Engine) GetSelectionBounds() string {
	var rects []geom.Rectangle
	for _, o := range e.stage.SelectedObjects() {
		if r, ok := o.CollisionBox().Rectangle(); ok {
			rects = append(rects, r)
		}
	}
	bounds, err := geom.BoundingRectangle(rects...)
	if err != nil {
		return RectToJSON(geom.Rectangle{})
	}
	return RectToJSON(bounds)
}

// CameraState returns the camera as JSON.
func (e *Engine) CameraState() string {
	data, _ := json.Marshal(map[string]interface{}{
		"x":       e.camera.Location.X,
		"y":       e.camera.Location.Y,
		"scale":   e.camera.CurrentScale,
		"locked":  e.camera.IsLocked(),
		"editing": e.editing,
	})
	return string(data)
}

// HistoryState returns undo/redo availability as JSON.
func (e *Engine) HistoryState() string {
	data, _ := json.Marshal(map[string]interface{}{
		"index":   e.history.Index(),
		"length":  e.history.Len(),
		"canUndo": e.history.CanUndo() && e.editing == "",
		"canRedo": e.history.CanRedo() && e.editing == "",
	})
	return string(data)
}
