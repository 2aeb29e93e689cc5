package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/graphif/stagecore/internal/attachment"
	"github.com/graphif/stagecore/internal/clipboard"
	"github.com/graphif/stagecore/internal/geom"
	"github.com/graphif/stagecore/internal/layout"
	"github.com/graphif/stagecore/internal/stage"
)

var (
	ErrUnknownLayout = errors.New("unknown layout")
	ErrNoAttachments = errors.New("no attachment store configured")
)

// DefaultSvgSize is used when an inserted SVG does not decode to a size.
var DefaultSvgSize = geom.V(100, 100)

// --- Selection ---

// Select replaces the selection with the given uuids; unknown ids are ignored.
func (e *Engine) Select(ids []string) {
	e.stage.ClearSelection()
	for _, id := range ids {
		if o, ok := e.stage.Get(id); ok {
			o.SetSelected(true)
		}
	}
	e.dirty = true
}

// SelectAt selects the object under a view point and returns its uuid. Without additive
// the previous selection is cleared first, even when nothing is hit.
func (e *Engine) SelectAt(viewX, viewY float64, additive bool) string {
	if !additive {
		e.stage.ClearSelection()
	}
	e.dirty = true
	o := e.hit(geom.V(viewX, viewY))
	if o == nil {
		return ""
	}
	o.SetSelected(!additive || !o.IsSelected())
	return o.UUID()
}

// SelectRect selects everything touched by the view-space rectangle between two corners.
func (e *Engine) SelectRect(x1, y1, x2, y2 float64, additive bool) int {
	a := e.camera.ViewToWorld(geom.V(x1, y1))
	b := e.camera.ViewToWorld(geom.V(x2, y2))
	e.dirty = true
	return len(e.stage.SelectByRectangle(geom.FromTwoPoints(a, b), additive))
}

// SelectAll selects every object.
func (e *Engine) SelectAll() {
	e.stage.SelectAll()
	e.dirty = true
}

// --- History ---

// Record adds a history step if the stage changed since the last one.
func (e *Engine) Record() (bool, error) {
	return e.history.Record()
}

// Undo steps back. It is refused while editing text.
func (e *Engine) Undo() (bool, error) {
	if e.editing != "" {
		return false, ErrEditing
	}
	ok, err := e.history.Undo()
	if ok {
		e.dirty = true
	}
	return ok, err
}

// Redo steps forward. It is refused while editing text.
func (e *Engine) Redo() (bool, error) {
	if e.editing != "" {
		return false, ErrEditing
	}
	ok, err := e.history.Redo()
	if ok {
		e.dirty = true
	}
	return ok, err
}

// record is called after an edit; a failed snapshot is reported to the caller but the
// edit itself stays applied.
func (e *Engine) record(action string) error {
	e.dirty = true
	if _, err := e.history.Record(); err != nil {
		return fmt.Errorf("record %s: %w", action, err)
	}
	return nil
}

// --- Clipboard ---

// Copy puts the selection on the clipboard and returns how many objects were copied.
func (e *Engine) Copy() (int, error) {
	return e.clipboard.Copy(e.stage.SelectedObjects())
}

// Cut copies the selection and deletes it.
func (e *Engine) Cut() (int, error) {
	n, err := e.Copy()
	if err != nil || n == 0 {
		return n, err
	}
	if _, err := e.Delete(); err != nil {
		return n, err
	}
	return n, nil
}

// Paste places the clipboard so its top-left corner lands on a view point. The pasted
// objects become the selection.
func (e *Engine) Paste(viewX, viewY float64) ([]string, error) {
	at := e.camera.ViewToWorld(geom.V(viewX, viewY))
	objs, err := e.clipboard.Paste(e.stage, at.Subtract(e.clipboard.Origin()), e.checker())
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(objs))
	for i, o := range objs {
		ids[i] = o.UUID()
	}
	return ids, e.record("paste")
}

// CopyText mirrors the plain text of the selection to the system clipboard.
func (e *Engine) CopyText(mirror clipboard.TextMirror) error {
	return mirror.Mirror(e.stage.SelectedObjects())
}

// --- Editing ---

// Delete removes the selection with the stage's cascade rules and fades it out.
func (e *Engine) Delete() (int, error) {
	selected := e.stage.SelectedObjects()
	if len(selected) == 0 {
		return 0, nil
	}
	before := e.stage.Objects()
	scene := e.Scene()
	n, err := e.stage.Delete(selected)
	if err != nil {
		return 0, err
	}
	removed := slices.DeleteFunc(before, e.stage.Contains)
	e.effects.add(fadeOut(scene, removed))
	return n, e.record("delete")
}

// Connect adds a directed edge between two entities.
func (e *Engine) Connect(sourceID, targetID string, curved bool) (string, error) {
	kind := stage.EdgeLine
	if curved {
		kind = stage.EdgeCatmullRom
	}
	edge, err := e.stage.ConnectByUUID(sourceID, targetID, kind)
	if err != nil {
		return "", err
	}
	return edge.UUID(), e.record("connect")
}

// ConnectSelected ties the selected connectable entities with a multi-target edge.
func (e *Engine) ConnectSelected() (string, error) {
	var members []stage.Connectable
	for _, ent := range e.stage.SelectedEntities() {
		if c, ok := ent.(stage.Connectable); ok {
			members = append(members, c)
		}
	}
	edge, err := e.stage.ConnectMultiTarget(members)
	if err != nil {
		return "", err
	}
	return edge.UUID(), e.record("connect")
}

// MoveSelected moves the selection by a view-space offset. Dragging calls it many
// times; call Record when the drag ends.
func (e *Engine) MoveSelected(dx, dy float64) {
	e.stage.MoveSelected(geom.V(dx, dy).Divide(e.camera.CurrentScale))
	e.dirty = true
}

// AddTextNode creates a text node at a view point, selects it and returns its uuid.
func (e *Engine) AddTextNode(text string, viewX, viewY float64) (string, error) {
	n := stage.NewTextNode("", text, e.camera.ViewToWorld(geom.V(viewX, viewY)))
	if err := e.add(n); err != nil {
		return "", err
	}
	return n.UUID(), e.record("add text node")
}

// GroupSelected packs the selected entities into a new section.
func (e *Engine) GroupSelected(title string) (string, error) {
	s, err := e.stage.PackIntoNewSection(layout.Selected(e.stage), title)
	if err != nil {
		return "", err
	}
	return s.UUID(), e.record("group")
}

// ToggleCollapse collapses or expands a section.
func (e *Engine) ToggleCollapse(id string) error {
	ent, ok := e.stage.EntityByUUID(id)
	s, isSection := ent.(*stage.Section)
	if !ok || !isSection {
		return fmt.Errorf("collapse %s: %w", id, stage.ErrNotFound)
	}
	e.stage.SetCollapsed(s, !s.IsCollapsed)
	return e.record("collapse")
}

// AddImage stores data as an attachment and places an image node (or an SVG node for
// SVG data) with its top-left corner at a view point.
func (e *Engine) AddImage(ctx context.Context, data []byte, viewX, viewY float64) (string, error) {
	store := e.opts.Attachments
	if store == nil {
		return "", ErrNoAttachments
	}
	info := attachment.Describe("", data)
	id, err := store.Put(ctx, info.MIME, data)
	if err != nil {
		return "", fmt.Errorf("add image: %w", err)
	}
	at := e.camera.ViewToWorld(geom.V(viewX, viewY))
	size := geom.V(float64(info.Width), float64(info.Height))

	var node stage.Entity
	if info.MIME == attachment.MIMESVG {
		if size.X <= 0 || size.Y <= 0 {
			size = DefaultSvgSize
		}
		n := stage.NewSvgNode("", id, at, size)
		n.Resolve(e.checker())
		node = n
	} else {
		n := stage.NewImageNode("", id, at, size)
		n.Resolve(e.checker())
		node = n
	}
	if err := e.add(node); err != nil {
		return "", err
	}
	return node.UUID(), e.record("add image")
}

func (e *Engine) add(o stage.Object) error {
	if err := e.stage.Add(o); err != nil {
		return err
	}
	e.stage.ClearSelection()
	o.SetSelected(true)
	return nil
}

// Layout applies a named arrangement to the selection.
func (e *Engine) Layout(op string) error {
	es := layout.Selected(e.stage)
	switch op {
	case "alignLeft":
		layout.AlignLeft(e.stage, es)
	case "alignRight":
		layout.AlignRight(e.stage, es)
	case "alignTop":
		layout.AlignTop(e.stage, es)
	case "alignBottom":
		layout.AlignBottom(e.stage, es)
	case "alignCenterHorizontal":
		layout.AlignCenterHorizontal(e.stage, es)
	case "alignCenterVertical":
		layout.AlignCenterVertical(e.stage, es)
	case "distributeHorizontal":
		layout.DistributeHorizontal(e.stage, es)
	case "distributeVertical":
		layout.DistributeVertical(e.stage, es)
	case "packLeftToRight":
		layout.PackLeftToRight(e.stage, es)
	case "packTopToBottom":
		layout.PackTopToBottom(e.stage, es)
	case "grid":
		layout.Grid(e.stage, es)
	case "tightPack":
		layout.TightPack(e.stage, es)
	case "matchTextWidth":
		layout.MatchTextWidth(es, layout.WidthMax)
	default:
		return fmt.Errorf("%s: %w", op, ErrUnknownLayout)
	}
	return e.record(op)
}

// --- Camera ---

// Pan moves the camera by a view-space drag offset.
func (e *Engine) Pan(dx, dy float64) bool {
	return e.camera.PanView(geom.V(dx, dy))
}

// ZoomAt zooms by factor keeping the point under the cursor in place.
func (e *Engine) ZoomAt(viewX, viewY, factor float64) bool {
	return e.camera.ZoomAt(geom.V(viewX, viewY), factor)
}

// SetViewSize follows a canvas resize.
func (e *Engine) SetViewSize(width, height float64) {
	e.camera.SetViewSize(geom.V(width, height))
	e.dirty = true
}

// ResetCamera returns to the origin at scale 1.
func (e *Engine) ResetCamera() {
	e.camera.Reset()
}

// FocusOn flies the camera to an object and flashes its outline.
func (e *Engine) FocusOn(id string) error {
	o, ok := e.stage.Get(id)
	if !ok {
		return fmt.Errorf("focus %s: %w", id, stage.ErrNotFound)
	}
	r, ok := o.CollisionBox().Rectangle()
	if !ok {
		return fmt.Errorf("focus %s: %w", id, geom.ErrEmpty)
	}
	e.camera.BombMove(r.Center(), 0)
	e.effects.add(flash(r))
	return nil
}

// FocusAll flies the camera to the center of the stage.
func (e *Engine) FocusAll() {
	e.camera.BombMove(e.stage.Center(), 0)
}
