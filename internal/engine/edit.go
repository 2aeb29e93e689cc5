package engine

import (
	"fmt"

	"github.com/graphif/stagecore/internal/geom"
	"github.com/graphif/stagecore/internal/stage"
)

// textOf returns the editable text of o.
func textOf(o stage.Object) (string, bool) {
	switch v := o.(type) {
	case *stage.TextNode:
		return v.Text, true
	case *stage.Section:
		return v.Text, true
	case *stage.UrlNode:
		return v.Title, true
	case *stage.PortalNode:
		return v.Title, true
	case stage.DirectedEdge:
		return v.EdgeBase().Text, true
	case *stage.MultiTargetUndirectedEdge:
		return v.Text, true
	}
	return "", false
}

func (e *Engine) setText(o stage.Object, text string) {
	switch v := o.(type) {
	case *stage.TextNode:
		v.SetText(text)
		e.stage.MoveEntity(v, geom.Zero()) // refit enclosing sections
	case *stage.Section:
		v.Text = text
		v.AdjustToChildren()
		e.stage.MoveEntity(v, geom.Zero())
	case *stage.UrlNode:
		v.Title = text
	case *stage.PortalNode:
		v.Title = text
	case stage.DirectedEdge:
		v.EdgeBase().Text = text
	case *stage.MultiTargetUndirectedEdge:
		v.Text = text
	}
}

// Editing returns the uuid of the object being edited, or "".
func (e *Engine) Editing() string { return e.editing }

// BeginEdit starts editing the text of object id and returns the current text. The
// camera is locked and undo/redo are refused until EndEdit or CancelEdit.
func (e *Engine) BeginEdit(id string) (string, error) {
	if e.editing != "" {
		return "", ErrEditing
	}
	o, ok := e.stage.Get(id)
	if !ok {
		return "", fmt.Errorf("edit %s: %w", id, stage.ErrNotFound)
	}
	text, ok := textOf(o)
	if !ok {
		return "", fmt.Errorf("edit %s: %w", id, ErrNotEditable)
	}
	e.editing = id
	e.camera.Lock()
	e.dirty = true
	return text, nil
}

// EndEdit commits text to the edited object and records a history step.
func (e *Engine) EndEdit(text string) error {
	if e.editing == "" {
		return ErrNotEditing
	}
	id := e.editing
	e.editing = ""
	e.camera.Unlock()
	e.dirty = true

	o, ok := e.stage.Get(id)
	if !ok {
		return fmt.Errorf("edit %s: %w", id, stage.ErrNotFound)
	}
	e.setText(o, text)
	if _, err := e.history.Record(); err != nil {
		return fmt.Errorf("record edit: %w", err)
	}
	return nil
}

// CancelEdit leaves the edited object unchanged.
func (e *Engine) CancelEdit() error {
	if e.editing == "" {
		return ErrNotEditing
	}
	e.editing = ""
	e.camera.Unlock()
	e.dirty = true
	return nil
}
