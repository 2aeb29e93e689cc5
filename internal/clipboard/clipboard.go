// Package clipboard holds a copied sub-graph of the stage between a copy and a paste.
package clipboard

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/graphif/stagecore/internal/geom"
	"github.com/graphif/stagecore/internal/serializer"
	"github.com/graphif/stagecore/internal/stage"
)

var (
	ErrEmpty       = errors.New("clipboard is empty")
	ErrUnsupported = errors.New("system clipboard is not available")
)

// Clipboard is a single slot. Paste consumes it.
type Clipboard struct {
	tree   any
	origin geom.Vector
	count  int
}

func New() *Clipboard {
	return &Clipboard{}
}

// Empty reports whether there is nothing to paste.
func (c *Clipboard) Empty() bool { return c.tree == nil }

// Len is the number of objects waiting to be pasted.
func (c *Clipboard) Len() int { return c.count }

// Origin is the top-left corner of the copied entities.
func (c *Clipboard) Origin() geom.Vector { return c.origin }

// Clear drops the slot.
func (c *Clipboard) Clear() {
	c.tree, c.count = nil, 0
}

// Copy replaces the slot with objs. Sections bring their descendants along, and an
// association is kept only when every endpoint is copied too. The whole selection goes
// through one serialization so shared references survive.
func (c *Clipboard) Copy(objs []stage.Object) (int, error) {
	picked := Closure(objs)
	if len(picked) == 0 {
		c.Clear()
		return 0, nil
	}
	tree, err := stage.Serialize(picked, nil)
	if err != nil {
		return 0, fmt.Errorf("copy: %w", err)
	}

	var rects []geom.Rectangle
	for _, o := range picked {
		if e, ok := o.(stage.Entity); ok {
			rects = append(rects, e.Rectangle())
		}
	}
	c.origin = geom.Zero()
	if r, err := geom.BoundingRectangle(rects...); err == nil {
		c.origin = r.Location
	}
	c.tree = tree
	c.count = len(picked)
	return len(picked), nil
}

// Closure expands objs with section descendants and drops associations that would
// dangle. Order follows objs, descendants right after their section.
func Closure(objs []stage.Object) []stage.Object {
	seen := make(map[string]bool)
	var out []stage.Object
	var addEntity func(e stage.Entity)
	addEntity = func(e stage.Entity) {
		if seen[e.UUID()] {
			return
		}
		seen[e.UUID()] = true
		out = append(out, e)
		if s, ok := e.(*stage.Section); ok {
			for _, child := range s.Children {
				addEntity(child)
			}
		}
	}
	for _, o := range objs {
		if e, ok := o.(stage.Entity); ok {
			addEntity(e)
		}
	}
	for _, o := range objs {
		a, ok := o.(stage.Association)
		if !ok || seen[a.UUID()] {
			continue
		}
		if slices.ContainsFunc(a.Endpoints(), func(e stage.Connectable) bool { return !seen[e.UUID()] }) {
			continue
		}
		seen[a.UUID()] = true
		out = append(out, a)
	}
	return out
}

// Paste rebuilds the copied objects with fresh uuids, moves them by offset, adds them to
// m and selects them. The slot is emptied.
func (c *Clipboard) Paste(m *stage.Manager, offset geom.Vector, checker stage.AttachmentChecker) ([]stage.Object, error) {
	if c.Empty() {
		return nil, ErrEmpty
	}
	tree := renewIdentities(c.tree, make(map[string]string))
	objs, _, err := stage.Deserialize(tree, checker)
	if err != nil {
		return nil, fmt.Errorf("paste: %w", err)
	}
	for _, o := range objs {
		if e, ok := o.(stage.Entity); ok {
			e.MoveBy(offset)
		}
	}

	m.ClearSelection()
	for i, o := range objs {
		if err := m.Add(o); err != nil {
			for _, added := range objs[:i] {
				m.Remove(added)
			}
			return nil, fmt.Errorf("paste: %w", err)
		}
		o.SetSelected(true)
	}
	c.Clear()
	return objs, nil
}

// renewIdentities copies tree, giving every stage object a new uuid. References are
// path markers, so they stay valid.
func renewIdentities(tree any, ids map[string]string) any {
	switch x := tree.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, v := range x {
			out[k] = renewIdentities(v, ids)
		}
		if _, isObject := x[serializer.ClassKey]; isObject {
			if old, ok := x["uuid"].(string); ok {
				id, ok := ids[old]
				if !ok {
					id = stage.NewUUID()
					ids[old] = id
				}
				out["uuid"] = id
			}
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, v := range x {
			out[i] = renewIdentities(v, ids)
		}
		return out
	default:
		return x
	}
}

// PlainText joins the text of the text-bearing objects, one per line.
func PlainText(objs []stage.Object) string {
	var lines []string
	for _, o := range objs {
		switch x := o.(type) {
		case *stage.TextNode:
			lines = append(lines, x.Text)
		case *stage.Section:
			lines = append(lines, x.Text)
		case *stage.UrlNode:
			lines = append(lines, x.URL)
		}
	}
	return strings.Join(lines, "\n")
}

// TextMirror copies plain text to the system clipboard. Write defaults to the OS
// clipboard.
type TextMirror struct {
	Write func(text string) error
}

func (t TextMirror) Mirror(objs []stage.Object) error {
	text := PlainText(objs)
	if text == "" {
		return nil
	}
	write := t.Write
	if write == nil {
		write = systemWrite
	}
	if err := write(text); err != nil {
		return fmt.Errorf("write system clipboard: %w", err)
	}
	return nil
}
