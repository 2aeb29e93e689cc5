package stage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/graphif/stagecore/internal/collision"
	"github.com/graphif/stagecore/internal/geom"
	"github.com/graphif/stagecore/internal/serializer"
)

// ErrMissingField is returned when a stored object lacks a field it cannot be built without.
var ErrMissingField = errors.New("missing required field")

// Registry returns the serializer registry holding every stage class.
var Registry = sync.OnceValue(func() *serializer.Registry {
	r := serializer.NewRegistry()
	registerGeometry(r)
	registerEntities(r)
	registerAssociations(r)
	return r
})

// argReader converts constructor arguments and keeps the first failure.
type argReader struct {
	err error
}

func read[T any](r *argReader, field string, v any) T {
	t, err := serializer.As[T](v)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%s: %w", field, err)
	}
	return t
}

func readList[T any](r *argReader, field string, v any) []T {
	ts, err := serializer.ListOf[T](v)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%s: %w", field, err)
	}
	return ts
}

func (r *argReader) box(v any) *collision.Box {
	b := read[*collision.Box](r, "collisionBox", v)
	if r.err == nil && (b == nil || b.IsEmpty()) {
		r.err = fmt.Errorf("collisionBox: %w", ErrMissingField)
	}
	return b
}

func (r *argReader) details(v any) Details {
	return Details(read[[]any](r, "details", v))
}

func (r *argReader) endpoint(field string, v any) Connectable {
	c := read[Connectable](r, field, v)
	if r.err == nil && c == nil {
		r.err = fmt.Errorf("%s: %w", field, ErrMissingField)
	}
	return c
}

func registerGeometry(r *serializer.Registry) {
	serializer.MustRegister(r, serializer.Class[geom.Vector]{
		Name: "Vector",
		Fields: []serializer.Field[geom.Vector]{
			serializer.F("x", func(v geom.Vector) any { return v.X }),
			serializer.F("y", func(v geom.Vector) any { return v.Y }),
		},
		New: func(args []any, _ any) (geom.Vector, error) {
			return geom.V(serializer.Float(args[0]), serializer.Float(args[1])), nil
		},
	})
	serializer.MustRegister(r, serializer.Class[geom.Rectangle]{
		Name: "Rectangle",
		Fields: []serializer.Field[geom.Rectangle]{
			serializer.F("location", func(v geom.Rectangle) any { return v.Location }),
			serializer.F("size", func(v geom.Rectangle) any { return v.Size }),
		},
		New: func(args []any, _ any) (geom.Rectangle, error) {
			var ar argReader
			rect := geom.Rectangle{
				Location: read[geom.Vector](&ar, "location", args[0]),
				Size:     read[geom.Vector](&ar, "size", args[1]),
			}
			return rect, ar.err
		},
	})
	serializer.MustRegister(r, serializer.Class[geom.Circle]{
		Name: "Circle",
		Fields: []serializer.Field[geom.Circle]{
			serializer.F("location", func(v geom.Circle) any { return v.Location }),
			serializer.F("radius", func(v geom.Circle) any { return v.Radius }),
		},
		New: func(args []any, _ any) (geom.Circle, error) {
			var ar argReader
			c := geom.Circle{Location: read[geom.Vector](&ar, "location", args[0]), Radius: serializer.Float(args[1])}
			return c, ar.err
		},
	})
	serializer.MustRegister(r, serializer.Class[geom.Line]{
		Name: "Line",
		Fields: []serializer.Field[geom.Line]{
			serializer.F("start", func(v geom.Line) any { return v.Start }),
			serializer.F("end", func(v geom.Line) any { return v.End }),
		},
		New: func(args []any, _ any) (geom.Line, error) {
			var ar argReader
			l := geom.Line{Start: read[geom.Vector](&ar, "start", args[0]), End: read[geom.Vector](&ar, "end", args[1])}
			return l, ar.err
		},
	})
	serializer.MustRegister(r, serializer.Class[*collision.Box]{
		Name: "CollisionBox",
		Fields: []serializer.Field[*collision.Box]{
			serializer.F("shapes", func(b *collision.Box) any { return serializer.List(b.Shapes) }),
		},
		New: func(args []any, _ any) (*collision.Box, error) {
			var ar argReader
			shapes := readList[geom.Shape](&ar, "shapes", args[0])
			return collision.New(shapes...), ar.err
		},
	})
	serializer.MustRegister(r, serializer.Class[Color]{
		Name: "Color",
		Fields: []serializer.Field[Color]{
			serializer.F("r", func(c Color) any { return c.R }),
			serializer.F("g", func(c Color) any { return c.G }),
			serializer.F("b", func(c Color) any { return c.B }),
			serializer.F("a", func(c Color) any { return c.A }),
		},
		New: func(args []any, _ any) (Color, error) {
			return RGBA(serializer.Float(args[0]), serializer.Float(args[1]), serializer.Float(args[2]), serializer.Float(args[3])), nil
		},
	})
	serializer.MustRegister(r, serializer.Class[PenStrokeSegment]{
		Name: "PenStrokeSegment",
		Fields: []serializer.Field[PenStrokeSegment]{
			serializer.F("location", func(s PenStrokeSegment) any { return s.Location }),
			serializer.F("pressure", func(s PenStrokeSegment) any { return s.Pressure }),
		},
		New: func(args []any, _ any) (PenStrokeSegment, error) {
			var ar argReader
			seg := PenStrokeSegment{Location: read[geom.Vector](&ar, "location", args[0]), Pressure: serializer.Float(args[1])}
			return seg, ar.err
		},
	})
}

func restoredEntity(id string, box *collision.Box, d Details) entityBase {
	return entityBase{base: newBase(id), box: box, details: d}
}

func registerEntities(r *serializer.Registry) {
	serializer.MustRegister(r, serializer.Class[*TextNode]{
		Name:     "TextNode",
		Identity: "uuid",
		Fields: []serializer.Field[*TextNode]{
			serializer.F("uuid", func(n *TextNode) any { return n.uuid }),
			serializer.F("text", func(n *TextNode) any { return n.Text }),
			serializer.F("details", func(n *TextNode) any { return []any(n.details) }),
			serializer.F("collisionBox", func(n *TextNode) any { return n.box }),
			serializer.F("color", func(n *TextNode) any { return n.Color }),
			serializer.F("sizeAdjust", func(n *TextNode) any { return string(n.SizeAdjust) }),
		},
		New: func(args []any, _ any) (*TextNode, error) {
			var ar argReader
			n := &TextNode{
				entityBase: restoredEntity(serializer.String(args[0]), ar.box(args[3]), ar.details(args[2])),
				Text:       serializer.String(args[1]),
				Color:      read[Color](&ar, "color", args[4]),
				SizeAdjust: SizeAdjust(serializer.String(args[5])),
			}
			if n.SizeAdjust == "" {
				n.SizeAdjust = SizeAuto
			}
			return n, ar.err
		},
	})
	serializer.MustRegister(r, serializer.Class[*Section]{
		Name:     "Section",
		Identity: "uuid",
		Mode:     serializer.WholeObject,
		Fields: []serializer.Field[*Section]{
			serializer.F("uuid", func(s *Section) any { return s.uuid }),
			serializer.F("text", func(s *Section) any { return s.Text }),
			serializer.F("details", func(s *Section) any { return []any(s.details) }),
			serializer.F("collisionBox", func(s *Section) any { return s.box }),
			serializer.F("color", func(s *Section) any { return s.Color }),
			serializer.F("children", func(s *Section) any { return serializer.List(s.Children) }),
			serializer.F("isHidden", func(s *Section) any { return s.IsHidden }),
			serializer.F("isCollapsed", func(s *Section) any { return s.IsCollapsed }),
		},
		FromObject: func(bag map[string]any, _ any) (*Section, error) {
			var ar argReader
			s := &Section{
				entityBase:  restoredEntity(serializer.String(bag["uuid"]), ar.box(bag["collisionBox"]), ar.details(bag["details"])),
				Text:        serializer.String(bag["text"]),
				Color:       read[Color](&ar, "color", bag["color"]),
				Children:    readList[Entity](&ar, "children", bag["children"]),
				IsHidden:    serializer.Bool(bag["isHidden"]),
				IsCollapsed: serializer.Bool(bag["isCollapsed"]),
			}
			return s, ar.err
		},
	})
	serializer.MustRegister(r, serializer.Class[*ImageNode]{
		Name:     "ImageNode",
		Identity: "uuid",
		Extra:    true,
		Fields: []serializer.Field[*ImageNode]{
			serializer.F("uuid", func(n *ImageNode) any { return n.uuid }),
			serializer.F("details", func(n *ImageNode) any { return []any(n.details) }),
			serializer.F("attachmentId", func(n *ImageNode) any { return n.AttachmentID }),
			serializer.F("collisionBox", func(n *ImageNode) any { return n.box }),
			serializer.F("scale", func(n *ImageNode) any { return n.scale }),
		},
		New: func(args []any, extra any) (*ImageNode, error) {
			var ar argReader
			n := &ImageNode{
				entityBase:   restoredEntity(serializer.String(args[0]), ar.box(args[3]), ar.details(args[1])),
				AttachmentID: serializer.String(args[2]),
				State:        ImageLoading,
			}
			if ar.err != nil {
				return nil, ar.err
			}
			n.scale, n.originalSize = restoreScale(n.Rectangle().Size, serializer.Float(args[4]))
			checker, _ := extra.(AttachmentChecker)
			n.Resolve(checker)
			return n, nil
		},
	})
	serializer.MustRegister(r, serializer.Class[*SvgNode]{
		Name:     "SvgNode",
		Identity: "uuid",
		Extra:    true,
		Fields: []serializer.Field[*SvgNode]{
			serializer.F("uuid", func(n *SvgNode) any { return n.uuid }),
			serializer.F("details", func(n *SvgNode) any { return []any(n.details) }),
			serializer.F("attachmentId", func(n *SvgNode) any { return n.AttachmentID }),
			serializer.F("collisionBox", func(n *SvgNode) any { return n.box }),
			serializer.F("scale", func(n *SvgNode) any { return n.scale }),
			serializer.F("color", func(n *SvgNode) any { return n.Color }),
		},
		New: func(args []any, extra any) (*SvgNode, error) {
			var ar argReader
			n := &SvgNode{
				entityBase:   restoredEntity(serializer.String(args[0]), ar.box(args[3]), ar.details(args[1])),
				AttachmentID: serializer.String(args[2]),
				Color:        read[Color](&ar, "color", args[5]),
				State:        ImageLoading,
			}
			if ar.err != nil {
				return nil, ar.err
			}
			n.scale, n.originalSize = restoreScale(n.Rectangle().Size, serializer.Float(args[4]))
			checker, _ := extra.(AttachmentChecker)
			n.Resolve(checker)
			return n, nil
		},
	})
	serializer.MustRegister(r, serializer.Class[*UrlNode]{
		Name:     "UrlNode",
		Identity: "uuid",
		Fields: []serializer.Field[*UrlNode]{
			serializer.F("uuid", func(n *UrlNode) any { return n.uuid }),
			serializer.F("details", func(n *UrlNode) any { return []any(n.details) }),
			serializer.F("url", func(n *UrlNode) any { return n.URL }),
			serializer.F("title", func(n *UrlNode) any { return n.Title }),
			serializer.F("collisionBox", func(n *UrlNode) any { return n.box }),
			serializer.F("color", func(n *UrlNode) any { return n.Color }),
		},
		New: func(args []any, _ any) (*UrlNode, error) {
			var ar argReader
			n := &UrlNode{
				entityBase: restoredEntity(serializer.String(args[0]), ar.box(args[4]), ar.details(args[1])),
				URL:        serializer.String(args[2]),
				Title:      serializer.String(args[3]),
				Color:      read[Color](&ar, "color", args[5]),
			}
			return n, ar.err
		},
	})
	serializer.MustRegister(r, serializer.Class[*PortalNode]{
		Name:     "PortalNode",
		Identity: "uuid",
		Mode:     serializer.WholeObject,
		Fields: []serializer.Field[*PortalNode]{
			serializer.F("uuid", func(n *PortalNode) any { return n.uuid }),
			serializer.F("details", func(n *PortalNode) any { return []any(n.details) }),
			serializer.F("portalFilePath", func(n *PortalNode) any { return n.PortalFilePath }),
			serializer.F("title", func(n *PortalNode) any { return n.Title }),
			serializer.F("collisionBox", func(n *PortalNode) any { return n.box }),
			serializer.F("targetLocation", func(n *PortalNode) any { return n.TargetLocation }),
			serializer.F("cameraScale", func(n *PortalNode) any { return n.CameraScale }),
			serializer.F("color", func(n *PortalNode) any { return n.Color }),
		},
		FromObject: func(bag map[string]any, _ any) (*PortalNode, error) {
			var ar argReader
			n := &PortalNode{
				entityBase:     restoredEntity(serializer.String(bag["uuid"]), ar.box(bag["collisionBox"]), ar.details(bag["details"])),
				PortalFilePath: serializer.String(bag["portalFilePath"]),
				Title:          serializer.String(bag["title"]),
				TargetLocation: read[geom.Vector](&ar, "targetLocation", bag["targetLocation"]),
				CameraScale:    serializer.Float(bag["cameraScale"]),
				Color:          read[Color](&ar, "color", bag["color"]),
			}
			if n.CameraScale == 0 {
				n.CameraScale = 1
			}
			return n, ar.err
		},
	})
	serializer.MustRegister(r, serializer.Class[*ConnectPoint]{
		Name:     "ConnectPoint",
		Identity: "uuid",
		Fields: []serializer.Field[*ConnectPoint]{
			serializer.F("uuid", func(p *ConnectPoint) any { return p.uuid }),
			serializer.F("details", func(p *ConnectPoint) any { return []any(p.details) }),
			serializer.F("collisionBox", func(p *ConnectPoint) any { return p.box }),
		},
		New: func(args []any, _ any) (*ConnectPoint, error) {
			var ar argReader
			p := &ConnectPoint{entityBase: restoredEntity(serializer.String(args[0]), ar.box(args[2]), ar.details(args[1]))}
			if ar.err != nil {
				return nil, ar.err
			}
			p.setRectangle(pointRect(p.Center(), ConnectPointRadius))
			return p, nil
		},
	})
	serializer.MustRegister(r, serializer.Class[*PenStroke]{
		Name:     "PenStroke",
		Identity: "uuid",
		Fields: []serializer.Field[*PenStroke]{
			serializer.F("uuid", func(s *PenStroke) any { return s.uuid }),
			serializer.F("details", func(s *PenStroke) any { return []any(s.details) }),
			serializer.F("segments", func(s *PenStroke) any { return serializer.List(s.Segments) }),
			serializer.F("color", func(s *PenStroke) any { return s.Color }),
		},
		New: func(args []any, _ any) (*PenStroke, error) {
			var ar argReader
			segs := readList[PenStrokeSegment](&ar, "segments", args[2])
			color := read[Color](&ar, "color", args[3])
			if ar.err != nil {
				return nil, ar.err
			}
			s := NewPenStroke(serializer.String(args[0]), segs, color)
			s.details = ar.details(args[1])
			return s, ar.err
		},
	})
}

func edgeFields[T DirectedEdge]() []serializer.Field[T] {
	return []serializer.Field[T]{
		serializer.F("uuid", func(e T) any { return e.UUID() }),
		serializer.F("source", func(e T) any { return e.EdgeBase().Source }),
		serializer.F("target", func(e T) any { return e.EdgeBase().Target }),
		serializer.F("text", func(e T) any { return e.EdgeBase().Text }),
		serializer.F("color", func(e T) any { return e.EdgeBase().Color }),
		serializer.F("sourceRectRate", func(e T) any { return e.EdgeBase().SourceRectRate }),
		serializer.F("targetRectRate", func(e T) any { return e.EdgeBase().TargetRectRate }),
	}
}

func restoredEdge(ar *argReader, args []any) Edge {
	e := newEdge(serializer.String(args[0]), ar.endpoint("source", args[1]), ar.endpoint("target", args[2]))
	e.Text = serializer.String(args[3])
	e.Color = read[Color](ar, "color", args[4])
	if args[5] != nil {
		e.SourceRectRate = read[geom.Vector](ar, "sourceRectRate", args[5])
	}
	if args[6] != nil {
		e.TargetRectRate = read[geom.Vector](ar, "targetRectRate", args[6])
	}
	return e
}

func registerAssociations(r *serializer.Registry) {
	serializer.MustRegister(r, serializer.Class[*LineEdge]{
		Name:     "LineEdge",
		Identity: "uuid",
		Fields:   edgeFields[*LineEdge](),
		New: func(args []any, _ any) (*LineEdge, error) {
			var ar argReader
			e := &LineEdge{Edge: restoredEdge(&ar, args)}
			return e, ar.err
		},
	})
	serializer.MustRegister(r, serializer.Class[*CatmullRomEdge]{
		Name:     "CubicCatmullRomSplineEdge",
		Identity: "uuid",
		Fields: append(edgeFields[*CatmullRomEdge](),
			serializer.F("controlPoints", func(e *CatmullRomEdge) any { return serializer.List(e.ControlPoints) }),
			serializer.F("alpha", func(e *CatmullRomEdge) any { return e.Alpha }),
			serializer.F("tension", func(e *CatmullRomEdge) any { return e.Tension }),
		),
		New: func(args []any, _ any) (*CatmullRomEdge, error) {
			var ar argReader
			e := &CatmullRomEdge{
				Edge:          restoredEdge(&ar, args),
				ControlPoints: readList[geom.Vector](&ar, "controlPoints", args[7]),
				Alpha:         serializer.Float(args[8]),
				Tension:       serializer.Float(args[9]),
			}
			return e, ar.err
		},
	})
	serializer.MustRegister(r, serializer.Class[*MultiTargetUndirectedEdge]{
		Name:     "MultiTargetUndirectedEdge",
		Identity: "uuid",
		Mode:     serializer.WholeObject,
		Fields: []serializer.Field[*MultiTargetUndirectedEdge]{
			serializer.F("uuid", func(e *MultiTargetUndirectedEdge) any { return e.uuid }),
			serializer.F("associationList", func(e *MultiTargetUndirectedEdge) any { return serializer.List(e.Members) }),
			serializer.F("text", func(e *MultiTargetUndirectedEdge) any { return e.Text }),
			serializer.F("color", func(e *MultiTargetUndirectedEdge) any { return e.Color }),
			serializer.F("rectRates", func(e *MultiTargetUndirectedEdge) any { return serializer.List(e.RectRates) }),
			serializer.F("centerRate", func(e *MultiTargetUndirectedEdge) any { return e.CenterRate }),
			serializer.F("arrow", func(e *MultiTargetUndirectedEdge) any { return string(e.Arrow) }),
			serializer.F("renderType", func(e *MultiTargetUndirectedEdge) any { return string(e.RenderType) }),
			serializer.F("padding", func(e *MultiTargetUndirectedEdge) any { return e.Padding }),
		},
		FromObject: func(bag map[string]any, _ any) (*MultiTargetUndirectedEdge, error) {
			var ar argReader
			e := NewMultiTargetEdge(serializer.String(bag["uuid"]), readList[Connectable](&ar, "associationList", bag["associationList"]))
			e.Text = serializer.String(bag["text"])
			e.Color = read[Color](&ar, "color", bag["color"])
			if rates := readList[geom.Vector](&ar, "rectRates", bag["rectRates"]); len(rates) > 0 {
				e.RectRates = rates
			}
			if _, ok := bag["centerRate"]; ok {
				e.CenterRate = read[geom.Vector](&ar, "centerRate", bag["centerRate"])
			}
			if a := serializer.String(bag["arrow"]); a != "" {
				e.Arrow = ArrowType(a)
			}
			if t := serializer.String(bag["renderType"]); t != "" {
				e.RenderType = RenderType(t)
			}
			if _, ok := bag["padding"]; ok {
				e.Padding = serializer.Float(bag["padding"])
			}
			return e, ar.err
		},
	})
}

// Serialize converts objects and tags into one tree so shared references fold.
func Serialize(objs []Object, tags []string) (any, error) {
	return Registry().Serialize(map[string]any{
		"objects": serializer.List(objs),
		"tags":    serializer.List(tags),
	})
}

// Deserialize rebuilds objects and tags from a Serialize tree. checker, when non-nil,
// resolves image attachments as they are built.
func Deserialize(tree any, checker AttachmentChecker) ([]Object, []string, error) {
	root, err := Registry().Deserialize(tree, checker)
	if err != nil {
		return nil, nil, err
	}
	return splitRoot(root)
}

// Marshal encodes the whole stage as JSON.
func Marshal(m *Manager) ([]byte, error) {
	return Registry().Marshal(map[string]any{
		"objects": serializer.List(m.objects),
		"tags":    serializer.List(m.tags),
	})
}

// Unmarshal decodes a Marshal payload.
func Unmarshal(data []byte, checker AttachmentChecker) ([]Object, []string, error) {
	root, err := Registry().Unmarshal(data, checker)
	if err != nil {
		return nil, nil, err
	}
	return splitRoot(root)
}

func splitRoot(root any) ([]Object, []string, error) {
	bag, ok := root.(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("stage root: %w", serializer.ErrTypeMismatch)
	}
	objs, err := serializer.ListOf[Object](bag["objects"])
	if err != nil {
		return nil, nil, fmt.Errorf("stage objects: %w", err)
	}
	tags, err := serializer.ListOf[string](bag["tags"])
	if err != nil {
		return nil, nil, fmt.Errorf("stage tags: %w", err)
	}
	return objs, tags, nil
}

// Codec snapshots and restores a Manager as JSON. It is the history codec.
type Codec struct {
	Stage       *Manager
	Attachments AttachmentChecker
}

func (c Codec) Snapshot() ([]byte, error) {
	return Marshal(c.Stage)
}

func (c Codec) Restore(data []byte) error {
	objs, tags, err := Unmarshal(data, c.Attachments)
	if err != nil {
		return fmt.Errorf("restore stage: %w", err)
	}
	if _, err := c.Stage.Load(objs, tags); err != nil {
		return fmt.Errorf("restore stage: %w", err)
	}
	return nil
}
