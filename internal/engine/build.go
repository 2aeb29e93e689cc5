package engine

import (
	"cmp"
	"math"
	"slices"

	"github.com/graphif/stagecore/internal/camera"
	"github.com/graphif/stagecore/internal/geom"
	"github.com/graphif/stagecore/internal/stage"
)

// Theme defaults used when an object's color is transparent.
const (
	DefaultStroke      = "#cccccc"
	DefaultText        = "#ffffff"
	DefaultSectionFill = "rgba(255,255,255,0.05)"
	SelectionStroke    = "#33a0ff"

	nodeStrokeWidth = 2.0
	edgeStrokeWidth = 2.0
	penBaseWidth    = 5.0
	arrowSize       = 20.0
	curveSegments   = 16
	urlFontScale    = 0.6
)

// BuildScene compiles the visible part of the stage into draw commands in painter's
// order: sections from outermost to innermost, then associations, then other entities,
// then pen strokes. Objects outside the camera view and entities hidden by a collapsed
// section are left out. Every command carries the camera matrix as its transform.
func BuildScene(m *stage.Manager, cam *camera.Camera) *Scene {
	b := &sceneBuilder{
		view:      cam.ViewRectangle(),
		transform: cam.Matrix().ToSlice(),
		scene:     NewScene(),
	}
	b.scene.cameraVersion = cam.Version()

	var sections []*stage.Section
	var nodes, strokes []stage.Entity
	for _, e := range m.Entities() {
		if m.IsHiddenBySectionCollapse(e) {
			continue
		}
		switch v := e.(type) {
		case *stage.Section:
			sections = append(sections, v)
		case *stage.PenStroke:
			strokes = append(strokes, v)
		default:
			nodes = append(nodes, v)
		}
	}
	slices.SortStableFunc(sections, func(a, b *stage.Section) int {
		return cmp.Compare(m.SectionDepth(a), m.SectionDepth(b))
	})

	for _, s := range sections {
		b.entity(s)
	}
	for _, a := range m.Associations() {
		if !m.IsVisibleAssociation(a) {
			continue
		}
		r, ok := a.CollisionBox().Rectangle()
		if !ok || !r.Expand(arrowSize).IsCollideWith(b.view) {
			b.scene.Culled++
			continue
		}
		b.bounds = r
		a.Accept(b)
	}
	for _, e := range nodes {
		b.entity(e)
	}
	for _, e := range strokes {
		b.entity(e)
	}
	return b.scene
}

type sceneBuilder struct {
	view      geom.Rectangle
	transform []float64
	scene     *Scene
	// bounds of the object being visited
	bounds geom.Rectangle
}

func (b *sceneBuilder) entity(e stage.Entity) {
	r := e.Rectangle()
	if !r.IsCollideWith(b.view) {
		b.scene.Culled++
		return
	}
	b.bounds = r
	e.Accept(b)
}

func (b *sceneBuilder) emit(o stage.Object, cmd DrawCommand) {
	cmd.ObjectID = o.UUID()
	cmd.Kind = string(o.Kind())
	cmd.Transform = b.transform
	cmd.Selected = o.IsSelected()
	if cmd.Opacity == 0 {
		cmd.Opacity = 1
	}
	b.scene.emit(cmd, b.bounds)
}

func colorOr(c stage.Color, def string) string {
	if c.IsTransparent() {
		return def
	}
	return c.CSS()
}

func fillOf(c stage.Color) string {
	if c.IsTransparent() {
		return ""
	}
	return c.CSS()
}

func (b *sceneBuilder) box(o stage.Object, r geom.Rectangle, fill stage.Color) {
	b.emit(o, DrawCommand{
		Op:          OpRect,
		Bounds:      rectArgs(r),
		Fill:        fillOf(fill),
		Stroke:      DefaultStroke,
		StrokeWidth: nodeStrokeWidth,
	})
}

func (b *sceneBuilder) label(o stage.Object, r geom.Rectangle, text string, size float64) {
	if text == "" {
		return
	}
	b.emit(o, DrawCommand{
		Op:       OpText,
		Bounds:   rectArgs(r),
		Text:     text,
		FontSize: size,
		Fill:     DefaultText,
	})
}

func inner(r geom.Rectangle) geom.Rectangle {
	return geom.FromEdges(r.Left()+stage.TextPadding, r.Top()+stage.TextPadding,
		r.Right()-stage.TextPadding, r.Bottom()-stage.TextPadding)
}

func (b *sceneBuilder) VisitTextNode(n *stage.TextNode) {
	r := n.Rectangle()
	b.box(n, r, n.Color)
	b.label(n, inner(r), n.Text, stage.DefaultFontSize)
}

func (b *sceneBuilder) VisitSection(s *stage.Section) {
	if s.IsHidden {
		return
	}
	r := s.Rectangle()
	fill := DefaultSectionFill
	if !s.Color.IsTransparent() {
		fill = s.Color.CSS()
	}
	b.emit(s, DrawCommand{
		Op:          OpRect,
		Bounds:      rectArgs(r),
		Fill:        fill,
		Stroke:      DefaultStroke,
		StrokeWidth: nodeStrokeWidth,
	})
	b.label(s, inner(s.TitleRectangle()), s.Text, stage.DefaultFontSize)
}

func (b *sceneBuilder) VisitImageNode(n *stage.ImageNode) {
	b.emit(n, DrawCommand{
		Op:           OpImage,
		Bounds:       rectArgs(n.Rectangle()),
		ImageAssetID: n.AttachmentID,
		ImageState:   string(n.State),
	})
}

func (b *sceneBuilder) VisitSvgNode(n *stage.SvgNode) {
	b.emit(n, DrawCommand{
		Op:           OpImage,
		Bounds:       rectArgs(n.Rectangle()),
		Fill:         fillOf(n.Color),
		ImageAssetID: n.AttachmentID,
		ImageState:   string(n.State),
	})
}

func (b *sceneBuilder) VisitUrlNode(n *stage.UrlNode) {
	r := n.Rectangle()
	b.box(n, r, n.Color)
	in := inner(r)
	titleH := stage.DefaultFontSize * 1.5
	b.label(n, geom.Rect(in.Left(), in.Top(), in.Width(), titleH), n.Title, stage.DefaultFontSize)
	b.label(n, geom.FromEdges(in.Left(), in.Top()+titleH, in.Right(), in.Bottom()), n.URL, stage.DefaultFontSize*urlFontScale)
}

func (b *sceneBuilder) VisitPortalNode(n *stage.PortalNode) {
	r := n.Rectangle()
	b.box(n, r, n.Color)
	title := n.Title
	if title == "" {
		title = n.PortalFilePath
	}
	b.label(n, inner(r), title, stage.DefaultFontSize)
}

func (b *sceneBuilder) VisitConnectPoint(p *stage.ConnectPoint) {
	b.emit(p, DrawCommand{
		Op:          OpCircle,
		Center:      []float64{p.Center().X, p.Center().Y},
		Radius:      p.Rectangle().Width() / 2,
		Stroke:      DefaultStroke,
		StrokeWidth: nodeStrokeWidth,
	})
}

func (b *sceneBuilder) VisitPenStroke(s *stage.PenStroke) {
	widths := make([]float64, len(s.Segments))
	for i, seg := range s.Segments {
		widths[i] = penBaseWidth * max(seg.Pressure, 0.1)
	}
	b.emit(s, DrawCommand{
		Op:          OpPath,
		Path:        polylinePath(s.Path()),
		Stroke:      colorOr(s.Color, DefaultText),
		StrokeWidth: penBaseWidth,
		Widths:      widths,
	})
}

func (b *sceneBuilder) edgeLabel(o stage.Object, e *stage.Edge) {
	b.label(o, e.TextRectangle(), e.Text, stage.DefaultFontSize)
}

// selfLoop draws an edge from an entity to itself as a ring on its top-right corner.
func (b *sceneBuilder) selfLoop(o stage.Object, e *stage.Edge) {
	corner := e.Source.Rectangle().RightTop()
	b.emit(o, DrawCommand{
		Op:          OpCircle,
		Center:      []float64{corner.X, corner.Y},
		Radius:      stage.ShiftOffset * 2,
		Stroke:      colorOr(e.Color, DefaultStroke),
		StrokeWidth: edgeStrokeWidth,
	})
}

func (b *sceneBuilder) VisitLineEdge(e *stage.LineEdge) {
	if e.IsSelfLoop() {
		b.selfLoop(e, &e.Edge)
		return
	}
	line := e.BodyLine()
	path := polylinePath([]geom.Vector{line.Start, line.End})
	path = append(path, arrowHead(line.End, line.Direction())...)
	b.emit(e, DrawCommand{
		Op:          OpPath,
		Path:        path,
		Stroke:      colorOr(e.Color, DefaultStroke),
		StrokeWidth: edgeStrokeWidth,
	})
	b.edgeLabel(e, &e.Edge)
}

func (b *sceneBuilder) VisitCatmullRomEdge(e *stage.CatmullRomEdge) {
	if e.IsSelfLoop() {
		b.selfLoop(e, &e.Edge)
		return
	}
	lines := e.Spline().Polyline(curveSegments)
	if len(lines) == 0 {
		return
	}
	pts := make([]geom.Vector, 0, len(lines)+1)
	pts = append(pts, lines[0].Start)
	for _, l := range lines {
		pts = append(pts, l.End)
	}
	last := lines[len(lines)-1]
	path := append(polylinePath(pts), arrowHead(last.End, last.Direction())...)
	b.emit(e, DrawCommand{
		Op:          OpPath,
		Path:        path,
		Stroke:      colorOr(e.Color, DefaultStroke),
		StrokeWidth: edgeStrokeWidth,
	})
	b.edgeLabel(e, &e.Edge)
}

func (b *sceneBuilder) VisitMultiTargetEdge(e *stage.MultiTargetUndirectedEdge) {
	center := e.CenterLocation()
	stroke := colorOr(e.Color, DefaultStroke)
	var path []PathCommand

	switch e.RenderType {
	case stage.RenderConvex:
		var corners []geom.Vector
		for _, m := range e.Members {
			r := m.Rectangle().Expand(e.Padding)
			corners = append(corners, r.LeftTop(), r.RightTop(), r.RightBottom(), r.LeftBottom())
		}
		hull := convexHull(corners)
		if len(hull) > 0 {
			path = append(polylinePath(hull), PathCommand{"Z"})
		}
	case stage.RenderCircle:
		rects := make([]geom.Rectangle, len(e.Members))
		for i, m := range e.Members {
			rects[i] = m.Rectangle()
		}
		bounds, err := geom.BoundingRectangle(rects...)
		if err != nil {
			return
		}
		c := bounds.Center()
		b.emit(e, DrawCommand{
			Op:          OpCircle,
			Center:      []float64{c.X, c.Y},
			Radius:      bounds.Size.Magnitude()/2 + e.Padding,
			Stroke:      stroke,
			StrokeWidth: edgeStrokeWidth,
		})
	default:
		for i, p := range e.MemberLocations() {
			line := geom.Line{Start: center, End: p}
			if end, ok := e.Members[i].CollisionBox().LineIntersectionPoint(line); ok {
				line.End = end
			}
			path = append(path, moveTo(line.Start), lineTo(line.End))
			switch e.Arrow {
			case stage.ArrowOuter:
				path = append(path, arrowHead(line.End, line.Direction())...)
			case stage.ArrowInner:
				path = append(path, arrowHead(line.Start, line.Direction().Multiply(-1))...)
			}
		}
	}
	if len(path) > 0 {
		b.emit(e, DrawCommand{
			Op:          OpPath,
			Path:        path,
			Stroke:      stroke,
			StrokeWidth: edgeStrokeWidth,
		})
	}
	b.label(e, geom.CenteredAt(center, geom.V(stage.MeasureText(e.Text, stage.DefaultFontSize))), e.Text, stage.DefaultFontSize)
}

// arrowHead is an open chevron with its tip at tip, pointing along dir.
func arrowHead(tip, dir geom.Vector) []PathCommand {
	if dir.IsZero() {
		return nil
	}
	back := dir.Normalize().Multiply(-arrowSize)
	left := tip.Add(back.Rotate(math.Pi / 6))
	right := tip.Add(back.Rotate(-math.Pi / 6))
	return []PathCommand{moveTo(left), lineTo(tip), lineTo(right)}
}

// convexHull returns the hull of pts in counter-clockwise order (monotone chain).
func convexHull(pts []geom.Vector) []geom.Vector {
	if len(pts) < 3 {
		return slices.Clone(pts)
	}
	pts = slices.Clone(pts)
	slices.SortFunc(pts, func(a, b geom.Vector) int {
		if c := cmp.Compare(a.X, b.X); c != 0 {
			return c
		}
		return cmp.Compare(a.Y, b.Y)
	})
	turn := func(o, a, b geom.Vector) float64 { return a.Subtract(o).Cross(b.Subtract(o)) }

	hull := make([]geom.Vector, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && turn(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && turn(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}
