package stage

import (
	"fmt"

	"github.com/graphif/stagecore/internal/document"
	"github.com/graphif/stagecore/internal/geom"
)

var (
	DefaultSectionSize = geom.V(300, 200)
	DefaultImageSize   = geom.V(100, 100)
)

func vectorOf(xs []float64) geom.Vector {
	if len(xs) < 2 {
		return geom.Vector{}
	}
	return geom.V(xs[0], xs[1])
}

func vectorOr(xs []float64, def geom.Vector) geom.Vector {
	if len(xs) < 2 {
		return def
	}
	return geom.V(xs[0], xs[1])
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// FromDocument builds a stage from an interop document. The document is validated
// first; any structural problem fails the whole load. Image attachments are resolved
// through checker when it is non-nil.
func FromDocument(doc *document.Document, checker AttachmentChecker) (*Manager, error) {
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	m := NewManager()
	for _, de := range doc.Entities {
		e, err := entityFromDocument(de, checker)
		if err != nil {
			return nil, fmt.Errorf("load document: entity %s: %w", de.UUID, err)
		}
		if err := m.Add(e); err != nil {
			return nil, fmt.Errorf("load document: %w", err)
		}
	}
	for _, de := range doc.Entities {
		if de.Type != document.TypeSection {
			continue
		}
		s := m.byUUID[de.UUID].(*Section)
		for _, id := range de.Children {
			child, ok := m.EntityByUUID(id)
			if !ok {
				return nil, fmt.Errorf("load document: section %s: child %s: %w", de.UUID, id, ErrNotFound)
			}
			s.addChild(child)
		}
	}
	for _, da := range doc.Associations {
		a, err := m.associationFromDocument(da)
		if err != nil {
			return nil, fmt.Errorf("load document: association %s: %w", da.UUID, err)
		}
		if err := m.Add(a); err != nil {
			return nil, fmt.Errorf("load document: %w", err)
		}
	}
	m.tags = append(m.tags, doc.Tags...)
	m.Repair()
	return m, nil
}

func entityFromDocument(de document.Entity, checker AttachmentChecker) (Entity, error) {
	loc := vectorOf(de.Location)
	color := ColorFromArray(de.Color)
	var e Entity
	switch de.Type {
	case document.TypeTextNode:
		n := NewTextNode(de.UUID, deref(de.Text), loc)
		n.Color = color
		if de.SizeAdjust == string(SizeManual) && len(de.Size) == 2 {
			n.SizeAdjust = SizeManual
			n.setRectangle(geom.Rectangle{Location: loc, Size: vectorOf(de.Size)})
		}
		e = n
	case document.TypeSection:
		s := NewSection(de.UUID, deref(de.Text), geom.Rectangle{Location: loc, Size: vectorOr(de.Size, DefaultSectionSize)})
		s.Color = color
		s.IsHidden = de.IsHidden
		s.IsCollapsed = de.IsCollapsed
		s.reshape(s.Rectangle())
		e = s
	case document.TypeImageNode:
		size := vectorOr(de.Size, DefaultImageSize)
		n := NewImageNode(de.UUID, deref(de.Path), loc, size)
		n.scale, n.originalSize = restoreScale(size, scaleOr1(de.Scale))
		n.Resolve(checker)
		e = n
	case document.TypeSvgNode:
		size := vectorOr(de.Size, DefaultImageSize)
		n := NewSvgNode(de.UUID, deref(de.Path), loc, size)
		n.scale, n.originalSize = restoreScale(size, scaleOr1(de.Scale))
		n.Color = color
		n.Resolve(checker)
		e = n
	case document.TypeUrlNode:
		title := de.Title
		if title == "" {
			title = deref(de.URL)
		}
		n := NewUrlNode(de.UUID, deref(de.URL), title, loc)
		n.Color = color
		if len(de.Size) == 2 {
			n.setRectangle(geom.Rectangle{Location: loc, Size: vectorOf(de.Size)})
		}
		e = n
	case document.TypePortalNode:
		title := de.Title
		if title == "" {
			title = deref(de.PortalFilePath)
		}
		n := NewPortalNode(de.UUID, deref(de.PortalFilePath), title, loc)
		n.Color = color
		n.TargetLocation = vectorOf(de.TargetLocation)
		n.CameraScale = scaleOr1(de.CameraScale)
		if len(de.Size) == 2 {
			n.Resize(vectorOf(de.Size))
		}
		e = n
	case document.TypeConnectPoint:
		e = NewConnectPoint(de.UUID, loc.Add(geom.V(ConnectPointRadius, ConnectPointRadius)))
	case document.TypePenStroke:
		segs, err := ParsePenStrokeContent(deref(de.Content))
		if err != nil {
			return nil, fmt.Errorf("content: %w", err)
		}
		e = NewPenStroke(de.UUID, segs, color)
	default:
		return nil, fmt.Errorf("%w: %s", document.ErrUnknownType, de.Type)
	}
	e.SetDetails(DetailsFromText(de.Details))
	return e, nil
}

func scaleOr1(s float64) float64 {
	if s == 0 {
		return 1
	}
	return s
}

func (m *Manager) associationFromDocument(da document.Association) (Association, error) {
	color := ColorFromArray(da.Color)
	switch da.Type {
	case document.TypeLineEdge, document.TypeCatmullRomEdge:
		source, err := m.connectable(da.Source)
		if err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
		target, err := m.connectable(da.Target)
		if err != nil {
			return nil, fmt.Errorf("target: %w", err)
		}
		var edge DirectedEdge
		if da.Type == document.TypeLineEdge {
			edge = NewLineEdge(da.UUID, source, target)
		} else {
			cr := NewCatmullRomEdge(da.UUID, source, target)
			for _, p := range da.ControlPoints {
				cr.ControlPoints = append(cr.ControlPoints, vectorOf(p))
			}
			if da.Alpha != 0 {
				cr.Alpha = da.Alpha
			}
			cr.Tension = da.Tension
			edge = cr
		}
		b := edge.EdgeBase()
		b.Text = da.Text
		b.Color = color
		b.SourceRectRate = vectorOr(da.SourceRectRate, centerRate)
		b.TargetRectRate = vectorOr(da.TargetRectRate, centerRate)
		return edge, nil

	case document.TypeMultiTargetEdge:
		members := make([]Connectable, 0, len(da.Targets))
		for _, id := range da.Targets {
			c, err := m.connectable(id)
			if err != nil {
				return nil, fmt.Errorf("target: %w", err)
			}
			members = append(members, c)
		}
		e := NewMultiTargetEdge(da.UUID, members)
		e.Text = da.Text
		e.Color = color
		for i, r := range da.RectRates {
			if i < len(e.RectRates) {
				e.RectRates[i] = vectorOr(r, centerRate)
			}
		}
		e.CenterRate = vectorOr(da.CenterRate, centerRate)
		if da.Arrow != "" {
			e.Arrow = ArrowType(da.Arrow)
		}
		if da.RenderType != "" {
			e.RenderType = RenderType(da.RenderType)
		}
		if da.Padding != nil {
			e.Padding = *da.Padding
		}
		return e, nil
	}
	return nil, fmt.Errorf("%w: %s", document.ErrUnknownType, da.Type)
}

// ToDocument writes the stage as an interop document.
func ToDocument(m *Manager) *document.Document {
	w := &documentWriter{doc: document.New()}
	for _, o := range m.objects {
		o.Accept(w)
	}
	w.doc.Tags = append(w.doc.Tags, m.tags...)
	return w.doc
}

type documentWriter struct {
	doc *document.Document
}

func vec(v geom.Vector) []float64 { return []float64{v.X, v.Y} }

func colorArray(c Color) []float64 {
	if c == (Color{}) {
		return nil
	}
	return c.Array()
}

func (w *documentWriter) entity(e Entity, t document.Type) document.Entity {
	r := e.Rectangle()
	return document.Entity{
		UUID:     e.UUID(),
		Type:     t,
		Location: vec(r.Location),
		Size:     vec(r.Size),
		Details:  e.Details().PlainText(),
	}
}

func (w *documentWriter) VisitTextNode(n *TextNode) {
	de := w.entity(n, document.TypeTextNode)
	de.Text = document.Ptr(n.Text)
	de.Color = colorArray(n.Color)
	de.SizeAdjust = string(n.SizeAdjust)
	w.doc.Entities = append(w.doc.Entities, de)
}

func (w *documentWriter) VisitSection(s *Section) {
	de := w.entity(s, document.TypeSection)
	de.Text = document.Ptr(s.Text)
	de.Color = colorArray(s.Color)
	de.Children = s.ChildUUIDs()
	de.IsHidden = s.IsHidden
	de.IsCollapsed = s.IsCollapsed
	w.doc.Entities = append(w.doc.Entities, de)
}

func (w *documentWriter) VisitImageNode(n *ImageNode) {
	de := w.entity(n, document.TypeImageNode)
	de.Path = document.Ptr(n.AttachmentID)
	de.Scale = n.scale
	w.doc.Entities = append(w.doc.Entities, de)
}

func (w *documentWriter) VisitSvgNode(n *SvgNode) {
	de := w.entity(n, document.TypeSvgNode)
	de.Path = document.Ptr(n.AttachmentID)
	de.Scale = n.scale
	de.Color = colorArray(n.Color)
	w.doc.Entities = append(w.doc.Entities, de)
}

func (w *documentWriter) VisitUrlNode(n *UrlNode) {
	de := w.entity(n, document.TypeUrlNode)
	de.URL = document.Ptr(n.URL)
	de.Title = n.Title
	de.Color = colorArray(n.Color)
	w.doc.Entities = append(w.doc.Entities, de)
}

func (w *documentWriter) VisitPortalNode(n *PortalNode) {
	de := w.entity(n, document.TypePortalNode)
	de.PortalFilePath = document.Ptr(n.PortalFilePath)
	de.Title = n.Title
	de.Color = colorArray(n.Color)
	de.TargetLocation = vec(n.TargetLocation)
	de.CameraScale = n.CameraScale
	w.doc.Entities = append(w.doc.Entities, de)
}

func (w *documentWriter) VisitConnectPoint(p *ConnectPoint) {
	de := w.entity(p, document.TypeConnectPoint)
	de.Location = vec(p.Center().Subtract(geom.V(ConnectPointRadius, ConnectPointRadius)))
	de.Size = nil
	w.doc.Entities = append(w.doc.Entities, de)
}

func (w *documentWriter) VisitPenStroke(s *PenStroke) {
	de := w.entity(s, document.TypePenStroke)
	de.Size = nil
	de.Content = document.Ptr(s.DumpString())
	de.Color = colorArray(s.Color)
	w.doc.Entities = append(w.doc.Entities, de)
}

func (w *documentWriter) edge(e *Edge, t document.Type) document.Association {
	return document.Association{
		UUID:           e.UUID(),
		Type:           t,
		Text:           e.Text,
		Color:          colorArray(e.Color),
		Source:         e.Source.UUID(),
		Target:         e.Target.UUID(),
		SourceRectRate: vec(e.SourceRectRate),
		TargetRectRate: vec(e.TargetRectRate),
	}
}

func (w *documentWriter) VisitLineEdge(e *LineEdge) {
	w.doc.Associations = append(w.doc.Associations, w.edge(&e.Edge, document.TypeLineEdge))
}

func (w *documentWriter) VisitCatmullRomEdge(e *CatmullRomEdge) {
	da := w.edge(&e.Edge, document.TypeCatmullRomEdge)
	for _, p := range e.ControlPoints {
		da.ControlPoints = append(da.ControlPoints, vec(p))
	}
	da.Alpha = e.Alpha
	da.Tension = e.Tension
	w.doc.Associations = append(w.doc.Associations, da)
}

func (w *documentWriter) VisitMultiTargetEdge(e *MultiTargetUndirectedEdge) {
	padding := e.Padding
	da := document.Association{
		UUID:       e.UUID(),
		Type:       document.TypeMultiTargetEdge,
		Text:       e.Text,
		Color:      colorArray(e.Color),
		CenterRate: vec(e.CenterRate),
		Arrow:      string(e.Arrow),
		RenderType: string(e.RenderType),
		Padding:    &padding,
	}
	for i, m := range e.Members {
		da.Targets = append(da.Targets, m.UUID())
		da.RectRates = append(da.RectRates, vec(e.rateAt(i)))
	}
	w.doc.Associations = append(w.doc.Associations, da)
}
