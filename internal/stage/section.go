package stage

import (
	"slices"

	"github.com/graphif/stagecore/internal/collision"
	"github.com/graphif/stagecore/internal/geom"
)

const (
	SectionPadding = 20.0
	// SectionTitleHeight is the band above the children reserved for the title.
	SectionTitleHeight = DefaultFontSize*lineHeightRate + TextPadding
)

// Section groups entities. Children stay top-level stage objects; the list only records
// membership, so a child is reachable both from the stage and from here.
type Section struct {
	entityBase
	Text        string
	Color       Color
	Children    []Entity
	IsHidden    bool
	IsCollapsed bool
}

// NewSection creates an empty, expanded section covering rect.
func NewSection(id, title string, rect geom.Rectangle) *Section {
	s := &Section{entityBase: newEntityBase(id, rect), Text: title}
	s.reshape(rect)
	return s
}

func (s *Section) Kind() Kind       { return KindSection }
func (s *Section) Accept(v Visitor) { v.VisitSection(s) }
func (s *Section) connectable()     {}

// HasChild reports direct membership.
func (s *Section) HasChild(e Entity) bool {
	return slices.ContainsFunc(s.Children, func(c Entity) bool { return c.UUID() == e.UUID() })
}

func (s *Section) addChild(e Entity) {
	if !s.HasChild(e) {
		s.Children = append(s.Children, e)
	}
}

func (s *Section) removeChild(e Entity) bool {
	n := len(s.Children)
	s.Children = slices.DeleteFunc(s.Children, func(c Entity) bool { return c.UUID() == e.UUID() })
	return len(s.Children) != n
}

// ChildUUIDs lists the children by identity.
func (s *Section) ChildUUIDs() []string {
	ids := make([]string, len(s.Children))
	for i, c := range s.Children {
		ids[i] = c.UUID()
	}
	return ids
}

// TitleRectangle is the title band at the top of the section.
func (s *Section) TitleRectangle() geom.Rectangle {
	r := s.Rectangle()
	return geom.Rectangle{Location: r.Location, Size: geom.V(r.Width(), min(r.Height(), SectionTitleHeight))}
}

// reshape sets the collision box for rect. A collapsed section is solid; an expanded one
// is hit only on its title band and border so clicks inside reach the background.
func (s *Section) reshape(rect geom.Rectangle) {
	if s.IsCollapsed {
		s.setRectangle(rect)
		return
	}
	title := geom.Rectangle{Location: rect.Location, Size: geom.V(rect.Width(), min(rect.Height(), SectionTitleHeight))}
	shapes := []geom.Shape{title}
	for _, l := range rect.Edges() {
		shapes = append(shapes, l)
	}
	s.box = collision.New(shapes...)
}

// AdjustToChildren fits the section around its children. A collapsed section shrinks to
// its title instead.
func (s *Section) AdjustToChildren() {
	loc := s.Rectangle().Location
	if s.IsCollapsed {
		w, h := MeasureText(s.Text, DefaultFontSize)
		s.reshape(geom.Rectangle{Location: loc, Size: geom.V(w+2*TextPadding, h+2*TextPadding)})
		return
	}
	if len(s.Children) == 0 {
		s.reshape(s.Rectangle())
		return
	}
	rects := make([]geom.Rectangle, len(s.Children))
	for i, c := range s.Children {
		rects[i] = c.Rectangle()
	}
	bounds, err := geom.BoundingRectangle(rects...)
	if err != nil {
		s.reshape(s.Rectangle())
		return
	}
	titleW, _ := MeasureText(s.Text, DefaultFontSize)
	fitted := geom.FromEdges(
		bounds.Left()-SectionPadding,
		bounds.Top()-SectionPadding-SectionTitleHeight,
		max(bounds.Right()+SectionPadding, bounds.Left()-SectionPadding+titleW+2*TextPadding),
		bounds.Bottom()+SectionPadding,
	)
	s.reshape(fitted)
}
