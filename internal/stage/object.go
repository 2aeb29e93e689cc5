// Package stage is the scene graph of a document: entities placed on the canvas, the
// associations (edges) between them, and the Manager that queries and mutates them.
package stage

import (
	"github.com/google/uuid"

	"github.com/graphif/stagecore/internal/collision"
	"github.com/graphif/stagecore/internal/geom"
)

// Kind is the type discriminator used in the interop document.
type Kind string

const (
	KindTextNode        Kind = "core:text_node"
	KindSection         Kind = "core:section"
	KindImageNode       Kind = "core:image_node"
	KindSvgNode         Kind = "core:svg_node"
	KindUrlNode         Kind = "core:url_node"
	KindPortalNode      Kind = "core:portal_node"
	KindConnectPoint    Kind = "core:connect_point"
	KindPenStroke       Kind = "core:pen_stroke"
	KindLineEdge        Kind = "core:line_edge"
	KindCatmullRomEdge  Kind = "core:cublic_catmull_rom_spline_edge"
	KindMultiTargetEdge Kind = "core:multi_target_undirected_edge"
)

// Object is anything placed on the stage. The set of implementations is closed: the
// unexported marker method keeps other packages from adding variants, and Accept makes
// every Visitor handle each of them.
type Object interface {
	UUID() string
	Kind() Kind
	CollisionBox() *collision.Box
	IsSelected() bool
	SetSelected(selected bool)
	Accept(v Visitor)

	stageObject()
}

// Entity is an object with its own spatial extent.
type Entity interface {
	Object
	Details() Details
	SetDetails(d Details)
	Rectangle() geom.Rectangle
	MoveBy(d geom.Vector)
	MoveTo(p geom.Vector)
}

// Connectable entities may be edge endpoints.
type Connectable interface {
	Entity
	connectable()
}

// Association references entities without owning them.
type Association interface {
	Object
	Endpoints() []Connectable
	// Rebind swaps endpoint references by uuid, used when repairing a loaded graph.
	Rebind(lookup func(uuid string) (Connectable, bool)) bool
}

// Visitor has one method per concrete object type.
type Visitor interface {
	VisitTextNode(n *TextNode)
	VisitSection(s *Section)
	VisitImageNode(n *ImageNode)
	VisitSvgNode(n *SvgNode)
	VisitUrlNode(n *UrlNode)
	VisitPortalNode(n *PortalNode)
	VisitConnectPoint(p *ConnectPoint)
	VisitPenStroke(s *PenStroke)
	VisitLineEdge(e *LineEdge)
	VisitCatmullRomEdge(e *CatmullRomEdge)
	VisitMultiTargetEdge(e *MultiTargetUndirectedEdge)
}

// NewUUID returns a fresh object identity.
func NewUUID() string {
	return uuid.NewString()
}

type base struct {
	uuid     string
	selected bool
}

func newBase(id string) base {
	if id == "" {
		id = NewUUID()
	}
	return base{uuid: id}
}

func (b *base) UUID() string       { return b.uuid }
func (b *base) IsSelected() bool   { return b.selected }
func (b *base) SetSelected(v bool) { b.selected = v }
func (b *base) stageObject()       {}

type entityBase struct {
	base
	box     *collision.Box
	details Details
}

func newEntityBase(id string, rect geom.Rectangle) entityBase {
	return entityBase{base: newBase(id), box: collision.FromRectangle(rect)}
}

func (e *entityBase) CollisionBox() *collision.Box { return e.box }
func (e *entityBase) Details() Details             { return e.details }
func (e *entityBase) SetDetails(d Details)         { e.details = d }

// Rectangle is the bounding rectangle of the collision box.
func (e *entityBase) Rectangle() geom.Rectangle {
	return e.box.MustRectangle()
}

func (e *entityBase) MoveBy(d geom.Vector) {
	e.box.Translate(d)
}

func (e *entityBase) MoveTo(p geom.Vector) {
	e.MoveBy(p.Subtract(e.Rectangle().Location))
}

// setRectangle replaces the box with a single rectangle.
func (e *entityBase) setRectangle(r geom.Rectangle) {
	e.box = collision.FromRectangle(r)
}
