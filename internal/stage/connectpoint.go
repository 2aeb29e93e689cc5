package stage

import "github.com/graphif/stagecore/internal/geom"

const (
	ConnectPointRadius         = 1.0
	ConnectPointSelectedRadius = 30.0
)

// ConnectPoint is a bare anchor for routing edges. It grows while selected so it is
// easy to grab.
type ConnectPoint struct {
	entityBase
}

func NewConnectPoint(id string, center geom.Vector) *ConnectPoint {
	return &ConnectPoint{entityBase: newEntityBase(id, pointRect(center, ConnectPointRadius))}
}

func (p *ConnectPoint) Kind() Kind       { return KindConnectPoint }
func (p *ConnectPoint) Accept(v Visitor) { v.VisitConnectPoint(p) }
func (p *ConnectPoint) connectable()     {}

// Center is the anchor location.
func (p *ConnectPoint) Center() geom.Vector {
	return p.Rectangle().Center()
}

// SetSelected resizes the box around its center.
func (p *ConnectPoint) SetSelected(v bool) {
	p.selected = v
	radius := ConnectPointRadius
	if v {
		radius = ConnectPointSelectedRadius
	}
	p.setRectangle(pointRect(p.Center(), radius))
}

func pointRect(center geom.Vector, radius float64) geom.Rectangle {
	return geom.CenteredAt(center, geom.V(2*radius, 2*radius))
}
