package stage

import "github.com/graphif/stagecore/internal/geom"

var (
	DefaultUrlNodeSize    = geom.V(300, 150)
	DefaultPortalNodeSize = geom.V(500, 500)
)

// UrlNode is a bookmark card.
type UrlNode struct {
	entityBase
	URL   string
	Title string
	Color Color
}

func NewUrlNode(id, url, title string, location geom.Vector) *UrlNode {
	return &UrlNode{
		entityBase: newEntityBase(id, geom.Rectangle{Location: location, Size: DefaultUrlNodeSize}),
		URL:        url,
		Title:      title,
	}
}

func (n *UrlNode) Kind() Kind       { return KindUrlNode }
func (n *UrlNode) Accept(v Visitor) { v.VisitUrlNode(n) }
func (n *UrlNode) connectable()     {}

// PortalNode is a window onto another document, shown from TargetLocation at CameraScale.
type PortalNode struct {
	entityBase
	PortalFilePath string
	Title          string
	TargetLocation geom.Vector
	CameraScale    float64
	Color          Color
}

func NewPortalNode(id, path, title string, location geom.Vector) *PortalNode {
	return &PortalNode{
		entityBase:     newEntityBase(id, geom.Rectangle{Location: location, Size: DefaultPortalNodeSize}),
		PortalFilePath: path,
		Title:          title,
		CameraScale:    1,
	}
}

func (n *PortalNode) Kind() Kind       { return KindPortalNode }
func (n *PortalNode) Accept(v Visitor) { v.VisitPortalNode(n) }
func (n *PortalNode) connectable()     {}

// Resize sets the window size keeping the top-left corner.
func (n *PortalNode) Resize(size geom.Vector) {
	n.setRectangle(geom.Rectangle{Location: n.Rectangle().Location, Size: size})
}
