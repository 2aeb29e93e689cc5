package stage

import "github.com/graphif/stagecore/internal/geom"

// SizeAdjust controls whether a text node sizes itself to its text.
type SizeAdjust string

const (
	SizeAuto   SizeAdjust = "auto"
	SizeManual SizeAdjust = "manual"
)

// TextNode is the basic mind-map node.
type TextNode struct {
	entityBase
	Text       string
	Color      Color
	SizeAdjust SizeAdjust
}

// NewTextNode creates a text node at location. An empty id generates a new uuid.
func NewTextNode(id, text string, location geom.Vector) *TextNode {
	n := &TextNode{
		entityBase: newEntityBase(id, geom.Rectangle{Location: location}),
		Text:       text,
		SizeAdjust: SizeAuto,
	}
	n.AdjustSize()
	return n
}

func (n *TextNode) Kind() Kind       { return KindTextNode }
func (n *TextNode) Accept(v Visitor) { v.VisitTextNode(n) }
func (n *TextNode) connectable()     {}

// SetText changes the text and refits the box in auto mode.
func (n *TextNode) SetText(text string) {
	n.Text = text
	n.AdjustSize()
}

// AdjustSize fits the box to the text when SizeAdjust is auto.
func (n *TextNode) AdjustSize() {
	if n.SizeAdjust == SizeManual {
		return
	}
	w, h := MeasureText(n.Text, DefaultFontSize)
	loc := n.Rectangle().Location
	n.setRectangle(geom.Rectangle{
		Location: loc,
		Size:     geom.V(w+2*TextPadding, h+2*TextPadding),
	})
}

// Resize switches to manual sizing and sets the width; height still follows the text.
func (n *TextNode) Resize(width float64) {
	n.SizeAdjust = SizeManual
	r := n.Rectangle()
	_, h := MeasureText(n.Text, DefaultFontSize)
	n.setRectangle(geom.Rectangle{
		Location: r.Location,
		Size:     geom.V(max(width, 2*TextPadding), max(r.Height(), h+2*TextPadding)),
	})
}
