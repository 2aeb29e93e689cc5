package stage

import (
	"log/slog"
	"math"

	"github.com/graphif/stagecore/internal/geom"
)

const (
	MinImageScale = 0.1
	MaxImageScale = 10.0
)

// ImageState tracks whether the referenced attachment could be resolved.
type ImageState string

const (
	ImageLoading  ImageState = "loading"
	ImageSuccess  ImageState = "success"
	ImageNotFound ImageState = "notFound"
)

// AttachmentChecker answers whether an attachment id resolves to stored bytes.
type AttachmentChecker interface {
	HasAttachment(id string) bool
}

// ImageNode shows a raster attachment. The node owns the reference, not the bytes.
type ImageNode struct {
	entityBase
	AttachmentID string
	State        ImageState

	scale        float64
	originalSize geom.Vector
}

// NewImageNode places an image whose natural size is originalSize.
func NewImageNode(id, attachmentID string, location, originalSize geom.Vector) *ImageNode {
	return &ImageNode{
		entityBase:   newEntityBase(id, geom.Rectangle{Location: location, Size: originalSize}),
		AttachmentID: attachmentID,
		State:        ImageLoading,
		scale:        1,
		originalSize: originalSize,
	}
}

func (n *ImageNode) Kind() Kind       { return KindImageNode }
func (n *ImageNode) Accept(v Visitor) { v.VisitImageNode(n) }
func (n *ImageNode) connectable()     {}

func (n *ImageNode) Scale() float64            { return n.scale }
func (n *ImageNode) OriginalSize() geom.Vector { return n.originalSize }

// SetScale clamps s to [MinImageScale, MaxImageScale] and resizes from the top-left corner.
func (n *ImageNode) SetScale(s float64) {
	n.scale = clampImageScale(s)
	n.setRectangle(geom.Rectangle{Location: n.Rectangle().Location, Size: n.originalSize.Multiply(n.scale)})
}

// Resolve checks the attachment. A missing attachment leaves the node in place as a
// placeholder in the ImageNotFound state.
func (n *ImageNode) Resolve(c AttachmentChecker) ImageState {
	n.State = resolveAttachment(c, n.AttachmentID, n.uuid)
	return n.State
}

// SvgNode shows a vector attachment tinted with Color.
type SvgNode struct {
	entityBase
	AttachmentID string
	Color        Color
	State        ImageState

	scale        float64
	originalSize geom.Vector
}

// NewSvgNode places an SVG whose natural size is originalSize.
func NewSvgNode(id, attachmentID string, location, originalSize geom.Vector) *SvgNode {
	return &SvgNode{
		entityBase:   newEntityBase(id, geom.Rectangle{Location: location, Size: originalSize}),
		AttachmentID: attachmentID,
		State:        ImageLoading,
		scale:        1,
		originalSize: originalSize,
	}
}

func (n *SvgNode) Kind() Kind       { return KindSvgNode }
func (n *SvgNode) Accept(v Visitor) { v.VisitSvgNode(n) }
func (n *SvgNode) connectable()     {}

func (n *SvgNode) Scale() float64            { return n.scale }
func (n *SvgNode) OriginalSize() geom.Vector { return n.originalSize }

func (n *SvgNode) SetScale(s float64) {
	n.scale = clampImageScale(s)
	n.setRectangle(geom.Rectangle{Location: n.Rectangle().Location, Size: n.originalSize.Multiply(n.scale)})
}

func (n *SvgNode) Resolve(c AttachmentChecker) ImageState {
	n.State = resolveAttachment(c, n.AttachmentID, n.uuid)
	return n.State
}

func resolveAttachment(c AttachmentChecker, attachmentID, owner string) ImageState {
	if c == nil {
		return ImageLoading
	}
	if attachmentID == "" || !c.HasAttachment(attachmentID) {
		slog.Warn("attachment not found", "attachmentId", attachmentID, "uuid", owner)
		return ImageNotFound
	}
	return ImageSuccess
}

func clampImageScale(s float64) float64 {
	if s <= 0 || math.IsNaN(s) {
		return 1
	}
	return math.Max(MinImageScale, math.Min(MaxImageScale, s))
}

// restoreScale rebuilds the natural size from a stored box and scale.
func restoreScale(size geom.Vector, s float64) (float64, geom.Vector) {
	s = clampImageScale(s)
	return s, size.Divide(s)
}
