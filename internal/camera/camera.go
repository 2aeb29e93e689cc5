// Package camera maps between world space and the view (screen) and animates moves.
package camera

import (
	"math"

	"github.com/graphif/stagecore/internal/geom"
)

const (
	MinScale = 0.01
	MaxScale = 100.0

	// SnapEpsilon is the remaining distance below which an animated move snaps to its target.
	SnapEpsilon = 0.1
	// DefaultBombFrames is the divisor used when BombMove is given no frame count.
	DefaultBombFrames = 8

	scaleEase     = 0.2
	friction      = 0.9
	minSpeed      = 0.01
	scaleSnapDiff = 1e-4
)

// BoundsMode controls what happens when the camera leaves its world region.
type BoundsMode string

const (
	BoundsNone  BoundsMode = "none"
	BoundsWrap  BoundsMode = "wrap"
	BoundsClamp BoundsMode = "clamp"
)

// Options configures a camera.
type Options struct {
	ViewSize geom.Vector
	Mode     BoundsMode
	// World is the region used by BoundsWrap and BoundsClamp.
	World geom.Rectangle
}

type bombMove struct {
	target geom.Vector
	frames float64
}

// Camera holds the world-space point shown at the view center and the zoom level.
// It is not safe for concurrent use; it is advanced from the render loop.
type Camera struct {
	Location     geom.Vector
	CurrentScale float64
	TargetScale  float64
	// Speed is a world-space velocity per tick decayed by friction.
	Speed geom.Vector

	viewSize geom.Vector
	mode     BoundsMode
	world    geom.Rectangle

	bomb    *bombMove
	locked  bool
	version uint64
}

// New returns a camera at the origin with scale 1.
func New(opts Options) *Camera {
	mode := opts.Mode
	if mode == "" {
		mode = BoundsNone
	}
	return &Camera{
		CurrentScale: 1,
		TargetScale:  1,
		viewSize:     opts.ViewSize,
		mode:         mode,
		world:        opts.World,
	}
}

// Version increases whenever location or scale change.
func (c *Camera) Version() uint64 { return c.version }

func (c *Camera) ViewSize() geom.Vector { return c.viewSize }

// SetViewSize updates the view dimensions, e.g. on window resize.
func (c *Camera) SetViewSize(size geom.Vector) {
	if size != c.viewSize {
		c.viewSize = size
		c.version++
	}
}

func (c *Camera) viewCenter() geom.Vector {
	return c.viewSize.Divide(2)
}

// Matrix is the world to view transform.
func (c *Camera) Matrix() geom.Matrix2D {
	return geom.Translate(c.viewCenter()).
		Multiply(geom.Scale(c.CurrentScale)).
		Multiply(geom.Translate(c.Location.Multiply(-1)))
}

// WorldToView maps a world point to view coordinates.
func (c *Camera) WorldToView(p geom.Vector) geom.Vector {
	return p.Subtract(c.Location).Multiply(c.CurrentScale).Add(c.viewCenter())
}

// WorldToViewRect maps a world rectangle to view coordinates.
func (c *Camera) WorldToViewRect(r geom.Rectangle) geom.Rectangle {
	return geom.Rectangle{
		Location: c.WorldToView(r.Location),
		Size:     r.Size.Multiply(c.CurrentScale),
	}
}

// ViewToWorld is the inverse of WorldToView.
func (c *Camera) ViewToWorld(p geom.Vector) geom.Vector {
	return p.Subtract(c.viewCenter()).Divide(c.CurrentScale).Add(c.Location)
}

// ViewRectangle returns the world-space region currently visible.
func (c *Camera) ViewRectangle() geom.Rectangle {
	return geom.FromTwoPoints(c.ViewToWorld(geom.Zero()), c.ViewToWorld(c.viewSize))
}

// Lock freezes the camera, e.g. while a text edit overlay is shown.
func (c *Camera) Lock() {
	c.locked = true
	c.bomb = nil
	c.Speed = geom.Vector{}
}

func (c *Camera) Unlock()        { c.locked = false }
func (c *Camera) IsLocked() bool { return c.locked }

// IsMoving reports whether an animated move is in flight.
func (c *Camera) IsMoving() bool { return c.bomb != nil }

// MoveTo places the camera immediately and cancels any animated move.
func (c *Camera) MoveTo(p geom.Vector) bool {
	if c.locked {
		return false
	}
	c.bomb = nil
	c.setLocation(p)
	return true
}

// MoveBy pans by a world-space offset.
func (c *Camera) MoveBy(d geom.Vector) bool {
	return c.MoveTo(c.Location.Add(d))
}

// PanView pans by a view-space offset, as produced by a mouse drag.
func (c *Camera) PanView(d geom.Vector) bool {
	return c.MoveBy(d.Divide(c.CurrentScale).Multiply(-1))
}

// BombMove starts an eased move toward target. Each Tick covers 1/frames of the
// remaining distance. A later call replaces an in-flight move. In a bounded world the
// target is normalized first, and a wrapped world moves the short way around.
func (c *Camera) BombMove(target geom.Vector, frames int) bool {
	if c.locked {
		return false
	}
	if frames <= 0 {
		frames = DefaultBombFrames
	}
	c.bomb = &bombMove{target: c.normalize(target), frames: float64(frames)}
	return true
}

// SetScale changes the zoom immediately, clamped to [MinScale, MaxScale].
func (c *Camera) SetScale(s float64) bool {
	if c.locked {
		return false
	}
	s = clampScale(s)
	c.CurrentScale, c.TargetScale = s, s
	c.version++
	return true
}

// SetTargetScale zooms smoothly; Tick eases CurrentScale toward it.
func (c *Camera) SetTargetScale(s float64) bool {
	if c.locked {
		return false
	}
	c.TargetScale = clampScale(s)
	return true
}

// ZoomAt multiplies the scale by factor keeping the world point under viewPoint fixed.
func (c *Camera) ZoomAt(viewPoint geom.Vector, factor float64) bool {
	if c.locked || factor <= 0 {
		return false
	}
	anchor := c.ViewToWorld(viewPoint)
	s := clampScale(c.CurrentScale * factor)
	c.CurrentScale, c.TargetScale = s, s
	c.setLocation(anchor.Subtract(viewPoint.Subtract(c.viewCenter()).Divide(s)))
	return true
}

// Tick advances animations by one frame and reports whether anything changed.
func (c *Camera) Tick() bool {
	if c.locked {
		return false
	}
	before := c.version

	if c.bomb != nil {
		remaining := c.offset(c.Location, c.bomb.target)
		if remaining.Magnitude() < SnapEpsilon {
			c.setLocation(c.bomb.target)
			c.bomb = nil
		} else {
			c.setLocation(c.Location.Add(remaining.Divide(c.bomb.frames)))
		}
	}

	if !c.Speed.IsZero() {
		c.setLocation(c.Location.Add(c.Speed))
		c.Speed = c.Speed.Multiply(friction)
		if c.Speed.Magnitude() < minSpeed {
			c.Speed = geom.Vector{}
		}
	}

	if c.CurrentScale != c.TargetScale {
		diff := c.TargetScale - c.CurrentScale
		if math.Abs(diff) < scaleSnapDiff {
			c.CurrentScale = c.TargetScale
		} else {
			c.CurrentScale += diff * scaleEase
		}
		c.version++
	}

	return c.version != before
}

// Reset returns to the origin at scale 1.
func (c *Camera) Reset() {
	c.bomb = nil
	c.Speed = geom.Vector{}
	c.CurrentScale, c.TargetScale = 1, 1
	c.setLocation(geom.Zero())
	c.version++
}

func (c *Camera) setLocation(p geom.Vector) {
	p = c.normalize(p)
	if p == c.Location {
		return
	}
	c.Location = p
	c.version++
}

func (c *Camera) normalize(p geom.Vector) geom.Vector {
	w := c.world
	switch c.mode {
	case BoundsWrap:
		if w.Width() <= 0 || w.Height() <= 0 {
			return p
		}
		return geom.Vector{
			X: w.Left() + wrap(p.X-w.Left(), w.Width()),
			Y: w.Top() + wrap(p.Y-w.Top(), w.Height()),
		}
	case BoundsClamp:
		return geom.Vector{
			X: math.Max(w.Left(), math.Min(p.X, w.Right())),
			Y: math.Max(w.Top(), math.Min(p.Y, w.Bottom())),
		}
	default:
		return p
	}
}

// offset is the displacement from a to b; in a wrapped world it takes the shorter way.
func (c *Camera) offset(a, b geom.Vector) geom.Vector {
	d := b.Subtract(a)
	w := c.world
	if c.mode != BoundsWrap || w.Width() <= 0 || w.Height() <= 0 {
		return d
	}
	return geom.Vector{X: shortest(d.X, w.Width()), Y: shortest(d.Y, w.Height())}
}

func shortest(d, size float64) float64 {
	d = math.Mod(d, size)
	switch {
	case d > size/2:
		d -= size
	case d < -size/2:
		d += size
	}
	return d
}

func wrap(v, size float64) float64 {
	v = math.Mod(v, size)
	if v < 0 {
		v += size
	}
	return v
}

func clampScale(s float64) float64 {
	return math.Max(MinScale, math.Min(MaxScale, s))
}
