package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/graphif/stagecore/internal/attachment"
	"github.com/graphif/stagecore/internal/engine"
	"github.com/graphif/stagecore/internal/geom"
	"github.com/graphif/stagecore/internal/stage"
)

const lineHeightRate = 1.5

var regular *truetype.Font

func init() {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		panic(fmt.Sprintf("parse bundled font: %v", err))
	}
	regular = f
}

// painter replays draw commands onto a gg context. Faces and decoded attachments are
// cached for the lifetime of one export.
type painter struct {
	ctx         context.Context
	attachments attachment.Store
	faces       map[int]font.Face
	images      map[string]image.Image
}

func newPainter(ctx context.Context, attachments attachment.Store) *painter {
	return &painter{
		ctx:         ctx,
		attachments: attachments,
		faces:       make(map[int]font.Face),
		images:      make(map[string]image.Image),
	}
}

func (p *painter) face(size float64) font.Face {
	key := max(1, int(math.Round(size)))
	if f, ok := p.faces[key]; ok {
		return f
	}
	f := truetype.NewFace(regular, &truetype.Options{
		Size:    float64(key),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	p.faces[key] = f
	return f
}

func (p *painter) image(id string) (image.Image, bool) {
	if img, ok := p.images[id]; ok {
		return img, img != nil
	}
	img, err := p.decode(id)
	if err != nil {
		slog.Warn("export: attachment not drawable", "attachmentId", id, "error", err)
	}
	p.images[id] = img
	return img, img != nil
}

// decode returns nil without an error for SVG attachments, which are drawn as placeholders.
func (p *painter) decode(id string) (image.Image, error) {
	if p.attachments == nil {
		return nil, nil
	}
	blob, err := p.attachments.Get(p.ctx, id)
	if err != nil {
		return nil, err
	}
	if blob.MIME == attachment.MIMESVG {
		return nil, nil
	}
	img, _, err := image.Decode(bytes.NewReader(blob.Data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", blob.MIME, err)
	}
	return img, nil
}

func matrixOf(t []float64) geom.Matrix2D {
	if len(t) != 6 {
		return geom.Identity()
	}
	return geom.Matrix2D{t[0], t[1], t[2], t[3], t[4], t[5]}
}

func rectOf(b []float64) geom.Rectangle {
	if len(b) != 4 {
		return geom.Rectangle{}
	}
	return geom.Rect(b[0], b[1], b[2], b[3])
}

func (p *painter) paint(dc *gg.Context, cmds []engine.DrawCommand) {
	for _, cmd := range cmds {
		m := matrixOf(cmd.Transform)
		scale := math.Sqrt(math.Abs(m.Determinant()))
		alpha := cmd.Opacity
		if alpha == 0 {
			alpha = 1
		}
		switch cmd.Op {
		case engine.OpRect:
			r := m.TransformRect(rectOf(cmd.Bounds))
			dc.DrawRectangle(r.Left(), r.Top(), r.Width(), r.Height())
			p.fillAndStroke(dc, cmd, scale, alpha)
		case engine.OpCircle:
			if len(cmd.Center) != 2 {
				continue
			}
			c := m.TransformPoint(geom.V(cmd.Center[0], cmd.Center[1]))
			dc.DrawCircle(c.X, c.Y, cmd.Radius*scale)
			p.fillAndStroke(dc, cmd, scale, alpha)
		case engine.OpPath:
			p.path(dc, cmd, m, scale, alpha)
		case engine.OpText:
			p.text(dc, cmd, m, scale, alpha)
		case engine.OpImage:
			p.picture(dc, cmd, m, scale, alpha)
		}
	}
}

func (p *painter) fillAndStroke(dc *gg.Context, cmd engine.DrawCommand, scale, alpha float64) {
	if c, ok := parseColor(cmd.Fill, alpha); ok {
		dc.SetColor(c)
		dc.FillPreserve()
	}
	if c, ok := parseColor(cmd.Stroke, alpha); ok {
		dc.SetColor(c)
		dc.SetLineWidth(max(cmd.StrokeWidth*scale, 1))
		dc.StrokePreserve()
	}
	dc.ClearPath()
}

func pointOf(m geom.Matrix2D, seg engine.PathCommand) (geom.Vector, bool) {
	if len(seg) < 3 {
		return geom.Vector{}, false
	}
	x, ok1 := seg[1].(float64)
	y, ok2 := seg[2].(float64)
	return m.TransformPoint(geom.V(x, y)), ok1 && ok2
}

func (p *painter) path(dc *gg.Context, cmd engine.DrawCommand, m geom.Matrix2D, scale, alpha float64) {
	c, ok := parseColor(cmd.Stroke, alpha)
	if !ok {
		return
	}
	dc.SetColor(c)
	dc.SetLineCapRound()
	dc.SetLineJoinRound()

	// Pen strokes vary in width, so each segment is stroked on its own.
	if len(cmd.Widths) == len(cmd.Path) && len(cmd.Widths) > 0 {
		var prev geom.Vector
		for i, seg := range cmd.Path {
			pt, ok := pointOf(m, seg)
			if !ok {
				continue
			}
			if i > 0 {
				dc.SetLineWidth(max(cmd.Widths[i]*scale, 1))
				dc.DrawLine(prev.X, prev.Y, pt.X, pt.Y)
				dc.Stroke()
			}
			prev = pt
		}
		return
	}

	for _, seg := range cmd.Path {
		if len(seg) == 0 {
			continue
		}
		switch seg[0] {
		case "M":
			if pt, ok := pointOf(m, seg); ok {
				dc.MoveTo(pt.X, pt.Y)
			}
		case "L":
			if pt, ok := pointOf(m, seg); ok {
				dc.LineTo(pt.X, pt.Y)
			}
		case "Z":
			dc.ClosePath()
		}
	}
	if f, ok := parseColor(cmd.Fill, alpha); ok {
		dc.SetColor(f)
		dc.FillPreserve()
		dc.SetColor(c)
	}
	dc.SetLineWidth(max(cmd.StrokeWidth*scale, 1))
	dc.Stroke()
}

func (p *painter) text(dc *gg.Context, cmd engine.DrawCommand, m geom.Matrix2D, scale, alpha float64) {
	c, ok := parseColor(cmd.Fill, alpha)
	if !ok || cmd.Text == "" {
		return
	}
	size := cmd.FontSize * scale
	if size < 2 {
		return
	}
	r := m.TransformRect(rectOf(cmd.Bounds))
	dc.SetFontFace(p.face(size))
	dc.SetColor(c)
	lh := size * lineHeightRate
	for i, line := range strings.Split(cmd.Text, "\n") {
		dc.DrawStringAnchored(line, r.Left(), r.Top()+float64(i)*lh+lh/2, 0, 0.5)
	}
}

func (p *painter) picture(dc *gg.Context, cmd engine.DrawCommand, m geom.Matrix2D, scale, alpha float64) {
	r := m.TransformRect(rectOf(cmd.Bounds))
	img, ok := p.image(cmd.ImageAssetID)
	if ok && cmd.ImageState != string(stage.ImageNotFound) {
		b := img.Bounds()
		if b.Dx() == 0 || b.Dy() == 0 {
			return
		}
		dc.Push()
		dc.Translate(r.Left(), r.Top())
		dc.Scale(r.Width()/float64(b.Dx()), r.Height()/float64(b.Dy()))
		dc.DrawImage(img, 0, 0)
		dc.Pop()
		return
	}

	// Placeholder: outlined box, crossed out when the attachment is missing.
	stroke, _ := parseColor(engine.DefaultStroke, alpha)
	dc.SetColor(stroke)
	dc.SetLineWidth(max(scale, 1))
	dc.DrawRectangle(r.Left(), r.Top(), r.Width(), r.Height())
	if cmd.ImageState == string(stage.ImageNotFound) {
		dc.MoveTo(r.Left(), r.Top())
		dc.LineTo(r.Right(), r.Bottom())
		dc.MoveTo(r.Right(), r.Top())
		dc.LineTo(r.Left(), r.Bottom())
	}
	dc.Stroke()
}

// parseColor reads the CSS colors produced by the scene builder: #rrggbb and
// rgba(r,g,b,a). alpha multiplies the color's own alpha.
func parseColor(s string, alpha float64) (color.Color, bool) {
	var r, g, b int
	a := 1.0
	switch {
	case s == "":
		return nil, false
	case strings.HasPrefix(s, "#"):
		if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
			return nil, false
		}
	case strings.HasPrefix(s, "rgba("):
		if _, err := fmt.Sscanf(s, "rgba(%d,%d,%d,%g)", &r, &g, &b, &a); err != nil {
			return nil, false
		}
	default:
		return nil, false
	}
	a = min(max(a*alpha, 0), 1)
	return color.NRGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: uint8(math.Round(a * 255))}, true
}
