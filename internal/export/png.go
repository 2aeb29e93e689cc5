// Package export renders a whole stage to a PNG image or an SVG document.
//
// Both formats replay the engine's draw commands, so exports look like the editor.
// PNG output is rendered tile by tile through a camera per tile.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/fogleman/gg"

	"github.com/graphif/stagecore/internal/attachment"
	"github.com/graphif/stagecore/internal/camera"
	"github.com/graphif/stagecore/internal/engine"
	"github.com/graphif/stagecore/internal/geom"
	"github.com/graphif/stagecore/internal/stage"
)

const (
	DefaultPadding    = 100.0
	DefaultTileWidth  = 1920
	DefaultTileHeight = 1080
	DefaultMaxPixels  = 64_000_000
)

var (
	ErrEmptyStage = errors.New("stage has nothing to export")
	ErrTooLarge   = errors.New("export exceeds the pixel limit")
)

// Background is the default canvas color; the theme draws light strokes on dark.
var Background color.Color = color.NRGBA{R: 30, G: 30, B: 30, A: 255}

// Options configures a raster export. Zero fields take the defaults.
type Options struct {
	// Scale is output pixels per world unit, limited to the camera's scale range.
	Scale      float64
	Padding    float64
	TileWidth  int
	TileHeight int
	MaxPixels  int
	Background color.Color
	// Attachments supplies image node pixels. Nil draws placeholders.
	Attachments attachment.Store
}

func (o Options) withDefaults() Options {
	if o.Scale <= 0 {
		o.Scale = 1
	}
	// The tile camera clamps its scale; keep the image size in agreement with it.
	o.Scale = max(camera.MinScale, min(o.Scale, camera.MaxScale))
	if o.Padding <= 0 {
		o.Padding = DefaultPadding
	}
	if o.TileWidth <= 0 {
		o.TileWidth = DefaultTileWidth
	}
	if o.TileHeight <= 0 {
		o.TileHeight = DefaultTileHeight
	}
	if o.MaxPixels <= 0 {
		o.MaxPixels = DefaultMaxPixels
	}
	if o.Background == nil {
		o.Background = Background
	}
	return o
}

// Progress is called after each tile with the number of finished tiles and the total.
type Progress func(done, total int)

// Bounds is the stage bounding rectangle padded on every side.
func Bounds(m *stage.Manager, padding float64) (geom.Rectangle, error) {
	r, ok := m.BoundingRectangle()
	if !ok {
		return geom.Rectangle{}, ErrEmptyStage
	}
	return r.Expand(padding), nil
}

// PNG renders the whole stage. The output is split into tiles of TileWidth x TileHeight
// pixels; ctx is checked between tiles and progress, when non-nil, after each one.
func PNG(ctx context.Context, m *stage.Manager, opts Options, progress Progress) (image.Image, error) {
	opts = opts.withDefaults()
	bounds, err := Bounds(m, opts.Padding)
	if err != nil {
		return nil, err
	}
	width := int(math.Ceil(bounds.Width() * opts.Scale))
	height := int(math.Ceil(bounds.Height() * opts.Scale))
	if width*height > opts.MaxPixels {
		return nil, fmt.Errorf("%dx%d pixels: %w", width, height, ErrTooLarge)
	}

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	cols := (width + opts.TileWidth - 1) / opts.TileWidth
	rows := (height + opts.TileHeight - 1) / opts.TileHeight
	total := cols * rows
	p := newPainter(ctx, opts.Attachments)

	done := 0
	for row := range rows {
		for col := range cols {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("export canceled after %d of %d tiles: %w", done, total, err)
			}
			x0, y0 := col*opts.TileWidth, row*opts.TileHeight
			tile := image.Rect(x0, y0, min(x0+opts.TileWidth, width), min(y0+opts.TileHeight, height))

			img := renderTile(p, m, bounds, tile, opts)
			draw.Draw(out, tile, img, image.Point{}, draw.Src)

			done++
			exportTiles.Inc()
			if progress != nil {
				progress(done, total)
			}
		}
	}
	exportsTotal.WithLabelValues("png").Inc()
	return out, nil
}

// renderTile draws the part of the stage that lands on the pixel rectangle tile.
func renderTile(p *painter, m *stage.Manager, bounds geom.Rectangle, tile image.Rectangle, opts Options) image.Image {
	size := geom.V(float64(tile.Dx()), float64(tile.Dy()))
	cam := camera.New(camera.Options{ViewSize: size})
	cam.SetScale(opts.Scale)
	pixelCenter := geom.V(float64(tile.Min.X), float64(tile.Min.Y)).Add(size.Divide(2))
	cam.MoveTo(bounds.Location.Add(pixelCenter.Divide(opts.Scale)))

	scene := engine.BuildScene(m, cam)

	dc := gg.NewContext(tile.Dx(), tile.Dy())
	dc.SetColor(opts.Background)
	dc.Clear()
	p.paint(dc, scene.Commands)
	return dc.Image()
}
