package export

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	svg "github.com/ajstarks/svgo"

	"github.com/graphif/stagecore/internal/camera"
	"github.com/graphif/stagecore/internal/engine"
	"github.com/graphif/stagecore/internal/geom"
	"github.com/graphif/stagecore/internal/stage"
)

// SVGOptions configures a vector export.
type SVGOptions struct {
	Padding float64
	// Background is a CSS color; empty leaves the document transparent.
	Background string
	// AttachmentURL maps an attachment id to the href of an image node. Nil draws
	// placeholders instead.
	AttachmentURL func(id string) string
}

// errWriter keeps the first write error; svgo does not report them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}

// SVG writes the whole stage as one SVG document in world units.
func SVG(w io.Writer, m *stage.Manager, opts SVGOptions) error {
	if opts.Padding <= 0 {
		opts.Padding = DefaultPadding
	}
	bounds, err := Bounds(m, opts.Padding)
	if err != nil {
		return err
	}
	cam := camera.New(camera.Options{ViewSize: bounds.Size})
	cam.MoveTo(bounds.Center())
	scene := engine.BuildScene(m, cam)

	ew := &errWriter{w: w}
	canvas := svg.New(ew)
	width, height := int(math.Ceil(bounds.Width())), int(math.Ceil(bounds.Height()))
	canvas.Start(width, height)
	if opts.Background != "" {
		canvas.Rect(0, 0, width, height, "fill:"+opts.Background)
	}
	canvas.Gtransform(matrixAttr(cam.Matrix()))
	for _, cmd := range scene.Commands {
		drawSVG(canvas, cmd, opts)
	}
	canvas.Gend()
	canvas.End()
	if ew.err != nil {
		return fmt.Errorf("write svg: %w", ew.err)
	}
	exportsTotal.WithLabelValues("svg").Inc()
	return nil
}

func matrixAttr(m geom.Matrix2D) string {
	parts := make([]string, len(m))
	for i, v := range m {
		parts[i] = num(v)
	}
	return "matrix(" + strings.Join(parts, " ") + ")"
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func round(v float64) int { return int(math.Round(v)) }

func style(cmd engine.DrawCommand) string {
	var parts []string
	if cmd.Fill != "" {
		parts = append(parts, "fill:"+cmd.Fill)
	} else {
		parts = append(parts, "fill:none")
	}
	if cmd.Stroke != "" {
		parts = append(parts, "stroke:"+cmd.Stroke, "stroke-width:"+num(cmd.StrokeWidth))
	}
	if cmd.Opacity > 0 && cmd.Opacity < 1 {
		parts = append(parts, "opacity:"+num(cmd.Opacity))
	}
	return strings.Join(parts, ";")
}

func pathData(path []engine.PathCommand) string {
	var b strings.Builder
	for _, seg := range path {
		for i, v := range seg {
			if i > 0 {
				b.WriteByte(' ')
			}
			switch x := v.(type) {
			case string:
				b.WriteString(x)
			case float64:
				b.WriteString(strconv.FormatFloat(x, 'f', 2, 64))
			}
		}
		b.WriteByte(' ')
	}
	return strings.TrimSpace(b.String())
}

func drawSVG(canvas *svg.SVG, cmd engine.DrawCommand, opts SVGOptions) {
	r := rectOf(cmd.Bounds)
	switch cmd.Op {
	case engine.OpRect:
		canvas.Rect(round(r.Left()), round(r.Top()), round(r.Width()), round(r.Height()), style(cmd))
	case engine.OpCircle:
		if len(cmd.Center) == 2 {
			canvas.Circle(round(cmd.Center[0]), round(cmd.Center[1]), round(cmd.Radius), style(cmd))
		}
	case engine.OpPath:
		s := style(cmd) + ";stroke-linecap:round;stroke-linejoin:round"
		canvas.Path(pathData(cmd.Path), s)
	case engine.OpText:
		lh := cmd.FontSize * lineHeightRate
		s := fmt.Sprintf("font-family:sans-serif;font-size:%spx;fill:%s;dominant-baseline:middle", num(cmd.FontSize), cmd.Fill)
		for i, line := range strings.Split(cmd.Text, "\n") {
			canvas.Text(round(r.Left()), round(r.Top()+float64(i)*lh+lh/2), line, s)
		}
	case engine.OpImage:
		if opts.AttachmentURL != nil && cmd.ImageState != string(stage.ImageNotFound) {
			canvas.Image(round(r.Left()), round(r.Top()), round(r.Width()), round(r.Height()), opts.AttachmentURL(cmd.ImageAssetID))
			return
		}
		canvas.Rect(round(r.Left()), round(r.Top()), round(r.Width()), round(r.Height()),
			"fill:none;stroke:"+engine.DefaultStroke+";stroke-dasharray:8,8")
	}
}
