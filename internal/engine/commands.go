package engine

import (
	"encoding/json"

	"github.com/graphif/stagecore/internal/geom"
)

// Draw operations understood by the frontend.
const (
	OpRect   = "rect"
	OpText   = "text"
	OpPath   = "path"
	OpCircle = "circle"
	OpImage  = "image"
)

// DrawCommand represents a single drawing operation for the frontend to execute.
// The frontend receives a list of these and executes them on a Canvas2D context.
// Geometry is in world coordinates; Transform maps it to the view.
type DrawCommand struct {
	Op           string        `json:"op"`                     // One of the Op* constants
	ObjectID     string        `json:"objectId,omitempty"`     // For hit correlation
	Kind         string        `json:"kind,omitempty"`         // Stage object kind
	Transform    []float64     `json:"transform,omitempty"`    // [a, b, c, d, e, f] affine matrix
	Bounds       []float64     `json:"bounds,omitempty"`       // [x, y, w, h] for rect, text and image ops
	Center       []float64     `json:"center,omitempty"`       // [x, y] for circle ops
	Radius       float64       `json:"radius,omitempty"`       // Circle radius
	Path         []PathCommand `json:"path,omitempty"`         // Path data for "path" ops
	Text         string        `json:"text,omitempty"`         // Text content
	FontSize     float64       `json:"fontSize,omitempty"`     // Text size in world units
	Fill         string        `json:"fill,omitempty"`         // Fill color
	Stroke       string        `json:"stroke,omitempty"`       // Stroke color
	StrokeWidth  float64       `json:"strokeWidth,omitempty"`  // Stroke width
	Widths       []float64     `json:"widths,omitempty"`       // Per-point stroke width for pen strokes
	Opacity      float64       `json:"opacity,omitempty"`      // Global alpha
	Selected     bool          `json:"selected,omitempty"`     // Draw the selection outline
	ImageAssetID string        `json:"imageAssetId,omitempty"` // Attachment id for image lookup
	ImageState   string        `json:"imageState,omitempty"`   // loading, success or notFound
}

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["Z"].
type PathCommand []interface{}

func moveTo(p geom.Vector) PathCommand { return PathCommand{"M", p.X, p.Y} }
func lineTo(p geom.Vector) PathCommand { return PathCommand{"L", p.X, p.Y} }

// polylinePath turns points into an open path.
func polylinePath(points []geom.Vector) []PathCommand {
	if len(points) == 0 {
		return nil
	}
	path := make([]PathCommand, 0, len(points))
	path = append(path, moveTo(points[0]))
	for _, p := range points[1:] {
		path = append(path, lineTo(p))
	}
	return path
}

func rectArgs(r geom.Rectangle) []float64 {
	return []float64{r.Left(), r.Top(), r.Width(), r.Height()}
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// RectToJSON serializes a rectangle to JSON.
func RectToJSON(r geom.Rectangle) string {
	data, _ := json.Marshal(map[string]float64{
		"x":      r.Left(),
		"y":      r.Top(),
		"width":  r.Width(),
		"height": r.Height(),
	})
	return string(data)
}
