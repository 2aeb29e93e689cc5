package stage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/graphif/stagecore/internal/collision"
	"github.com/graphif/stagecore/internal/geom"
)

// PenStrokeSegment is one sampled point of freehand ink.
type PenStrokeSegment struct {
	Location geom.Vector
	Pressure float64
}

// PenStroke is freehand ink. It cannot be an edge endpoint.
type PenStroke struct {
	entityBase
	Segments []PenStrokeSegment
	Color    Color
}

func NewPenStroke(id string, segments []PenStrokeSegment, color Color) *PenStroke {
	s := &PenStroke{entityBase: entityBase{base: newBase(id)}, Segments: segments, Color: color}
	s.rebuildBox()
	return s
}

func (s *PenStroke) Kind() Kind       { return KindPenStroke }
func (s *PenStroke) Accept(v Visitor) { v.VisitPenStroke(s) }

// Rectangle is the bounds of the stroke; an empty stroke has a zero rectangle.
func (s *PenStroke) Rectangle() geom.Rectangle {
	if r, ok := s.box.Rectangle(); ok {
		return r
	}
	return geom.Rectangle{}
}

func (s *PenStroke) MoveBy(d geom.Vector) {
	for i := range s.Segments {
		s.Segments[i].Location = s.Segments[i].Location.Add(d)
	}
	s.rebuildBox()
}

func (s *PenStroke) MoveTo(p geom.Vector) {
	s.MoveBy(p.Subtract(s.Rectangle().Location))
}

// Path returns the sampled locations.
func (s *PenStroke) Path() []geom.Vector {
	pts := make([]geom.Vector, len(s.Segments))
	for i, seg := range s.Segments {
		pts[i] = seg.Location
	}
	return pts
}

// rebuildBox makes one line per consecutive pair of segments.
func (s *PenStroke) rebuildBox() {
	shapes := make([]geom.Shape, 0, len(s.Segments))
	switch len(s.Segments) {
	case 0:
	case 1:
		p := s.Segments[0].Location
		shapes = append(shapes, geom.Line{Start: p, End: p})
	default:
		for i := 1; i < len(s.Segments); i++ {
			shapes = append(shapes, geom.Line{Start: s.Segments[i-1].Location, End: s.Segments[i].Location})
		}
	}
	s.box = collision.New(shapes...)
}

// DumpString encodes segments as "x,y,pressure~x,y,pressure".
func (s *PenStroke) DumpString() string {
	parts := make([]string, len(s.Segments))
	for i, seg := range s.Segments {
		parts[i] = strconv.FormatFloat(seg.Location.X, 'f', -1, 64) + "," +
			strconv.FormatFloat(seg.Location.Y, 'f', -1, 64) + "," +
			strconv.FormatFloat(seg.Pressure, 'f', -1, 64)
	}
	return strings.Join(parts, "~")
}

// ParsePenStrokeContent decodes DumpString output. The pressure column is optional.
func ParsePenStrokeContent(content string) ([]PenStrokeSegment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}
	parts := strings.Split(content, "~")
	segs := make([]PenStrokeSegment, 0, len(parts))
	for i, part := range parts {
		fields := strings.Split(part, ",")
		if len(fields) < 2 || len(fields) > 3 {
			return nil, fmt.Errorf("segment %d: want x,y[,pressure], got %q", i, part)
		}
		nums := [3]float64{0, 0, 1}
		for j, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, fmt.Errorf("segment %d: %w", i, err)
			}
			nums[j] = v
		}
		segs = append(segs, PenStrokeSegment{Location: geom.V(nums[0], nums[1]), Pressure: nums[2]})
	}
	return segs, nil
}
