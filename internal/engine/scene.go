package engine

import "github.com/graphif/stagecore/internal/geom"

// Scene is the render-ready state of the stage for one camera position. It is retained
// between frames and rebuilt only when the stage or the camera changed.
type Scene struct {
	Commands []DrawCommand
	// Bounds maps every drawn object to its world bounding rectangle.
	Bounds map[string]geom.Rectangle
	// Culled counts objects skipped because they were outside the view.
	Culled int

	cameraVersion uint64
}

// NewScene creates an empty scene.
func NewScene() *Scene {
	return &Scene{Bounds: make(map[string]geom.Rectangle)}
}

// Contains reports whether id was drawn.
func (s *Scene) Contains(id string) bool {
	_, ok := s.Bounds[id]
	return ok
}

// SelectionBounds returns the union of the drawn bounds of ids.
func (s *Scene) SelectionBounds(ids []string) (geom.Rectangle, bool) {
	var rects []geom.Rectangle
	for _, id := range ids {
		if r, ok := s.Bounds[id]; ok {
			rects = append(rects, r)
		}
	}
	r, err := geom.BoundingRectangle(rects...)
	return r, err == nil
}

func (s *Scene) emit(cmd DrawCommand, bounds geom.Rectangle) {
	s.Commands = append(s.Commands, cmd)
	if cmd.ObjectID == "" {
		return
	}
	if prev, ok := s.Bounds[cmd.ObjectID]; ok {
		bounds = prev.Union(bounds)
	}
	s.Bounds[cmd.ObjectID] = bounds
}
