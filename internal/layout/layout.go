// Package layout arranges groups of entities: alignment, even spacing and packing.
//
// Every function moves entities through Manager.MoveEntity, so sections carry their
// children and enclosing sections refit. When a section and one of its descendants are
// both passed, only the section is moved.
package layout

import (
	"math"
	"slices"

	"github.com/graphif/stagecore/internal/geom"
	"github.com/graphif/stagecore/internal/stage"
)

const (
	// GridSpacing is the gap between grid cells.
	GridSpacing = 20.0
	// PackSpacing is the gap used by TightPack.
	PackSpacing = 5.0
)

// Selected returns the selected entities that are not inside another selected section.
func Selected(m *stage.Manager) []stage.Entity {
	return topLevel(m, m.SelectedEntities())
}

func topLevel(m *stage.Manager, es []stage.Entity) []stage.Entity {
	var sections []*stage.Section
	for _, e := range es {
		if s, ok := e.(*stage.Section); ok {
			sections = append(sections, s)
		}
	}
	out := make([]stage.Entity, 0, len(es))
	for _, e := range es {
		inside := slices.ContainsFunc(sections, func(s *stage.Section) bool {
			return s.UUID() != e.UUID() && m.IsEntityInSection(e, s)
		})
		if !inside {
			out = append(out, e)
		}
	}
	return out
}

func moveTo(m *stage.Manager, e stage.Entity, p geom.Vector) {
	m.MoveEntity(e, p.Subtract(e.Rectangle().Location))
}

func alignEach(m *stage.Manager, es []stage.Entity, pick func(geom.Rectangle) float64, pickAll func(...float64) float64, delta func(target float64, r geom.Rectangle) geom.Vector) {
	es = topLevel(m, es)
	if len(es) < 2 {
		return
	}
	values := make([]float64, len(es))
	for i, e := range es {
		values[i] = pick(e.Rectangle())
	}
	target := pickAll(values...)
	for _, e := range es {
		m.MoveEntity(e, delta(target, e.Rectangle()))
	}
}

func minOf(xs ...float64) float64 { return slices.Min(xs) }
func maxOf(xs ...float64) float64 { return slices.Max(xs) }

func AlignLeft(m *stage.Manager, es []stage.Entity) {
	alignEach(m, es, geom.Rectangle.Left, minOf, func(x float64, r geom.Rectangle) geom.Vector {
		return geom.V(x-r.Left(), 0)
	})
}

func AlignRight(m *stage.Manager, es []stage.Entity) {
	alignEach(m, es, geom.Rectangle.Right, maxOf, func(x float64, r geom.Rectangle) geom.Vector {
		return geom.V(x-r.Right(), 0)
	})
}

func AlignTop(m *stage.Manager, es []stage.Entity) {
	alignEach(m, es, geom.Rectangle.Top, minOf, func(y float64, r geom.Rectangle) geom.Vector {
		return geom.V(0, y-r.Top())
	})
}

func AlignBottom(m *stage.Manager, es []stage.Entity) {
	alignEach(m, es, geom.Rectangle.Bottom, maxOf, func(y float64, r geom.Rectangle) geom.Vector {
		return geom.V(0, y-r.Bottom())
	})
}

// AlignCenterHorizontal puts every center on the horizontal midline of the group.
func AlignCenterHorizontal(m *stage.Manager, es []stage.Entity) {
	es = topLevel(m, es)
	bounds, ok := boundsOf(es)
	if !ok || len(es) < 2 {
		return
	}
	mid := bounds.Center().Y
	for _, e := range es {
		m.MoveEntity(e, geom.V(0, mid-e.Rectangle().Center().Y))
	}
}

// AlignCenterVertical puts every center on the vertical midline of the group.
func AlignCenterVertical(m *stage.Manager, es []stage.Entity) {
	es = topLevel(m, es)
	bounds, ok := boundsOf(es)
	if !ok || len(es) < 2 {
		return
	}
	mid := bounds.Center().X
	for _, e := range es {
		m.MoveEntity(e, geom.V(mid-e.Rectangle().Center().X, 0))
	}
}

// DistributeHorizontal keeps the outermost entities in place and makes the gaps between
// neighbours equal.
func DistributeHorizontal(m *stage.Manager, es []stage.Entity) {
	distribute(m, es, func(r geom.Rectangle) (float64, float64) { return r.Left(), r.Width() },
		func(v float64) geom.Vector { return geom.V(v, 0) })
}

func DistributeVertical(m *stage.Manager, es []stage.Entity) {
	distribute(m, es, func(r geom.Rectangle) (float64, float64) { return r.Top(), r.Height() },
		func(v float64) geom.Vector { return geom.V(0, v) })
}

func distribute(m *stage.Manager, es []stage.Entity, axis func(geom.Rectangle) (start, size float64), along func(float64) geom.Vector) {
	es = sortedAlong(topLevel(m, es), axis)
	if len(es) < 2 {
		return
	}
	first, _ := axis(es[0].Rectangle())
	end := math.Inf(-1)
	total := 0.0
	for _, e := range es {
		start, size := axis(e.Rectangle())
		end = max(end, start+size)
		total += size
	}
	gap := (end - first - total) / float64(len(es)-1)
	cursor := first
	for _, e := range es {
		start, size := axis(e.Rectangle())
		m.MoveEntity(e, along(cursor-start))
		cursor += size + gap
	}
}

// PackLeftToRight keeps the leftmost entity and lines the rest up against it with no gaps.
func PackLeftToRight(m *stage.Manager, es []stage.Entity) {
	pack(m, es, func(r geom.Rectangle) (float64, float64) { return r.Left(), r.Width() },
		func(v float64) geom.Vector { return geom.V(v, 0) })
}

// PackTopToBottom keeps the topmost entity and stacks the rest under it with no gaps.
func PackTopToBottom(m *stage.Manager, es []stage.Entity) {
	pack(m, es, func(r geom.Rectangle) (float64, float64) { return r.Top(), r.Height() },
		func(v float64) geom.Vector { return geom.V(0, v) })
}

func pack(m *stage.Manager, es []stage.Entity, axis func(geom.Rectangle) (start, size float64), along func(float64) geom.Vector) {
	es = sortedAlong(topLevel(m, es), axis)
	if len(es) < 2 {
		return
	}
	start, size := axis(es[0].Rectangle())
	cursor := start + size
	for _, e := range es[1:] {
		s, sz := axis(e.Rectangle())
		m.MoveEntity(e, along(cursor-s))
		cursor += sz
	}
}

func sortedAlong(es []stage.Entity, axis func(geom.Rectangle) (float64, float64)) []stage.Entity {
	es = slices.Clone(es)
	slices.SortStableFunc(es, func(a, b stage.Entity) int {
		sa, _ := axis(a.Rectangle())
		sb, _ := axis(b.Rectangle())
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		}
		return 0
	})
	return es
}

// Grid places entities in square cells, row by row, in a grid as close to square as
// possible and centered on the group's previous center.
func Grid(m *stage.Manager, es []stage.Entity) {
	es = topLevel(m, es)
	bounds, ok := boundsOf(es)
	if !ok || len(es) < 2 {
		return
	}
	cell := 0.0
	for _, e := range es {
		r := e.Rectangle()
		cell = max(cell, r.Width(), r.Height())
	}
	cell += GridSpacing
	rows, cols := optimalRowsCols(len(es))
	origin := bounds.Center().Subtract(geom.V(float64(cols)*cell, float64(rows)*cell).Divide(2))
	for i, e := range es {
		row, col := i/cols, i%cols
		center := origin.Add(geom.V((float64(col)+0.5)*cell, (float64(row)+0.5)*cell))
		moveTo(m, e, center.Subtract(e.Rectangle().Size.Divide(2)))
	}
}

// TightPack fills rows greedily, largest entities first, and keeps the group centered.
func TightPack(m *stage.Manager, es []stage.Entity) {
	es = topLevel(m, es)
	bounds, ok := boundsOf(es)
	if !ok {
		return
	}
	items := slices.Clone(es)
	slices.SortStableFunc(items, func(a, b stage.Entity) int {
		ra, rb := a.Rectangle(), b.Rectangle()
		aa, ab := ra.Width()*ra.Height(), rb.Width()*rb.Height()
		switch {
		case aa > ab:
			return -1
		case aa < ab:
			return 1
		}
		return 0
	})

	cell := 0.0
	for _, e := range items {
		r := e.Rectangle()
		cell = max(cell, r.Width(), r.Height())
	}
	_, cols := optimalRowsCols(len(items))
	rowWidth := float64(cols) * (cell + PackSpacing)

	spots := make([]geom.Vector, len(items))
	var x, y, rowHeight, width float64
	for i, e := range items {
		r := e.Rectangle()
		if x > 0 && x+r.Width()+PackSpacing > rowWidth {
			x = 0
			y += rowHeight + PackSpacing
			rowHeight = 0
		}
		spots[i] = geom.V(x, y)
		x += r.Width() + PackSpacing
		rowHeight = max(rowHeight, r.Height())
		width = max(width, x)
	}
	offset := bounds.Center().Subtract(geom.V(width, y+rowHeight).Divide(2))
	for i, e := range items {
		moveTo(m, e, spots[i].Add(offset))
	}
}

func boundsOf(es []stage.Entity) (geom.Rectangle, bool) {
	rects := make([]geom.Rectangle, len(es))
	for i, e := range es {
		rects[i] = e.Rectangle()
	}
	r, err := geom.BoundingRectangle(rects...)
	return r, err == nil
}

// optimalRowsCols picks the grid shape closest to square that holds n cells.
func optimalRowsCols(n int) (rows, cols int) {
	rows = max(1, int(math.Sqrt(float64(n))))
	cols = (n + rows - 1) / rows
	best := abs(rows - cols)
	for r := rows; r >= 1; r-- {
		c := (n + r - 1) / r
		if d := abs(r - c); d < best {
			best, rows, cols = d, r, c
		}
	}
	return rows, cols
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// WidthMode picks the common width used by MatchTextWidth.
type WidthMode int

const (
	WidthMax WidthMode = iota
	WidthMin
	WidthAverage
)

// MatchTextWidth gives every text node the same width and switches them to manual sizing.
func MatchTextWidth(es []stage.Entity, mode WidthMode) {
	var nodes []*stage.TextNode
	var widths []float64
	for _, e := range es {
		if n, ok := e.(*stage.TextNode); ok {
			nodes = append(nodes, n)
			widths = append(widths, n.Rectangle().Width())
		}
	}
	if len(nodes) == 0 {
		return
	}
	var w float64
	switch mode {
	case WidthMin:
		w = slices.Min(widths)
	case WidthAverage:
		for _, x := range widths {
			w += x
		}
		w /= float64(len(widths))
	default:
		w = slices.Max(widths)
	}
	for _, n := range nodes {
		n.Resize(w)
	}
}
