package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphif/stagecore/internal/geom"
	"github.com/graphif/stagecore/internal/stage"
)

// cards adds fixed-size url nodes at the given locations.
func cards(t *testing.T, at ...geom.Vector) (*stage.Manager, []stage.Entity) {
	t.Helper()
	m := stage.NewManager()
	var es []stage.Entity
	for _, p := range at {
		n := stage.NewUrlNode("", "https://example.com", "card", p)
		require.NoError(t, m.Add(n))
		es = append(es, n)
	}
	return m, es
}

func lefts(es []stage.Entity) []float64 {
	out := make([]float64, len(es))
	for i, e := range es {
		out[i] = e.Rectangle().Left()
	}
	return out
}

func TestAlignLeft(t *testing.T) {
	m, es := cards(t, geom.V(10, 0), geom.V(50, 200), geom.V(200, 400))
	AlignLeft(m, es)
	assert.Equal(t, []float64{10, 10, 10}, lefts(es))
	assert.Equal(t, 400.0, es[2].Rectangle().Top())
}

func TestAlignRightAndBottom(t *testing.T) {
	m, es := cards(t, geom.V(0, 0), geom.V(100, 40))
	AlignRight(m, es)
	assert.Equal(t, es[0].Rectangle().Right(), es[1].Rectangle().Right())
	assert.Equal(t, 400.0, es[0].Rectangle().Right())

	AlignBottom(m, es)
	assert.Equal(t, 190.0, es[0].Rectangle().Bottom())
	assert.Equal(t, 190.0, es[1].Rectangle().Bottom())
}

func TestAlignCenters(t *testing.T) {
	m, es := cards(t, geom.V(0, 0), geom.V(500, 100))
	AlignCenterHorizontal(m, es)
	assert.InDelta(t, es[0].Rectangle().Center().Y, es[1].Rectangle().Center().Y, geom.Epsilon)
	assert.InDelta(t, 125.0, es[0].Rectangle().Center().Y, geom.Epsilon)

	AlignCenterVertical(m, es)
	assert.InDelta(t, 400.0, es[0].Rectangle().Center().X, geom.Epsilon)
	assert.InDelta(t, 400.0, es[1].Rectangle().Center().X, geom.Epsilon)
}

func TestDistributeHorizontal(t *testing.T) {
	m, es := cards(t, geom.V(1000, 0), geom.V(0, 0), geom.V(350, 0))
	DistributeHorizontal(m, es)
	assert.Equal(t, []float64{1000, 0, 500}, lefts(es))
}

func TestPackTopToBottom(t *testing.T) {
	m, es := cards(t, geom.V(0, 0), geom.V(0, 500), geom.V(30, 170))
	PackTopToBottom(m, es)
	assert.Equal(t, 0.0, es[0].Rectangle().Top())
	assert.Equal(t, 150.0, es[2].Rectangle().Top())
	assert.Equal(t, 300.0, es[1].Rectangle().Top())
	assert.Equal(t, 30.0, es[2].Rectangle().Left())
}

func TestPackLeftToRight(t *testing.T) {
	m, es := cards(t, geom.V(900, 0), geom.V(-100, 50))
	PackLeftToRight(m, es)
	assert.Equal(t, []float64{200, -100}, lefts(es))
}

func TestSectionMovesOnceWithItsChild(t *testing.T) {
	m, es := cards(t, geom.V(500, 0), geom.V(0, 300))
	s := stage.NewSection("", "box", geom.Rect(480, -40, 400, 250))
	require.NoError(t, m.Add(s))
	require.NoError(t, m.GoInSection([]stage.Entity{es[0]}, s))
	offset := es[0].Rectangle().Left() - s.Rectangle().Left()

	AlignLeft(m, []stage.Entity{s, es[0], es[1]})

	assert.Equal(t, 0.0, s.Rectangle().Left())
	assert.InDelta(t, offset, es[0].Rectangle().Left()-s.Rectangle().Left(), geom.Epsilon)
}

func TestSelectedSkipsDescendantsOfSelectedSections(t *testing.T) {
	m, es := cards(t, geom.V(0, 0), geom.V(0, 400))
	s := stage.NewSection("", "box", geom.Rect(-20, -40, 400, 250))
	require.NoError(t, m.Add(s))
	require.NoError(t, m.GoInSection([]stage.Entity{es[0]}, s))
	s.SetSelected(true)
	es[0].SetSelected(true)
	es[1].SetSelected(true)

	got := Selected(m)
	assert.ElementsMatch(t, []stage.Entity{es[1], s}, got)
}

func TestGridDoesNotOverlap(t *testing.T) {
	m, es := cards(t, geom.V(0, 0), geom.V(10, 10), geom.V(20, 20), geom.V(30, 30))
	Grid(m, es)
	for i := range es {
		for j := i + 1; j < len(es); j++ {
			assert.False(t, es[i].Rectangle().IsCollideWith(es[j].Rectangle()), "%d and %d overlap", i, j)
		}
	}
	rows, cols := optimalRowsCols(4)
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, cols)
}

func TestTightPackDoesNotOverlap(t *testing.T) {
	m, es := cards(t, geom.V(0, 0), geom.V(5, 5), geom.V(10, 10))
	TightPack(m, es)
	for i := range es {
		for j := i + 1; j < len(es); j++ {
			assert.False(t, es[i].Rectangle().IsCollideWith(es[j].Rectangle()))
		}
	}
}

func TestMatchTextWidth(t *testing.T) {
	short := stage.NewTextNode("", "a", geom.V(0, 0))
	long := stage.NewTextNode("", "a much longer line of text", geom.V(0, 100))
	want := long.Rectangle().Width()

	MatchTextWidth([]stage.Entity{short, long}, WidthMax)
	assert.InDelta(t, want, short.Rectangle().Width(), geom.Epsilon)
	assert.Equal(t, stage.SizeManual, short.SizeAdjust)
}

func TestOptimalRowsCols(t *testing.T) {
	tests := []struct{ n, rows, cols int }{
		{1, 1, 1},
		{2, 1, 2},
		{5, 2, 3},
		{9, 3, 3},
		{10, 3, 4},
	}
	for _, tt := range tests {
		rows, cols := optimalRowsCols(tt.n)
		assert.Equal(t, tt.rows, rows, "n=%d", tt.n)
		assert.Equal(t, tt.cols, cols, "n=%d", tt.n)
	}
}
