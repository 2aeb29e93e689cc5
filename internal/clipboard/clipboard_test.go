package clipboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphif/stagecore/internal/geom"
	"github.com/graphif/stagecore/internal/stage"
)

func threeNodes(t *testing.T) (*stage.Manager, *stage.TextNode, *stage.TextNode, *stage.TextNode) {
	t.Helper()
	m := stage.NewManager()
	a := stage.NewTextNode("", "A", geom.V(0, 0))
	b := stage.NewTextNode("", "B", geom.V(300, 0))
	c := stage.NewTextNode("", "C", geom.V(600, 0))
	for _, n := range []stage.Object{a, b, c} {
		require.NoError(t, m.Add(n))
	}
	return m, a, b, c
}

func TestCopyKeepsOnlyInternalAssociations(t *testing.T) {
	m, a, b, c := threeNodes(t)
	ab, err := m.ConnectEntity(a, b, stage.EdgeLine)
	require.NoError(t, err)
	bc, err := m.ConnectEntity(b, c, stage.EdgeLine)
	require.NoError(t, err)

	cb := New()
	n, err := cb.Copy([]stage.Object{a, b, ab, bc})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.False(t, cb.Empty())
	assert.True(t, cb.Origin().Equals(geom.V(0, 0), geom.Epsilon))
}

func TestPasteCreatesFreshConnectedCopies(t *testing.T) {
	m, a, b, _ := threeNodes(t)
	ab, err := m.ConnectEntity(a, b, stage.EdgeLine)
	require.NoError(t, err)

	cb := New()
	_, err = cb.Copy([]stage.Object{a, b, ab})
	require.NoError(t, err)

	pasted, err := cb.Paste(m, geom.V(0, 200), nil)
	require.NoError(t, err)
	require.Len(t, pasted, 3)
	assert.Equal(t, 7, m.Len())
	assert.True(t, cb.Empty())

	na := pasted[0].(*stage.TextNode)
	nb := pasted[1].(*stage.TextNode)
	edge := pasted[2].(*stage.LineEdge)
	assert.NotEqual(t, a.UUID(), na.UUID())
	assert.NotEqual(t, b.UUID(), nb.UUID())
	assert.Same(t, na, edge.Source.(*stage.TextNode))
	assert.Same(t, nb, edge.Target.(*stage.TextNode))
	assert.True(t, na.Rectangle().Location.Equals(geom.V(0, 200), geom.Epsilon))
	assert.Equal(t, "A", na.Text)

	assert.ElementsMatch(t, pasted, m.SelectedObjects())
	assert.False(t, a.IsSelected())

	_, err = cb.Paste(m, geom.Zero(), nil)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestCopySectionBringsChildren(t *testing.T) {
	m, a, b, _ := threeNodes(t)
	s := stage.NewSection("", "group", geom.Rect(-20, -40, 500, 120))
	require.NoError(t, m.Add(s))
	require.NoError(t, m.GoInSection([]stage.Entity{a, b}, s))

	cb := New()
	n, err := cb.Copy([]stage.Object{s})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	pasted, err := cb.Paste(m, geom.V(0, 500), nil)
	require.NoError(t, err)
	require.Len(t, pasted, 3)

	ps := pasted[0].(*stage.Section)
	require.Len(t, ps.Children, 2)
	for _, child := range ps.Children {
		got, ok := m.EntityByUUID(child.UUID())
		require.True(t, ok)
		assert.Same(t, got, child)
		assert.NotEqual(t, a.UUID(), child.UUID())
	}
}

func TestClosureDropsDanglingMultiTarget(t *testing.T) {
	m, a, b, c := threeNodes(t)
	mt, err := m.ConnectMultiTarget([]stage.Connectable{a, b, c})
	require.NoError(t, err)

	assert.Len(t, Closure([]stage.Object{a, b, mt}), 2)
	assert.Len(t, Closure([]stage.Object{a, b, c, mt}), 4)
}

func TestCopyNothingClearsSlot(t *testing.T) {
	m, a, _, _ := threeNodes(t)
	cb := New()
	_, err := cb.Copy([]stage.Object{a})
	require.NoError(t, err)

	n, err := cb.Copy(nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, cb.Empty())
	assert.Equal(t, 3, m.Len())
}

func TestTextMirror(t *testing.T) {
	_, a, b, _ := threeNodes(t)
	var got string
	mirror := TextMirror{Write: func(s string) error {
		got = s
		return nil
	}}
	require.NoError(t, mirror.Mirror([]stage.Object{a, b}))
	assert.Equal(t, "A\nB", got)
}
