package history

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphif/stagecore/internal/geom"
	"github.com/graphif/stagecore/internal/stage"
)

type board struct {
	Value int      `json:"value"`
	Items []string `json:"items"`
}

type boardCodec struct {
	b        *board
	restores int
}

func (c *boardCodec) Snapshot() ([]byte, error) { return json.Marshal(c.b) }

func (c *boardCodec) Restore(data []byte) error {
	var b board
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	*c.b = b
	c.restores++
	return nil
}

func newBoard(t *testing.T, capacity int) (*Manager, *boardCodec) {
	t.Helper()
	c := &boardCodec{b: &board{Items: []string{}}}
	m, err := New(c, capacity)
	require.NoError(t, err)
	return m, c
}

func snapshotOf(t *testing.T, b board) string {
	t.Helper()
	data, err := json.Marshal(b)
	require.NoError(t, err)
	return string(data)
}

func TestRecordWithoutChangeIsNoop(t *testing.T) {
	m, c := newBoard(t, 10)
	c.b.Value = 1

	ok, err := m.Record()
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Record()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 0, m.Index())
}

func TestUndoRedoAreInverse(t *testing.T) {
	m, c := newBoard(t, 10)
	for i := 1; i <= 3; i++ {
		c.b.Value = i
		c.b.Items = append(c.b.Items, "n")
		_, err := m.Record()
		require.NoError(t, err)
	}
	before := snapshotOf(t, *c.b)

	ok, err := m.Undo()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, c.b.Value)
	assert.Len(t, c.b.Items, 2)

	ok, err = m.Redo()
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, before, snapshotOf(t, *c.b))

	ok, err = m.Redo()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUndoAtBaseIsNoop(t *testing.T) {
	m, c := newBoard(t, 10)
	c.b.Value = 7
	_, err := m.Record()
	require.NoError(t, err)

	ok, err := m.Undo()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, c.b.Value)
	assert.Equal(t, -1, m.Index())

	restores := c.restores
	ok, err = m.Undo()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, restores, c.restores)
}

func TestRecordAfterUndoDropsRedoTail(t *testing.T) {
	m, c := newBoard(t, 10)
	for i := 1; i <= 3; i++ {
		c.b.Value = i
		_, err := m.Record()
		require.NoError(t, err)
	}
	_, err := m.Undo()
	require.NoError(t, err)
	_, err = m.Undo()
	require.NoError(t, err)
	require.Equal(t, 1, c.b.Value)

	c.b.Value = 42
	ok, err := m.Record()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 1, m.Index())
	assert.False(t, m.CanRedo())

	got, err := m.Get(1)
	require.NoError(t, err)
	assert.JSONEq(t, snapshotOf(t, board{Value: 42, Items: []string{}}), string(got))
}

func TestCapacityFoldsOldestDelta(t *testing.T) {
	const capacity = 4
	m, c := newBoard(t, capacity)
	states := make([]string, 0, capacity+5)
	for i := 1; i <= capacity+5; i++ {
		c.b.Value = i * 10
		c.b.Items = append(c.b.Items, "x")
		states = append(states, snapshotOf(t, *c.b))
		_, err := m.Record()
		require.NoError(t, err)
	}

	assert.Equal(t, capacity, m.Len())
	assert.Equal(t, capacity-1, m.Index())

	// Five folds happened, so step 0 is the sixth recorded state.
	got, err := m.Get(0)
	require.NoError(t, err)
	assert.JSONEq(t, states[5], string(got))

	base, err := m.Get(-1)
	require.NoError(t, err)
	assert.JSONEq(t, states[4], string(base))

	for m.CanUndo() {
		_, err := m.Undo()
		require.NoError(t, err)
	}
	assert.Equal(t, 50, c.b.Value)
}

func TestGetIsPure(t *testing.T) {
	m, c := newBoard(t, 10)
	for i := 1; i <= 3; i++ {
		c.b.Value = i
		_, err := m.Record()
		require.NoError(t, err)
	}
	first, err := m.Get(2)
	require.NoError(t, err)
	second, err := m.Get(2)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	base, err := m.Get(-1)
	require.NoError(t, err)
	assert.JSONEq(t, snapshotOf(t, board{Items: []string{}}), string(base))

	_, err = m.Get(3)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = m.Get(-2)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestCorruptDeltaCannotRestore(t *testing.T) {
	m, c := newBoard(t, 10)
	for i := 1; i <= 2; i++ {
		c.b.Value = i
		_, err := m.Record()
		require.NoError(t, err)
	}
	m.deltas[0] = []byte(`[{"op":"replace","path":"/missing/deep","value":1}]`)

	_, err := m.Undo()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCannotRestore))
	assert.Equal(t, 1, m.Index())
	assert.Equal(t, 2, c.b.Value)
}

func TestClearCollapsesToCurrentState(t *testing.T) {
	m, c := newBoard(t, 10)
	for i := 1; i <= 3; i++ {
		c.b.Value = i
		_, err := m.Record()
		require.NoError(t, err)
	}
	require.NoError(t, m.Clear())
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, -1, m.Index())
	assert.False(t, m.CanUndo())

	base, err := m.Get(-1)
	require.NoError(t, err)
	assert.JSONEq(t, snapshotOf(t, board{Value: 3, Items: []string{}}), string(base))
}

func TestStageUndoRestoresPosition(t *testing.T) {
	sm := stage.NewManager()
	a := stage.NewTextNode("", "A", geom.V(0, 0))
	b := stage.NewTextNode("", "B", geom.V(400, 0))
	require.NoError(t, sm.Add(a))
	require.NoError(t, sm.Add(b))
	_, err := sm.ConnectEntity(a, b, stage.EdgeLine)
	require.NoError(t, err)

	m, err := New(stage.Codec{Stage: sm}, 10)
	require.NoError(t, err)

	a.MoveBy(geom.V(120, 80))
	ok, err := m.Record()
	require.NoError(t, err)
	require.True(t, ok)

	_, err = m.Undo()
	require.NoError(t, err)

	restored, ok := sm.EntityByUUID(a.UUID())
	require.True(t, ok)
	assert.True(t, restored.Rectangle().Location.Equals(geom.V(0, 0), geom.Epsilon))
	require.Len(t, sm.Edges(), 1)
	assert.Same(t, restored, sm.Edges()[0].EdgeBase().Source)

	_, err = m.Redo()
	require.NoError(t, err)
	moved, _ := sm.EntityByUUID(a.UUID())
	assert.True(t, moved.Rectangle().Location.Equals(geom.V(120, 80), geom.Epsilon))
}

func TestStageUndoRedoAreInverseOverManySteps(t *testing.T) {
	sm := stage.NewManager()
	a := stage.NewTextNode("", "A", geom.V(0, 0))
	b := stage.NewTextNode("", "B", geom.V(400, 0))
	c := stage.NewTextNode("", "C", geom.V(0, 300))
	s := stage.NewSection("", "group", geom.Rect(-50, -80, 300, 200))
	for _, o := range []stage.Object{s, a, b, c} {
		require.NoError(t, sm.Add(o))
	}
	require.NoError(t, sm.GoInSection([]stage.Entity{a}, s))

	m, err := New(stage.Codec{Stage: sm}, 10)
	require.NoError(t, err)
	record := func() {
		t.Helper()
		ok, err := m.Record()
		require.NoError(t, err)
		require.True(t, ok)
	}

	_, err = sm.ConnectEntity(a, b, stage.EdgeLine)
	require.NoError(t, err)
	record()
	sm.MoveEntity(s, geom.V(50, 30))
	record()
	_, err = sm.Delete([]stage.Object{c})
	require.NoError(t, err)
	record()
	sm.SetCollapsed(s, true)
	record()
	require.NoError(t, sm.Add(stage.NewTextNode("", "D", geom.V(800, 0))))
	record()

	final, err := stage.Marshal(sm)
	require.NoError(t, err)
	steps := m.Len()
	require.Equal(t, 5, steps)

	for k := 1; k <= steps; k++ {
		for i := 0; i < k; i++ {
			ok, err := m.Undo()
			require.NoError(t, err)
			require.True(t, ok)
		}
		assert.Equal(t, steps-1-k, m.Index())
		for i := 0; i < k; i++ {
			ok, err := m.Redo()
			require.NoError(t, err)
			require.True(t, ok)
		}
		got, err := stage.Marshal(sm)
		require.NoError(t, err)
		assert.JSONEq(t, string(final), string(got), "undo and redo %d steps", k)
	}

	for m.CanUndo() {
		_, err := m.Undo()
		require.NoError(t, err)
	}
	assert.Len(t, sm.Entities(), 4)
	assert.Empty(t, sm.Associations())
}

func TestFailedFoldLeavesHistoryUntouched(t *testing.T) {
	m, c := newBoard(t, 2)
	for i := 1; i <= 2; i++ {
		c.b.Value = i
		_, err := m.Record()
		require.NoError(t, err)
	}
	m.deltas[0] = []byte(`[{"op":"replace","path":"/missing/deep","value":1}]`)
	base := string(m.base)

	c.b.Value = 3
	ok, err := m.Record()
	require.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 1, m.Index())
	assert.Equal(t, base, string(m.base))

	head, err := m.Get(1)
	require.Error(t, err, "the corrupt delta is still in place")
	assert.Nil(t, head)
}
