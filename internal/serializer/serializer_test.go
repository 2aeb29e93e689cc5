package serializer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type node struct {
	id   string
	name string
	x    float64
}

type edge struct {
	id     string
	source *node
	target *node
}

type box struct {
	items       []any
	meta        map[string]any
	mirrorItems []any
	mirrorMeta  map[string]any
}

type loop struct {
	id   string
	next *loop
}

type bag struct {
	props map[string]any
	extra any
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, Register(r, Class[*node]{
		Name:     "Node",
		Identity: "uuid",
		Fields: []Field[*node]{
			F("uuid", func(n *node) any { return n.id }),
			F("name", func(n *node) any { return n.name }),
			F("x", func(n *node) any { return n.x }),
		},
		New: func(args []any, _ any) (*node, error) {
			return &node{id: String(args[0]), name: String(args[1]), x: Float(args[2])}, nil
		},
	}))
	require.NoError(t, Register(r, Class[*edge]{
		Name:     "Edge",
		Identity: "uuid",
		Fields: []Field[*edge]{
			F("uuid", func(e *edge) any { return e.id }),
			F("source", func(e *edge) any { return e.source }),
			F("target", func(e *edge) any { return e.target }),
		},
		New: func(args []any, _ any) (*edge, error) {
			src, err := As[*node](args[1])
			if err != nil {
				return nil, err
			}
			dst, err := As[*node](args[2])
			if err != nil {
				return nil, err
			}
			return &edge{id: String(args[0]), source: src, target: dst}, nil
		},
	}))
	require.NoError(t, Register(r, Class[*box]{
		Name: "B",
		Fields: []Field[*box]{
			F("items", func(b *box) any { return b.items }),
			F("meta", func(b *box) any { return b.meta }),
			F("mirrorItems", func(b *box) any { return b.mirrorItems }),
			F("mirrorMeta", func(b *box) any { return b.mirrorMeta }),
		},
		New: func(args []any, _ any) (*box, error) {
			b := &box{}
			b.items, _ = args[0].([]any)
			b.meta, _ = args[1].(map[string]any)
			b.mirrorItems, _ = args[2].([]any)
			b.mirrorMeta, _ = args[3].(map[string]any)
			return b, nil
		},
	}))
	require.NoError(t, Register(r, Class[*loop]{
		Name:     "Loop",
		Identity: "uuid",
		Fields: []Field[*loop]{
			F("uuid", func(l *loop) any { return l.id }),
			F("next", func(l *loop) any { return l.next }),
		},
		New: func(args []any, _ any) (*loop, error) {
			next, err := As[*loop](args[1])
			return &loop{id: String(args[0]), next: next}, err
		},
	}))
	require.NoError(t, Register(r, Class[*bag]{
		Name:  "Bag",
		Mode:  WholeObject,
		Extra: true,
		Fields: []Field[*bag]{
			F("a", func(b *bag) any { return b.props["a"] }),
			F("b", func(b *bag) any { return b.props["b"] }),
		},
		FromObject: func(props map[string]any, extra any) (*bag, error) {
			return &bag{props: props, extra: extra}, nil
		},
	}))
	return r
}

func TestReferenceFoldingRoundTrip(t *testing.T) {
	r := newTestRegistry(t)
	a := &node{id: "a", name: "A", x: 10}
	b := &node{id: "b", name: "B", x: 20}
	e := &edge{id: "e", source: a, target: b}

	tree, err := r.Serialize([]any{a, b, e})
	require.NoError(t, err)

	items := tree.([]any)
	serializedEdge := items[2].(map[string]any)
	assert.Equal(t, map[string]any{RefKey: "/0"}, serializedEdge["source"])
	assert.Equal(t, map[string]any{RefKey: "/1"}, serializedEdge["target"])

	out, err := r.Deserialize(tree, nil)
	require.NoError(t, err)
	list := out.([]any)
	require.Len(t, list, 3)
	node1 := list[0].(*node)
	node2 := list[1].(*node)
	got := list[2].(*edge)

	assert.Same(t, node1, got.source)
	assert.Same(t, node2, got.target)

	node1.x = 99
	assert.Equal(t, 99.0, got.source.x, "moving the node moves the edge endpoint")
}

func TestIndependentSerializationLosesIdentity(t *testing.T) {
	r := newTestRegistry(t)
	a := &node{id: "a", name: "A"}
	b := &node{id: "b", name: "B"}
	e := &edge{id: "e", source: a, target: b}

	var out []any
	for _, obj := range []any{a, b, e} {
		tree, err := r.Serialize(obj)
		require.NoError(t, err)
		v, err := r.Deserialize(tree, nil)
		require.NoError(t, err)
		out = append(out, v)
	}

	node1 := out[0].(*node)
	got := out[2].(*edge)
	assert.Equal(t, *node1, *got.source, "structurally equal")
	assert.NotSame(t, node1, got.source, "but a distinct copy")
}

func TestContainerIdentity(t *testing.T) {
	r := newTestRegistry(t)
	tree := map[string]any{
		ClassKey:      "B",
		"items":       []any{1.0, 2.0, 3.0},
		"meta":        map[string]any{"tag": "t", "count": 2.0},
		"mirrorItems": map[string]any{RefKey: "/items"},
		"mirrorMeta":  map[string]any{RefKey: "/meta"},
	}

	out, err := r.Deserialize(tree, nil)
	require.NoError(t, err)
	b := out.(*box)

	require.Len(t, b.mirrorItems, 3)
	b.items[0] = 42.0
	assert.Equal(t, 42.0, b.mirrorItems[0])
	b.meta["tag"] = "changed"
	assert.Equal(t, "changed", b.mirrorMeta["tag"])

	// The input tree is left untouched.
	assert.Equal(t, map[string]any{RefKey: "/items"}, tree["mirrorItems"])
}

func TestSharedContainersFoldOnSerialize(t *testing.T) {
	r := newTestRegistry(t)
	items := []any{1.0, 2.0}
	meta := map[string]any{"k": "v"}
	b := &box{items: items, meta: meta, mirrorItems: items, mirrorMeta: meta}

	tree, err := r.Serialize(b)
	require.NoError(t, err)
	m := tree.(map[string]any)
	assert.Equal(t, map[string]any{RefKey: "/items"}, m["mirrorItems"])
	assert.Equal(t, map[string]any{RefKey: "/meta"}, m["mirrorMeta"])

	out, err := r.Deserialize(tree, nil)
	require.NoError(t, err)
	got := out.(*box)
	got.items[1] = 7.0
	assert.Equal(t, 7.0, got.mirrorItems[1])
}

func TestNumberRounding(t *testing.T) {
	r := newTestRegistry(t)
	tree, err := r.Serialize([]any{1.23456, 3, float32(2.5), -0.126, 1e6})
	require.NoError(t, err)
	assert.Equal(t, []any{1.23, 3.0, 2.5, -0.13, 1e6}, tree)
}

func TestDeserializeErrors(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		name string
		tree any
		want error
		path string
	}{
		{
			name: "unknown class",
			tree: []any{map[string]any{ClassKey: "Ghost"}},
			want: ErrClassNotFound,
			path: "/0",
		},
		{
			name: "missing target",
			tree: []any{map[string]any{RefKey: "/9"}},
			want: ErrBadReference,
			path: "/0",
		},
		{
			name: "relative path",
			tree: []any{1.0, map[string]any{RefKey: "0"}},
			want: ErrBadReference,
			path: "/1",
		},
		{
			name: "marker loop",
			tree: map[string]any{
				ClassKey:      "B",
				"items":       map[string]any{RefKey: "/mirrorItems"},
				"mirrorItems": map[string]any{RefKey: "/items"},
			},
			want: ErrReferenceCycle,
		},
		{
			name: "ancestor reference",
			tree: []any{map[string]any{ClassKey: "Loop", "uuid": "l", "next": map[string]any{RefKey: "/0"}}},
			want: ErrReferenceCycle,
			path: "/0/next",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Deserialize(tt.tree, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			var pe *PathError
			require.True(t, errors.As(err, &pe))
			if tt.path != "" {
				assert.Equal(t, tt.path, pe.Path)
			}
		})
	}
}

func TestSerializeCycle(t *testing.T) {
	r := newTestRegistry(t)
	l := &loop{id: "l"}
	l.next = l

	_, err := r.Serialize(l)
	assert.ErrorIs(t, err, ErrReferenceCycle)

	_, err = r.Serialize(struct{}{})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = r.Serialize(map[string]any{"$": 1})
	assert.ErrorIs(t, err, ErrReservedKey)
}

func TestWholeObjectAndExtra(t *testing.T) {
	r := newTestRegistry(t)
	tree := []any{
		map[string]any{ClassKey: "Bag", "a": 1.0, "b": "two", "ignored": true},
		map[string]any{ClassKey: "Node", "uuid": "n", "name": "N", "x": 1.5},
	}

	out, err := r.Deserialize(tree, "project")
	require.NoError(t, err)
	list := out.([]any)

	b := list[0].(*bag)
	assert.Equal(t, map[string]any{"a": 1.0, "b": "two"}, b.props)
	assert.Equal(t, "project", b.extra)
	assert.Equal(t, &node{id: "n", name: "N", x: 1.5}, list[1])
}

func TestRegisterValidation(t *testing.T) {
	r := newTestRegistry(t)

	err := Register(r, Class[*node]{Name: "Node", New: func([]any, any) (*node, error) { return nil, nil }})
	assert.Error(t, err, "duplicate name")

	err = Register(r, Class[*edge]{
		Name:     "Other",
		Identity: "id",
		New:      func([]any, any) (*edge, error) { return nil, nil },
	})
	assert.Error(t, err, "identity not declared")

	err = Register(r, Class[*edge]{Name: "NoCtor"})
	assert.Error(t, err)
}

func TestMarshalDeterministic(t *testing.T) {
	r := newTestRegistry(t)
	a := &node{id: "a", name: "A", x: 1.005}
	b := &node{id: "b", name: "B"}
	stage := []any{a, b, &edge{id: "e", source: a, target: b}}

	first, err := r.Marshal(stage)
	require.NoError(t, err)
	second, err := r.Marshal(stage)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	out, err := r.Unmarshal(first, nil)
	require.NoError(t, err)
	list := out.([]any)
	assert.Same(t, list[0], list[2].(*edge).source)
}
