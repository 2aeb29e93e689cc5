package stage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphif/stagecore/internal/document"
	"github.com/graphif/stagecore/internal/geom"
	"github.com/graphif/stagecore/internal/serializer"
)

type fakeAttachments map[string]bool

func (f fakeAttachments) HasAttachment(id string) bool { return f[id] }

func addAll(t *testing.T, m *Manager, objs ...Object) {
	t.Helper()
	for _, o := range objs {
		require.NoError(t, m.Add(o))
	}
}

func twoNodes(t *testing.T) (*Manager, *TextNode, *TextNode) {
	t.Helper()
	m := NewManager()
	a := NewTextNode("", "A", geom.V(0, 0))
	b := NewTextNode("", "B", geom.V(400, 0))
	addAll(t, m, a, b)
	return m, a, b
}

func TestSerializeWholeStagePreservesReferences(t *testing.T) {
	m, a, b := twoNodes(t)
	_, err := m.ConnectEntity(a, b, EdgeLine)
	require.NoError(t, err)

	data, err := Marshal(m)
	require.NoError(t, err)
	objs, _, err := Unmarshal(data, nil)
	require.NoError(t, err)
	require.Len(t, objs, 3)

	node1 := objs[0].(*TextNode)
	node2 := objs[1].(*TextNode)
	edge := objs[2].(*LineEdge)
	assert.Same(t, node1, edge.Source.(*TextNode))
	assert.Same(t, node2, edge.Target.(*TextNode))

	before := edge.TargetLocation()
	node2.MoveBy(geom.V(100, 50))
	assert.True(t, edge.TargetLocation().Equals(before.Add(geom.V(100, 50)), geom.Epsilon))
}

func TestSerializeObjectsSeparatelyLosesReferences(t *testing.T) {
	m, a, b := twoNodes(t)
	_, err := m.ConnectEntity(a, b, EdgeLine)
	require.NoError(t, err)

	var objs []any
	for _, o := range m.Objects() {
		tree, err := Registry().Serialize(o)
		require.NoError(t, err)
		back, err := Registry().Deserialize(tree, nil)
		require.NoError(t, err)
		objs = append(objs, back)
	}
	node1 := objs[0].(*TextNode)
	edge := objs[2].(*LineEdge)
	assert.Equal(t, node1.UUID(), edge.Source.UUID())
	assert.NotSame(t, node1, edge.Source.(*TextNode))
}

func TestRoundTripKeepsSectionChildrenLive(t *testing.T) {
	m, a, b := twoNodes(t)
	s := NewSection("", "group", geom.Rect(-50, -50, 600, 300))
	addAll(t, m, s)
	require.NoError(t, m.GoInSection([]Entity{a, b}, s))
	require.NoError(t, m.AddTag(s.UUID()))

	data, err := Marshal(m)
	require.NoError(t, err)
	restored := NewManager()
	objs, tags, err := Unmarshal(data, nil)
	require.NoError(t, err)
	report, err := restored.Load(objs, tags)
	require.NoError(t, err)
	assert.False(t, report.Changed())
	assert.Empty(t, restored.Validate())

	rs := restored.Sections()[0]
	require.Len(t, rs.Children, 2)
	live, ok := restored.Get(a.UUID())
	require.True(t, ok)
	assert.Same(t, live.(*TextNode), rs.Children[0].(*TextNode))
	assert.Equal(t, []string{s.UUID()}, restored.Tags())
}

func TestSerializedTreeFoldsEndpoints(t *testing.T) {
	m, a, b := twoNodes(t)
	_, err := m.ConnectEntity(a, b, EdgeLine)
	require.NoError(t, err)

	tree, err := Serialize(m.Objects(), m.Tags())
	require.NoError(t, err)
	objects := tree.(map[string]any)["objects"].([]any)
	edge := objects[2].(map[string]any)
	assert.Equal(t, "LineEdge", edge[serializer.ClassKey])
	assert.Equal(t, map[string]any{serializer.RefKey: "/objects/0"}, edge["source"])
	assert.Equal(t, map[string]any{serializer.RefKey: "/objects/1"}, edge["target"])
}

func TestConnectEntityRejections(t *testing.T) {
	m, a, b := twoNodes(t)
	stroke := NewPenStroke("", []PenStrokeSegment{{Location: geom.V(0, 0), Pressure: 1}}, Color{})
	outsider := NewTextNode("", "x", geom.V(0, 0))
	addAll(t, m, stroke)

	_, err := m.ConnectEntity(nil, b, EdgeLine)
	assert.ErrorIs(t, err, ErrNilEndpoint)

	_, err = m.ConnectEntity(a, outsider, EdgeLine)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = m.ConnectByUUID(stroke.UUID(), a.UUID(), EdgeLine)
	assert.ErrorIs(t, err, ErrNotConnectable)

	_, err = m.ConnectEntity(a, a, EdgeLine)
	assert.ErrorIs(t, err, ErrSelfLoop)
	assert.Empty(t, m.Associations(), "rejected connects must not mutate the stage")

	m.AllowSelfLoop = true
	loop, err := m.ConnectEntity(a, a, EdgeLine)
	require.NoError(t, err)
	assert.True(t, loop.EdgeBase().IsSelfLoop())

	first, err := m.ConnectEntity(a, b, EdgeCatmullRom)
	require.NoError(t, err)
	again, err := m.ConnectEntity(a, b, EdgeLine)
	require.NoError(t, err)
	assert.Same(t, first.(*CatmullRomEdge), again.(*CatmullRomEdge))
	assert.Len(t, m.Edges(), 2)
}

func TestReverseEdgesShift(t *testing.T) {
	m, a, b := twoNodes(t)
	ab, err := m.ConnectEntity(a, b, EdgeLine)
	require.NoError(t, err)
	assert.False(t, ab.EdgeBase().IsShifting)

	ba, err := m.ConnectEntity(b, a, EdgeLine)
	require.NoError(t, err)
	assert.True(t, ab.EdgeBase().IsShifting)
	assert.True(t, ba.EdgeBase().IsShifting)

	require.NoError(t, m.Disconnect(ba))
	assert.False(t, ab.EdgeBase().IsShifting)

	m.ReverseEdges([]DirectedEdge{ab})
	assert.Equal(t, b.UUID(), ab.EdgeBase().Source.UUID())
	assert.True(t, ab.EdgeBase().IsRightToLeft())
}

func TestDeleteCascadesAssociations(t *testing.T) {
	m, a, b := twoNodes(t)
	c := NewTextNode("", "C", geom.V(800, 0))
	addAll(t, m, c)
	_, err := m.ConnectEntity(a, b, EdgeLine)
	require.NoError(t, err)
	_, err = m.ConnectEntity(b, c, EdgeLine)
	require.NoError(t, err)
	_, err = m.ConnectMultiTarget([]Connectable{a, b, c})
	require.NoError(t, err)

	b.SetSelected(true)
	n := m.DeleteSelectedObjects()
	assert.Equal(t, 4, n)
	assert.Empty(t, m.Associations())
	assert.Empty(t, m.Validate())
	assert.Len(t, m.Entities(), 2)
}

func TestDeleteExpandedSectionKeepsChildren(t *testing.T) {
	m, a, b := twoNodes(t)
	outer := NewSection("", "outer", geom.Rect(-200, -200, 1000, 600))
	inner := NewSection("", "inner", geom.Rect(-100, -100, 700, 400))
	addAll(t, m, outer, inner)
	require.NoError(t, m.GoInSection([]Entity{inner}, outer))
	require.NoError(t, m.GoInSection([]Entity{a, b}, inner))
	edge, err := m.ConnectEntity(a, b, EdgeLine)
	require.NoError(t, err)

	n, err := m.Delete([]Object{inner})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, m.Contains(edge))
	assert.True(t, outer.HasChild(a))
	assert.True(t, outer.HasChild(b))
	assert.Empty(t, m.Validate())
}

func TestDeleteCollapsedSectionDeletesDescendants(t *testing.T) {
	m, a, b := twoNodes(t)
	c := NewTextNode("", "C", geom.V(0, 400))
	s := NewSection("", "box", geom.Rect(-50, -50, 600, 300))
	sub := NewSection("", "sub", geom.Rect(350, -20, 200, 200))
	addAll(t, m, c, s, sub)
	require.NoError(t, m.GoInSection([]Entity{a, sub}, s))
	require.NoError(t, m.GoInSection([]Entity{b}, sub))
	_, err := m.ConnectEntity(b, c, EdgeLine)
	require.NoError(t, err)
	s.IsCollapsed = true

	n, err := m.Delete([]Object{s})
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []Object{c}, m.Objects())
}

func TestDeleteUnknownObjectIsAllOrNothing(t *testing.T) {
	m, a, _ := twoNodes(t)
	ghost := NewTextNode("", "ghost", geom.V(0, 0))
	_, err := m.Delete([]Object{a, ghost})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, m.Contains(a))
}

func TestGoInSectionRejectsCycles(t *testing.T) {
	m, a, _ := twoNodes(t)
	outer := NewSection("", "outer", geom.Rect(-100, -100, 800, 400))
	inner := NewSection("", "inner", geom.Rect(-50, -50, 200, 200))
	addAll(t, m, outer, inner)
	require.NoError(t, m.GoInSection([]Entity{inner}, outer))

	assert.ErrorIs(t, m.GoInSection([]Entity{outer}, inner), ErrSectionCycle)
	assert.ErrorIs(t, m.GoInSection([]Entity{outer}, outer), ErrSectionCycle)

	before := a.Rectangle()
	require.NoError(t, m.GoInSection([]Entity{a}, inner))
	assert.Equal(t, before, a.Rectangle(), "membership does not move the entity")
	assert.True(t, m.IsEntityInSection(a, outer))
	assert.Equal(t, []*Section{inner}, m.FatherSections(a))

	require.NoError(t, m.GoOutSection([]Entity{a}, inner))
	assert.Equal(t, []*Section{outer}, m.FatherSections(a))
}

func TestFindEntityByLocation(t *testing.T) {
	m, a, _ := twoNodes(t)
	s := NewSection("", "group", geom.Rect(-100, -100, 400, 400))
	p := NewConnectPoint("", geom.V(250, 250))
	addAll(t, m, s, p)
	require.NoError(t, m.GoInSection([]Entity{a}, s))

	assert.Same(t, a, m.FindEntityByLocation(geom.V(10, 10)).(*TextNode))
	assert.Same(t, p, m.FindEntityByLocation(geom.V(250, 250)).(*ConnectPoint))
	assert.Same(t, s, m.FindEntityByLocation(geom.V(-90, 200)).(*Section))
	assert.Nil(t, m.FindEntityByLocation(geom.V(5000, 5000)))

	s.IsCollapsed = true
	assert.True(t, m.IsHiddenBySectionCollapse(a))
	assert.Same(t, s, m.FindEntityByLocation(geom.V(10, 10)).(*Section))
}

func TestSectionCollisionShape(t *testing.T) {
	m := NewManager()
	s := NewSection("", "group", geom.Rect(0, 0, 600, 400))
	addAll(t, m, s)

	assert.Equal(t, geom.Rect(0, 0, 600, 400), s.Rectangle())
	assert.False(t, s.CollisionBox().IsContainsPoint(geom.V(300, 250)), "interior of an expanded section")
	assert.True(t, s.CollisionBox().IsContainsPoint(geom.V(300, 5)), "title band")
	assert.True(t, s.CollisionBox().IsContainsPoint(geom.V(600, 250)), "right border")
	assert.Empty(t, m.EntitiesInRectangle(geom.Rect(250, 200, 20, 20)))

	child := NewTextNode("", "inside", geom.V(200, 200))
	addAll(t, m, child)
	require.NoError(t, m.GoInSection([]Entity{child}, s))
	s.AdjustToChildren()
	center := child.Rectangle().Center()
	assert.False(t, s.CollisionBox().IsContainsPoint(center))
	assert.Same(t, child, m.FindEntityByLocation(center).(*TextNode))

	m.SetCollapsed(s, true)
	assert.True(t, s.CollisionBox().IsContainsPoint(s.Rectangle().Center()), "collapsed section is solid")
}

func TestSectionsByInnerLocationDeepestFirst(t *testing.T) {
	m := NewManager()
	outer := NewSection("", "outer", geom.Rect(0, 0, 1000, 1000))
	inner := NewSection("", "inner", geom.Rect(100, 100, 300, 300))
	addAll(t, m, inner, outer)
	require.NoError(t, m.GoInSection([]Entity{inner}, outer))

	got := m.SectionsByInnerLocation(geom.V(150, 150))
	assert.Equal(t, []*Section{inner, outer}, got)
	assert.Equal(t, []*Section{outer}, m.SectionsByInnerLocation(geom.V(900, 900)))
}

func TestFindAssociationByLocation(t *testing.T) {
	m, a, b := twoNodes(t)
	e, err := m.ConnectEntity(a, b, EdgeLine)
	require.NoError(t, err)

	mid := e.EdgeBase().BodyLine().Midpoint()
	assert.Same(t, e.(*LineEdge), m.FindAssociationByLocation(mid).(*LineEdge))
	assert.Same(t, e.(*LineEdge), m.FindEdgeByLocation(mid.Add(geom.V(0, 5))).(*LineEdge))
	assert.Nil(t, m.FindAssociationByLocation(mid.Add(geom.V(0, 100))))
}

func TestSelection(t *testing.T) {
	m, a, b := twoNodes(t)
	_, err := m.ConnectEntity(a, b, EdgeLine)
	require.NoError(t, err)

	m.SelectAll()
	assert.Len(t, m.SelectedObjects(), 3)
	assert.Len(t, m.SelectedEntities(), 2)
	assert.Len(t, m.SelectedAssociations(), 1)

	m.ClearSelection()
	assert.Empty(t, m.SelectedObjects())

	picked := m.SelectByRectangle(geom.Rect(-10, -10, 30, 30), false)
	require.Len(t, picked, 1)
	assert.Same(t, a, picked[0].(*TextNode))

	m.SelectByRectangle(geom.Rect(390, -10, 100, 30), true)
	assert.Len(t, m.SelectedEntities(), 2)
}

func TestMoveSectionCarriesChildren(t *testing.T) {
	m, a, b := twoNodes(t)
	s := NewSection("", "group", geom.Rect(-50, -50, 600, 300))
	addAll(t, m, s)
	require.NoError(t, m.GoInSection([]Entity{a}, s))

	m.MoveEntity(s, geom.V(10, 20))
	assert.Equal(t, geom.V(10, 20), a.Rectangle().Location)
	assert.Equal(t, geom.V(400, 0), b.Rectangle().Location)

	s.SetSelected(true)
	a.SetSelected(true)
	m.MoveSelected(geom.V(5, 5))
	assert.Equal(t, geom.V(15, 25), a.Rectangle().Location, "a selected child moves once")
}

func TestRepairRebindsAndDrops(t *testing.T) {
	m, a, b := twoNodes(t)
	s := NewSection("", "group", geom.Rect(-50, -50, 600, 300))
	stale := NewTextNode(a.UUID(), "A copy", geom.V(0, 0))
	ghost := NewTextNode("", "ghost", geom.V(0, 0))
	s.Children = []Entity{stale, ghost, b}
	addAll(t, m, s, NewLineEdge("", a, ghost), NewLineEdge("", stale, b))
	m.tags = []string{ghost.UUID(), a.UUID()}

	assert.NotEmpty(t, m.Validate())
	report := m.Repair()
	assert.Equal(t, 1, report.ReboundChildren)
	assert.Equal(t, 1, report.DroppedChildren)
	assert.Equal(t, 1, report.DroppedAssociations)
	assert.Equal(t, 1, report.DroppedTags)
	assert.Empty(t, m.Validate())

	assert.Same(t, a, s.Children[0].(*TextNode))
	edge := m.LineEdges()[0]
	assert.Same(t, a, edge.Source.(*TextNode))
}

func TestTags(t *testing.T) {
	m, a, b := twoNodes(t)
	require.NoError(t, m.AddTag(a.UUID()))
	require.NoError(t, m.AddTag(b.UUID()))
	assert.ErrorIs(t, m.AddTag("missing"), ErrNotFound)

	assert.True(t, m.MoveTagUp(b.UUID()))
	assert.Equal(t, []string{b.UUID(), a.UUID()}, m.Tags())
	assert.False(t, m.MoveTagUp(b.UUID()))
	assert.True(t, m.MoveTagDown(b.UUID()))
	assert.Equal(t, []string{a.UUID(), b.UUID()}, m.Tags())

	a.SetSelected(true)
	b.SetSelected(true)
	m.ToggleTags()
	assert.Empty(t, m.Tags())
	m.ToggleTags()
	assert.Len(t, m.Tags(), 2)

	_, err := m.Delete([]Object{a})
	require.NoError(t, err)
	assert.Equal(t, []string{b.UUID()}, m.Tags())
}

func TestConnectPointGrowsWhenSelected(t *testing.T) {
	p := NewConnectPoint("", geom.V(10, 10))
	assert.Equal(t, 2*ConnectPointRadius, p.Rectangle().Width())

	p.SetSelected(true)
	assert.Equal(t, 2*ConnectPointSelectedRadius, p.Rectangle().Width())
	assert.True(t, p.Center().Equals(geom.V(10, 10), geom.Epsilon))

	p.SetSelected(false)
	assert.Equal(t, 2*ConnectPointRadius, p.Rectangle().Width())
	assert.True(t, p.Center().Equals(geom.V(10, 10), geom.Epsilon))
}

func TestImageNodeResolvesAttachment(t *testing.T) {
	store := fakeAttachments{"att_ok": true}
	ok := NewImageNode("", "att_ok", geom.V(0, 0), geom.V(100, 50))
	missing := NewImageNode("", "att_gone", geom.V(0, 0), geom.V(100, 50))

	assert.Equal(t, ImageLoading, ok.State)
	assert.Equal(t, ImageSuccess, ok.Resolve(store))
	assert.Equal(t, ImageNotFound, missing.Resolve(store))

	ok.SetScale(50)
	assert.Equal(t, MaxImageScale, ok.Scale())
	assert.Equal(t, geom.V(1000, 500), ok.Rectangle().Size)

	m := NewManager()
	addAll(t, m, ok, missing)
	data, err := Marshal(m)
	require.NoError(t, err)
	objs, _, err := Unmarshal(data, store)
	require.NoError(t, err)
	assert.Equal(t, ImageSuccess, objs[0].(*ImageNode).State)
	assert.Equal(t, geom.V(100, 50), objs[0].(*ImageNode).OriginalSize())
	assert.Equal(t, ImageNotFound, objs[1].(*ImageNode).State)
}

func TestPenStrokeContent(t *testing.T) {
	segs, err := ParsePenStrokeContent("0,0,1~10,5,0.5~20,0")
	require.NoError(t, err)
	require.Len(t, segs, 3)
	assert.Equal(t, 1.0, segs[2].Pressure)

	s := NewPenStroke("", segs, Color{})
	assert.Equal(t, geom.Rect(0, 0, 20, 5), s.Rectangle())
	assert.True(t, s.CollisionBox().IsContainsPoint(geom.V(5, 2.5)))
	assert.Equal(t, "0,0,1~10,5,0.5~20,0,1", s.DumpString())

	_, err = ParsePenStrokeContent("1,2,3,4")
	assert.Error(t, err)
}

func TestMultiTargetCenter(t *testing.T) {
	m, a, b := twoNodes(t)
	c := NewTextNode("", "C", geom.V(0, 400))
	addAll(t, m, c)

	pair, err := m.ConnectMultiTarget([]Connectable{a, b})
	require.NoError(t, err)
	assert.True(t, pair.CenterLocation().Equals(a.Rectangle().Center().Lerp(b.Rectangle().Center(), 0.5), geom.Epsilon))

	tri, err := m.ConnectMultiTarget([]Connectable{a, b, c})
	require.NoError(t, err)
	bounds, err := geom.BoundingRectangle(a.Rectangle(), b.Rectangle(), c.Rectangle())
	require.NoError(t, err)
	assert.True(t, tri.CenterLocation().Equals(bounds.Center(), geom.Epsilon))
	assert.Len(t, tri.CollisionBox().Shapes, 3)

	_, err = m.ConnectMultiTarget([]Connectable{a})
	assert.ErrorIs(t, err, ErrTooFewMembers)
}

func TestDocumentRoundTrip(t *testing.T) {
	doc := document.NewSampleDocument()
	m, err := FromDocument(doc, nil)
	require.NoError(t, err)
	assert.Len(t, m.Entities(), len(doc.Entities))
	assert.Len(t, m.Associations(), len(doc.Associations))
	assert.Empty(t, m.Validate())

	out := ToDocument(m)
	require.NoError(t, out.Validate())
	assert.Equal(t, doc.Tags, out.Tags)

	again, err := FromDocument(out, nil)
	require.NoError(t, err)
	assert.Len(t, again.Objects(), m.Len())
	for _, s := range again.Sections() {
		orig, ok := m.Get(s.UUID())
		require.True(t, ok)
		assert.Equal(t, orig.(*Section).ChildUUIDs(), s.ChildUUIDs())
	}
	for _, o := range again.Objects() {
		orig, ok := m.Get(o.UUID())
		require.True(t, ok)
		assert.Equal(t, orig.Kind(), o.Kind())
	}
}

func TestFromDocumentRejectsStructuralErrors(t *testing.T) {
	doc := document.New()
	doc.Entities = []document.Entity{{UUID: "a", Type: document.TypeTextNode, Location: []float64{0, 0}, Text: document.Ptr("a")}}
	doc.Associations = []document.Association{{UUID: "e", Type: document.TypeLineEdge, Source: "a", Target: "b"}}
	_, err := FromDocument(doc, nil)
	assert.ErrorIs(t, err, document.ErrUnknownEndpoint)
}

func TestKindsMatchDocumentTypes(t *testing.T) {
	pairs := map[Kind]document.Type{
		KindTextNode:        document.TypeTextNode,
		KindSection:         document.TypeSection,
		KindImageNode:       document.TypeImageNode,
		KindSvgNode:         document.TypeSvgNode,
		KindUrlNode:         document.TypeUrlNode,
		KindPortalNode:      document.TypePortalNode,
		KindConnectPoint:    document.TypeConnectPoint,
		KindPenStroke:       document.TypePenStroke,
		KindLineEdge:        document.TypeLineEdge,
		KindCatmullRomEdge:  document.TypeCatmullRomEdge,
		KindMultiTargetEdge: document.TypeMultiTargetEdge,
	}
	for k, dt := range pairs {
		assert.Equal(t, string(dt), string(k))
	}
}

func TestCodecSnapshotIsDeterministic(t *testing.T) {
	m, a, b := twoNodes(t)
	_, err := m.ConnectEntity(a, b, EdgeCatmullRom)
	require.NoError(t, err)
	codec := Codec{Stage: m}

	first, err := codec.Snapshot()
	require.NoError(t, err)
	second, err := codec.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.True(t, json.Valid(first))

	a.MoveBy(geom.V(1, 1))
	require.NoError(t, codec.Restore(first))
	restored, ok := m.Get(a.UUID())
	require.True(t, ok)
	assert.Equal(t, geom.V(0, 0), restored.(*TextNode).Rectangle().Location)
}
