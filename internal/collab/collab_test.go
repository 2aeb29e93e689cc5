package collab

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphif/stagecore/internal/document"
	"github.com/graphif/stagecore/internal/store"
)

const addNode = `[{"op":"add","path":"/entities/-","value":{"uuid":"n1","type":"core:text_node","location":[10,20],"text":"hello"}}]`

func newTestHub(t *testing.T) (*Hub, *store.Memory) {
	t.Helper()
	docs := store.NewMemory()
	h := NewHub(docs, time.Hour)
	go h.Run()
	t.Cleanup(h.Stop)
	return h, docs
}

func join(t *testing.T, h *Hub, clientID string) *Client {
	t.Helper()
	c := NewClient(h, nil, "user-"+clientID, "User "+clientID, "proj_test", clientID)
	h.Register(c)
	return c
}

func recv(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "client channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return &msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func patchMessage(t *testing.T, id, ops string) *Message {
	t.Helper()
	raw, err := json.Marshal(PatchPayload{ID: id, Ops: json.RawMessage(ops)})
	require.NoError(t, err)
	return &Message{Type: TypePatch, Payload: raw}
}

func TestWelcomeAndJoin(t *testing.T) {
	h, _ := newTestHub(t)

	a := join(t, h, "a")
	welcome := recv(t, a)
	require.Equal(t, TypeWelcome, welcome.Type)
	var wp WelcomePayload
	require.NoError(t, json.Unmarshal(welcome.Payload, &wp))
	assert.Equal(t, "a", wp.ClientID)
	doc, err := document.Parse(wp.Document)
	require.NoError(t, err)
	assert.Equal(t, document.Version, doc.Version)
	assert.Empty(t, doc.Entities)

	b := join(t, h, "b")
	assert.Equal(t, TypeWelcome, recv(t, b).Type)

	joined := recv(t, a)
	require.Equal(t, TypeJoin, joined.Type)
	var jp JoinPayload
	require.NoError(t, json.Unmarshal(joined.Payload, &jp))
	assert.Equal(t, "b", jp.ClientID)
	assert.Equal(t, "User b", jp.DisplayName)
}

func TestPatchIsAppliedAndBroadcast(t *testing.T) {
	h, _ := newTestHub(t)
	a := join(t, h, "a")
	recv(t, a)
	b := join(t, h, "b")
	recv(t, b)
	recv(t, a) // join of b

	h.handleMessage(a, patchMessage(t, "p1", addNode))

	ack := recv(t, a)
	require.Equal(t, TypeAck, ack.Type)
	var ap AckPayload
	require.NoError(t, json.Unmarshal(ack.Payload, &ap))
	assert.Equal(t, AckPayload{ID: "p1", Seq: 1}, ap)

	got := recv(t, b)
	require.Equal(t, TypePatch, got.Type)
	assert.Equal(t, int64(1), got.Seq)
	assert.Equal(t, "a", got.ClientID)

	data, seq, ok := h.Document("proj_test")
	require.True(t, ok)
	assert.Equal(t, int64(1), seq)
	doc, err := document.Parse(data)
	require.NoError(t, err)
	require.Len(t, doc.Entities, 1)
	assert.Equal(t, "hello", *doc.Entities[0].Text)
}

func TestInvalidPatchIsRejected(t *testing.T) {
	h, _ := newTestHub(t)
	a := join(t, h, "a")
	recv(t, a)

	// a text node without text fails validation
	bad := `[{"op":"add","path":"/entities/-","value":{"uuid":"n1","type":"core:text_node","location":[0,0]}}]`
	h.handleMessage(a, patchMessage(t, "p1", bad))

	msg := recv(t, a)
	require.Equal(t, TypeError, msg.Type)
	var ep ErrorPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &ep))
	assert.Equal(t, "p1", ep.ID)
	assert.Contains(t, ep.Message, "text")

	_, seq, ok := h.Document("proj_test")
	require.True(t, ok)
	assert.Zero(t, seq)
}

func TestPresenceReachesOthersAndLateJoiners(t *testing.T) {
	h, _ := newTestHub(t)
	a := join(t, h, "a")
	recv(t, a)
	b := join(t, h, "b")
	recv(t, b)
	recv(t, a)

	raw, err := json.Marshal(PresencePayload{Cursor: &CursorPos{X: 5, Y: -3}, Selection: []string{"n1"}})
	require.NoError(t, err)
	h.handleMessage(a, &Message{Type: TypePresence, Payload: raw})

	msg := recv(t, b)
	require.Equal(t, TypePresence, msg.Type)
	var pp PresencePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &pp))
	assert.Equal(t, &CursorPos{X: 5, Y: -3}, pp.Cursor)
	assert.Equal(t, "User a", pp.DisplayName)

	c := join(t, h, "c")
	welcome := recv(t, c)
	var wp WelcomePayload
	require.NoError(t, json.Unmarshal(welcome.Payload, &wp))
	require.Contains(t, wp.Presences, "a")
	assert.Equal(t, []string{"n1"}, wp.Presences["a"].Selection)
}

func TestLastLeaveSavesDocument(t *testing.T) {
	h, docs := newTestHub(t)
	a := join(t, h, "a")
	recv(t, a)
	h.handleMessage(a, patchMessage(t, "p1", addNode))
	recv(t, a)

	h.Unregister(a)

	require.Eventually(t, func() bool {
		data, err := docs.Load(context.Background(), "proj_test")
		if err != nil {
			return false
		}
		doc, err := document.Parse(data)
		return err == nil && len(doc.Entities) == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, _, open := h.Document("proj_test")
	assert.False(t, open)
}

func TestStopSavesDirtyRooms(t *testing.T) {
	docs := store.NewMemory()
	h := NewHub(docs, time.Hour)
	go h.Run()

	a := join(t, h, "a")
	recv(t, a)
	h.handleMessage(a, patchMessage(t, "p1", addNode))
	recv(t, a)

	h.Stop()

	data, err := docs.Load(context.Background(), "proj_test")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"hello"`)
}

func TestNonPositiveSaveIntervalFallsBack(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		h := NewHub(store.NewMemory(), d)
		assert.Equal(t, DefaultSaveInterval, h.saveInterval)
		go h.Run()
		h.Stop()
	}
}

func TestRoomLoadsStoredDocument(t *testing.T) {
	h, docs := newTestHub(t)
	stored, err := json.Marshal(document.NewSampleDocument())
	require.NoError(t, err)
	require.NoError(t, docs.Save(context.Background(), "proj_test", stored))

	a := join(t, h, "a")
	var wp WelcomePayload
	require.NoError(t, json.Unmarshal(recv(t, a).Payload, &wp))
	doc, err := document.Parse(wp.Document)
	require.NoError(t, err)
	assert.Len(t, doc.Entities, len(document.NewSampleDocument().Entities))
}

func TestDiffReplaysOntoState(t *testing.T) {
	before, err := json.Marshal(document.New())
	require.NoError(t, err)
	state, err := NewDocumentState(before)
	require.NoError(t, err)

	next := document.New()
	next.Entities = append(next.Entities, document.Entity{
		UUID: "n1", Type: document.TypeTextNode, Location: []float64{1, 2}, Text: document.Ptr("x"),
	})
	after, err := json.Marshal(next)
	require.NoError(t, err)

	ops, err := Diff(before, after)
	require.NoError(t, err)
	seq, err := state.ApplyPatch(ops)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	got, _ := state.Snapshot()
	assert.JSONEq(t, string(after), string(got))
	assert.True(t, state.Dirty())
	state.MarkSaved(seq)
	assert.False(t, state.Dirty())
}

func TestEmptyPatchIsRejected(t *testing.T) {
	state, err := NewDocumentState([]byte(`{"version":17}`))
	require.NoError(t, err)
	_, err = state.ApplyPatch(json.RawMessage(`[]`))
	assert.ErrorIs(t, err, ErrEmptyPatch)

	ops, err := Diff([]byte(`{"a":1}`), []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(ops))
}
