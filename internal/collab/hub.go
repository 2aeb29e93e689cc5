// Package collab shares a project's document between websocket clients. Each project
// gets a room holding the authoritative document; clients edit it with JSON patches.
package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/graphif/stagecore/internal/document"
	"github.com/graphif/stagecore/internal/store"
)

const (
	storeTimeout = 10 * time.Second
	// DefaultSaveInterval replaces a non-positive save interval.
	DefaultSaveInterval = 30 * time.Second
)

type Room struct {
	projectID string
	mu        sync.Mutex // serializes patches and their broadcast
	clients   map[string]*Client
	presence  *PresenceManager
	state     *DocumentState
}

func NewRoom(projectID string, state *DocumentState) *Room {
	return &Room{
		projectID: projectID,
		clients:   make(map[string]*Client),
		presence:  NewPresenceManager(),
		state:     state,
	}
}

type Hub struct {
	docs         store.DocumentStore
	saveInterval time.Duration

	mu         sync.RWMutex
	rooms      map[string]*Room // projectID -> room
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	done       chan struct{}
	stopOnce   sync.Once
}

// NewHub creates a hub that loads and saves documents through docs. Dirty rooms are
// saved every saveInterval and when their last client leaves.
func NewHub(docs store.DocumentStore, saveInterval time.Duration) *Hub {
	if saveInterval <= 0 {
		saveInterval = DefaultSaveInterval
	}
	return &Hub{
		docs:         docs,
		saveInterval: saveInterval,
		rooms:        make(map[string]*Room),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

func (h *Hub) Run() {
	ticker := time.NewTicker(h.saveInterval)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ticker.C:
			h.saveAll()
		case <-h.stop:
			h.saveAll()
			return
		}
	}
}

// Stop ends Run after saving every dirty room.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Document returns the live document of an open room.
func (h *Hub) Document(projectID string) ([]byte, int64, bool) {
	h.mu.RLock()
	room, ok := h.rooms[projectID]
	h.mu.RUnlock()
	if !ok {
		return nil, 0, false
	}
	data, seq := room.state.Snapshot()
	return data, seq, true
}

func (h *Hub) loadState(projectID string) (*DocumentState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	data, err := h.docs.Load(ctx, projectID)
	if errors.Is(err, store.ErrNotFound) {
		data, err = json.Marshal(document.New())
	}
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", projectID, err)
	}
	return NewDocumentState(data)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.ProjectID]
	if !ok {
		state, err := h.loadState(client.ProjectID)
		if err != nil {
			h.mu.Unlock()
			slog.Error("open room", "project", client.ProjectID, "error", err)
			client.Send(newMessage(TypeError, ErrorPayload{Message: "document unavailable"}))
			client.close()
			return
		}
		room = NewRoom(client.ProjectID, state)
		h.rooms[client.ProjectID] = room
		roomsOpen.Inc()
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()
	clientsConnected.Inc()

	data, seq := room.state.Snapshot()
	welcome := newMessage(TypeWelcome, WelcomePayload{
		ClientID:  client.ClientID,
		Document:  data,
		Presences: room.presence.GetAll(),
	})
	welcome.Seq = seq
	client.Send(welcome)

	join := newMessage(TypeJoin, JoinPayload{
		ClientID:    client.ClientID,
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	join.UserID = client.UserID
	h.broadcastToRoom(room, join, client.ClientID)

	slog.Info("client joined", "user", client.UserID, "client", client.ClientID, "project", client.ProjectID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.ProjectID]
	if !ok || room.clients[client.ClientID] != client {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.close()
	room.presence.Remove(client.ClientID)

	last := len(room.clients) == 0
	if last {
		delete(h.rooms, client.ProjectID)
		roomsOpen.Dec()
	}
	h.mu.Unlock()
	clientsConnected.Dec()

	if last {
		h.saveRoom(room)
	} else {
		leave := newMessage(TypeLeave, LeavePayload{ClientID: client.ClientID, UserID: client.UserID})
		leave.UserID = client.UserID
		h.broadcastToRoom(room, leave, "")
	}

	slog.Info("client left", "user", client.UserID, "client", client.ClientID, "project", client.ProjectID)
}

func (h *Hub) room(projectID string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[projectID]
	return room, ok
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	room, ok := h.room(sender.ProjectID)
	if !ok {
		return
	}
	switch msg.Type {
	case TypePresence:
		h.handlePresence(room, sender, msg)
	case TypePatch:
		h.handlePatch(room, sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
		sender.Send(newMessage(TypeError, ErrorPayload{Message: "unknown message type " + msg.Type}))
	}
}

func (h *Hub) handlePresence(room *Room, sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}
	presence.DisplayName = sender.DisplayName
	room.presence.Update(sender.ClientID, &presence)

	out := newMessage(TypePresence, presence)
	out.UserID = sender.UserID
	out.ClientID = sender.ClientID
	h.broadcastToRoom(room, out, sender.ClientID)
}

func (h *Hub) handlePatch(room *Room, sender *Client, msg *Message) {
	var patch PatchPayload
	if err := json.Unmarshal(msg.Payload, &patch); err != nil {
		patchesTotal.WithLabelValues("invalid").Inc()
		sender.Send(newMessage(TypeError, ErrorPayload{Message: "invalid patch payload"}))
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	seq, err := room.state.ApplyPatch(patch.Ops)
	if err != nil {
		patchesTotal.WithLabelValues("rejected").Inc()
		slog.Debug("patch rejected", "project", room.projectID, "user", sender.UserID, "error", err)
		sender.Send(newMessage(TypeError, ErrorPayload{ID: patch.ID, Message: err.Error()}))
		return
	}
	patchesTotal.WithLabelValues("applied").Inc()

	ack := newMessage(TypeAck, AckPayload{ID: patch.ID, Seq: seq})
	ack.Seq = seq
	sender.Send(ack)

	out := newMessage(TypePatch, patch)
	out.Seq = seq
	out.UserID = sender.UserID
	out.ClientID = sender.ClientID
	h.broadcastToRoom(room, out, sender.ClientID)
}

func (h *Hub) broadcastToRoom(room *Room, msg *Message, excludeClientID string) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}

func (h *Hub) saveAll() {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.RUnlock()

	for _, r := range rooms {
		h.saveRoom(r)
	}
}

func (h *Hub) saveRoom(room *Room) {
	if !room.state.Dirty() {
		return
	}
	data, seq := room.state.Snapshot()

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := h.docs.Save(ctx, room.projectID, data); err != nil {
		savesTotal.WithLabelValues("error").Inc()
		slog.Error("save document", "project", room.projectID, "seq", seq, "error", err)
		return
	}
	room.state.MarkSaved(seq)
	savesTotal.WithLabelValues("ok").Inc()
	slog.Info("document saved", "project", room.projectID, "seq", seq)
}
