package collab

import "encoding/json"

type Message struct {
	Type      string          `json:"type"`
	ProjectID string          `json:"projectId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

const (
	// Server to client
	TypeWelcome = "welcome"
	TypeJoin    = "join"
	TypeLeave   = "leave"
	TypeAck     = "ack"
	TypeError   = "error"

	// Both directions
	TypePresence = "presence"
	TypePatch    = "patch"
)

// WelcomePayload is the first message a client receives: the room's document and
// everyone already present.
type WelcomePayload struct {
	ClientID  string                      `json:"clientId"`
	Document  json.RawMessage             `json:"document"`
	Presences map[string]*PresencePayload `json:"presences"`
}

// PresencePayload is a collaborator's cursor, in world coordinates, and selection.
type PresencePayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"`
	Selection   []string   `json:"selection,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type JoinPayload struct {
	ClientID    string `json:"clientId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type LeavePayload struct {
	ClientID string `json:"clientId"`
	UserID   string `json:"userId"`
}

// PatchPayload carries RFC 6902 operations against the interop document. ID is chosen
// by the submitting client and echoed in the ack or error.
type PatchPayload struct {
	ID  string          `json:"id"`
	Ops json.RawMessage `json:"ops"`
}

type AckPayload struct {
	ID  string `json:"id"`
	Seq int64  `json:"seq"`
}

type ErrorPayload struct {
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

func newMessage(typ string, payload any) *Message {
	raw, _ := json.Marshal(payload)
	return &Message{Type: typ, Payload: raw}
}
