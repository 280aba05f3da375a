// Package response provides data types for server response to client.
package response

import "encoding/json"

// Constants for notification types
const (
	Connected    = "connected"
	NewProducer  = "new-producer"
	Members      = "room:members"
	UserLeft     = "room:user-left"
	Presence     = "room:presence"
	IncomingCall = "room:incoming-call"
	CallAccepted = "room:call-accepted"
	Message      = "room:message"
)

// Constants for error codes
const (
	CodeEngineNotReady           = "ENGINE_NOT_READY"
	CodeEngineCallFailed         = "ENGINE_CALL_FAILED"
	CodeResourceNotFound         = "RESOURCE_NOT_FOUND"
	CodeIncompatibleCapabilities = "INCOMPATIBLE_CAPABILITIES"
	CodeDuplicateName            = "DUPLICATE_NAME"
	CodeInvalidRequest           = "INVALID_REQUEST"
	CodeInternal                 = "INTERNAL"
)

// Reply answers one request. Payload is null when Error is set.
type Reply struct {
	RequestID int    `json:"request_id"`
	Type      string `json:"type"`
	Payload   any    `json:"payload"`
	Error     *Error `json:"error,omitempty"`
}

// Error is a structured failure of a request.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Notification is sent by the server without a request.
type Notification struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ConnectedPayload tells a new connection its own peer ID.
type ConnectedPayload struct {
	PeerID string `json:"peer_id"`
}

// NewProducerPayload announces a producer that can be consumed.
type NewProducerPayload struct {
	ProducerID string `json:"producer_id"`
}

// Member is a room member with its presence flags.
type Member struct {
	PeerID string `json:"peer_id"`
	Name   string `json:"name"`
	Audio  bool   `json:"audio"`
	Video  bool   `json:"video"`
}

// MembersPayload is the full member list of a room.
type MembersPayload struct {
	RoomID  string   `json:"room_id"`
	Members []Member `json:"members"`
}

// UserLeftPayload announces a member that left the room.
type UserLeftPayload struct {
	RoomID string `json:"room_id"`
	PeerID string `json:"peer_id"`
}

// PresencePayload carries the new value of one presence flag.
type PresencePayload struct {
	RoomID  string `json:"room_id"`
	PeerID  string `json:"peer_id"`
	Target  string `json:"target"`
	Enabled bool   `json:"enabled"`
}

// IncomingCallPayload is a call offer relayed from another peer.
type IncomingCallPayload struct {
	FromID   string          `json:"from_id"`
	Signal   json.RawMessage `json:"signal"`
	Presence Member          `json:"presence"`
}

// CallAcceptedPayload is a call answer relayed from another peer.
type CallAcceptedPayload struct {
	AnswererID string          `json:"answerer_id"`
	Signal     json.RawMessage `json:"signal"`
}

// MessagePayload is a chat message relayed to a room.
type MessagePayload struct {
	RoomID  string          `json:"room_id"`
	Message json.RawMessage `json:"message"`
	Sender  json.RawMessage `json:"sender"`
}

// CheckNamePayload reports whether a display name is taken.
type CheckNamePayload struct {
	Taken bool `json:"taken"`
}

// ProducePayload carries the ID of a new producer.
type ProducePayload struct {
	ID string `json:"id"`
}

// Empty is the payload of a request that has nothing to return.
type Empty struct{}
