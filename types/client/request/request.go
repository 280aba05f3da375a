package request

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ashwaniclecvdoc/vc-backend-scale/media"
)

// Constants for request types
const (
	GetRTPCapabilities = "get-rtp-capabilities"
	CreateTransport    = "create-transport"
	ConnectTransport   = "connect-transport"
	Produce            = "produce"
	Consume            = "consume"
	CheckName          = "room:check-name"
	Join               = "room:join"
	CallOffer          = "room:call-offer"
	CallAccept         = "room:call-accept"
	Leave              = "room:leave"
	TogglePresence     = "room:toggle-presence"
	Message            = "room:message"
)

// ErrMissingField is returned when a required payload field is empty.
var ErrMissingField = errors.New("missing field")

func required(name, value string) error {
	if value == "" {
		return fmt.Errorf("%s: %w", name, ErrMissingField)
	}
	return nil
}

// ConnectTransportPayload carries the client's side of the transport handshake.
type ConnectTransportPayload struct {
	TransportID    string               `json:"transport_id"`
	DTLSParameters media.DTLSParameters `json:"dtls_parameters"`
	ICEParameters  *media.ICEParameters `json:"ice_parameters,omitempty"`
	ICECandidates  []media.ICECandidate `json:"ice_candidates,omitempty"`
}

// Validate checks the required fields.
func (p ConnectTransportPayload) Validate() error {
	return required("transport_id", p.TransportID)
}

// ProducePayload asks the server to receive a stream on a transport.
type ProducePayload struct {
	TransportID   string              `json:"transport_id"`
	Kind          media.Kind          `json:"kind"`
	RTPParameters media.RTPParameters `json:"rtp_parameters"`
}

// Validate checks the required fields.
func (p ProducePayload) Validate() error {
	return required("transport_id", p.TransportID)
}

// ConsumePayload asks the server to send a producer's stream to the peer.
type ConsumePayload struct {
	ProducerID      string                `json:"producer_id"`
	RTPCapabilities media.RTPCapabilities `json:"rtp_capabilities"`
}

// Validate checks the required fields.
func (p ConsumePayload) Validate() error {
	return required("producer_id", p.ProducerID)
}

// CheckNamePayload asks whether a display name is used in a room.
type CheckNamePayload struct {
	RoomID string `json:"room_id"`
	Name   string `json:"name"`
}

// Validate checks the required fields.
func (p CheckNamePayload) Validate() error {
	return errors.Join(required("room_id", p.RoomID), required("name", p.Name))
}

// JoinPayload joins a room under a display name.
type JoinPayload struct {
	RoomID string `json:"room_id"`
	Name   string `json:"name"`
}

// Validate checks the required fields.
func (p JoinPayload) Validate() error {
	return errors.Join(required("room_id", p.RoomID), required("name", p.Name))
}

// CallPayload relays an opaque signal to another peer. It is used for both
// the offer and the answer.
type CallPayload struct {
	TargetID string          `json:"target_id"`
	Signal   json.RawMessage `json:"signal"`
}

// Validate checks the required fields.
func (p CallPayload) Validate() error {
	return required("target_id", p.TargetID)
}

// LeavePayload leaves a room.
type LeavePayload struct {
	RoomID string `json:"room_id"`
}

// Validate checks the required fields.
func (p LeavePayload) Validate() error {
	return required("room_id", p.RoomID)
}

// TogglePresencePayload flips the audio or video flag of the peer.
type TogglePresencePayload struct {
	RoomID string `json:"room_id"`
	Target string `json:"target"`
}

// Validate checks the required fields.
func (p TogglePresencePayload) Validate() error {
	return errors.Join(required("room_id", p.RoomID), required("target", p.Target))
}

// MessagePayload is a chat message for every member of a room.
type MessagePayload struct {
	RoomID  string          `json:"room_id"`
	Message json.RawMessage `json:"message"`
	Sender  json.RawMessage `json:"sender"`
}

// Validate checks the required fields.
func (p MessagePayload) Validate() error {
	return required("room_id", p.RoomID)
}
