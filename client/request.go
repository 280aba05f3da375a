package client

import (
	"context"
	"encoding/json"

	"github.com/ashwaniclecvdoc/vc-backend-scale/database"
	"github.com/ashwaniclecvdoc/vc-backend-scale/media"
	"github.com/ashwaniclecvdoc/vc-backend-scale/types/client/request"
	"github.com/ashwaniclecvdoc/vc-backend-scale/types/client/response"
)

// Capabilities returns the RTP capabilities of the router.
func (c *Client) Capabilities(ctx context.Context) (*media.RTPCapabilities, error) {
	var caps media.RTPCapabilities
	if err := c.Request(ctx, request.GetRTPCapabilities, nil, &caps); err != nil {
		return nil, err
	}
	return &caps, nil
}

// CreateTransport creates a transport and returns its connection parameters.
func (c *Client) CreateTransport(ctx context.Context) (*media.TransportDescriptor, error) {
	var desc media.TransportDescriptor
	if err := c.Request(ctx, request.CreateTransport, nil, &desc); err != nil {
		return nil, err
	}
	return &desc, nil
}

// ConnectTransport starts the handshake of a transport.
func (c *Client) ConnectTransport(ctx context.Context, payload request.ConnectTransportPayload) error {
	return c.Request(ctx, request.ConnectTransport, payload, nil)
}

// Produce sends a stream on a transport and returns the producer ID.
func (c *Client) Produce(ctx context.Context, transportID string, kind media.Kind, params media.RTPParameters) (string, error) {
	var reply response.ProducePayload
	err := c.Request(ctx, request.Produce, request.ProducePayload{
		TransportID:   transportID,
		Kind:          kind,
		RTPParameters: params,
	}, &reply)
	return reply.ID, err
}

// Consume receives a producer on the first transport of this peer.
func (c *Client) Consume(ctx context.Context, producerID string, caps media.RTPCapabilities) (*media.ConsumerDescriptor, error) {
	var desc media.ConsumerDescriptor
	err := c.Request(ctx, request.Consume, request.ConsumePayload{
		ProducerID:      producerID,
		RTPCapabilities: caps,
	}, &desc)
	if err != nil {
		return nil, err
	}
	return &desc, nil
}

// CheckName reports whether name is used in the room.
func (c *Client) CheckName(ctx context.Context, roomID, name string) (bool, error) {
	var reply response.CheckNamePayload
	err := c.Request(ctx, request.CheckName, request.CheckNamePayload{RoomID: roomID, Name: name}, &reply)
	return reply.Taken, err
}

// Join joins the room and returns its members.
func (c *Client) Join(ctx context.Context, roomID, name string) ([]response.Member, error) {
	var reply response.MembersPayload
	if err := c.Request(ctx, request.Join, request.JoinPayload{RoomID: roomID, Name: name}, &reply); err != nil {
		return nil, err
	}
	return reply.Members, nil
}

// Leave leaves the room.
func (c *Client) Leave(ctx context.Context, roomID string) error {
	return c.Request(ctx, request.Leave, request.LeavePayload{RoomID: roomID}, nil)
}

// TogglePresence flips the audio or video flag and returns the new value.
func (c *Client) TogglePresence(ctx context.Context, roomID string, target database.Presence) (bool, error) {
	var reply response.PresencePayload
	err := c.Request(ctx, request.TogglePresence, request.TogglePresencePayload{
		RoomID: roomID,
		Target: string(target),
	}, &reply)
	return reply.Enabled, err
}

// CallOffer relays a call offer to another peer.
func (c *Client) CallOffer(ctx context.Context, targetID string, signal json.RawMessage) error {
	return c.Request(ctx, request.CallOffer, request.CallPayload{TargetID: targetID, Signal: signal}, nil)
}

// CallAccept relays a call answer to another peer.
func (c *Client) CallAccept(ctx context.Context, targetID string, signal json.RawMessage) error {
	return c.Request(ctx, request.CallAccept, request.CallPayload{TargetID: targetID, Signal: signal}, nil)
}

// SendMessage sends a chat message to every member of the room.
func (c *Client) SendMessage(ctx context.Context, roomID string, message, sender json.RawMessage) error {
	return c.Request(ctx, request.Message, request.MessagePayload{
		RoomID:  roomID,
		Message: message,
		Sender:  sender,
	}, nil)
}
