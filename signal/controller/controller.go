// Package controller handles the signaling events of one websocket connection.
package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/lithammer/shortuuid/v4"
	"github.com/rs/zerolog/log"

	"github.com/ashwaniclecvdoc/vc-backend-scale/broker"
	"github.com/ashwaniclecvdoc/vc-backend-scale/broker/subscription"
	"github.com/ashwaniclecvdoc/vc-backend-scale/coordinator"
	"github.com/ashwaniclecvdoc/vc-backend-scale/database"
	"github.com/ashwaniclecvdoc/vc-backend-scale/media"
	"github.com/ashwaniclecvdoc/vc-backend-scale/metric"
	"github.com/ashwaniclecvdoc/vc-backend-scale/pkg/socket"
	"github.com/ashwaniclecvdoc/vc-backend-scale/types/client/request"
	"github.com/ashwaniclecvdoc/vc-backend-scale/types/client/response"
)

// Controller reads requests from a socket, hands them to the coordinator and
// writes replies and notifications back through the broker.
type Controller struct {
	broker      broker.Broker
	coordinator *coordinator.Coordinator
	metric      *metric.Metrics
}

// New creates a new instance of Controller.
func New(b broker.Broker, c *coordinator.Coordinator, m *metric.Metrics) *Controller {
	return &Controller{
		broker:      b,
		coordinator: c,
		metric:      m,
	}
}

// Process serves the socket until reading from it fails or ctx is done. The
// peer is torn down before it returns.
func (c *Controller) Process(ctx context.Context, s socket.Socket) error {
	c.metric.IncrementWebSocketConnections()
	defer c.metric.DecrementWebSocketConnections()

	// 01. Register the connection
	peerID := shortuuid.New()
	topic := broker.Topic(peerID)
	sub := c.broker.Subscribe(topic)
	if err := c.coordinator.Connect(peerID); err != nil {
		c.broker.Unsubscribe(topic, sub)
		return fmt.Errorf("failed to connect peer: %w", err)
	}

	// 02. Requests in flight are cancelled once the socket is lost.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })

	// 03. Start the writer before anything is published
	written := make(chan struct{})
	go func() {
		defer close(written)
		defer cancel()
		c.sendResponse(s, sub, peerID)
	}()

	c.publish(peerID, response.Notification{
		Type:    response.Connected,
		Payload: response.ConnectedPayload{PeerID: peerID},
	})

	// 04. Serve requests until the socket closes, then tear the peer down.
	// Unsubscribing closes the queue; the writer drains it and returns.
	err := c.receiveRequest(ctx, s, peerID)
	stop()
	c.coordinator.Disconnect(peerID)
	c.broker.Unsubscribe(topic, sub)
	<-written

	if err != nil && !socket.IsClosed(err) && ctx.Err() == nil {
		return fmt.Errorf("failed to receive request: %w", err)
	}
	return nil
}

// sendResponse writes every message queued for the peer to the socket. It is
// the only writer of the socket.
func (c *Controller) sendResponse(s socket.Socket, sub *subscription.Subscription, peerID string) {
	for msg := range sub.Receive() {
		if err := s.WriteJSON(msg); err != nil {
			log.Warn().Str("module", "controller").Str("peer_id", peerID).Err(err).Msg("failed to send response")
			_ = s.Close()
			return
		}
	}
}

// receiveRequest handles requests one at a time, in arrival order.
func (c *Controller) receiveRequest(ctx context.Context, s socket.Socket, peerID string) error {
	for {
		var req request.Common
		if err := s.ReadJSON(&req); err != nil {
			return err
		}

		payload, err := c.handleRequest(ctx, req, peerID)
		reply := response.Reply{
			RequestID: req.RequestID,
			Type:      req.Type,
			Payload:   payload,
		}
		if err != nil {
			reply.Payload = nil
			reply.Error = toError(err)
			c.metric.ObserveEvent(req.Type, reply.Error.Code)
			log.Debug().Str("module", "controller").Str("peer_id", peerID).Str("type", req.Type).Err(err).Msg("request failed")
		} else {
			c.metric.ObserveEvent(req.Type, "ok")
		}
		c.reply(s, peerID, reply)
	}
}

// handleRequest parse the request type and call the corresponding handler function
func (c *Controller) handleRequest(ctx context.Context, req request.Common, peerID string) (any, error) {
	switch req.Type {
	case request.GetRTPCapabilities:
		return c.coordinator.GetCapabilities()
	case request.CreateTransport:
		return c.coordinator.CreateTransport(ctx, peerID)
	case request.ConnectTransport:
		return c.handleConnectTransport(ctx, req, peerID)
	case request.Produce:
		return c.handleProduce(ctx, req, peerID)
	case request.Consume:
		return c.handleConsume(ctx, req, peerID)
	case request.CheckName:
		return c.handleCheckName(req)
	case request.Join:
		return c.handleJoin(req, peerID)
	case request.CallOffer:
		return c.handleCallOffer(req, peerID)
	case request.CallAccept:
		return c.handleCallAccept(req, peerID)
	case request.Leave:
		return c.handleLeave(req, peerID)
	case request.TogglePresence:
		return c.handleTogglePresence(req, peerID)
	case request.Message:
		return c.handleMessage(req)
	default:
		return nil, fmt.Errorf("unknown request type %q: %w", req.Type, coordinator.ErrInvalidRequest)
	}
}

// validator is implemented by every request payload.
type validator interface {
	Validate() error
}

func decode(req request.Common, v validator) error {
	if err := req.Decode(v); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w: %w", req.Type, coordinator.ErrInvalidRequest, err)
	}
	if err := v.Validate(); err != nil {
		return fmt.Errorf("%s: %w: %w", req.Type, coordinator.ErrInvalidRequest, err)
	}
	return nil
}

func (c *Controller) handleConnectTransport(ctx context.Context, req request.Common, peerID string) (any, error) {
	var payload request.ConnectTransportPayload
	if err := decode(req, &payload); err != nil {
		return nil, err
	}
	remote := media.RemoteParameters{
		DTLSParameters: payload.DTLSParameters,
		ICEParameters:  payload.ICEParameters,
		ICECandidates:  payload.ICECandidates,
	}
	if err := c.coordinator.ConnectTransport(ctx, peerID, payload.TransportID, remote); err != nil {
		return nil, err
	}
	return response.Empty{}, nil
}

func (c *Controller) handleProduce(ctx context.Context, req request.Common, peerID string) (any, error) {
	var payload request.ProducePayload
	if err := decode(req, &payload); err != nil {
		return nil, err
	}
	id, err := c.coordinator.Produce(ctx, peerID, payload.TransportID, payload.Kind, payload.RTPParameters)
	if err != nil {
		return nil, err
	}
	return response.ProducePayload{ID: id}, nil
}

func (c *Controller) handleConsume(ctx context.Context, req request.Common, peerID string) (any, error) {
	var payload request.ConsumePayload
	if err := decode(req, &payload); err != nil {
		return nil, err
	}
	return c.coordinator.Consume(ctx, peerID, payload.ProducerID, payload.RTPCapabilities)
}

func (c *Controller) handleCheckName(req request.Common) (any, error) {
	var payload request.CheckNamePayload
	if err := decode(req, &payload); err != nil {
		return nil, err
	}
	taken, err := c.coordinator.CheckName(payload.RoomID, payload.Name)
	if err != nil {
		return nil, err
	}
	return response.CheckNamePayload{Taken: taken}, nil
}

func (c *Controller) handleJoin(req request.Common, peerID string) (any, error) {
	var payload request.JoinPayload
	if err := decode(req, &payload); err != nil {
		return nil, err
	}
	members, err := c.coordinator.Join(peerID, payload.RoomID, payload.Name)
	if err != nil {
		return nil, err
	}
	return response.MembersPayload{RoomID: payload.RoomID, Members: members}, nil
}

func (c *Controller) handleCallOffer(req request.Common, peerID string) (any, error) {
	var payload request.CallPayload
	if err := decode(req, &payload); err != nil {
		return nil, err
	}
	if err := c.coordinator.RelayCall(peerID, payload.TargetID, payload.Signal); err != nil {
		return nil, err
	}
	return response.Empty{}, nil
}

func (c *Controller) handleCallAccept(req request.Common, peerID string) (any, error) {
	var payload request.CallPayload
	if err := decode(req, &payload); err != nil {
		return nil, err
	}
	if err := c.coordinator.RelayAccept(peerID, payload.TargetID, payload.Signal); err != nil {
		return nil, err
	}
	return response.Empty{}, nil
}

func (c *Controller) handleLeave(req request.Common, peerID string) (any, error) {
	var payload request.LeavePayload
	if err := decode(req, &payload); err != nil {
		return nil, err
	}
	if err := c.coordinator.Leave(peerID, payload.RoomID); err != nil {
		return nil, err
	}
	return response.Empty{}, nil
}

func (c *Controller) handleTogglePresence(req request.Common, peerID string) (any, error) {
	var payload request.TogglePresencePayload
	if err := decode(req, &payload); err != nil {
		return nil, err
	}
	target := database.Presence(payload.Target)
	enabled, err := c.coordinator.Toggle(peerID, payload.RoomID, target)
	if err != nil {
		return nil, err
	}
	return response.PresencePayload{
		RoomID:  payload.RoomID,
		PeerID:  peerID,
		Target:  payload.Target,
		Enabled: enabled,
	}, nil
}

func (c *Controller) handleMessage(req request.Common) (any, error) {
	var payload request.MessagePayload
	if err := decode(req, &payload); err != nil {
		return nil, err
	}
	if err := c.coordinator.BroadcastMessage(payload.RoomID, payload.Message, payload.Sender); err != nil {
		return nil, err
	}
	return response.Empty{}, nil
}

// reply queues the reply for the writer. A reply that does not fit in the
// queue closes the socket.
func (c *Controller) reply(s socket.Socket, peerID string, reply response.Reply) {
	err := c.broker.Publish(broker.Topic(peerID), reply)
	if err == nil {
		return
	}
	log.Warn().Str("module", "controller").Str("peer_id", peerID).Int("request_id", reply.RequestID).
		Err(err).Msg("failed to queue reply")
	if errors.Is(err, subscription.ErrQueueFull) {
		_ = s.Close()
	}
}

func (c *Controller) publish(peerID string, msg any) {
	if err := c.broker.Publish(broker.Topic(peerID), msg); err != nil {
		log.Warn().Str("module", "controller").Str("peer_id", peerID).Err(err).Msg("failed to queue message")
	}
}

// toError maps a failure to its wire error code.
func toError(err error) *response.Error {
	code := response.CodeInternal
	switch {
	case errors.Is(err, coordinator.ErrEngineNotReady):
		code = response.CodeEngineNotReady
	case errors.Is(err, coordinator.ErrEngineCallFailed):
		code = response.CodeEngineCallFailed
	case errors.Is(err, coordinator.ErrResourceNotFound):
		code = response.CodeResourceNotFound
	case errors.Is(err, coordinator.ErrIncompatibleCapabilities):
		code = response.CodeIncompatibleCapabilities
	case errors.Is(err, coordinator.ErrDuplicateName):
		code = response.CodeDuplicateName
	case errors.Is(err, coordinator.ErrInvalidRequest):
		code = response.CodeInvalidRequest
	}
	return &response.Error{Code: code, Message: err.Error()}
}
