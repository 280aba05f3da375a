// Package coordinator keeps track of what every connected peer owns in the
// media engine and in the room directory, and tears it down when the peer leaves.
package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ashwaniclecvdoc/vc-backend-scale/broker"
	"github.com/ashwaniclecvdoc/vc-backend-scale/database"
	"github.com/ashwaniclecvdoc/vc-backend-scale/media"
	"github.com/ashwaniclecvdoc/vc-backend-scale/types/client/response"
)

// Coordinator handles the signaling events of every peer. It never holds a
// database transaction while it waits for the media engine: engine objects are
// created first and registered afterwards.
type Coordinator struct {
	config    Config
	database  database.Database
	engine    media.Engine
	publisher broker.Publisher
}

// New creates a new instance of Coordinator.
func New(c Config, db database.Database, engine media.Engine, publisher broker.Publisher) *Coordinator {
	return &Coordinator{
		config:    c,
		database:  db,
		engine:    engine,
		publisher: publisher,
	}
}

// Connect creates the session of a new connection.
func (c *Coordinator) Connect(peerID string) error {
	if _, err := c.database.CreatePeerInfo(peerID); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	log.Info().Str("module", "coordinator").Str("peer_id", peerID).Msg("peer connected")
	return nil
}

// GetCapabilities returns the router capabilities. It returns nil and
// ErrEngineNotReady while the router is still initializing.
func (c *Coordinator) GetCapabilities() (*media.RTPCapabilities, error) {
	caps, err := c.engine.Capabilities()
	if err != nil {
		return nil, engineError("get capabilities", err)
	}
	return caps, nil
}

// CreateTransport creates a transport for the peer and registers it.
func (c *Coordinator) CreateTransport(ctx context.Context, peerID string) (*media.TransportDescriptor, error) {
	if _, err := c.database.FindPeerInfoByID(peerID); err != nil {
		return nil, databaseError("create transport", err)
	}

	descriptor, err := c.engine.CreateTransport(ctx, c.handleTransportClosed)
	if err != nil {
		log.Error().Str("module", "coordinator").Str("peer_id", peerID).Err(err).Msg("failed to create transport")
		return nil, engineError("create transport", err)
	}

	if _, err := c.database.CreateResourceInfo(peerID, descriptor.ID, database.Transport); err != nil {
		c.discard(database.Transport, descriptor.ID)
		return nil, databaseError("create transport", err)
	}
	log.Info().Str("module", "coordinator").Str("peer_id", peerID).Str("transport_id", descriptor.ID).Msg("transport created")
	return descriptor, nil
}

// ConnectTransport hands the peer's handshake parameters to the engine.
func (c *Coordinator) ConnectTransport(
	ctx context.Context,
	peerID, transportID string,
	remote media.RemoteParameters,
) error {
	if _, err := c.owned(peerID, transportID, database.Transport); err != nil {
		return err
	}
	if err := c.engine.ConnectTransport(ctx, transportID, remote); err != nil {
		return engineError("connect transport", err)
	}
	return nil
}

// Produce creates a producer on one of the peer's transports and announces it
// to every other connected peer once it is registered.
func (c *Coordinator) Produce(
	ctx context.Context,
	peerID, transportID string,
	kind media.Kind,
	params media.RTPParameters,
) (string, error) {
	if err := kind.Validate(); err != nil {
		return "", fmt.Errorf("produce %q: %w: %w", kind, ErrInvalidRequest, err)
	}
	if _, err := c.owned(peerID, transportID, database.Transport); err != nil {
		return "", err
	}

	producerID, err := c.engine.Produce(ctx, transportID, kind, params)
	if err != nil {
		log.Error().Str("module", "coordinator").Str("peer_id", peerID).Err(err).Msg("failed to produce")
		return "", engineError("produce", err)
	}
	if _, err := c.database.CreateResourceInfo(peerID, producerID, database.Producer); err != nil {
		c.discard(database.Producer, producerID)
		return "", databaseError("produce", err)
	}
	log.Info().Str("module", "coordinator").Str("peer_id", peerID).Str("producer_id", producerID).
		Str("kind", string(kind)).Msg("producer created")

	c.announceProducer(peerID, producerID)
	return producerID, nil
}

func (c *Coordinator) announceProducer(ownerID, producerID string) {
	peers, err := c.database.FindAllPeerInfos()
	if err != nil {
		log.Error().Str("module", "coordinator").Err(err).Msg("failed to list peers")
		return
	}
	for _, peer := range peers {
		if peer.ID == ownerID {
			continue
		}
		c.notify(peer.ID, response.NewProducer, response.NewProducerPayload{ProducerID: producerID})
	}
}

// Consume creates a consumer of the producer on the first transport of the peer.
func (c *Coordinator) Consume(
	ctx context.Context,
	peerID, producerID string,
	caps media.RTPCapabilities,
) (*media.ConsumerDescriptor, error) {
	if _, err := c.registered(producerID, database.Producer); err != nil {
		return nil, err
	}
	if !c.engine.CanConsume(producerID, caps) {
		// The producer may have closed since it was looked up.
		if _, err := c.registered(producerID, database.Producer); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("consume %s: %w", producerID, ErrIncompatibleCapabilities)
	}

	peer, err := c.database.FindPeerInfoByID(peerID)
	if err != nil {
		return nil, databaseError("consume", err)
	}
	transportID, ok := peer.FirstTransport()
	if !ok {
		return nil, fmt.Errorf("consume: peer %s has no transport: %w", peerID, ErrResourceNotFound)
	}

	descriptor, err := c.engine.Consume(ctx, transportID, producerID, caps)
	if err != nil {
		log.Error().Str("module", "coordinator").Str("peer_id", peerID).Err(err).Msg("failed to consume")
		return nil, engineError("consume", err)
	}
	if _, err := c.database.CreateResourceInfo(peerID, descriptor.ID, database.Consumer); err != nil {
		c.discard(database.Consumer, descriptor.ID)
		return nil, databaseError("consume", err)
	}
	log.Info().Str("module", "coordinator").Str("peer_id", peerID).Str("consumer_id", descriptor.ID).
		Str("producer_id", producerID).Msg("consumer created")
	return descriptor, nil
}

// handleTransportClosed drops a closed transport from the registry together
// with the producers and consumers the engine closed along with it.
func (c *Coordinator) handleTransportClosed(event media.ClosedTransport) {
	ids := make([]string, 0, 1+len(event.ProducerIDs)+len(event.ConsumerIDs))
	ids = append(ids, event.TransportID)
	ids = append(ids, event.ProducerIDs...)
	ids = append(ids, event.ConsumerIDs...)
	removed, err := c.database.DeleteResourceInfosByIDs(ids...)
	if err != nil {
		log.Warn().Str("module", "coordinator").Str("transport_id", event.TransportID).Err(err).Msg("failed to remove closed transport")
		return
	}
	for _, resource := range removed {
		log.Info().Str("module", "coordinator").Str("peer_id", resource.PeerID).Str("kind", string(resource.Kind)).
			Str("id", resource.ID).Msg("closed with transport")
	}
}

// registered finds a live resource of the given kind.
func (c *Coordinator) registered(resourceID string, kind database.ResourceKind) (*database.ResourceInfo, error) {
	resource, err := c.database.FindResourceInfoByID(resourceID)
	if err != nil {
		return nil, databaseError(string(kind), err)
	}
	if !resource.IsKind(kind) {
		return nil, fmt.Errorf("%s %s: %w", kind, resourceID, ErrResourceNotFound)
	}
	return resource, nil
}

// owned finds a live resource of the given kind that belongs to the peer.
func (c *Coordinator) owned(peerID, resourceID string, kind database.ResourceKind) (*database.ResourceInfo, error) {
	resource, err := c.registered(resourceID, kind)
	if err != nil {
		return nil, err
	}
	if resource.PeerID != peerID {
		return nil, fmt.Errorf("%s %s: %w", kind, resourceID, ErrResourceNotFound)
	}
	return resource, nil
}

// discard closes an engine object that could not be registered.
func (c *Coordinator) discard(kind database.ResourceKind, id string) {
	if err := c.close(kind, id); err != nil {
		log.Warn().Str("module", "coordinator").Str("kind", string(kind)).Str("id", id).Err(err).Msg("failed to discard")
	}
}

func (c *Coordinator) close(kind database.ResourceKind, id string) error {
	switch kind {
	case database.Transport:
		return c.engine.CloseTransport(id)
	case database.Producer:
		return c.engine.CloseProducer(id)
	case database.Consumer:
		return c.engine.CloseConsumer(id)
	}
	return nil
}

// notify publishes a notification to one peer. Delivery is best-effort.
func (c *Coordinator) notify(peerID, typ string, payload any) {
	err := c.publisher.Publish(broker.Topic(peerID), response.Notification{Type: typ, Payload: payload})
	if err != nil && !errors.Is(err, broker.ErrTopicNotFound) {
		log.Warn().Str("module", "coordinator").Str("peer_id", peerID).Str("type", typ).Err(err).Msg("failed to notify")
	}
}
