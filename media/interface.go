// Package media contains managing streams and connections using WebRTC.
package media

import (
	"context"
	"errors"
)

// Below is the Error message for the media engine.
var (
	ErrNotReady                 = errors.New("media engine not ready")
	ErrTransportNotFound        = errors.New("transport not found")
	ErrProducerNotFound         = errors.New("producer not found")
	ErrConsumerNotFound         = errors.New("consumer not found")
	ErrTransportConnected       = errors.New("transport already connected")
	ErrUnsupportedCodec         = errors.New("unsupported codec")
	ErrInvalidRTPParameters     = errors.New("invalid rtp parameters")
	ErrInvalidRemoteParameters  = errors.New("invalid remote parameters")
	ErrIncompatibleCapabilities = errors.New("incompatible rtp capabilities")
)

// ClosedTransport lists what the engine closed together with a transport.
type ClosedTransport struct {
	TransportID string
	ProducerIDs []string
	ConsumerIDs []string
}

// Engine is the gateway to the media routing engine. Every object it creates
// is identified by an ID the engine assigns. Closing an unknown or already
// closed ID is a no-op.
//
//go:generate mockgen -destination=mock_engine.go -package=media . Engine
type Engine interface {
	Capabilities() (*RTPCapabilities, error)
	CreateTransport(ctx context.Context, onClose func(ClosedTransport)) (*TransportDescriptor, error)
	ConnectTransport(ctx context.Context, transportID string, remote RemoteParameters) error
	Produce(ctx context.Context, transportID string, kind Kind, params RTPParameters) (string, error)
	CanConsume(producerID string, caps RTPCapabilities) bool
	Consume(ctx context.Context, transportID, producerID string, caps RTPCapabilities) (*ConsumerDescriptor, error)
	CloseTransport(transportID string) error
	CloseProducer(producerID string) error
	CloseConsumer(consumerID string) error
}
