package media

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"go.uber.org/atomic"
)

type transport struct {
	id       string
	gatherer *webrtc.ICEGatherer
	ice      *webrtc.ICETransport
	dtls     *webrtc.DTLSTransport
	onClose  func(ClosedTransport)

	connecting atomic.Bool
	closed     atomic.Bool
	connected  chan struct{}
	done       chan struct{}
}

func newTransport(
	ctx context.Context,
	api *webrtc.API,
	id string,
	iceServers []webrtc.ICEServer,
	onClose func(ClosedTransport),
) (*transport, error) {
	gatherer, err := api.NewICEGatherer(webrtc.ICEGatherOptions{ICEServers: iceServers})
	if err != nil {
		return nil, fmt.Errorf("failed to create ice gatherer: %w", err)
	}
	ice := api.NewICETransport(gatherer)
	dtls, err := api.NewDTLSTransport(ice, nil)
	if err != nil {
		_ = gatherer.Close()
		return nil, fmt.Errorf("failed to create dtls transport: %w", err)
	}

	t := &transport{
		id:        id,
		gatherer:  gatherer,
		ice:       ice,
		dtls:      dtls,
		onClose:   onClose,
		connected: make(chan struct{}),
		done:      make(chan struct{}),
	}

	gathered := make(chan struct{})
	var once sync.Once
	gatherer.OnLocalCandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			once.Do(func() { close(gathered) })
		}
	})
	if err := gatherer.Gather(); err != nil {
		t.close()
		return nil, fmt.Errorf("failed to gather candidates: %w", err)
	}

	select {
	case <-gathered:
		return t, nil
	case <-ctx.Done():
		t.close()
		return nil, ctx.Err()
	}
}

func (t *transport) describe() (*TransportDescriptor, error) {
	iceParams, err := t.gatherer.GetLocalParameters()
	if err != nil {
		return nil, fmt.Errorf("failed to get ice parameters: %w", err)
	}
	candidates, err := t.gatherer.GetLocalCandidates()
	if err != nil {
		return nil, fmt.Errorf("failed to get ice candidates: %w", err)
	}
	dtlsParams, err := t.dtls.GetLocalParameters()
	if err != nil {
		return nil, fmt.Errorf("failed to get dtls parameters: %w", err)
	}
	return &TransportDescriptor{
		ID:             t.id,
		ICEParameters:  toICEParameters(iceParams),
		ICECandidates:  toICECandidates(candidates),
		DTLSParameters: toDTLSParameters(dtlsParams),
	}, nil
}

// connect blocks until both the ICE and the DTLS handshakes finish.
func (t *transport) connect(params ICEParameters, candidates []webrtc.ICECandidate, dtls DTLSParameters) error {
	if err := t.ice.SetRemoteCandidates(candidates); err != nil {
		return fmt.Errorf("failed to set remote candidates: %w", err)
	}
	role := webrtc.ICERoleControlled
	if err := t.ice.Start(t.gatherer, params.toPion(), &role); err != nil {
		return fmt.Errorf("failed to start ice: %w", err)
	}
	if err := t.dtls.Start(dtls.toPion()); err != nil {
		return fmt.Errorf("failed to start dtls: %w", err)
	}
	close(t.connected)
	return nil
}

// ready waits for the handshake. It returns false when the transport closes first.
func (t *transport) ready(stop <-chan struct{}) bool {
	select {
	case <-t.connected:
		return true
	case <-t.done:
		return false
	case <-stop:
		return false
	}
}

// close stops the transport once.
func (t *transport) close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(t.done)
	return errors.Join(t.dtls.Stop(), t.ice.Stop(), t.gatherer.Close())
}
