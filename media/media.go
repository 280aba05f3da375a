package media

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
)

// Media is a router: it owns the codec set, and every transport, producer and
// consumer created on it.
type Media struct {
	config       Config
	api          *webrtc.API
	capabilities RTPCapabilities
	ready        atomic.Bool
	tcpListener  net.Listener

	mu         sync.RWMutex
	transports map[string]*transport
	producers  map[string]*producer
	consumers  map[string]*consumer
}

// New creates a new Media instance. It is not ready until Init succeeds.
func New(config Config) *Media {
	if len(config.Codecs) == 0 {
		config.Codecs = DefaultCodecs()
	}
	return &Media{
		config:     config,
		transports: make(map[string]*transport),
		producers:  make(map[string]*producer),
		consumers:  make(map[string]*consumer),
	}
}

// Init builds the pion API: codecs, interceptors and network settings.
func (m *Media) Init() error {
	me := &webrtc.MediaEngine{}
	for _, codec := range m.config.Codecs {
		if err := me.RegisterCodec(webrtc.RTPCodecParameters{
			RTPCodecCapability: webrtc.RTPCodecCapability{
				MimeType:     codec.MimeType,
				ClockRate:    codec.ClockRate,
				Channels:     codec.Channels,
				SDPFmtpLine:  fmtpLine(codec.Parameters),
				RTCPFeedback: toPionFeedback(codec.RTCPFeedback),
			},
			PayloadType: webrtc.PayloadType(codec.PayloadType),
		}, codec.Kind.codecType()); err != nil {
			return fmt.Errorf("failed to register codec %s: %w", codec.MimeType, err)
		}
	}

	ir := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(me, ir); err != nil {
		return fmt.Errorf("failed to register interceptors: %w", err)
	}

	se, err := m.settingEngine()
	if err != nil {
		return err
	}

	m.api = webrtc.NewAPI(
		webrtc.WithMediaEngine(me),
		webrtc.WithInterceptorRegistry(ir),
		webrtc.WithSettingEngine(se),
	)
	m.capabilities = capabilitiesOf(m.config.Codecs)
	m.ready.Store(true)
	log.Info().Str("module", "media").Int("codecs", len(m.config.Codecs)).Msg("router created")
	return nil
}

func (m *Media) settingEngine() (webrtc.SettingEngine, error) {
	se := webrtc.SettingEngine{}
	if err := m.config.SetPortRange(&se); err != nil {
		return se, err
	}
	if m.config.AnnouncedIP != "" {
		se.SetNAT1To1IPs([]string{m.config.AnnouncedIP}, webrtc.ICECandidateTypeHost)
	}
	if ip := net.ParseIP(m.config.IP); ip != nil && !ip.IsUnspecified() {
		se.SetIPFilter(func(candidate net.IP) bool {
			return candidate.Equal(ip)
		})
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(m.config.IP, fmt.Sprint(m.config.TCPPort)))
	if err != nil {
		return se, fmt.Errorf("failed to listen ice-tcp: %w", err)
	}
	m.tcpListener = listener
	se.SetICETCPMux(webrtc.NewICETCPMux(nil, listener, 8))
	se.SetNetworkTypes([]webrtc.NetworkType{
		webrtc.NetworkTypeUDP4,
		webrtc.NetworkTypeUDP6,
		webrtc.NetworkTypeTCP4,
		webrtc.NetworkTypeTCP6,
	})
	log.Info().Str("module", "media").Str("addr", listener.Addr().String()).Msg("ice-tcp listening")
	return se, nil
}

// Start initializes the router and keeps it until the context is done, then
// closes every remaining object.
func (m *Media) Start(ctx context.Context) error {
	if err := m.Init(); err != nil {
		return err
	}
	<-ctx.Done()
	m.Close()
	return nil
}

// Close closes every transport, and with them every producer and consumer.
func (m *Media) Close() {
	m.ready.Store(false)
	m.mu.RLock()
	ids := make([]string, 0, len(m.transports))
	for id := range m.transports {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		if err := m.CloseTransport(id); err != nil {
			log.Warn().Str("module", "media").Str("transport_id", id).Err(err).Msg("failed to close transport")
		}
	}
	if m.tcpListener != nil {
		_ = m.tcpListener.Close()
	}
}

// Capabilities returns the codecs of the router.
func (m *Media) Capabilities() (*RTPCapabilities, error) {
	if !m.ready.Load() {
		return nil, ErrNotReady
	}
	caps := RTPCapabilities{Codecs: make([]RTPCodecCapability, len(m.capabilities.Codecs))}
	copy(caps.Codecs, m.capabilities.Codecs)
	return &caps, nil
}

// CreateTransport gathers local candidates and prepares a DTLS transport.
// onClose is called once when the transport closes, whatever the cause, with
// the producers and consumers that were closed along with it.
func (m *Media) CreateTransport(ctx context.Context, onClose func(ClosedTransport)) (*TransportDescriptor, error) {
	if !m.ready.Load() {
		return nil, ErrNotReady
	}

	t, err := newTransport(ctx, m.api, uuid.NewString(), m.iceServers(), onClose)
	if err != nil {
		return nil, err
	}
	t.dtls.OnStateChange(func(state webrtc.DTLSTransportState) {
		log.Debug().Str("module", "media").Str("transport_id", t.id).Str("state", state.String()).Msg("dtls state changed")
		if state == webrtc.DTLSTransportStateClosed || state == webrtc.DTLSTransportStateFailed {
			// pion calls this while holding the transport lock.
			go func() {
				if err := m.closeTransport(t.id); err != nil {
					log.Warn().Str("module", "media").Str("transport_id", t.id).Err(err).Msg("failed to close transport")
				}
			}()
		}
	})

	descriptor, err := t.describe()
	if err != nil {
		_ = t.close()
		return nil, err
	}

	m.mu.Lock()
	m.transports[t.id] = t
	m.mu.Unlock()
	return descriptor, nil
}

// ConnectTransport validates the remote parameters and finishes the ICE and
// DTLS handshake in the background. A failed handshake closes the transport.
func (m *Media) ConnectTransport(_ context.Context, transportID string, remote RemoteParameters) error {
	if !m.ready.Load() {
		return ErrNotReady
	}
	t, err := m.transport(transportID)
	if err != nil {
		return err
	}
	if remote.ICEParameters == nil || len(remote.DTLSParameters.Fingerprints) == 0 {
		return fmt.Errorf("%s: %w", transportID, ErrInvalidRemoteParameters)
	}
	candidates := make([]webrtc.ICECandidate, 0, len(remote.ICECandidates))
	for _, c := range remote.ICECandidates {
		candidate, err := c.toPion()
		if err != nil {
			return fmt.Errorf("candidate %s: %w", c.Foundation, ErrInvalidRemoteParameters)
		}
		candidates = append(candidates, candidate)
	}
	if !t.connecting.CompareAndSwap(false, true) {
		return fmt.Errorf("%s: %w", transportID, ErrTransportConnected)
	}

	go func() {
		if err := t.connect(*remote.ICEParameters, candidates, remote.DTLSParameters); err != nil {
			log.Warn().Str("module", "media").Str("transport_id", transportID).Err(err).Msg("handshake failed")
			if err := m.closeTransport(transportID); err != nil {
				log.Warn().Str("module", "media").Str("transport_id", transportID).Err(err).Msg("failed to close transport")
			}
			return
		}
		log.Info().Str("module", "media").Str("transport_id", transportID).Msg("transport connected")
	}()
	return nil
}

// Produce creates a receiver for an inbound stream on the transport.
func (m *Media) Produce(_ context.Context, transportID string, kind Kind, params RTPParameters) (string, error) {
	if !m.ready.Load() {
		return "", ErrNotReady
	}
	if err := kind.Validate(); err != nil {
		return "", fmt.Errorf("%s: %w", kind, err)
	}
	t, err := m.transport(transportID)
	if err != nil {
		return "", err
	}
	codec, ok := params.MediaCodec()
	if !ok {
		return "", fmt.Errorf("no media codec: %w", ErrInvalidRTPParameters)
	}
	if _, ok := m.capabilities.FindCodec(kind, codec); !ok {
		return "", fmt.Errorf("%s: %w", codec.MimeType, ErrUnsupportedCodec)
	}
	if len(params.Encodings) == 0 || params.Encodings[0].SSRC == 0 {
		return "", fmt.Errorf("missing ssrc: %w", ErrInvalidRTPParameters)
	}

	receiver, err := m.api.NewRTPReceiver(kind.codecType(), t.dtls)
	if err != nil {
		return "", fmt.Errorf("failed to create receiver: %w", err)
	}
	p := newProducer(uuid.NewString(), t.id, kind, codec, params, receiver, t.dtls)

	m.mu.Lock()
	if _, ok := m.transports[t.id]; !ok {
		m.mu.Unlock()
		_ = p.close()
		return "", fmt.Errorf("%s: %w", transportID, ErrTransportNotFound)
	}
	m.producers[p.id] = p
	m.mu.Unlock()

	go p.run(t)
	return p.id, nil
}

// CanConsume reports whether a peer with the given capabilities can receive
// the producer.
func (m *Media) CanConsume(producerID string, caps RTPCapabilities) bool {
	p, err := m.producer(producerID)
	if err != nil {
		return false
	}
	_, ok := caps.FindCodec(p.kind, p.codec)
	return ok
}

// Consume creates a sender on the transport that forwards the producer.
func (m *Media) Consume(
	_ context.Context,
	transportID, producerID string,
	caps RTPCapabilities,
) (*ConsumerDescriptor, error) {
	if !m.ready.Load() {
		return nil, ErrNotReady
	}
	t, err := m.transport(transportID)
	if err != nil {
		return nil, err
	}
	p, err := m.producer(producerID)
	if err != nil {
		return nil, err
	}
	if _, ok := caps.FindCodec(p.kind, p.codec); !ok {
		return nil, fmt.Errorf("%s: %w", producerID, ErrIncompatibleCapabilities)
	}
	routerCodec, ok := m.capabilities.FindCodec(p.kind, p.codec)
	if !ok {
		return nil, fmt.Errorf("%s: %w", p.codec.MimeType, ErrUnsupportedCodec)
	}

	id := uuid.NewString()
	track, err := webrtc.NewTrackLocalStaticRTP(webrtc.RTPCodecCapability{
		MimeType:    p.codec.MimeType,
		ClockRate:   p.codec.ClockRate,
		Channels:    p.codec.Channels,
		SDPFmtpLine: fmtpLine(p.codec.Parameters),
	}, string(p.kind), p.id)
	if err != nil {
		return nil, fmt.Errorf("failed to create track: %w", err)
	}
	sender, err := m.api.NewRTPSender(track, t.dtls)
	if err != nil {
		return nil, fmt.Errorf("failed to create sender: %w", err)
	}
	c := newConsumer(id, p.id, t.id, p.kind, track, sender)

	m.mu.Lock()
	_, transportOpen := m.transports[t.id]
	_, producerOpen := m.producers[p.id]
	if !transportOpen || !producerOpen {
		m.mu.Unlock()
		_ = c.close()
		return nil, fmt.Errorf("%s: %w", producerID, ErrProducerNotFound)
	}
	m.consumers[c.id] = c
	p.addConsumer(c)
	m.mu.Unlock()

	go c.run(t, p)
	return &ConsumerDescriptor{
		ID:            c.id,
		ProducerID:    p.id,
		Kind:          p.kind,
		RTPParameters: c.parameters(p, routerCodec),
	}, nil
}

// CloseTransport closes the transport and every producer and consumer on it.
func (m *Media) CloseTransport(transportID string) error {
	return m.closeTransport(transportID)
}

// closeTransport removes the transport with its producers and consumers and
// then reports them to the owner. Only the caller that removes the transport
// from the map reports it.
func (m *Media) closeTransport(transportID string) error {
	m.mu.Lock()
	t, ok := m.transports[transportID]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.transports, transportID)
	var producers []*producer
	for id, p := range m.producers {
		if p.transportID == transportID {
			producers = append(producers, p)
			delete(m.producers, id)
		}
	}
	var consumers []*consumer
	for id, c := range m.consumers {
		if c.transportID == transportID {
			consumers = append(consumers, c)
			delete(m.consumers, id)
		}
	}
	m.mu.Unlock()

	event := ClosedTransport{TransportID: transportID}
	var errs []error
	for _, c := range consumers {
		m.detach(c)
		errs = append(errs, c.close())
		event.ConsumerIDs = append(event.ConsumerIDs, c.id)
	}
	for _, p := range producers {
		errs = append(errs, p.close())
		event.ProducerIDs = append(event.ProducerIDs, p.id)
	}
	errs = append(errs, t.close())
	if t.onClose != nil {
		t.onClose(event)
	}
	return errors.Join(errs...)
}

// CloseProducer stops the receiver of the producer.
func (m *Media) CloseProducer(producerID string) error {
	m.mu.Lock()
	p, ok := m.producers[producerID]
	delete(m.producers, producerID)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return p.close()
}

// CloseConsumer stops the sender of the consumer.
func (m *Media) CloseConsumer(consumerID string) error {
	m.mu.Lock()
	c, ok := m.consumers[consumerID]
	delete(m.consumers, consumerID)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	m.detach(c)
	return c.close()
}

func (m *Media) detach(c *consumer) {
	if p, err := m.producer(c.producerID); err == nil {
		p.removeConsumer(c.id)
	}
}

func (m *Media) transport(id string) (*transport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transports[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrTransportNotFound)
	}
	return t, nil
}

func (m *Media) producer(id string) (*producer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.producers[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrProducerNotFound)
	}
	return p, nil
}

func (m *Media) iceServers() []webrtc.ICEServer {
	if len(m.config.ICEServers) == 0 {
		return nil
	}
	return []webrtc.ICEServer{{URLs: m.config.ICEServers}}
}

func capabilitiesOf(codecs []Codec) RTPCapabilities {
	caps := RTPCapabilities{Codecs: make([]RTPCodecCapability, 0, len(codecs))}
	for _, codec := range codecs {
		caps.Codecs = append(caps.Codecs, RTPCodecCapability{
			Kind:                 codec.Kind,
			MimeType:             codec.MimeType,
			PreferredPayloadType: codec.PayloadType,
			ClockRate:            codec.ClockRate,
			Channels:             codec.Channels,
			Parameters:           codec.Parameters,
			RTCPFeedback:         codec.RTCPFeedback,
		})
	}
	return caps
}

func toPionFeedback(feedback []RTCPFeedback) []webrtc.RTCPFeedback {
	out := make([]webrtc.RTCPFeedback, 0, len(feedback))
	for _, f := range feedback {
		out = append(out, webrtc.RTCPFeedback{Type: f.Type, Parameter: f.Parameter})
	}
	return out
}
