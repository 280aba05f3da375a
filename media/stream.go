package media

import (
	"errors"
	"io"
	"sync"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
)

const rtcpBufferSize = 1500

// producer receives one inbound stream and fans it out to its consumers.
type producer struct {
	id          string
	transportID string
	kind        Kind
	codec       RTPCodecParameters
	params      RTPParameters
	receiver    *webrtc.RTPReceiver
	dtls        *webrtc.DTLSTransport

	mu        sync.RWMutex
	consumers map[string]*consumer

	closed atomic.Bool
	done   chan struct{}
}

func newProducer(
	id, transportID string,
	kind Kind,
	codec RTPCodecParameters,
	params RTPParameters,
	receiver *webrtc.RTPReceiver,
	dtls *webrtc.DTLSTransport,
) *producer {
	return &producer{
		id:          id,
		transportID: transportID,
		kind:        kind,
		codec:       codec,
		params:      params,
		receiver:    receiver,
		dtls:        dtls,
		consumers:   make(map[string]*consumer),
		done:        make(chan struct{}),
	}
}

func (p *producer) ssrc() uint32 {
	if len(p.params.Encodings) == 0 {
		return 0
	}
	return p.params.Encodings[0].SSRC
}

func (p *producer) run(t *transport) {
	if !t.ready(p.done) {
		return
	}
	err := p.receiver.Receive(webrtc.RTPReceiveParameters{
		Encodings: []webrtc.RTPDecodingParameters{{
			RTPCodingParameters: webrtc.RTPCodingParameters{
				SSRC:        webrtc.SSRC(p.ssrc()),
				PayloadType: webrtc.PayloadType(p.codec.PayloadType),
			},
		}},
	})
	if err != nil {
		log.Warn().Str("module", "media").Str("producer_id", p.id).Err(err).Msg("failed to receive")
		return
	}

	go p.readRTCP()
	p.forward(p.receiver.Track())
}

func (p *producer) readRTCP() {
	for {
		if _, _, err := p.receiver.ReadRTCP(); err != nil {
			return
		}
	}
}

// forward copies every RTP packet of the track to a snapshot of the consumers.
func (p *producer) forward(track *webrtc.TrackRemote) {
	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Debug().Str("module", "media").Str("producer_id", p.id).Err(err).Msg("read loop stopped")
			}
			return
		}
		for _, c := range p.snapshot() {
			c.write(pkt)
		}
	}
}

func (p *producer) snapshot() []*consumer {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*consumer, 0, len(p.consumers))
	for _, c := range p.consumers {
		out = append(out, c)
	}
	return out
}

func (p *producer) addConsumer(c *consumer) {
	p.mu.Lock()
	p.consumers[c.id] = c
	p.mu.Unlock()
}

func (p *producer) removeConsumer(id string) {
	p.mu.Lock()
	delete(p.consumers, id)
	p.mu.Unlock()
}

// requestKeyFrame asks the sending peer for a full picture so a new
// consumer can start decoding.
func (p *producer) requestKeyFrame() {
	if p.kind != KindVideo || p.ssrc() == 0 {
		return
	}
	pli := &rtcp.PictureLossIndication{MediaSSRC: p.ssrc()}
	if _, err := p.dtls.WriteRTCP([]rtcp.Packet{pli}); err != nil {
		log.Debug().Str("module", "media").Str("producer_id", p.id).Err(err).Msg("failed to request key frame")
	}
}

func (p *producer) close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(p.done)
	return p.receiver.Stop()
}

// consumer sends the stream of one producer to a peer.
type consumer struct {
	id          string
	producerID  string
	transportID string
	kind        Kind
	track       *webrtc.TrackLocalStaticRTP
	sender      *webrtc.RTPSender

	closed atomic.Bool
	done   chan struct{}
}

func newConsumer(
	id, producerID, transportID string,
	kind Kind,
	track *webrtc.TrackLocalStaticRTP,
	sender *webrtc.RTPSender,
) *consumer {
	return &consumer{
		id:          id,
		producerID:  producerID,
		transportID: transportID,
		kind:        kind,
		track:       track,
		sender:      sender,
		done:        make(chan struct{}),
	}
}

func (c *consumer) run(t *transport, p *producer) {
	if !t.ready(c.done) {
		return
	}
	if err := c.sender.Send(c.sender.GetParameters()); err != nil {
		log.Warn().Str("module", "media").Str("consumer_id", c.id).Err(err).Msg("failed to send")
		return
	}
	p.requestKeyFrame()

	buf := make([]byte, rtcpBufferSize)
	for {
		if _, _, err := c.sender.Read(buf); err != nil {
			return
		}
	}
}

func (c *consumer) write(pkt *rtp.Packet) {
	if c.closed.Load() {
		return
	}
	if err := c.track.WriteRTP(pkt); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		log.Debug().Str("module", "media").Str("consumer_id", c.id).Err(err).Msg("failed to write rtp")
	}
}

// parameters describes the stream the peer will receive, using the router's
// payload type and the sender's SSRC.
func (c *consumer) parameters(p *producer, codec RTPCodecCapability) RTPParameters {
	var ssrc uint32
	if encodings := c.sender.GetParameters().Encodings; len(encodings) > 0 {
		ssrc = uint32(encodings[0].SSRC)
	}
	return RTPParameters{
		MID: c.id,
		Codecs: []RTPCodecParameters{{
			MimeType:     codec.MimeType,
			PayloadType:  codec.PreferredPayloadType,
			ClockRate:    codec.ClockRate,
			Channels:     codec.Channels,
			Parameters:   codec.Parameters,
			RTCPFeedback: codec.RTCPFeedback,
		}},
		Encodings: []RTPEncodingParameters{{SSRC: ssrc}},
		RTCP: RTCPParameters{
			CNAME:       p.params.RTCP.CNAME,
			ReducedSize: true,
		},
	}
}

func (c *consumer) close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.done)
	return c.sender.Stop()
}
