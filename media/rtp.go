package media

import (
	"errors"
	"strings"

	"github.com/pion/webrtc/v4"
)

// Kind is the media kind of a producer or consumer.
type Kind string

const (
	// KindAudio is an audio stream.
	KindAudio Kind = "audio"

	// KindVideo is a video stream.
	KindVideo Kind = "video"
)

// ErrInvalidKind is returned when the kind is neither audio nor video.
var ErrInvalidKind = errors.New("invalid media kind")

// Validate checks that the kind is audio or video.
func (k Kind) Validate() error {
	if k != KindAudio && k != KindVideo {
		return ErrInvalidKind
	}
	return nil
}

func (k Kind) codecType() webrtc.RTPCodecType {
	if k == KindAudio {
		return webrtc.RTPCodecTypeAudio
	}
	return webrtc.RTPCodecTypeVideo
}

// RTCPFeedback is a feedback mechanism supported by a codec.
type RTCPFeedback struct {
	Type      string `json:"type" mapstructure:"type"`
	Parameter string `json:"parameter,omitempty" mapstructure:"parameter"`
}

// RTPCodecCapability describes a codec the router or a receiving peer can handle.
type RTPCodecCapability struct {
	Kind                 Kind           `json:"kind"`
	MimeType             string         `json:"mimeType"`
	PreferredPayloadType uint8          `json:"preferredPayloadType"`
	ClockRate            uint32         `json:"clockRate"`
	Channels             uint16         `json:"channels,omitempty"`
	Parameters           map[string]any `json:"parameters,omitempty"`
	RTCPFeedback         []RTCPFeedback `json:"rtcpFeedback,omitempty"`
}

// RTPCapabilities is the set of codecs a router or a peer supports.
type RTPCapabilities struct {
	Codecs []RTPCodecCapability `json:"codecs"`
}

// RTPCodecParameters is a codec actually used by a stream.
type RTPCodecParameters struct {
	MimeType     string         `json:"mimeType"`
	PayloadType  uint8          `json:"payloadType"`
	ClockRate    uint32         `json:"clockRate"`
	Channels     uint16         `json:"channels,omitempty"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	RTCPFeedback []RTCPFeedback `json:"rtcpFeedback,omitempty"`
}

// IsRTX reports whether the codec is a retransmission codec.
func (c RTPCodecParameters) IsRTX() bool {
	return strings.HasSuffix(strings.ToLower(c.MimeType), "/rtx")
}

// RTPEncodingParameters identifies one encoding of a stream.
type RTPEncodingParameters struct {
	SSRC uint32 `json:"ssrc,omitempty"`
	RID  string `json:"rid,omitempty"`
}

// RTCPParameters carries the RTCP settings of a stream.
type RTCPParameters struct {
	CNAME       string `json:"cname,omitempty"`
	ReducedSize bool   `json:"reducedSize"`
}

// RTPParameters describes a stream sent or received by the media engine.
type RTPParameters struct {
	MID       string                  `json:"mid,omitempty"`
	Codecs    []RTPCodecParameters    `json:"codecs"`
	Encodings []RTPEncodingParameters `json:"encodings,omitempty"`
	RTCP      RTCPParameters          `json:"rtcp"`
}

// MediaCodec returns the first codec that is not a retransmission codec.
func (p RTPParameters) MediaCodec() (RTPCodecParameters, bool) {
	for _, c := range p.Codecs {
		if !c.IsRTX() {
			return c, true
		}
	}
	return RTPCodecParameters{}, false
}

// FindCodec returns the capability matching the codec of the given kind.
// Mime types compare case-insensitively; channels only matter when both sides
// set them.
func (c RTPCapabilities) FindCodec(kind Kind, codec RTPCodecParameters) (RTPCodecCapability, bool) {
	for _, capability := range c.Codecs {
		if capability.Kind != "" && capability.Kind != kind {
			continue
		}
		if !strings.EqualFold(capability.MimeType, codec.MimeType) {
			continue
		}
		if capability.ClockRate != codec.ClockRate {
			continue
		}
		if capability.Channels != 0 && codec.Channels != 0 && capability.Channels != codec.Channels {
			continue
		}
		return capability, true
	}
	return RTPCodecCapability{}, false
}

// ICEParameters are the local or remote ICE credentials.
type ICEParameters struct {
	UsernameFragment string `json:"usernameFragment"`
	Password         string `json:"password"`
	ICELite          bool   `json:"iceLite"`
}

// ICECandidate is a gathered or remote ICE candidate.
type ICECandidate struct {
	Foundation string `json:"foundation"`
	Priority   uint32 `json:"priority"`
	Address    string `json:"address"`
	Protocol   string `json:"protocol"`
	Port       uint16 `json:"port"`
	Type       string `json:"type"`
	TCPType    string `json:"tcpType,omitempty"`
}

// DTLSFingerprint is a certificate fingerprint.
type DTLSFingerprint struct {
	Algorithm string `json:"algorithm"`
	Value     string `json:"value"`
}

// DTLSParameters are the DTLS role and fingerprints of one side.
type DTLSParameters struct {
	Role         string            `json:"role"`
	Fingerprints []DTLSFingerprint `json:"fingerprints"`
}

// TransportDescriptor is what a peer needs to connect to a new transport.
type TransportDescriptor struct {
	ID             string         `json:"id"`
	ICEParameters  ICEParameters  `json:"iceParameters"`
	ICECandidates  []ICECandidate `json:"iceCandidates"`
	DTLSParameters DTLSParameters `json:"dtlsParameters"`
}

// RemoteParameters are sent by the peer to start a transport.
type RemoteParameters struct {
	DTLSParameters DTLSParameters `json:"dtlsParameters"`
	ICEParameters  *ICEParameters `json:"iceParameters,omitempty"`
	ICECandidates  []ICECandidate `json:"iceCandidates,omitempty"`
}

// ConsumerDescriptor is what a peer needs to receive a consumer.
type ConsumerDescriptor struct {
	ID            string        `json:"id"`
	ProducerID    string        `json:"producerId"`
	Kind          Kind          `json:"kind"`
	RTPParameters RTPParameters `json:"rtpParameters"`
}

func toICEParameters(p webrtc.ICEParameters) ICEParameters {
	return ICEParameters{
		UsernameFragment: p.UsernameFragment,
		Password:         p.Password,
		ICELite:          p.ICELite,
	}
}

func (p ICEParameters) toPion() webrtc.ICEParameters {
	return webrtc.ICEParameters{
		UsernameFragment: p.UsernameFragment,
		Password:         p.Password,
		ICELite:          p.ICELite,
	}
}

func toICECandidates(candidates []webrtc.ICECandidate) []ICECandidate {
	out := make([]ICECandidate, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, ICECandidate{
			Foundation: c.Foundation,
			Priority:   c.Priority,
			Address:    c.Address,
			Protocol:   c.Protocol.String(),
			Port:       c.Port,
			Type:       c.Typ.String(),
			TCPType:    c.TCPType,
		})
	}
	return out
}

func (c ICECandidate) toPion() (webrtc.ICECandidate, error) {
	protocol, err := webrtc.NewICEProtocol(c.Protocol)
	if err != nil {
		return webrtc.ICECandidate{}, err
	}
	typ, err := webrtc.NewICECandidateType(c.Type)
	if err != nil {
		return webrtc.ICECandidate{}, err
	}
	return webrtc.ICECandidate{
		Foundation: c.Foundation,
		Priority:   c.Priority,
		Address:    c.Address,
		Protocol:   protocol,
		Port:       c.Port,
		Typ:        typ,
		Component:  1,
		TCPType:    c.TCPType,
	}, nil
}

func toDTLSParameters(p webrtc.DTLSParameters) DTLSParameters {
	fingerprints := make([]DTLSFingerprint, 0, len(p.Fingerprints))
	for _, f := range p.Fingerprints {
		fingerprints = append(fingerprints, DTLSFingerprint{Algorithm: f.Algorithm, Value: f.Value})
	}
	return DTLSParameters{
		Role:         dtlsRoleName(p.Role),
		Fingerprints: fingerprints,
	}
}

func (p DTLSParameters) toPion() webrtc.DTLSParameters {
	fingerprints := make([]webrtc.DTLSFingerprint, 0, len(p.Fingerprints))
	for _, f := range p.Fingerprints {
		fingerprints = append(fingerprints, webrtc.DTLSFingerprint{Algorithm: f.Algorithm, Value: f.Value})
	}
	role := webrtc.DTLSRoleAuto
	switch p.Role {
	case "client":
		role = webrtc.DTLSRoleClient
	case "server":
		role = webrtc.DTLSRoleServer
	}
	return webrtc.DTLSParameters{
		Role:         role,
		Fingerprints: fingerprints,
	}
}

func dtlsRoleName(role webrtc.DTLSRole) string {
	switch role {
	case webrtc.DTLSRoleClient:
		return "client"
	case webrtc.DTLSRoleServer:
		return "server"
	default:
		return "auto"
	}
}
