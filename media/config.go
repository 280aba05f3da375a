package media

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/pion/webrtc/v4"
)

// Default values for the media engine.
const (
	DefaultIP         = "0.0.0.0"
	DefaultMinUdpPort = "40000"
	DefaultMaxUdpPort = "49999"
)

// DefaultICEServers are used to gather server reflexive candidates.
var DefaultICEServers = []string{"stun:stun.l.google.com:19302"}

// Below is the Error message for the media configuration.
var (
	ErrInvalidIP        = errors.New("invalid ip")
	ErrInvalidPortRange = errors.New("invalid port range")
	ErrInvalidCodec     = errors.New("invalid codec")
)

// Codec is a codec the router accepts.
type Codec struct {
	Kind         Kind           `mapstructure:"kind"`
	MimeType     string         `mapstructure:"mime_type"`
	ClockRate    uint32         `mapstructure:"clock_rate"`
	Channels     uint16         `mapstructure:"channels"`
	PayloadType  uint8          `mapstructure:"payload_type"`
	Parameters   map[string]any `mapstructure:"parameters"`
	RTCPFeedback []RTCPFeedback `mapstructure:"rtcp_feedback"`
}

// DefaultCodecs returns opus for audio and VP8 for video.
func DefaultCodecs() []Codec {
	videoFeedback := []RTCPFeedback{
		{Type: "nack"},
		{Type: "nack", Parameter: "pli"},
		{Type: "ccm", Parameter: "fir"},
		{Type: "goog-remb"},
		{Type: "transport-cc"},
	}
	return []Codec{
		{
			Kind:         KindAudio,
			MimeType:     webrtc.MimeTypeOpus,
			ClockRate:    48000,
			Channels:     2,
			PayloadType:  100,
			RTCPFeedback: []RTCPFeedback{{Type: "transport-cc"}},
		},
		{
			Kind:         KindVideo,
			MimeType:     webrtc.MimeTypeVP8,
			ClockRate:    90000,
			PayloadType:  101,
			Parameters:   map[string]any{"x-google-start-bitrate": 1000},
			RTCPFeedback: videoFeedback,
		},
	}
}

// Config defines the configuration for the media server.
type Config struct {
	IP          string   `mapstructure:"ip"`           // ip for media server.
	AnnouncedIP string   `mapstructure:"announced_ip"` // public ip advertised in candidates, if behind NAT.
	MinUdpPort  string   `mapstructure:"min_udp_port"` // Minimum UDP port for WebRTC
	MaxUdpPort  string   `mapstructure:"max_udp_port"` // Maximum UDP port for WebRTC
	TCPPort     int      `mapstructure:"tcp_port"`     // ICE-TCP port, 0 picks a free port.
	ICEServers  []string `mapstructure:"ice_servers"`  // STUN/TURN urls.
	Codecs      []Codec  `mapstructure:"codecs"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		IP:         DefaultIP,
		MinUdpPort: DefaultMinUdpPort,
		MaxUdpPort: DefaultMaxUdpPort,
		ICEServers: DefaultICEServers,
		Codecs:     DefaultCodecs(),
	}
}

// Validate validates the listening address, the port range and the codecs.
func (c Config) Validate() error {
	if c.IP != "" && net.ParseIP(c.IP) == nil {
		return fmt.Errorf("listen ip %q: %w", c.IP, ErrInvalidIP)
	}
	if c.AnnouncedIP != "" && net.ParseIP(c.AnnouncedIP) == nil {
		return fmt.Errorf("announced ip %q: %w", c.AnnouncedIP, ErrInvalidIP)
	}
	if _, _, err := c.portRange(); err != nil {
		return err
	}
	if c.TCPPort < 0 || c.TCPPort > 65535 {
		return fmt.Errorf("tcp port %d: %w", c.TCPPort, ErrInvalidPortRange)
	}
	for _, codec := range c.Codecs {
		if err := codec.Kind.Validate(); err != nil {
			return fmt.Errorf("%s: %w", codec.MimeType, ErrInvalidCodec)
		}
		if !strings.HasPrefix(strings.ToLower(codec.MimeType), string(codec.Kind)+"/") || codec.ClockRate == 0 {
			return fmt.Errorf("%s: %w", codec.MimeType, ErrInvalidCodec)
		}
	}
	return nil
}

// portRange parses the configured range. Both bounds empty means no range.
func (c Config) portRange() (uint16, uint16, error) {
	if c.MinUdpPort == "" && c.MaxUdpPort == "" {
		return 0, 0, nil
	}
	minPort, err := strconv.Atoi(c.MinUdpPort)
	if err != nil || minPort < 0 || minPort > 65535 {
		return 0, 0, fmt.Errorf("invalid MinUdpPort: %s: %w", c.MinUdpPort, ErrInvalidPortRange)
	}

	maxPort, err := strconv.Atoi(c.MaxUdpPort)
	if err != nil || maxPort < 0 || maxPort > 65535 {
		return 0, 0, fmt.Errorf("invalid MaxUdpPort: %s: %w", c.MaxUdpPort, ErrInvalidPortRange)
	}

	if minPort > maxPort {
		return 0, 0, fmt.Errorf("MinUdpPort (%d) > MaxUdpPort (%d): %w", minPort, maxPort, ErrInvalidPortRange)
	}
	return uint16(minPort), uint16(maxPort), nil
}

// SetPortRange sets the ephemeral UDP port range for WebRTC.
func (c *Config) SetPortRange(s *webrtc.SettingEngine) error {
	minPort, maxPort, err := c.portRange()
	if err != nil {
		return err
	}
	if minPort == 0 && maxPort == 0 {
		return nil
	}

	if err = s.SetEphemeralUDPPortRange(minPort, maxPort); err != nil {
		return fmt.Errorf("failed to set ephemeral UDP port range: %w", err)
	}

	return nil
}

// fmtpLine renders codec parameters as an SDP fmtp line with sorted keys.
func fmtpLine(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, params[k]))
	}
	return strings.Join(parts, ";")
}
