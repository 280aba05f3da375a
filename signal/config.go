package signal

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ashwaniclecvdoc/vc-backend-scale/pkg/socket"
)

// Default values for the signal server.
const (
	DefaultPort       = 3001
	DefaultPingPeriod = socket.DefaultPingPeriod
	DefaultPongWait   = socket.DefaultPongWait
	DefaultReadLimit  = socket.DefaultReadLimit
)

// Below is the Error message for the server.
var (
	ErrInvalidPort      = errors.New("invalid port")
	ErrInvalidCertFile  = errors.New("invalid cert file")
	ErrInvalidKeyFile   = errors.New("invalid key file")
	ErrInvalidKeepalive = errors.New("invalid keepalive")
)

// Config is the configuration for creating a Server instance.
type Config struct {
	Port       int           `mapstructure:"port"`
	Debug      bool          `mapstructure:"debug"`
	CertFile   string        `mapstructure:"cert_file"`
	KeyFile    string        `mapstructure:"key_file"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	ReadLimit  int64         `mapstructure:"read_limit"`
}

// IsSame checks if the given config is the same as the current one.
func (c Config) IsSame(config Config) bool {
	return c.Port == config.Port && c.CertFile == config.CertFile && c.KeyFile == config.KeyFile &&
		c.Debug == config.Debug
}

// Validate validates the port number, the keepalive and the files for certification.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("must be between 1 and 65535, given %d: %w", c.Port, ErrInvalidPort)
	}

	if c.PingPeriod < 0 || c.PongWait < 0 || c.ReadLimit < 0 {
		return fmt.Errorf("negative keepalive setting: %w", ErrInvalidKeepalive)
	}
	if c.PingPeriod > 0 && c.PongWait > 0 && c.PongWait <= c.PingPeriod {
		return fmt.Errorf("pong wait %s must exceed ping period %s: %w", c.PongWait, c.PingPeriod, ErrInvalidKeepalive)
	}

	if c.CertFile == "" && c.KeyFile == "" {
		return nil
	}

	if _, err := os.Stat(c.CertFile); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s does not exist: %w", c.CertFile, ErrInvalidCertFile)
		}
		return fmt.Errorf("unable to access %s: %w", c.CertFile, ErrInvalidCertFile)
	}

	if _, err := os.Stat(c.KeyFile); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s does not exist: %w", c.KeyFile, ErrInvalidKeyFile)
		}
		return fmt.Errorf("unable to access %s: %w", c.KeyFile, ErrInvalidKeyFile)
	}

	return nil
}

func (c Config) socketOptions() socket.Options {
	return socket.Options{
		PingPeriod: c.PingPeriod,
		PongWait:   c.PongWait,
		ReadLimit:  c.ReadLimit,
	}
}
