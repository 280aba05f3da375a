package metric

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Default values for metrics configuration.
const (
	DefaultMetricsPort    = 9090
	DefaultMetricsPath    = "/metrics"
	DefaultSampleInterval = 5 * time.Second
)

// ErrInvalidConfig is returned when the metrics configuration is invalid.
var ErrInvalidConfig = errors.New("invalid metrics config")

// Config defines the configuration for the metrics server.
type Config struct {
	Port     int           `mapstructure:"port"`     // Port for metrics server, 0 disables it
	Path     string        `mapstructure:"path"`     // Path for metrics endpoint
	Interval time.Duration `mapstructure:"interval"` // Interval between two samples
}

// Validate checks the port, the path and the sample interval.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d: %w", c.Port, ErrInvalidConfig)
	}
	if c.Port > 0 && !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("path %q: %w", c.Path, ErrInvalidConfig)
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval %s: %w", c.Interval, ErrInvalidConfig)
	}
	return nil
}
