package sfu

import (
	"fmt"

	"github.com/ashwaniclecvdoc/vc-backend-scale/broker"
	"github.com/ashwaniclecvdoc/vc-backend-scale/coordinator"
	"github.com/ashwaniclecvdoc/vc-backend-scale/database"
	"github.com/ashwaniclecvdoc/vc-backend-scale/media"
	"github.com/ashwaniclecvdoc/vc-backend-scale/metric"
	"github.com/ashwaniclecvdoc/vc-backend-scale/signal"
)

// Config contains the configuration for the SFU.
type Config struct {
	Signal      signal.Config      `mapstructure:"signal"`
	Media       media.Config       `mapstructure:"media"`
	Metric      metric.Config      `mapstructure:"metric"`
	Coordinator coordinator.Config `mapstructure:"coordinator"`
	Broker      broker.Config      `mapstructure:"broker"`
	Database    database.Config    `mapstructure:"database"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Signal: signal.Config{
			Port:       signal.DefaultPort,
			PingPeriod: signal.DefaultPingPeriod,
			PongWait:   signal.DefaultPongWait,
			ReadLimit:  signal.DefaultReadLimit,
		},
		Media: media.DefaultConfig(),
		Metric: metric.Config{
			Port:     metric.DefaultMetricsPort,
			Path:     metric.DefaultMetricsPath,
			Interval: metric.DefaultSampleInterval,
		},
		Coordinator: coordinator.Config{EnforceUniqueNames: coordinator.DefaultEnforceUniqueNames},
		Broker:      broker.Config{QueueSize: broker.DefaultQueueSize},
	}
}

// Validate validates the configuration of every server.
func (c Config) Validate() error {
	if err := c.Signal.Validate(); err != nil {
		return fmt.Errorf("signal: %w", err)
	}
	if err := c.Media.Validate(); err != nil {
		return fmt.Errorf("media: %w", err)
	}
	if err := c.Metric.Validate(); err != nil {
		return fmt.Errorf("metric: %w", err)
	}
	if c.Metric.Port != 0 && c.Metric.Port == c.Signal.Port {
		return fmt.Errorf("metric: port %d is used by signal: %w", c.Metric.Port, metric.ErrInvalidConfig)
	}
	return nil
}
