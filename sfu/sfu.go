// Package sfu assembles the signaling server, the session coordinator and the
// media engine of a selective forwarding unit.
package sfu

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ashwaniclecvdoc/vc-backend-scale/broker"
	"github.com/ashwaniclecvdoc/vc-backend-scale/coordinator"
	"github.com/ashwaniclecvdoc/vc-backend-scale/database/memory"
	"github.com/ashwaniclecvdoc/vc-backend-scale/media"
	"github.com/ashwaniclecvdoc/vc-backend-scale/metric"
	"github.com/ashwaniclecvdoc/vc-backend-scale/signal"
	"github.com/ashwaniclecvdoc/vc-backend-scale/signal/controller"
)

// SFU contains servers and configuration.
type SFU struct {
	database    *memory.DB
	media       *media.Media
	broker      broker.Broker
	coordinator *coordinator.Coordinator
	signal      *signal.Signal
	metric      *metric.Metrics
}

// New creates a new instance of SFU.
func New(config Config) *SFU {
	brk := broker.New(config.Broker)
	db := memory.New(config.Database)
	med := media.New(config.Media)
	met := metric.New(config.Metric)
	cod := coordinator.New(config.Coordinator, db, med, brk)
	sig := signal.New(config.Signal, controller.New(brk, cod, met), met)

	return &SFU{
		database:    db,
		media:       med,
		broker:      brk,
		coordinator: cod,
		signal:      sig,
		metric:      met,
	}
}

// Handler returns the HTTP handler of the signal server.
func (s *SFU) Handler() http.Handler {
	return s.signal.Handler()
}

// Start runs the media engine, the signal server and the metrics server until
// the context is done or one of them fails.
func (s *SFU) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.media.Start(ctx); err != nil {
			return fmt.Errorf("failed to start media engine: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return s.metric.Start(ctx)
	})
	g.Go(func() error {
		return s.metric.Collect(ctx, s.database)
	})
	g.Go(func() error {
		if err := s.signal.Start(ctx); err != nil {
			return fmt.Errorf("failed to start signal server: %w", err)
		}
		return nil
	})

	err := g.Wait()
	log.Info().Str("module", "sfu").Err(err).Msg("stopped")
	return err
}
