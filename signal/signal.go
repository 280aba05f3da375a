// Package signal serves the websocket signaling endpoint and the health check.
package signal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ashwaniclecvdoc/vc-backend-scale/metric"
	"github.com/ashwaniclecvdoc/vc-backend-scale/signal/controller"
	"github.com/ashwaniclecvdoc/vc-backend-scale/signal/handler"
	"github.com/ashwaniclecvdoc/vc-backend-scale/signal/middleware"
)

const shutdownTimeout = 5 * time.Second

// Signal contains the server and configuration.
type Signal struct {
	server *http.Server
	conf   Config
}

// New creates a new instance of Signal.
func New(config Config, con controller.Processor, m *metric.Metrics) *Signal {
	mux := http.NewServeMux()
	mux.Handle("/ws", handler.NewSocket(con, config.socketOptions()))
	mux.Handle("/api/health", handler.NewHealth())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		ReadHeaderTimeout: 2 * time.Second,
		Handler:           middleware.Set(mux, middleware.NewCORS(), middleware.NewLogger(m)),
	}
	return &Signal{
		server: srv,
		conf:   config,
	}
}

// Handler returns the HTTP handler of the server.
func (s *Signal) Handler() http.Handler {
	return s.server.Handler
}

// Start runs the signal server until the context is done. Open websocket
// connections are closed along with it.
func (s *Signal) Start(ctx context.Context) error {
	s.server.BaseContext = func(net.Listener) context.Context { return ctx }
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Str("module", "signal").Err(err).Msg("failed to shut down server")
		}
	}()

	var err error
	if s.conf.CertFile == "" || s.conf.KeyFile == "" {
		log.Info().Str("module", "signal").Int("port", s.conf.Port).Msg("starting server without TLS")
		err = s.server.ListenAndServe()
	} else {
		log.Info().Str("module", "signal").Int("port", s.conf.Port).Msg("starting server with TLS")
		err = s.server.ListenAndServeTLS(s.conf.CertFile, s.conf.KeyFile)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
