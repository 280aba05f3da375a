// Package handler provides the HTTP handlers of the signal server.
package handler

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/ashwaniclecvdoc/vc-backend-scale/pkg/socket"
	"github.com/ashwaniclecvdoc/vc-backend-scale/signal/controller"
)

// Socket upgrades the HTTP request and hands the websocket to the controller.
type Socket struct {
	controller controller.Processor
	options    socket.Options
}

// NewSocket creates a new Socket handler.
func NewSocket(c controller.Processor, options socket.Options) *Socket {
	return &Socket{
		controller: c,
		options:    options,
	}
}

// ServeHTTP handles the HTTP request and upgrades it to websocket connection.
func (h *Socket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s, err := socket.New(w, r, h.options)
	if err != nil {
		log.Warn().Str("module", "handler").Err(err).Msg("failed to upgrade websocket")
		return
	}
	defer func() {
		if err := s.Close(); err != nil && !socket.IsClosed(err) {
			log.Debug().Str("module", "handler").Err(err).Msg("failed to close websocket")
		}
	}()

	if err := h.controller.Process(r.Context(), s); err != nil {
		log.Warn().Str("module", "handler").Err(err).Msg("connection closed with error")
	}
}
