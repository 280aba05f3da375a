package socket

import (
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Default values for the websocket keepalive.
const (
	DefaultPingPeriod = 25 * time.Second
	DefaultPongWait   = 60 * time.Second
	DefaultWriteWait  = 10 * time.Second
	DefaultReadLimit  = 1 << 20
)

// Options controls the keepalive and the size limit of a WebSocket.
type Options struct {
	PingPeriod time.Duration
	PongWait   time.Duration
	WriteWait  time.Duration
	ReadLimit  int64
}

func (o Options) withDefaults() Options {
	if o.PingPeriod <= 0 {
		o.PingPeriod = DefaultPingPeriod
	}
	if o.PongWait <= o.PingPeriod {
		o.PongWait = o.PingPeriod + o.PingPeriod/2
	}
	if o.WriteWait <= 0 {
		o.WriteWait = DefaultWriteWait
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = DefaultReadLimit
	}
	return o
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// WebSocket wraps the gorilla/websocket connection. Reads time out unless the
// peer answers the pings sent every PingPeriod.
type WebSocket struct {
	conn    *websocket.Conn
	options Options

	once sync.Once
	done chan struct{}
}

// New creates a new WebSocket connection by upgrading the HTTP request.
func New(w http.ResponseWriter, r *http.Request, options Options) (*WebSocket, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	options = options.withDefaults()

	s := &WebSocket{
		conn:    conn,
		options: options,
		done:    make(chan struct{}),
	}
	conn.SetReadLimit(options.ReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(options.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(options.PongWait))
	})
	go s.keepalive()
	return s, nil
}

func (s *WebSocket) keepalive() {
	ticker := time.NewTicker(s.options.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(s.options.WriteWait)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// Close closes the WebSocket connection.
func (s *WebSocket) Close() error {
	s.once.Do(func() { close(s.done) })
	return s.conn.Close()
}

// WriteJSON sends a JSON message to the WebSocket connection.
func (s *WebSocket) WriteJSON(data any) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.options.WriteWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(data)
}

// ReadJSON reads a JSON message from the WebSocket connection and unmarshals it into the provided variable.
func (s *WebSocket) ReadJSON(v any) error {
	return s.conn.ReadJSON(v)
}

// IsClosed reports whether err means the peer closed the connection normally.
func IsClosed(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF)
}
