// Package client is a Go client of the signaling server. It correlates
// replies with requests and delivers server notifications on a channel.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"

	"github.com/ashwaniclecvdoc/vc-backend-scale/types/client/request"
	"github.com/ashwaniclecvdoc/vc-backend-scale/types/client/response"
)

// notificationBuffer is the number of notifications kept until they are read.
const notificationBuffer = 64

// ErrClosed is returned when the connection is closed before a reply arrives.
var ErrClosed = errors.New("connection closed")

// Error is a failure reported by the server for one request.
type Error struct {
	Type    string
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Type, e.Code, e.Message)
}

// Notification is a message sent by the server without a request.
type Notification struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Decode unmarshals the payload into v.
func (n Notification) Decode(v any) error {
	return json.Unmarshal(n.Payload, v)
}

// envelope is any message read from the server. RequestID is nil for
// notifications.
type envelope struct {
	RequestID *int            `json:"request_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Error     *response.Error `json:"error"`
}

// Client is one signaling connection.
type Client struct {
	conn   *websocket.Conn
	peerID string

	writeMu sync.Mutex
	nextID  atomic.Int64

	mu      sync.Mutex
	pending map[int]chan envelope

	notifications chan Notification
	done          chan struct{}
}

// Dial connects to the websocket endpoint at url, for example
// "ws://localhost:3001/ws", and waits for the server to assign the peer ID.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}

	c := &Client{
		conn:          conn,
		pending:       make(map[int]chan envelope),
		notifications: make(chan Notification, notificationBuffer),
		done:          make(chan struct{}),
	}
	go c.readLoop()

	for {
		select {
		case n := <-c.notifications:
			if n.Type != response.Connected {
				continue
			}
			var payload response.ConnectedPayload
			if err := n.Decode(&payload); err != nil {
				_ = c.Close()
				return nil, fmt.Errorf("failed to decode %s: %w", n.Type, err)
			}
			c.peerID = payload.PeerID
			return c, nil
		case <-c.done:
			return nil, fmt.Errorf("waiting for peer id: %w", ErrClosed)
		case <-ctx.Done():
			_ = c.Close()
			return nil, ctx.Err()
		}
	}
}

// PeerID returns the ID the server assigned to this connection.
func (c *Client) PeerID() string {
	return c.peerID
}

// Notifications returns the channel of server notifications. It is closed
// when the connection closes.
func (c *Client) Notifications() <-chan Notification {
	return c.notifications
}

// Done is closed when the connection is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) readLoop() {
	defer func() {
		c.mu.Lock()
		c.pending = nil
		c.mu.Unlock()
		close(c.done)
		close(c.notifications)
	}()

	for {
		var msg envelope
		if err := c.conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				log.Warn().Str("module", "client").Err(err).Msg("failed to decode message")
				continue
			}
			return
		}

		if msg.RequestID == nil {
			select {
			case c.notifications <- Notification{Type: msg.Type, Payload: msg.Payload}:
			default:
				log.Warn().Str("module", "client").Str("type", msg.Type).Msg("notification dropped")
			}
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[*msg.RequestID]
		delete(c.pending, *msg.RequestID)
		c.mu.Unlock()
		if ok {
			ch <- msg
		}
	}
}

// Request sends a request and waits for its reply. A non-nil out receives the
// reply payload. A failed request returns an *Error.
func (c *Client) Request(ctx context.Context, typ string, payload any, out any) error {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", typ, err)
		}
		raw = b
	}

	id := int(c.nextID.Inc())
	ch := make(chan envelope, 1)
	c.mu.Lock()
	if c.pending == nil {
		c.mu.Unlock()
		return ErrClosed
	}
	c.pending[id] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	err := c.conn.WriteJSON(request.Common{RequestID: id, Type: typ, Payload: raw})
	c.writeMu.Unlock()
	if err != nil {
		c.forget(id)
		return fmt.Errorf("failed to send %s: %w", typ, err)
	}

	select {
	case reply := <-ch:
		if reply.Error != nil {
			return &Error{Type: typ, Code: reply.Error.Code, Message: reply.Error.Message}
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(reply.Payload, out); err != nil {
			return fmt.Errorf("failed to unmarshal %s reply: %w", typ, err)
		}
		return nil
	case <-c.done:
		return fmt.Errorf("%s: %w", typ, ErrClosed)
	case <-ctx.Done():
		c.forget(id)
		return ctx.Err()
	}
}

func (c *Client) forget(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}
