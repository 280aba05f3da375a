// Package socket wraps the websocket connection of one peer.
package socket

// Socket is a JSON message connection. Writes must come from one goroutine.
//
//go:generate mockgen -destination=mock_socket.go -package=socket . Socket
type Socket interface {
	Close() error
	WriteJSON(data any) error
	ReadJSON(v any) error
}
