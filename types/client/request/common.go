// Package request defines structures for client request messages.
package request

import "encoding/json"

// Common represents a generic request structure used in WebSocket communication.
type Common struct {
	RequestID int             `json:"request_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Decode unmarshals the payload into v. An empty payload leaves v untouched.
func (c Common) Decode(v any) error {
	if len(c.Payload) == 0 || string(c.Payload) == "null" {
		return nil
	}
	return json.Unmarshal(c.Payload, v)
}
