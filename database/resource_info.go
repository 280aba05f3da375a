package database

import "time"

// ResourceKind is the kind of media engine object.
type ResourceKind string

const (
	// Transport is a negotiated ICE+DTLS path between a peer and the media engine.
	Transport ResourceKind = "transport"

	// Producer is an inbound media stream from a peer.
	Producer ResourceKind = "producer"

	// Consumer is an outbound media stream to a peer.
	Consumer ResourceKind = "consumer"
)

// ResourceInfo is a struct for a live media engine object. The handle itself
// stays inside the media engine; the registry records the ID and its owner.
type ResourceInfo struct {
	ID        string
	Kind      ResourceKind
	PeerID    string
	CreatedAt time.Time
}

// IsKind checks if the resource is of the given kind.
func (r *ResourceInfo) IsKind(kind ResourceKind) bool {
	return r.Kind == kind
}

// DeepCopy creates a deep copy of the given ResourceInfo.
func (r *ResourceInfo) DeepCopy() *ResourceInfo {
	return &ResourceInfo{
		ID:        r.ID,
		Kind:      r.Kind,
		PeerID:    r.PeerID,
		CreatedAt: r.CreatedAt,
	}
}
