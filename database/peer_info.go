package database

import (
	"slices"
	"time"
)

// Presence is a media flag a peer can switch on and off inside a room.
type Presence string

const (
	// Audio is the microphone flag.
	Audio Presence = "audio"

	// Video is the camera flag.
	Video Presence = "video"
)

// Validate checks that the presence target is known.
func (p Presence) Validate() error {
	if p != Audio && p != Video {
		return ErrInvalidPresenceTarget
	}
	return nil
}

// PeerInfo is a struct for a connected peer. It owns the identifiers of every
// resource the peer caused to be created, in creation order.
type PeerInfo struct {
	ID           string
	Name         string
	AudioEnabled bool
	VideoEnabled bool
	RoomID       string
	Transports   []string
	Producers    []string
	Consumers    []string
	CreatedAt    time.Time
}

// HasRoom reports whether the peer is currently joined to a room.
func (p *PeerInfo) HasRoom() bool {
	return p.RoomID != ""
}

// FirstTransport returns the first transport the peer created, if any.
func (p *PeerInfo) FirstTransport() (string, bool) {
	if len(p.Transports) == 0 {
		return "", false
	}
	return p.Transports[0], true
}

// AddResource appends the resource ID to the list that matches its kind.
func (p *PeerInfo) AddResource(kind ResourceKind, id string) {
	switch kind {
	case Transport:
		p.Transports = append(p.Transports, id)
	case Producer:
		p.Producers = append(p.Producers, id)
	case Consumer:
		p.Consumers = append(p.Consumers, id)
	}
}

// RemoveResource removes the resource ID from the list that matches its kind.
func (p *PeerInfo) RemoveResource(kind ResourceKind, id string) {
	remove := func(ids []string) []string {
		return slices.DeleteFunc(ids, func(s string) bool { return s == id })
	}
	switch kind {
	case Transport:
		p.Transports = remove(p.Transports)
	case Producer:
		p.Producers = remove(p.Producers)
	case Consumer:
		p.Consumers = remove(p.Consumers)
	}
}

// Toggle flips the given presence flag and returns its new value.
func (p *PeerInfo) Toggle(target Presence) bool {
	switch target {
	case Audio:
		p.AudioEnabled = !p.AudioEnabled
		return p.AudioEnabled
	case Video:
		p.VideoEnabled = !p.VideoEnabled
		return p.VideoEnabled
	}
	return false
}

// Enabled returns the current value of the given presence flag.
func (p *PeerInfo) Enabled(target Presence) bool {
	if target == Audio {
		return p.AudioEnabled
	}
	return p.VideoEnabled
}

// DeepCopy creates a deep copy of the given PeerInfo.
func (p *PeerInfo) DeepCopy() *PeerInfo {
	return &PeerInfo{
		ID:           p.ID,
		Name:         p.Name,
		AudioEnabled: p.AudioEnabled,
		VideoEnabled: p.VideoEnabled,
		RoomID:       p.RoomID,
		Transports:   slices.Clone(p.Transports),
		Producers:    slices.Clone(p.Producers),
		Consumers:    slices.Clone(p.Consumers),
		CreatedAt:    p.CreatedAt,
	}
}
