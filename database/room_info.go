package database

import (
	"slices"
	"time"
)

// RoomInfo is a struct for room membership. Rooms are created on first join
// and are kept when their last member leaves.
type RoomInfo struct {
	ID        string
	Members   []string
	CreatedAt time.Time
}

// HasMember checks if the peer is a member of the room.
func (r *RoomInfo) HasMember(peerID string) bool {
	return slices.Contains(r.Members, peerID)
}

// AddMember appends the peer if it is not already a member.
func (r *RoomInfo) AddMember(peerID string) {
	if r.HasMember(peerID) {
		return
	}
	r.Members = append(r.Members, peerID)
}

// RemoveMember removes the peer and reports whether it was a member.
func (r *RoomInfo) RemoveMember(peerID string) bool {
	n := len(r.Members)
	r.Members = slices.DeleteFunc(r.Members, func(id string) bool { return id == peerID })
	return len(r.Members) != n
}

// Others returns every member except the given peer.
func (r *RoomInfo) Others(peerID string) []string {
	others := make([]string, 0, len(r.Members))
	for _, id := range r.Members {
		if id != peerID {
			others = append(others, id)
		}
	}
	return others
}

// DeepCopy creates a deep copy of the given RoomInfo.
func (r *RoomInfo) DeepCopy() *RoomInfo {
	return &RoomInfo{
		ID:        r.ID,
		Members:   slices.Clone(r.Members),
		CreatedAt: r.CreatedAt,
	}
}
