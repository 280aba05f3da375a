// Package database provides an interface for database operations.
package database

import (
	"errors"
)

var (
	// ErrPeerAlreadyExists is returned when the peer already exists.
	ErrPeerAlreadyExists = errors.New("peer already exists")

	// ErrResourceAlreadyExists is returned when the resource already exists.
	ErrResourceAlreadyExists = errors.New("resource already exists")

	// ErrPeerNotFound is returned when the peer is not found.
	ErrPeerNotFound = errors.New("peer not found")

	// ErrResourceNotFound is returned when the resource is not found.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrRoomNotFound is returned when the room is not found.
	ErrRoomNotFound = errors.New("room not found")

	// ErrNameTaken is returned when another member of the room uses the name.
	ErrNameTaken = errors.New("name taken")

	// ErrInvalidPresenceTarget is returned when the presence flag is neither audio nor video.
	ErrInvalidPresenceTarget = errors.New("invalid presence target")
)

// Database is an interface for database operations.
type Database interface {
	CreatePeerInfo(peerID string) (*PeerInfo, error)
	FindPeerInfoByID(peerID string) (*PeerInfo, error)
	FindAllPeerInfos() ([]*PeerInfo, error)
	TogglePeerPresence(peerID string, target Presence) (*PeerInfo, error)
	DeletePeerInfoByID(peerID string) error

	CreateResourceInfo(peerID, resourceID string, kind ResourceKind) (*ResourceInfo, error)
	FindResourceInfoByID(resourceID string) (*ResourceInfo, error)
	FindResourceInfosByKind(kind ResourceKind) ([]*ResourceInfo, error)
	FindResourceInfosByPeerID(peerID string) ([]*ResourceInfo, error)
	DeleteResourceInfoByID(resourceID string) (*ResourceInfo, error)
	DeleteResourceInfosByIDs(resourceIDs ...string) ([]*ResourceInfo, error)

	JoinRoom(roomID, peerID, name string, uniqueName bool) (*RoomInfo, *RoomInfo, error)
	LeaveRoom(roomID, peerID string) (*RoomInfo, bool, error)
	FindRoomInfoByID(roomID string) (*RoomInfo, error)
	FindRoomInfosByMember(peerID string) ([]*RoomInfo, error)
	FindAllRoomInfos() ([]*RoomInfo, error)
	FindMemberInfos(roomID string) ([]*PeerInfo, error)
}

// IsNotFound reports whether err is one of the not-found errors of the database.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPeerNotFound) ||
		errors.Is(err, ErrResourceNotFound) ||
		errors.Is(err, ErrRoomNotFound)
}
