// Package memory provides an in-memory database implementation.
package memory

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-memdb"
	"github.com/rs/zerolog/log"

	"github.com/ashwaniclecvdoc/vc-backend-scale/database"
)

// DB is a memory-backed database. It holds the resource registry, the peer
// sessions and the room directory in one go-memdb instance, so every mutation
// that touches more than one table commits atomically.
type DB struct {
	db     *memdb.MemDB
	config database.Config
}

// New creates a new memory-backed database.
func New(config database.Config) *DB {
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		panic(err)
	}
	return &DB{
		db:     db,
		config: config,
	}
}

func (d *DB) trace(op, id string) {
	if d.config.LogQueries {
		log.Debug().Str("module", "database").Str("op", op).Str("id", id).Msg("committed")
	}
}

// CreatePeerInfo creates a new peer session with empty resource lists.
func (d *DB) CreatePeerInfo(peerID string) (*database.PeerInfo, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()
	existing, err := txn.First(tblPeers, idxPeerID, peerID)
	if err != nil {
		return nil, fmt.Errorf("find peer by id: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%s: %w", peerID, database.ErrPeerAlreadyExists)
	}
	info := &database.PeerInfo{
		ID:        peerID,
		CreatedAt: time.Now(),
	}
	if err := txn.Insert(tblPeers, info); err != nil {
		return nil, fmt.Errorf("insert peer: %w", err)
	}
	txn.Commit()
	d.trace("create-peer", peerID)
	return info.DeepCopy(), nil
}

// FindPeerInfoByID finds a peer by its connection ID.
func (d *DB) FindPeerInfoByID(peerID string) (*database.PeerInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First(tblPeers, idxPeerID, peerID)
	if err != nil {
		return nil, fmt.Errorf("find peer by id: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", peerID, database.ErrPeerNotFound)
	}
	return raw.(*database.PeerInfo).DeepCopy(), nil
}

// FindAllPeerInfos returns every connected peer.
func (d *DB) FindAllPeerInfos() ([]*database.PeerInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()
	iter, err := txn.Get(tblPeers, idxPeerID)
	if err != nil {
		return nil, fmt.Errorf("fetch peers: %w", err)
	}
	var peers []*database.PeerInfo
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		peers = append(peers, raw.(*database.PeerInfo).DeepCopy())
	}
	return peers, nil
}

// TogglePeerPresence flips the audio or video flag of the peer.
func (d *DB) TogglePeerPresence(peerID string, target database.Presence) (*database.PeerInfo, error) {
	if err := target.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", target, err)
	}
	txn := d.db.Txn(true)
	defer txn.Abort()
	raw, err := txn.First(tblPeers, idxPeerID, peerID)
	if err != nil {
		return nil, fmt.Errorf("find peer by id: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", peerID, database.ErrPeerNotFound)
	}
	info := raw.(*database.PeerInfo).DeepCopy()
	info.Toggle(target)
	if err := txn.Insert(tblPeers, info); err != nil {
		return nil, fmt.Errorf("insert peer: %w", err)
	}
	txn.Commit()
	d.trace("toggle-presence", peerID)
	return info.DeepCopy(), nil
}

// DeletePeerInfoByID deletes a peer by its connection ID.
func (d *DB) DeletePeerInfoByID(peerID string) error {
	txn := d.db.Txn(true)
	defer txn.Abort()
	raw, err := txn.First(tblPeers, idxPeerID, peerID)
	if err != nil {
		return fmt.Errorf("find peer by id: %w", err)
	}
	if raw == nil {
		return fmt.Errorf("%s: %w", peerID, database.ErrPeerNotFound)
	}
	if err := txn.Delete(tblPeers, raw); err != nil {
		return fmt.Errorf("delete peer: %w", err)
	}
	txn.Commit()
	d.trace("delete-peer", peerID)
	return nil
}

// CreateResourceInfo registers a resource and appends its ID to the owning
// peer's list of the same kind.
func (d *DB) CreateResourceInfo(
	peerID, resourceID string,
	kind database.ResourceKind,
) (*database.ResourceInfo, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()
	raw, err := txn.First(tblPeers, idxPeerID, peerID)
	if err != nil {
		return nil, fmt.Errorf("find peer by id: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", peerID, database.ErrPeerNotFound)
	}
	existing, err := txn.First(tblResources, idxResourceID, resourceID)
	if err != nil {
		return nil, fmt.Errorf("find resource by id: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%s: %w", resourceID, database.ErrResourceAlreadyExists)
	}

	resource := &database.ResourceInfo{
		ID:        resourceID,
		Kind:      kind,
		PeerID:    peerID,
		CreatedAt: time.Now(),
	}
	if err := txn.Insert(tblResources, resource); err != nil {
		return nil, fmt.Errorf("insert resource: %w", err)
	}
	peer := raw.(*database.PeerInfo).DeepCopy()
	peer.AddResource(kind, resourceID)
	if err := txn.Insert(tblPeers, peer); err != nil {
		return nil, fmt.Errorf("insert peer: %w", err)
	}
	txn.Commit()
	d.trace("create-"+string(kind), resourceID)
	return resource.DeepCopy(), nil
}

// FindResourceInfoByID finds a resource by its engine-assigned ID.
func (d *DB) FindResourceInfoByID(resourceID string) (*database.ResourceInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First(tblResources, idxResourceID, resourceID)
	if err != nil {
		return nil, fmt.Errorf("find resource by id: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", resourceID, database.ErrResourceNotFound)
	}
	return raw.(*database.ResourceInfo).DeepCopy(), nil
}

// FindResourceInfosByKind returns every live resource of the given kind.
func (d *DB) FindResourceInfosByKind(kind database.ResourceKind) ([]*database.ResourceInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()
	iter, err := txn.Get(tblResources, idxResourceKind, string(kind))
	if err != nil {
		return nil, fmt.Errorf("fetch resources by kind: %w", err)
	}
	var resources []*database.ResourceInfo
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		resources = append(resources, raw.(*database.ResourceInfo).DeepCopy())
	}
	return resources, nil
}

// FindResourceInfosByPeerID returns every live resource the peer owns.
func (d *DB) FindResourceInfosByPeerID(peerID string) ([]*database.ResourceInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()
	iter, err := txn.Get(tblResources, idxResourcePeer, peerID)
	if err != nil {
		return nil, fmt.Errorf("fetch resources by peer: %w", err)
	}
	var resources []*database.ResourceInfo
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		resources = append(resources, raw.(*database.ResourceInfo).DeepCopy())
	}
	return resources, nil
}

// DeleteResourceInfoByID removes a resource from the registry and from its
// owner's list. It returns the removed entry.
func (d *DB) DeleteResourceInfoByID(resourceID string) (*database.ResourceInfo, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()
	resource, err := deleteResource(txn, resourceID)
	if err != nil {
		return nil, err
	}
	if resource == nil {
		return nil, fmt.Errorf("%s: %w", resourceID, database.ErrResourceNotFound)
	}
	txn.Commit()
	d.trace("delete-"+string(resource.Kind), resourceID)
	return resource.DeepCopy(), nil
}

// DeleteResourceInfosByIDs removes every listed resource in one transaction.
// IDs that are not registered are skipped. It returns the removed entries.
func (d *DB) DeleteResourceInfosByIDs(resourceIDs ...string) ([]*database.ResourceInfo, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()
	var removed []*database.ResourceInfo
	for _, id := range resourceIDs {
		resource, err := deleteResource(txn, id)
		if err != nil {
			return nil, err
		}
		if resource != nil {
			removed = append(removed, resource.DeepCopy())
		}
	}
	txn.Commit()
	for _, resource := range removed {
		d.trace("delete-"+string(resource.Kind), resource.ID)
	}
	return removed, nil
}

// deleteResource drops the resource and its ID from the owner's list. It
// returns nil when the resource is not registered.
func deleteResource(txn *memdb.Txn, resourceID string) (*database.ResourceInfo, error) {
	raw, err := txn.First(tblResources, idxResourceID, resourceID)
	if err != nil {
		return nil, fmt.Errorf("find resource by id: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	resource := raw.(*database.ResourceInfo)
	if err := txn.Delete(tblResources, raw); err != nil {
		return nil, fmt.Errorf("delete resource: %w", err)
	}

	owner, err := txn.First(tblPeers, idxPeerID, resource.PeerID)
	if err != nil {
		return nil, fmt.Errorf("find peer by id: %w", err)
	}
	if owner != nil {
		peer := owner.(*database.PeerInfo).DeepCopy()
		peer.RemoveResource(resource.Kind, resourceID)
		if err := txn.Insert(tblPeers, peer); err != nil {
			return nil, fmt.Errorf("insert peer: %w", err)
		}
	}
	return resource, nil
}

// JoinRoom adds the peer to the room, creating the room when it does not exist
// yet, and resets the peer's name and presence. A peer is a member of at most
// one room: when it is still listed in another room it is removed from there
// first and that room is returned as the second value. With uniqueName set the
// join fails with ErrNameTaken when another member already uses the name.
func (d *DB) JoinRoom(
	roomID, peerID, name string,
	uniqueName bool,
) (*database.RoomInfo, *database.RoomInfo, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()
	raw, err := txn.First(tblPeers, idxPeerID, peerID)
	if err != nil {
		return nil, nil, fmt.Errorf("find peer by id: %w", err)
	}
	if raw == nil {
		return nil, nil, fmt.Errorf("%s: %w", peerID, database.ErrPeerNotFound)
	}
	peer := raw.(*database.PeerInfo).DeepCopy()

	var previous *database.RoomInfo
	if peer.HasRoom() && peer.RoomID != roomID {
		old, err := txn.First(tblRooms, idxRoomID, peer.RoomID)
		if err != nil {
			return nil, nil, fmt.Errorf("find room by id: %w", err)
		}
		if old != nil {
			previous = old.(*database.RoomInfo).DeepCopy()
			previous.RemoveMember(peerID)
			if err := txn.Insert(tblRooms, previous); err != nil {
				return nil, nil, fmt.Errorf("insert room: %w", err)
			}
		}
	}

	var room *database.RoomInfo
	existing, err := txn.First(tblRooms, idxRoomID, roomID)
	if err != nil {
		return nil, nil, fmt.Errorf("find room by id: %w", err)
	}
	if existing != nil {
		room = existing.(*database.RoomInfo).DeepCopy()
		if uniqueName {
			if err := checkName(txn, room, peerID, name); err != nil {
				return nil, nil, err
			}
		}
	} else {
		room = &database.RoomInfo{
			ID:        roomID,
			CreatedAt: time.Now(),
		}
	}
	room.AddMember(peerID)
	if err := txn.Insert(tblRooms, room); err != nil {
		return nil, nil, fmt.Errorf("insert room: %w", err)
	}

	peer.Name = name
	peer.AudioEnabled = true
	peer.VideoEnabled = true
	peer.RoomID = roomID
	if err := txn.Insert(tblPeers, peer); err != nil {
		return nil, nil, fmt.Errorf("insert peer: %w", err)
	}
	txn.Commit()
	d.trace("join-room", roomID)

	if previous != nil {
		return room.DeepCopy(), previous.DeepCopy(), nil
	}
	return room.DeepCopy(), nil, nil
}

func checkName(txn *memdb.Txn, room *database.RoomInfo, peerID, name string) error {
	for _, id := range room.Others(peerID) {
		raw, err := txn.First(tblPeers, idxPeerID, id)
		if err != nil {
			return fmt.Errorf("find peer by id: %w", err)
		}
		if raw != nil && raw.(*database.PeerInfo).Name == name {
			return fmt.Errorf("%s in %s: %w", name, room.ID, database.ErrNameTaken)
		}
	}
	return nil
}

// LeaveRoom removes the peer from the room and clears the peer's room
// reference. It reports whether the peer was a member. Leaving a room the peer
// is not in is not an error.
func (d *DB) LeaveRoom(roomID, peerID string) (*database.RoomInfo, bool, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()
	raw, err := txn.First(tblRooms, idxRoomID, roomID)
	if err != nil {
		return nil, false, fmt.Errorf("find room by id: %w", err)
	}
	if raw == nil {
		return nil, false, fmt.Errorf("%s: %w", roomID, database.ErrRoomNotFound)
	}
	room := raw.(*database.RoomInfo).DeepCopy()
	removed := room.RemoveMember(peerID)
	if removed {
		if err := txn.Insert(tblRooms, room); err != nil {
			return nil, false, fmt.Errorf("insert room: %w", err)
		}
	}

	if err := clearPeerRoom(txn, peerID, roomID); err != nil {
		return nil, false, err
	}
	txn.Commit()
	d.trace("leave-room", roomID)
	return room.DeepCopy(), removed, nil
}

// clearPeerRoom resets the room reference of a peer that points at roomID. A
// peer that is already gone is skipped.
func clearPeerRoom(txn *memdb.Txn, peerID, roomID string) error {
	raw, err := txn.First(tblPeers, idxPeerID, peerID)
	if err != nil {
		return fmt.Errorf("find peer by id: %w", err)
	}
	if raw == nil {
		return nil
	}
	peer := raw.(*database.PeerInfo)
	if peer.RoomID != roomID {
		return nil
	}
	updated := peer.DeepCopy()
	updated.RoomID = ""
	if err := txn.Insert(tblPeers, updated); err != nil {
		return fmt.Errorf("insert peer: %w", err)
	}
	return nil
}

// FindRoomInfoByID finds a room by its ID.
func (d *DB) FindRoomInfoByID(roomID string) (*database.RoomInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First(tblRooms, idxRoomID, roomID)
	if err != nil {
		return nil, fmt.Errorf("find room by id: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", roomID, database.ErrRoomNotFound)
	}
	return raw.(*database.RoomInfo).DeepCopy(), nil
}

// FindRoomInfosByMember returns every room listing the peer as a member.
func (d *DB) FindRoomInfosByMember(peerID string) ([]*database.RoomInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()
	iter, err := txn.Get(tblRooms, idxRoomMember, peerID)
	if err != nil {
		return nil, fmt.Errorf("fetch rooms by member: %w", err)
	}
	var rooms []*database.RoomInfo
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		rooms = append(rooms, raw.(*database.RoomInfo).DeepCopy())
	}
	return rooms, nil
}

// FindAllRoomInfos returns every room, including empty ones.
func (d *DB) FindAllRoomInfos() ([]*database.RoomInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()
	iter, err := txn.Get(tblRooms, idxRoomID)
	if err != nil {
		return nil, fmt.Errorf("fetch rooms: %w", err)
	}
	var rooms []*database.RoomInfo
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		rooms = append(rooms, raw.(*database.RoomInfo).DeepCopy())
	}
	return rooms, nil
}

// FindMemberInfos returns the peer sessions of the room's members in join
// order. The room and its members are read in a single transaction.
func (d *DB) FindMemberInfos(roomID string) ([]*database.PeerInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First(tblRooms, idxRoomID, roomID)
	if err != nil {
		return nil, fmt.Errorf("find room by id: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", roomID, database.ErrRoomNotFound)
	}
	room := raw.(*database.RoomInfo)
	members := make([]*database.PeerInfo, 0, len(room.Members))
	for _, id := range room.Members {
		peer, err := txn.First(tblPeers, idxPeerID, id)
		if err != nil {
			return nil, fmt.Errorf("find peer by id: %w", err)
		}
		if peer == nil {
			continue
		}
		members = append(members, peer.(*database.PeerInfo).DeepCopy())
	}
	return members, nil
}
