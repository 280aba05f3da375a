package coordinator

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ashwaniclecvdoc/vc-backend-scale/database"
	"github.com/ashwaniclecvdoc/vc-backend-scale/types/client/response"
)

// CheckName reports whether a member of the room already uses the name.
// Names compare case-sensitively. An unknown room has no taken names.
func (c *Coordinator) CheckName(roomID, name string) (bool, error) {
	members, err := c.database.FindMemberInfos(roomID)
	if err != nil {
		if errors.Is(err, database.ErrRoomNotFound) {
			return false, nil
		}
		return false, databaseError("check name", err)
	}
	for _, member := range members {
		if member.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// Join adds the peer to the room with both presence flags on and sends the
// full member list to every member, the joiner included.
func (c *Coordinator) Join(peerID, roomID, name string) ([]response.Member, error) {
	room, previous, err := c.database.JoinRoom(roomID, peerID, name, c.config.EnforceUniqueNames)
	if err != nil {
		return nil, databaseError("join", err)
	}
	if previous != nil {
		c.notifyLeft(previous, peerID)
	}

	members, err := c.members(room.ID)
	if err != nil {
		return nil, err
	}
	payload := response.MembersPayload{RoomID: room.ID, Members: members}
	for _, member := range room.Members {
		c.notify(member, response.Members, payload)
	}
	log.Info().Str("module", "coordinator").Str("peer_id", peerID).Str("room_id", roomID).Msg("joined room")
	return members, nil
}

// Leave removes the peer from the room and tells the remaining members.
// Leaving a room the peer is not in does nothing.
func (c *Coordinator) Leave(peerID, roomID string) error {
	room, removed, err := c.database.LeaveRoom(roomID, peerID)
	if err != nil {
		if errors.Is(err, database.ErrRoomNotFound) {
			return nil
		}
		return databaseError("leave", err)
	}
	if removed {
		c.notifyLeft(room, peerID)
		log.Info().Str("module", "coordinator").Str("peer_id", peerID).Str("room_id", roomID).Msg("left room")
	}
	return nil
}

func (c *Coordinator) notifyLeft(room *database.RoomInfo, peerID string) {
	payload := response.UserLeftPayload{RoomID: room.ID, PeerID: peerID}
	for _, member := range room.Others(peerID) {
		c.notify(member, response.UserLeft, payload)
	}
}

// Toggle flips the audio or video flag of the peer and tells the other room
// members. It returns the new value of the flag.
func (c *Coordinator) Toggle(peerID, roomID string, target database.Presence) (bool, error) {
	if err := target.Validate(); err != nil {
		return false, fmt.Errorf("toggle %q: %w: %w", target, ErrInvalidRequest, err)
	}
	peer, err := c.database.TogglePeerPresence(peerID, target)
	if err != nil {
		return false, databaseError("toggle", err)
	}
	enabled := peer.Enabled(target)

	room, err := c.database.FindRoomInfoByID(roomID)
	if err != nil {
		if errors.Is(err, database.ErrRoomNotFound) {
			return enabled, nil
		}
		return enabled, databaseError("toggle", err)
	}
	if !room.HasMember(peerID) {
		return enabled, nil
	}
	payload := response.PresencePayload{RoomID: roomID, PeerID: peerID, Target: string(target), Enabled: enabled}
	for _, member := range room.Others(peerID) {
		c.notify(member, response.Presence, payload)
	}
	return enabled, nil
}

// RelayCall forwards a call offer to the target with the caller's presence.
func (c *Coordinator) RelayCall(fromID, targetID string, signal json.RawMessage) error {
	from, err := c.database.FindPeerInfoByID(fromID)
	if err != nil {
		return databaseError("call offer", err)
	}
	if _, err := c.database.FindPeerInfoByID(targetID); err != nil {
		return databaseError("call offer", err)
	}
	c.notify(targetID, response.IncomingCall, response.IncomingCallPayload{
		FromID:   fromID,
		Signal:   signal,
		Presence: toMember(from),
	})
	return nil
}

// RelayAccept forwards a call answer to the caller.
func (c *Coordinator) RelayAccept(answererID, targetID string, signal json.RawMessage) error {
	if _, err := c.database.FindPeerInfoByID(targetID); err != nil {
		return databaseError("call accept", err)
	}
	c.notify(targetID, response.CallAccepted, response.CallAcceptedPayload{
		AnswererID: answererID,
		Signal:     signal,
	})
	return nil
}

// BroadcastMessage delivers a chat message to every member of the room,
// the sender included.
func (c *Coordinator) BroadcastMessage(roomID string, message, sender json.RawMessage) error {
	room, err := c.database.FindRoomInfoByID(roomID)
	if err != nil {
		if errors.Is(err, database.ErrRoomNotFound) {
			return nil
		}
		return databaseError("message", err)
	}
	payload := response.MessagePayload{RoomID: roomID, Message: message, Sender: sender}
	for _, member := range room.Members {
		c.notify(member, response.Message, payload)
	}
	return nil
}

func (c *Coordinator) members(roomID string) ([]response.Member, error) {
	peers, err := c.database.FindMemberInfos(roomID)
	if err != nil {
		return nil, databaseError("members", err)
	}
	members := make([]response.Member, 0, len(peers))
	for _, peer := range peers {
		members = append(members, toMember(peer))
	}
	return members, nil
}

func toMember(peer *database.PeerInfo) response.Member {
	return response.Member{
		PeerID: peer.ID,
		Name:   peer.Name,
		Audio:  peer.AudioEnabled,
		Video:  peer.VideoEnabled,
	}
}
