package coordinator

import (
	"github.com/rs/zerolog/log"

	"github.com/ashwaniclecvdoc/vc-backend-scale/database"
)

// Disconnect tears down everything the peer owns: producers, consumers and
// transports, then its room memberships, then the session itself. Each step is
// best-effort; a failed close is logged and the teardown goes on. Calling it
// for an unknown peer does nothing.
func (c *Coordinator) Disconnect(peerID string) {
	if _, err := c.database.FindPeerInfoByID(peerID); err != nil {
		if !database.IsNotFound(err) {
			log.Warn().Str("module", "coordinator").Str("peer_id", peerID).Err(err).Msg("failed to find peer")
		}
		return
	}

	owned, err := c.database.FindResourceInfosByPeerID(peerID)
	if err != nil {
		log.Warn().Str("module", "coordinator").Str("peer_id", peerID).Err(err).Msg("failed to list resources")
	}
	ids := make(map[database.ResourceKind][]string)
	for _, resource := range owned {
		ids[resource.Kind] = append(ids[resource.Kind], resource.ID)
	}
	c.release(peerID, database.Producer, ids[database.Producer])
	c.release(peerID, database.Consumer, ids[database.Consumer])
	c.release(peerID, database.Transport, ids[database.Transport])
	c.leaveAll(peerID)

	if err := c.database.DeletePeerInfoByID(peerID); err != nil && !database.IsNotFound(err) {
		log.Warn().Str("module", "coordinator").Str("peer_id", peerID).Err(err).Msg("failed to delete peer")
	}
	log.Info().Str("module", "coordinator").Str("peer_id", peerID).Msg("peer disconnected")
}

// release closes each resource in the engine and drops it from the registry.
func (c *Coordinator) release(peerID string, kind database.ResourceKind, ids []string) {
	for _, id := range ids {
		if err := c.close(kind, id); err != nil {
			log.Warn().Str("module", "coordinator").Str("peer_id", peerID).Str("kind", string(kind)).
				Str("id", id).Err(err).Msg("failed to close")
		}
		if _, err := c.database.DeleteResourceInfoByID(id); err != nil && !database.IsNotFound(err) {
			log.Warn().Str("module", "coordinator").Str("peer_id", peerID).Str("kind", string(kind)).
				Str("id", id).Err(err).Msg("failed to unregister")
		}
	}
}

// leaveAll leaves every room listing the peer, not only the one the session
// points at.
func (c *Coordinator) leaveAll(peerID string) {
	rooms, err := c.database.FindRoomInfosByMember(peerID)
	if err != nil {
		log.Warn().Str("module", "coordinator").Str("peer_id", peerID).Err(err).Msg("failed to list rooms")
		return
	}
	for _, room := range rooms {
		if err := c.Leave(peerID, room.ID); err != nil {
			log.Warn().Str("module", "coordinator").Str("peer_id", peerID).Str("room_id", room.ID).Err(err).Msg("failed to leave room")
		}
	}
}
