package memory

import "github.com/hashicorp/go-memdb"

const (
	tblPeers     = "peers"
	tblResources = "resources"
	tblRooms     = "rooms"
)

const (
	idxPeerID       = "id"
	idxResourceID   = "id"
	idxResourcePeer = "peer_id"
	idxResourceKind = "kind"
	idxRoomID       = "id"
	idxRoomMember   = "member"
)

// schema is the schema of the memory database.
var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tblPeers: {
			Name: tblPeers,
			Indexes: map[string]*memdb.IndexSchema{
				idxPeerID: {
					Name:    idxPeerID,
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
			},
		},
		tblResources: {
			Name: tblResources,
			Indexes: map[string]*memdb.IndexSchema{
				idxResourceID: {
					Name:    idxResourceID,
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				idxResourcePeer: {
					Name:    idxResourcePeer,
					Unique:  false,
					Indexer: &memdb.StringFieldIndex{Field: "PeerID"},
				},
				idxResourceKind: {
					Name:    idxResourceKind,
					Unique:  false,
					Indexer: &memdb.StringFieldIndex{Field: "Kind"},
				},
			},
		},
		tblRooms: {
			Name: tblRooms,
			Indexes: map[string]*memdb.IndexSchema{
				idxRoomID: {
					Name:    idxRoomID,
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				idxRoomMember: {
					Name:         idxRoomMember,
					Unique:       false,
					AllowMissing: true,
					Indexer:      &memdb.StringSliceFieldIndex{Field: "Members"},
				},
			},
		},
	},
}
