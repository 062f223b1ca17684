package model

// RoomType is the kind of collaboration a room hosts
type RoomType string

const (
	RoomTypeOrchestrator RoomType = "orch"
	RoomTypePlay         RoomType = "play"
	RoomTypeShare        RoomType = "share"
)

// Room is one capacity-bounded collaboration unit. Occupancy is the number
// of allocated colour slots; a colour may repeat once the palette runs out.
type Room struct {
	ID    string   `json:"id" bson:"id"`
	Slots []string `json:"slots" bson:"slots"`
}

// Occupancy is the number of clients seated in the room
func (r *Room) Occupancy() int {
	return len(r.Slots)
}

// ClientRoomAssignment seats one client in one room
type ClientRoomAssignment struct {
	ID             string `json:"id" bson:"id"` // client ID
	RoomID         string `json:"roomID" bson:"roomID"`
	AliveTimestamp int64  `json:"aliveTimestamp" bson:"aliveTimestamp"` // unix ms
	Color          string `json:"color" bson:"color"`
}

// GCMeta rate-limits assignment sweeps
type GCMeta struct {
	LastGCTimestamp int64 `json:"lastGCTimestamp" bson:"lastGCTimestamp"`
}

// HeartbeatArgs are the arguments of the heartbeat mutator
type HeartbeatArgs struct {
	Type            RoomType `json:"type"`
	PreferredRoomID string   `json:"preferredRoomID,omitempty"`
	// EncodedCells scopes share rooms to the shared grid content
	EncodedCells string `json:"encodedCells,omitempty"`
}
