package model

// Game is the row rotation of a play room. RowAssignments always has one
// entry per grid row; an empty entry means nobody owns the row.
type Game struct {
	ID             string   `json:"id" bson:"id"`
	StartTime      int64    `json:"startTime" bson:"startTime"` // unix ms, loop aligned
	RowAssignments []string `json:"rowAssignments" bson:"rowAssignments"`
}

// ActivityEntry records the last time a client mutated the room
type ActivityEntry struct {
	LastActivityTimestamp int64 `json:"lastActivityTimestamp" bson:"lastActivityTimestamp"`
}

// ActiveClients is the recently-active set keyed by client ID
type ActiveClients map[string]ActivityEntry
