package model

// Client is a participant's record inside a play or share room
type Client struct {
	ID    string `json:"id" bson:"id"`
	Color string `json:"color" bson:"color"`
}

// Cell is an enabled grid cell painted with its owner's colour
type Cell struct {
	ID    string `json:"id" bson:"id"`
	Color string `json:"color" bson:"color"`
}
