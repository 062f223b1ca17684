package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub manages WebSocket connections for rooms
type Hub struct {
	// roomID -> set of connections; one client may hold several tabs
	conns map[string]map[*Connection]bool

	mu sync.RWMutex

	// Channels for coordination
	register   chan *Connection
	unregister chan *unregisterRequest
	broadcast  chan *BroadcastMessage
}

// Connection represents a WebSocket connection
type Connection struct {
	RoomID   string
	ClientID string
	Send     chan []byte
}

// unregisterRequest carries back how many connections the client still
// holds in the room once conn is gone
type unregisterRequest struct {
	conn      *Connection
	remaining chan int
}

// BroadcastMessage is a message to broadcast
type BroadcastMessage struct {
	RoomID  string
	Message *Message
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		conns:      make(map[string]map[*Connection]bool),
		register:   make(chan *Connection),
		unregister: make(chan *unregisterRequest),
		broadcast:  make(chan *BroadcastMessage, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.conns[conn.RoomID] == nil {
				h.conns[conn.RoomID] = make(map[*Connection]bool)
			}
			h.conns[conn.RoomID][conn] = true
			h.mu.Unlock()
			log.Printf("Client %s connected to room %s", conn.ClientID, conn.RoomID)

		case req := <-h.unregister:
			conn := req.conn
			h.mu.Lock()
			if room, ok := h.conns[conn.RoomID]; ok && room[conn] {
				delete(room, conn)
				close(conn.Send)
				if len(room) == 0 {
					delete(h.conns, conn.RoomID)
				}
				log.Printf("Client %s disconnected from room %s", conn.ClientID, conn.RoomID)
			}
			remaining := h.clientConnections(conn.RoomID, conn.ClientID)
			h.mu.Unlock()
			req.remaining <- remaining

		case msg := <-h.broadcast:
			h.mu.RLock()
			data, _ := json.Marshal(msg.Message)
			for conn := range h.conns[msg.RoomID] {
				select {
				case conn.Send <- data:
				default:
					// Drop message if buffer full
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection and returns how many connections the
// same client still has open in that room
func (h *Hub) Unregister(conn *Connection) int {
	req := &unregisterRequest{conn: conn, remaining: make(chan int, 1)}
	h.unregister <- req
	return <-req.remaining
}

// ConnectionCount returns the number of open connections in a room
func (h *Hub) ConnectionCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[roomID])
}

// ClientConnectionCount returns the number of connections one client has open in a room
func (h *Hub) ClientConnectionCount(roomID, clientID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clientConnections(roomID, clientID)
}

// callers hold h.mu
func (h *Hub) clientConnections(roomID, clientID string) int {
	n := 0
	for conn := range h.conns[roomID] {
		if conn.ClientID == clientID {
			n++
		}
	}
	return n
}

// BroadcastToRoom sends a message to every connection in a room (implements service.Broadcaster)
func (h *Hub) BroadcastToRoom(roomID string, msgType string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		RoomID: roomID,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
}
