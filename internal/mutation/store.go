package mutation

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
)

// Write is one key change inside a commit. A nil Value deletes the key.
type Write struct {
	Key   string
	Value []byte
}

// Store is durable keyed storage scoped per room
type Store interface {
	Get(ctx context.Context, roomID, key string) ([]byte, bool, error)
	Scan(ctx context.Context, roomID, prefix string) (map[string][]byte, error)
	// Commit applies all writes atomically
	Commit(ctx context.Context, roomID string, writes []Write) error
}

// MemoryStore keeps room keyspaces in process memory
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string]map[string][]byte
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms: make(map[string]map[string][]byte),
	}
}

func (s *MemoryStore) Get(ctx context.Context, roomID, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.rooms[roomID][key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *MemoryStore) Scan(ctx context.Context, roomID, prefix string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]byte)
	for k, v := range s.rooms[roomID] {
		if strings.HasPrefix(k, prefix) {
			out[k] = append([]byte(nil), v...)
		}
	}
	return out, nil
}

func (s *MemoryStore) Commit(ctx context.Context, roomID string, writes []Write) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room := s.rooms[roomID]
	if room == nil {
		room = make(map[string][]byte)
		s.rooms[roomID] = room
	}
	for _, w := range writes {
		if w.Value == nil {
			delete(room, w.Key)
			continue
		}
		room[w.Key] = append([]byte(nil), w.Value...)
	}
	return nil
}

// Reset replaces a room's keyspace with the given state
func (s *MemoryStore) Reset(roomID string, state map[string]json.RawMessage) {
	room := make(map[string][]byte, len(state))
	for k, v := range state {
		room[k] = append([]byte(nil), v...)
	}
	s.mu.Lock()
	s.rooms[roomID] = room
	s.mu.Unlock()
}
