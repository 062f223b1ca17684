package service

import (
	"context"
	"log"

	"gridloop/internal/model"
	"gridloop/internal/mutation"
	"gridloop/internal/orchestrator"
	"gridloop/internal/rooms"
)

// MsgPoke tells subscribers that a room's authoritative state moved
const MsgPoke = "poke"

// RoomService runs client pushes and pulls against the authoritative store
type RoomService struct {
	executor    *mutation.Executor
	registries  Registries
	broadcaster Broadcaster
}

// NewRoomService creates a new room service
func NewRoomService(store mutation.Store, registries Registries, opts ...mutation.ExecutorOption) *RoomService {
	s := &RoomService{registries: registries}
	opts = append(opts, mutation.WithPoker(s))
	s.executor = mutation.NewExecutor(store, registries.Resolve, opts...)
	return s
}

// SetBroadcaster sets the broadcaster for poke notifications
func (s *RoomService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Poke implements mutation.Poker
func (s *RoomService) Poke(roomID string) {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToRoom(roomID, MsgPoke, map[string]string{"roomID": roomID})
	}
}

// KnownRoom reports whether roomID names a room this server hosts
func (s *RoomService) KnownRoom(roomID string) bool {
	_, ok := s.registries.Resolve(roomID)
	return ok
}

// Push applies a client's mutations authoritatively
func (s *RoomService) Push(ctx context.Context, roomID, clientID string, mutations []mutation.Mutation) (*mutation.PushResult, error) {
	res, err := s.executor.Push(ctx, roomID, clientID, mutations)
	if err != nil {
		log.Printf("Push from %s to room %s failed: %v", clientID, roomID, err)
		return res, err
	}
	return res, nil
}

// Pull returns the room's authoritative state for a client
func (s *RoomService) Pull(ctx context.Context, roomID, clientID string) (*mutation.PullResponse, error) {
	return s.executor.Pull(ctx, roomID, clientID)
}

// Disconnect drops a client from a play room's active set once its
// connection closes
func (s *RoomService) Disconnect(ctx context.Context, roomID, clientID string) error {
	if t, ok := rooms.TypeForRoomID(roomID); !ok || t != model.RoomTypePlay {
		return nil
	}
	return s.executor.Run(ctx, roomID, clientID, "disconnect", nil)
}

// GetAssignment returns a client's room assignment within an orchestrator scope
func (s *RoomService) GetAssignment(ctx context.Context, scope, clientID string) (*model.ClientRoomAssignment, error) {
	var a *model.ClientRoomAssignment
	err := s.executor.Read(ctx, rooms.OrchestratorRoomID(scope), clientID, func(tx mutation.ReadTransaction) error {
		var err error
		a, err = orchestrator.GetAssignment(ctx, tx, clientID)
		return err
	})
	return a, err
}
