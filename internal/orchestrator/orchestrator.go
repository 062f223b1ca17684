// Package orchestrator seats clients into capacity-bounded rooms.
//
// All records live in the orchestrator room's keyspace and are only touched
// by authoritative transactions; speculative runs are no-ops so clients
// never guess a room assignment.
package orchestrator

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"strings"
	"time"

	"gridloop/internal/colors"
	"gridloop/internal/model"
	"gridloop/internal/mutation"
	"gridloop/internal/rooms"
)

const (
	roomPrefix       = "room/"
	assignmentPrefix = "clientToRoom/"
	gcMetaKey        = "clientToRoomMeta"
)

// Config holds capacities and assignment TTLs
type Config struct {
	PlayCapacity  int
	ShareCapacity int
	// GCInterval is the minimum wall time between sweeps
	GCInterval time.Duration
	// GCThreshold is how long an assignment survives without a heartbeat
	GCThreshold time.Duration
}

// DefaultConfig returns the production settings
func DefaultConfig() Config {
	return Config{
		PlayCapacity:  8,
		ShareCapacity: 32,
		GCInterval:    10 * time.Second,
		GCThreshold:   60 * time.Second,
	}
}

// Orchestrator implements the heartbeat and unload mutators
type Orchestrator struct {
	cfg Config
}

// New creates an orchestrator
func New(cfg Config) *Orchestrator {
	return &Orchestrator{cfg: cfg}
}

// Mutators returns the orchestrator room's mutator set
func (o *Orchestrator) Mutators() mutation.Defs {
	return mutation.Defs{
		"heartbeat": func(ctx context.Context, tx mutation.WriteTransaction, raw json.RawMessage) error {
			var args model.HeartbeatArgs
			if err := mutation.DecodeArgs(raw, &args); err != nil {
				return err
			}
			return o.Heartbeat(ctx, tx, args)
		},
		"unload": func(ctx context.Context, tx mutation.WriteTransaction, _ json.RawMessage) error {
			return o.Unload(ctx, tx)
		},
	}
}

// Capacity is the maximum occupancy of a room type
func (o *Orchestrator) Capacity(t model.RoomType) int {
	switch t {
	case model.RoomTypePlay:
		return o.cfg.PlayCapacity
	case model.RoomTypeShare:
		return o.cfg.ShareCapacity
	}
	return 0
}

func roomKey(roomID string) string         { return roomPrefix + roomID }
func assignmentKey(clientID string) string { return assignmentPrefix + clientID }

// GetRoom loads a room record, nil if absent
func GetRoom(ctx context.Context, tx mutation.ReadTransaction, roomID string) (*model.Room, error) {
	var room model.Room
	ok, err := tx.Get(ctx, roomKey(roomID), &room)
	if err != nil || !ok {
		return nil, err
	}
	return &room, nil
}

// GetAssignment loads a client's room assignment, nil if absent
func GetAssignment(ctx context.Context, tx mutation.ReadTransaction, clientID string) (*model.ClientRoomAssignment, error) {
	var a model.ClientRoomAssignment
	ok, err := tx.Get(ctx, assignmentKey(clientID), &a)
	if err != nil || !ok {
		return nil, err
	}
	return &a, nil
}

// ListAssignments returns every assignment ordered by client ID
func ListAssignments(ctx context.Context, tx mutation.ReadTransaction) ([]*model.ClientRoomAssignment, error) {
	raw, err := tx.Scan(ctx, assignmentPrefix)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*model.ClientRoomAssignment, 0, len(keys))
	for _, k := range keys {
		var a model.ClientRoomAssignment
		if err := json.Unmarshal(raw[k], &a); err != nil {
			log.Printf("Dropping undecodable assignment %s: %v", strings.TrimPrefix(k, assignmentPrefix), err)
			continue
		}
		out = append(out, &a)
	}
	return out, nil
}

// Heartbeat keeps the caller seated. A seated client only refreshes its
// liveness and is never moved; an unseated client takes the preferred room
// if it has space, otherwise the first candidate room with space.
func (o *Orchestrator) Heartbeat(ctx context.Context, tx mutation.WriteTransaction, args model.HeartbeatArgs) error {
	if !tx.IsAuthoritative() {
		return nil
	}
	now := tx.Now().UnixMilli()

	if err := o.maybeCollect(ctx, tx, now); err != nil {
		return err
	}

	existing, err := GetAssignment(ctx, tx, tx.ClientID())
	if err != nil {
		return err
	}
	if existing != nil {
		existing.AliveTimestamp = now
		return tx.Set(ctx, assignmentKey(existing.ID), existing)
	}

	capacity := o.Capacity(args.Type)
	if capacity <= 0 {
		log.Printf("Ignoring heartbeat from %s with room type %q", tx.ClientID(), args.Type)
		return nil
	}

	if args.PreferredRoomID != "" {
		if t, ok := rooms.TypeForRoomID(args.PreferredRoomID); ok && t == args.Type {
			seated, err := o.trySeat(ctx, tx, args.PreferredRoomID, capacity, now)
			if err != nil || seated {
				return err
			}
		}
	}

	scope := ""
	if args.Type == model.RoomTypeShare {
		scope = rooms.ScopeKey(args.EncodedCells)
	}
	// capacity is finite but the index space is not, so this terminates
	for index := 0; ; index++ {
		roomID := rooms.CandidateRoomID(args.Type, scope, index)
		seated, err := o.trySeat(ctx, tx, roomID, capacity, now)
		if err != nil || seated {
			return err
		}
	}
}

func (o *Orchestrator) trySeat(ctx context.Context, tx mutation.WriteTransaction, roomID string, capacity int, now int64) (bool, error) {
	room, err := GetRoom(ctx, tx, roomID)
	if err != nil {
		return false, err
	}
	if room == nil {
		room = &model.Room{ID: roomID}
	}
	if room.Occupancy() >= capacity {
		return false, nil
	}

	color := colors.Allocate(room.Slots)
	room.Slots = append(room.Slots, color)
	if err := tx.Set(ctx, roomKey(roomID), room); err != nil {
		return false, err
	}
	assignment := &model.ClientRoomAssignment{
		ID:             tx.ClientID(),
		RoomID:         roomID,
		AliveTimestamp: now,
		Color:          color,
	}
	if err := tx.Set(ctx, assignmentKey(assignment.ID), assignment); err != nil {
		return false, err
	}
	log.Printf("Assigned client %s to room %s with color %s", assignment.ID, roomID, color)
	return true, nil
}

// Unload releases the caller's seat
func (o *Orchestrator) Unload(ctx context.Context, tx mutation.WriteTransaction) error {
	if !tx.IsAuthoritative() {
		return nil
	}
	a, err := GetAssignment(ctx, tx, tx.ClientID())
	if err != nil || a == nil {
		return err
	}
	if err := releaseSlots(ctx, tx, a.RoomID, []string{a.Color}); err != nil {
		return err
	}
	return tx.Del(ctx, assignmentKey(a.ID))
}

func releaseSlots(ctx context.Context, tx mutation.WriteTransaction, roomID string, released []string) error {
	room, err := GetRoom(ctx, tx, roomID)
	if err != nil || room == nil {
		return err
	}
	for _, c := range released {
		room.Slots = colors.Release(room.Slots, c)
	}
	return tx.Set(ctx, roomKey(roomID), room)
}
