// Package scheduler rotates ownership of grid rows among the clients
// active in a play room. One row plays per loop; a game lasts one loop per
// row. Rows whose loop has started are frozen: only the future part of the
// rotation is ever rewritten when membership changes.
package scheduler

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"gridloop/internal/activity"
	"gridloop/internal/grid"
	"gridloop/internal/model"
	"gridloop/internal/mutation"

	"github.com/google/uuid"
)

const (
	Rows       = grid.Size
	LoopLength = 8 * time.Second
	GameLength = LoopLength * Rows
	// StartDelay leaves clients time to schedule the first loop precisely
	StartDelay = 1 * time.Second

	gameKey = "game"
)

// NextLoopStartTime returns t when it sits on a loop boundary, otherwise
// the next boundary
func NextLoopStartTime(t int64) int64 {
	loop := LoopLength.Milliseconds()
	if rem := t % loop; rem != 0 {
		return t + loop - rem
	}
	return t
}

// CurrentRow is the row playing at now. It is -1 before the game starts
// and false once the game has expired.
func CurrentRow(startTime, now int64) (int, bool) {
	elapsed := now - startTime
	if elapsed > GameLength.Milliseconds() {
		return 0, false
	}
	if elapsed < 0 {
		return -1, true
	}
	return int(elapsed / LoopLength.Milliseconds()), true
}

// Expired reports whether g has played every row by now
func Expired(g *model.Game, now int64) bool {
	return now-g.StartTime > GameLength.Milliseconds()
}

// GetGame loads the room's game, nil if there is none
func GetGame(ctx context.Context, tx mutation.ReadTransaction) (*model.Game, error) {
	var g model.Game
	ok, err := tx.Get(ctx, gameKey, &g)
	if err != nil || !ok {
		return nil, err
	}
	return &g, nil
}

func putGame(ctx context.Context, tx mutation.WriteTransaction, g *model.Game) error {
	return tx.Set(ctx, gameKey, g)
}

// Tile fills Rows entries round-robin over clients. With no clients every
// row is unowned.
func Tile(clients []string) []string {
	rows := make([]string, Rows)
	if len(clients) == 0 {
		return rows
	}
	for i := range rows {
		rows[i] = clients[i%len(clients)]
	}
	return rows
}

// StartGame creates a game unless a live one exists
func StartGame(ctx context.Context, tx mutation.WriteTransaction) error {
	if !tx.IsAuthoritative() {
		return nil
	}
	now := tx.Now().UnixMilli()
	existing, err := GetGame(ctx, tx)
	if err != nil {
		return err
	}
	if existing != nil && !Expired(existing, now) {
		return nil
	}

	active, err := activity.List(ctx, tx)
	if err != nil {
		return err
	}
	g := &model.Game{
		ID:             uuid.New().String(),
		StartTime:      NextLoopStartTime(now + StartDelay.Milliseconds()),
		RowAssignments: Tile(active),
	}
	log.Printf("Starting game %s in room %s with %d active clients", g.ID, tx.RoomID(), len(active))
	return putGame(ctx, tx, g)
}

// OnMembershipChange keeps the rotation in step with the active set. An
// empty set ends the game outright.
func OnMembershipChange(ctx context.Context, tx mutation.WriteTransaction, change activity.Change) error {
	if !tx.IsAuthoritative() {
		return nil
	}
	if len(change.Active) == 0 {
		log.Printf("Deleting game in room %s, no active clients", tx.RoomID())
		return tx.Del(ctx, gameKey)
	}
	if !change.Changed() {
		return nil
	}

	g, err := GetGame(ctx, tx)
	if err != nil || g == nil {
		return err
	}
	currentRow, ok := CurrentRow(g.StartTime, tx.Now().UnixMilli())
	if !ok || currentRow >= Rows-1 {
		return nil
	}

	g.RowAssignments = Rebalance(g.RowAssignments, currentRow, change)
	return putGame(ctx, tx, g)
}

// Mutators returns the scheduler's play room mutators
func Mutators() mutation.Defs {
	return mutation.Defs{
		"startGame": func(ctx context.Context, tx mutation.WriteTransaction, _ json.RawMessage) error {
			return StartGame(ctx, tx)
		},
	}
}

// Disconnect drops the caller from the active set and rebalances. It must
// not be wrapped by the activity middleware.
func Disconnect(ctx context.Context, tx mutation.WriteTransaction, _ json.RawMessage) error {
	if !tx.IsAuthoritative() {
		return nil
	}
	change, err := activity.MarkInactive(ctx, tx)
	if err != nil {
		return err
	}
	return OnMembershipChange(ctx, tx, change)
}
