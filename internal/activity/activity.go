// Package activity tracks which clients recently interacted with a play
// room: who is playing right now, not who is still connected.
package activity

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"gridloop/internal/model"
	"gridloop/internal/mutation"
)

const activeClientsKey = "recentActiveClients"

// RecentActiveThreshold is how long a client stays active without mutating
const RecentActiveThreshold = 3 * time.Second

// Change is the outcome of one tracker update
type Change struct {
	// Added is the caller when it just became active, empty otherwise
	Added string
	// Removed lists clients that left the set, sorted
	Removed []string
	// Active is the set after the update, sorted
	Active []string
}

// Changed reports whether membership moved
func (c Change) Changed() bool {
	return c.Added != "" || len(c.Removed) > 0
}

// Load returns the stored active set
func Load(ctx context.Context, tx mutation.ReadTransaction) (model.ActiveClients, error) {
	clients := model.ActiveClients{}
	if _, err := tx.Get(ctx, activeClientsKey, &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

// List returns the active client IDs, sorted
func List(ctx context.Context, tx mutation.ReadTransaction) ([]string, error) {
	clients, err := Load(ctx, tx)
	if err != nil {
		return nil, err
	}
	return sortedIDs(clients), nil
}

func sortedIDs(clients model.ActiveClients) []string {
	ids := make([]string, 0, len(clients))
	for id := range clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Update refreshes the caller's activity, or drops it when disconnecting,
// and sweeps entries older than RecentActiveThreshold. Speculative runs
// report no change.
func Update(ctx context.Context, tx mutation.WriteTransaction, disconnect bool) (Change, error) {
	if !tx.IsAuthoritative() {
		return Change{}, nil
	}
	clients, err := Load(ctx, tx)
	if err != nil {
		return Change{}, err
	}
	now := tx.Now().UnixMilli()
	self := tx.ClientID()

	var change Change
	if !disconnect {
		if _, ok := clients[self]; !ok {
			change.Added = self
		}
		clients[self] = model.ActivityEntry{LastActivityTimestamp: now}
	}

	threshold := RecentActiveThreshold.Milliseconds()
	for id, entry := range clients {
		if (disconnect && id == self) || now-entry.LastActivityTimestamp > threshold {
			delete(clients, id)
			change.Removed = append(change.Removed, id)
		}
	}
	sort.Strings(change.Removed)
	change.Active = sortedIDs(clients)

	if err := tx.Set(ctx, activeClientsKey, clients); err != nil {
		return Change{}, err
	}
	return change, nil
}

// MarkActive records that the caller just mutated the room
func MarkActive(ctx context.Context, tx mutation.WriteTransaction) (Change, error) {
	return Update(ctx, tx, false)
}

// MarkInactive removes the caller after an explicit disconnect
func MarkInactive(ctx context.Context, tx mutation.WriteTransaction) (Change, error) {
	return Update(ctx, tx, true)
}

// ChangeHandler reacts to membership changes inside the same transaction
type ChangeHandler func(ctx context.Context, tx mutation.WriteTransaction, change Change) error

// Middleware marks the caller active before every wrapped mutator and
// hands the resulting change to onChange
func Middleware(onChange ChangeHandler) mutation.Middleware {
	return func(name string, next mutation.Mutator) mutation.Mutator {
		return func(ctx context.Context, tx mutation.WriteTransaction, args json.RawMessage) error {
			if tx.IsAuthoritative() {
				change, err := MarkActive(ctx, tx)
				if err != nil {
					return err
				}
				if onChange != nil {
					if err := onChange(ctx, tx, change); err != nil {
						return err
					}
				}
			}
			return next(ctx, tx, args)
		}
	}
}
