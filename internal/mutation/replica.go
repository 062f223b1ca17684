package mutation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Replica is a client's local copy of one room. Mutations apply to it
// immediately and queue for the server; Rebase swaps in the authoritative
// state and replays whatever the server has not confirmed yet.
type Replica struct {
	roomID   string
	clientID string
	registry *Registry
	store    *MemoryStore
	clock    Clock

	mu      sync.Mutex
	pending []Mutation
	nextID  int64
}

// NewReplica creates an empty replica of roomID for clientID
func NewReplica(roomID, clientID string, registry *Registry, clock Clock) *Replica {
	if clock == nil {
		clock = time.Now
	}
	return &Replica{
		roomID:   roomID,
		clientID: clientID,
		registry: registry,
		store:    NewMemoryStore(),
		clock:    clock,
		nextID:   1,
	}
}

// Mutate applies name speculatively and queues it for push
func (r *Replica) Mutate(ctx context.Context, name string, args interface{}) error {
	mutator, ok := r.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMutator, name)
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode args: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m := Mutation{ID: r.nextID, Name: name, Args: raw}
	r.nextID++
	r.pending = append(r.pending, m)
	return r.applyLocked(ctx, mutator, m)
}

func (r *Replica) applyLocked(ctx context.Context, mutator Mutator, m Mutation) error {
	tx := Begin(r.store, r.roomID, r.clientID, LocationClient, r.clock())
	if err := mutator(ctx, tx, m.Args); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Pending returns the mutations not yet confirmed by the server
func (r *Replica) Pending() []Mutation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Mutation(nil), r.pending...)
}

// Rebase replaces local state with the server's and replays unconfirmed
// mutations on top of it
func (r *Replica) Rebase(ctx context.Context, pull *PullResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.pending[:0]
	for _, m := range r.pending {
		if m.ID > pull.LastMutationID {
			kept = append(kept, m)
		}
	}
	r.pending = kept
	if pull.LastMutationID >= r.nextID {
		r.nextID = pull.LastMutationID + 1
	}

	r.store.Reset(r.roomID, pull.State)
	for _, m := range r.pending {
		mutator, ok := r.registry.Lookup(m.Name)
		if !ok {
			continue
		}
		if err := r.applyLocked(ctx, mutator, m); err != nil {
			return fmt.Errorf("replay %s: %w", m.Name, err)
		}
	}
	return nil
}

// Get reads a key from the local replica
func (r *Replica) Get(ctx context.Context, key string, v interface{}) (bool, error) {
	tx := Begin(r.store, r.roomID, r.clientID, LocationClient, r.clock())
	return tx.Get(ctx, key, v)
}

// ClientID returns the replica owner's client ID
func (r *Replica) ClientID() string {
	return r.clientID
}
