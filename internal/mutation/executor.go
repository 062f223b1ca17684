package mutation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

const lastMutationIDPrefix = "lmid/"

// Clock returns the current wall time
type Clock func() time.Time

// Mutation is one pushed call: a per-client sequence ID, a mutator name and its args
type Mutation struct {
	ID   int64           `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// PushResult reports how a push was applied
type PushResult struct {
	LastMutationID int64 `json:"lastMutationID"`
	Applied        int   `json:"applied"`
	Skipped        int   `json:"skipped"`
}

// PullResponse is the authoritative view of a room for one client
type PullResponse struct {
	LastMutationID int64                      `json:"lastMutationID"`
	State          map[string]json.RawMessage `json:"state"`
}

// Resolver picks the registry serving a room
type Resolver func(roomID string) (*Registry, bool)

// Poker is told when a room's authoritative state changed
type Poker interface {
	Poke(roomID string)
}

// Executor runs mutations authoritatively. Transactions for one room run
// one at a time; different rooms never share a lock.
type Executor struct {
	store   Store
	resolve Resolver
	clock   Clock
	poker   Poker

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// ExecutorOption configures an Executor
type ExecutorOption func(*Executor)

// WithClock overrides the wall clock
func WithClock(clock Clock) ExecutorOption {
	return func(e *Executor) { e.clock = clock }
}

// WithPoker registers a commit listener
func WithPoker(p Poker) ExecutorOption {
	return func(e *Executor) { e.poker = p }
}

// NewExecutor creates an authoritative executor over store
func NewExecutor(store Store, resolve Resolver, opts ...ExecutorOption) *Executor {
	e := &Executor{
		store:   store,
		resolve: resolve,
		clock:   time.Now,
		locks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) roomLock(roomID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[roomID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[roomID] = l
	}
	return l
}

func lastMutationIDKey(clientID string) string {
	return lastMutationIDPrefix + clientID
}

// Push replays a client's mutations in order. Mutations at or below the
// client's last applied ID are skipped so retransmits stay idempotent.
func (e *Executor) Push(ctx context.Context, roomID, clientID string, mutations []Mutation) (*PushResult, error) {
	registry, ok := e.resolve(roomID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRoom, roomID)
	}

	lock := e.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	res := &PushResult{}
	if _, err := e.readLastMutationID(ctx, roomID, clientID, &res.LastMutationID); err != nil {
		return nil, err
	}

	for _, m := range mutations {
		if m.ID <= res.LastMutationID {
			res.Skipped++
			continue
		}
		if err := e.apply(ctx, registry, roomID, clientID, m); err != nil {
			if res.Applied > 0 && e.poker != nil {
				e.poker.Poke(roomID)
			}
			return res, err
		}
		res.LastMutationID = m.ID
		res.Applied++
	}

	if res.Applied > 0 && e.poker != nil {
		e.poker.Poke(roomID)
	}
	return res, nil
}

func (e *Executor) apply(ctx context.Context, registry *Registry, roomID, clientID string, m Mutation) error {
	tx := Begin(e.store, roomID, clientID, LocationServer, e.clock())

	mutator, ok := registry.Lookup(m.Name)
	if !ok {
		log.Printf("Skipping unknown mutator %q from client %s in room %s", m.Name, clientID, roomID)
	} else if err := mutator(ctx, tx, m.Args); err != nil {
		if !errors.Is(err, ErrInvalidArgs) {
			return fmt.Errorf("mutator %s: %w", m.Name, err)
		}
		log.Printf("Skipping %s from client %s: %v", m.Name, clientID, err)
		// drop partial writes, only advance the mutation ID
		tx = Begin(e.store, roomID, clientID, LocationServer, tx.now)
	}

	if err := tx.Set(ctx, lastMutationIDKey(clientID), m.ID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s: %w", m.Name, err)
	}
	return nil
}

func (e *Executor) readLastMutationID(ctx context.Context, roomID, clientID string, out *int64) (bool, error) {
	data, ok, err := e.store.Get(ctx, roomID, lastMutationIDKey(clientID))
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode last mutation id: %w", err)
	}
	return true, nil
}

// Pull returns the room state and the caller's last applied mutation ID.
// Bookkeeping keys are not part of the state.
func (e *Executor) Pull(ctx context.Context, roomID, clientID string) (*PullResponse, error) {
	if _, ok := e.resolve(roomID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRoom, roomID)
	}
	// the mutation id and the state must come from the same commit
	lock := e.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	resp := &PullResponse{State: make(map[string]json.RawMessage)}
	if _, err := e.readLastMutationID(ctx, roomID, clientID, &resp.LastMutationID); err != nil {
		return nil, err
	}
	all, err := e.store.Scan(ctx, roomID, "")
	if err != nil {
		return nil, err
	}
	for k, v := range all {
		if strings.HasPrefix(k, lastMutationIDPrefix) {
			continue
		}
		resp.State[k] = v
	}
	return resp, nil
}

// Run applies a server-originated mutator on behalf of clientID. It is not
// part of the client's mutation sequence.
func (e *Executor) Run(ctx context.Context, roomID, clientID, name string, args json.RawMessage) error {
	registry, ok := e.resolve(roomID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRoom, roomID)
	}
	mutator, ok := registry.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMutator, name)
	}

	lock := e.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	tx := Begin(e.store, roomID, clientID, LocationServer, e.clock())
	if err := mutator(ctx, tx, args); err != nil {
		return fmt.Errorf("mutator %s: %w", name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	if e.poker != nil {
		e.poker.Poke(roomID)
	}
	return nil
}

// Read runs fn against the room's committed state
func (e *Executor) Read(ctx context.Context, roomID, clientID string, fn func(tx ReadTransaction) error) error {
	return fn(Begin(e.store, roomID, clientID, LocationServer, e.clock()))
}
