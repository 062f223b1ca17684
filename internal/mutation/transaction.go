package mutation

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Location says where a transaction is executing
type Location string

const (
	// LocationClient is a speculative apply against a local replica
	LocationClient Location = "client"
	// LocationServer is the authoritative apply against durable state
	LocationServer Location = "server"
)

// ReadTransaction gives read access to one room's keyspace
type ReadTransaction interface {
	ClientID() string
	RoomID() string
	Location() Location
	// Now is read once when the transaction opens
	Now() time.Time
	Get(ctx context.Context, key string, v interface{}) (bool, error)
	Has(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, prefix string) (map[string]json.RawMessage, error)
}

// WriteTransaction buffers writes until the executor commits them
type WriteTransaction interface {
	ReadTransaction
	IsAuthoritative() bool
	Set(ctx context.Context, key string, v interface{}) error
	Del(ctx context.Context, key string) error
}

type pendingWrite struct {
	value   []byte
	deleted bool
}

// Txn buffers one transaction's writes over a store
type Txn struct {
	store    Store
	roomID   string
	clientID string
	location Location
	now      time.Time
	writes   map[string]pendingWrite
}

// Begin opens a transaction on roomID. The executor and replica open their
// own; tests use it to drive mutators directly.
func Begin(store Store, roomID, clientID string, location Location, now time.Time) *Txn {
	return &Txn{
		store:    store,
		roomID:   roomID,
		clientID: clientID,
		location: location,
		now:      now,
		writes:   make(map[string]pendingWrite),
	}
}

func (t *Txn) ClientID() string      { return t.clientID }
func (t *Txn) RoomID() string        { return t.roomID }
func (t *Txn) Location() Location    { return t.location }
func (t *Txn) Now() time.Time        { return t.now }
func (t *Txn) IsAuthoritative() bool { return t.location == LocationServer }

func (t *Txn) raw(ctx context.Context, key string) ([]byte, bool, error) {
	if w, ok := t.writes[key]; ok {
		if w.deleted {
			return nil, false, nil
		}
		return w.value, true, nil
	}
	return t.store.Get(ctx, t.roomID, key)
}

func (t *Txn) Get(ctx context.Context, key string, v interface{}) (bool, error) {
	data, ok, err := t.raw(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (t *Txn) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := t.raw(ctx, key)
	return ok, err
}

func (t *Txn) Scan(ctx context.Context, prefix string) (map[string]json.RawMessage, error) {
	stored, err := t.store.Scan(ctx, t.roomID, prefix)
	if err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(stored))
	for k, v := range stored {
		out[k] = v
	}
	for k, w := range t.writes {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if w.deleted {
			delete(out, k)
		} else {
			out[k] = w.value
		}
	}
	return out, nil
}

func (t *Txn) Set(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	t.writes[key] = pendingWrite{value: data}
	return nil
}

func (t *Txn) Del(ctx context.Context, key string) error {
	t.writes[key] = pendingWrite{deleted: true}
	return nil
}

// Commit flushes buffered writes in key order
func (t *Txn) Commit(ctx context.Context) error {
	if len(t.writes) == 0 {
		return nil
	}
	keys := make([]string, 0, len(t.writes))
	for k := range t.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	writes := make([]Write, 0, len(keys))
	for _, k := range keys {
		w := t.writes[k]
		if w.deleted {
			writes = append(writes, Write{Key: k})
		} else {
			writes = append(writes, Write{Key: k, Value: w.value})
		}
	}
	return t.store.Commit(ctx, t.roomID, writes)
}
