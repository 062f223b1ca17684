package activity

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"gridloop/internal/mutation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const now int64 = 1_700_000_000_000

func update(t *testing.T, store mutation.Store, clientID string, at int64, disconnect bool) Change {
	t.Helper()
	ctx := context.Background()
	tx := mutation.Begin(store, "play_i0_d", clientID, mutation.LocationServer, time.UnixMilli(at))
	change, err := Update(ctx, tx, disconnect)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	return change
}

func TestUpdate(t *testing.T) {
	store := mutation.NewMemoryStore()

	change := update(t, store, "a", now, false)
	assert.Equal(t, Change{Added: "a", Active: []string{"a"}}, change)
	assert.True(t, change.Changed())

	change = update(t, store, "b", now+1000, false)
	assert.Equal(t, "b", change.Added)
	assert.Empty(t, change.Removed)
	assert.Equal(t, []string{"a", "b"}, change.Active)

	change = update(t, store, "a", now+2000, false)
	assert.False(t, change.Changed(), "refreshing an active client is not a change")

	// exactly at the threshold a client is still active
	change = update(t, store, "a", now+4000, false)
	assert.False(t, change.Changed())
	assert.Equal(t, []string{"a", "b"}, change.Active)

	change = update(t, store, "a", now+4001, false)
	assert.Equal(t, []string{"b"}, change.Removed)
	assert.Equal(t, []string{"a"}, change.Active)
}

func TestUpdateDisconnect(t *testing.T) {
	store := mutation.NewMemoryStore()
	update(t, store, "a", now, false)
	update(t, store, "b", now, false)

	change := update(t, store, "a", now+500, true)
	assert.Equal(t, Change{Removed: []string{"a"}, Active: []string{"b"}}, change)

	// disconnecting twice changes nothing
	change = update(t, store, "a", now+600, true)
	assert.False(t, change.Changed())

	ctx := context.Background()
	ids, err := List(ctx, mutation.Begin(store, "play_i0_d", "", mutation.LocationServer, time.UnixMilli(now)))
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}

func TestUpdateSpeculative(t *testing.T) {
	ctx := context.Background()
	store := mutation.NewMemoryStore()
	tx := mutation.Begin(store, "play_i0_d", "a", mutation.LocationClient, time.UnixMilli(now))

	change, err := MarkActive(ctx, tx)
	require.NoError(t, err)
	assert.False(t, change.Changed())

	ok, err := tx.Has(ctx, activeClientsKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMiddleware(t *testing.T) {
	ctx := context.Background()
	store := mutation.NewMemoryStore()

	var changes []Change
	var ran int
	registry := mutation.NewRegistry().Register(mutation.Defs{
		"paint": func(ctx context.Context, tx mutation.WriteTransaction, _ json.RawMessage) error {
			ran++
			if !tx.IsAuthoritative() {
				return nil
			}
			ids, err := List(ctx, tx)
			require.NoError(t, err)
			assert.Contains(t, ids, tx.ClientID(), "caller is active before the mutator runs")
			return nil
		},
	}, Middleware(func(_ context.Context, _ mutation.WriteTransaction, c Change) error {
		changes = append(changes, c)
		return nil
	}))
	paint, ok := registry.Lookup("paint")
	require.True(t, ok)

	tx := mutation.Begin(store, "play_i0_d", "a", mutation.LocationServer, time.UnixMilli(now))
	require.NoError(t, paint(ctx, tx, nil))
	require.NoError(t, tx.Commit(ctx))

	speculative := mutation.Begin(store, "play_i0_d", "b", mutation.LocationClient, time.UnixMilli(now))
	require.NoError(t, paint(ctx, speculative, nil))

	assert.Equal(t, 2, ran)
	require.Len(t, changes, 1, "speculative runs do not report changes")
	assert.Equal(t, "a", changes[0].Added)
}
