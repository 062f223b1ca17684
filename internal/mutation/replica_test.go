package mutation

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxnOverlay(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Commit(ctx, "r1", []Write{
		{Key: "a/1", Value: []byte(`1`)},
		{Key: "a/2", Value: []byte(`2`)},
		{Key: "b/1", Value: []byte(`3`)},
	}))

	tx := Begin(store, "r1", "c1", LocationServer, time.Now())
	require.NoError(t, tx.Set(ctx, "a/3", 4))
	require.NoError(t, tx.Del(ctx, "a/1"))

	scanned, err := tx.Scan(ctx, "a/")
	require.NoError(t, err)
	assert.Len(t, scanned, 2)
	assert.JSONEq(t, `2`, string(scanned["a/2"]))
	assert.JSONEq(t, `4`, string(scanned["a/3"]))

	ok, err := tx.Has(ctx, "a/1")
	require.NoError(t, err)
	assert.False(t, ok, "deleted keys are hidden before commit")

	// nothing reaches the store until Commit
	_, ok, err = store.Get(ctx, "r1", "a/3")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, tx.Commit(ctx))
	_, ok, err = store.Get(ctx, "r1", "a/1")
	require.NoError(t, err)
	assert.False(t, ok)
	v, ok, err := store.Get(ctx, "r1", "a/3")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `4`, string(v))
}

func TestRegistryMiddlewareOrder(t *testing.T) {
	var calls []string
	tag := func(label string) Middleware {
		return func(name string, next Mutator) Mutator {
			return func(ctx context.Context, tx WriteTransaction, args json.RawMessage) error {
				calls = append(calls, label+":"+name)
				return next(ctx, tx, args)
			}
		}
	}
	r := NewRegistry().Register(Defs{
		"noop": func(context.Context, WriteTransaction, json.RawMessage) error {
			calls = append(calls, "body")
			return nil
		},
	}, tag("outer"), tag("inner"))

	m, ok := r.Lookup("noop")
	require.True(t, ok)
	require.NoError(t, m(context.Background(), Begin(NewMemoryStore(), "r", "c", LocationServer, time.Now()), nil))

	assert.Equal(t, []string{"outer:noop", "inner:noop", "body"}, calls)
	assert.Equal(t, []string{"noop"}, r.Names())

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestDecodeArgs(t *testing.T) {
	var args counterArgs
	assert.NoError(t, DecodeArgs(nil, &args))
	assert.NoError(t, DecodeArgs(json.RawMessage(`null`), &args))
	assert.NoError(t, DecodeArgs(json.RawMessage(`{"by":3}`), &args))
	assert.Equal(t, 3, args.By)
	assert.ErrorIs(t, DecodeArgs(json.RawMessage(`[1]`), &args), ErrInvalidArgs)
}

func TestReplicaRebase(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry().Register(counterDefs())
	server := NewMemoryStore()
	exec := NewExecutor(server, func(string) (*Registry, bool) { return registry, true })

	replica := NewReplica("r1", "c1", registry, nil)
	assert.Equal(t, "c1", replica.ClientID())

	require.NoError(t, replica.Mutate(ctx, "incr", counterArgs{By: 1}))
	require.NoError(t, replica.Mutate(ctx, "serverOnly", nil))
	require.NoError(t, replica.Mutate(ctx, "incr", counterArgs{By: 10}))

	var n int
	_, err := replica.Get(ctx, "count", &n)
	require.NoError(t, err)
	assert.Equal(t, 11, n)

	ok, err := replica.Get(ctx, "server", &n)
	require.NoError(t, err)
	assert.False(t, ok, "server-only writes are skipped speculatively")

	// another client moves the shared counter first
	_, err = exec.Push(ctx, "r1", "c2", []Mutation{{ID: 1, Name: "incr", Args: json.RawMessage(`{"by":100}`)}})
	require.NoError(t, err)

	// the server has seen only the first two of our mutations
	pending := replica.Pending()
	require.Len(t, pending, 3)
	_, err = exec.Push(ctx, "r1", "c1", pending[:2])
	require.NoError(t, err)

	pull, err := exec.Pull(ctx, "r1", "c1")
	require.NoError(t, err)
	require.NoError(t, replica.Rebase(ctx, pull))

	assert.Len(t, replica.Pending(), 1)
	_, err = replica.Get(ctx, "count", &n)
	require.NoError(t, err)
	assert.Equal(t, 111, n, "server state plus the replayed unconfirmed mutation")

	ok, err = replica.Get(ctx, "server", &n)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	// once everything is confirmed the replica converges to the server
	_, err = exec.Push(ctx, "r1", "c1", replica.Pending())
	require.NoError(t, err)
	pull, err = exec.Pull(ctx, "r1", "c1")
	require.NoError(t, err)
	require.NoError(t, replica.Rebase(ctx, pull))

	assert.Empty(t, replica.Pending())
	_, err = replica.Get(ctx, "count", &n)
	require.NoError(t, err)
	assert.Equal(t, 111, n)

	assert.ErrorIs(t, replica.Mutate(ctx, "missing", nil), ErrUnknownMutator)
}
