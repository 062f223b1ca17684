package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"gridloop/internal/mutation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Requires a running MongoDB, e.g. TEST_MONGO_URI=mongodb://localhost:27017
func TestKVRepo(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { client.Disconnect(context.Background()) })

	db := client.Database("gridloop_test_" + uuid.New().String()[:8])
	t.Cleanup(func() { db.Drop(context.Background()) })

	repo := NewKVRepo(db)
	roomID := "play_i0_d"

	require.NoError(t, repo.Commit(ctx, roomID, []mutation.Write{
		{Key: "cell/00", Value: []byte(`{"id":"00"}`)},
		{Key: "cell/01", Value: []byte(`{"id":"01"}`)},
		{Key: "cell.x", Value: []byte(`1`)},
	}))
	// upsert overwrites, delete removes
	require.NoError(t, repo.Commit(ctx, roomID, []mutation.Write{
		{Key: "cell/00", Value: []byte(`{"id":"00","color":"1"}`)},
		{Key: "cell/01"},
	}))
	require.NoError(t, repo.Commit(ctx, "play_i1_d", []mutation.Write{
		{Key: "cell/05", Value: []byte(`{"id":"05"}`)},
	}))

	v, ok, err := repo.Get(ctx, roomID, "cell/00")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"id":"00","color":"1"}`, string(v))

	_, ok, err = repo.Get(ctx, roomID, "cell/01")
	require.NoError(t, err)
	assert.False(t, ok)

	// the prefix is matched literally and scoped to the room
	cells, err := repo.Scan(ctx, roomID, "cell/")
	require.NoError(t, err)
	assert.Len(t, cells, 1)
	assert.Contains(t, cells, "cell/00")

	all, err := repo.Scan(ctx, roomID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
