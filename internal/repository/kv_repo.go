package repository

import (
	"context"
	"log"
	"regexp"

	"gridloop/internal/mutation"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// kvEntry is one key of a room's keyspace
type kvEntry struct {
	ID     string `bson:"_id"`
	RoomID string `bson:"roomId"`
	Key    string `bson:"key"`
	Value  string `bson:"value"`
}

// KVRepo keeps room keyspaces in a MongoDB collection, one document per key
type KVRepo struct {
	collection *mongo.Collection
}

var _ mutation.Store = (*KVRepo)(nil)

// NewKVRepo creates a MongoDB-backed mutation store
func NewKVRepo(db *mongo.Database) *KVRepo {
	repo := &KVRepo{collection: db.Collection("room_kv")}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *KVRepo) ensureIndexes(ctx context.Context) {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "roomId", Value: 1}, {Key: "key", Value: 1}},
	})
	if err != nil {
		log.Printf("Warning: failed to create index on %s: %v", r.collection.Name(), err)
	}
}

func docID(roomID, key string) string {
	return roomID + "|" + key
}

func (r *KVRepo) Get(ctx context.Context, roomID, key string) ([]byte, bool, error) {
	var e kvEntry
	err := r.collection.FindOne(ctx, bson.M{"_id": docID(roomID, key)}).Decode(&e)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(e.Value), true, nil
}

func (r *KVRepo) Scan(ctx context.Context, roomID, prefix string) (map[string][]byte, error) {
	filter := bson.M{"roomId": roomID}
	if prefix != "" {
		filter["key"] = bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}
	}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make(map[string][]byte)
	for cursor.Next(ctx) {
		var e kvEntry
		if err := cursor.Decode(&e); err != nil {
			return nil, err
		}
		out[e.Key] = []byte(e.Value)
	}
	return out, cursor.Err()
}

// Commit applies all writes in one ordered bulk write
func (r *KVRepo) Commit(ctx context.Context, roomID string, writes []mutation.Write) error {
	if len(writes) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(writes))
	for _, w := range writes {
		id := docID(roomID, w.Key)
		if w.Value == nil {
			models = append(models, mongo.NewDeleteOneModel().SetFilter(bson.M{"_id": id}))
			continue
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": id}).
			SetReplacement(kvEntry{ID: id, RoomID: roomID, Key: w.Key, Value: string(w.Value)}).
			SetUpsert(true))
	}
	_, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	return err
}
