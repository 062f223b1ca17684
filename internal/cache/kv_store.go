package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gridloop/internal/mutation"

	"github.com/redis/go-redis/v9"
)

// KVStore keeps each room's keyspace in one Redis hash
type KVStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewKVStore creates a Redis-backed mutation store
func NewKVStore(client *redis.Client) *KVStore {
	return &KVStore{
		client: client,
		ttl:    24 * time.Hour, // idle rooms expire after 24h
	}
}

var _ mutation.Store = (*KVStore)(nil)

func (s *KVStore) key(roomID string) string {
	return fmt.Sprintf("room:%s:kv", roomID)
}

func (s *KVStore) Get(ctx context.Context, roomID, key string) ([]byte, bool, error) {
	data, err := s.client.HGet(ctx, s.key(roomID), key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *KVStore) Scan(ctx context.Context, roomID, prefix string) (map[string][]byte, error) {
	all, err := s.client.HGetAll(ctx, s.key(roomID)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte)
	for k, v := range all {
		if strings.HasPrefix(k, prefix) {
			out[k] = []byte(v)
		}
	}
	return out, nil
}

// Commit applies the writes in one MULTI/EXEC block
func (s *KVStore) Commit(ctx context.Context, roomID string, writes []mutation.Write) error {
	if len(writes) == 0 {
		return nil
	}
	key := s.key(roomID)
	var sets []interface{}
	var dels []string
	for _, w := range writes {
		if w.Value == nil {
			dels = append(dels, w.Key)
		} else {
			sets = append(sets, w.Key, w.Value)
		}
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(sets) > 0 {
			pipe.HSet(ctx, key, sets...)
		}
		if len(dels) > 0 {
			pipe.HDel(ctx, key, dels...)
		}
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	return err
}
