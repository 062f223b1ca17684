package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"gridloop/internal/cache"
	"gridloop/internal/config"
	"gridloop/internal/mutation"
	"gridloop/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// App holds the room store shared by the server and the seeder
type App struct {
	Store mutation.Store

	closers []func()
}

// Open connects the backend selected by cfg.StoreBackend
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Println("Warning: using in-memory store, state is lost on restart")
		a.Store = mutation.NewMemoryStore()

	case config.BackendMongo:
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := mongoClient.Ping(pingCtx, nil); err != nil {
			mongoClient.Disconnect(context.Background())
			return nil, fmt.Errorf("ping mongo: %w", err)
		}
		log.Println("Connected to MongoDB")

		a.Store = repository.NewKVRepo(mongoClient.Database(cfg.MongoDB))
		a.closers = append(a.closers, func() { mongoClient.Disconnect(context.Background()) })

	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		log.Println("Connected to Redis")

		a.Store = cache.NewKVStore(rdb)
		a.closers = append(a.closers, func() { rdb.Close() })

	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	return a, nil
}

// Close releases backend connections
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
