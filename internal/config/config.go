package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Store backends
const (
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

type Config struct {
	HTTPPort     string
	StoreBackend string
	MongoURI     string
	MongoDB      string
	RedisAddr    string
	JWTSecret    string
	CORSOrigins  string

	PlayRoomCapacity  int
	ShareRoomCapacity int
}

func Load() *Config {
	return &Config{
		HTTPPort:     getEnv("PORT", "8080"),
		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendRedis)),
		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:      getEnv("MONGO_DB", "gridloop"),
		RedisAddr:    strings.TrimPrefix(getEnv("REDIS_URI", "localhost:6379"), "redis://"),
		JWTSecret:    getEnv("JWT_SECRET", "super-secret-key-change-in-production"),
		CORSOrigins:  getEnv("CORS_ALLOWED_ORIGINS", "*"),

		PlayRoomCapacity:  getEnvInt("PLAY_ROOM_CAPACITY", 8),
		ShareRoomCapacity: getEnvInt("SHARE_ROOM_CAPACITY", 32),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid %s=%q, using %d", key, val, defaultVal)
		return defaultVal
	}
	return n
}
