package config

import "strconv"

// SessionBackend selects which document store backs the session cache.
type SessionBackend string

const (
	BackendMongo SessionBackend = "mongo"
	BackendRedis SessionBackend = "redis"
)

type StoreConfig interface {
	GetSessionBackend() SessionBackend
	GetMongoURI() string
	GetMongoDatabase() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

type StoreVars struct{}

var _ StoreConfig = StoreVars{}

func (StoreVars) GetSessionBackend() SessionBackend {
	if GetEnv("SESSION_STORE", "mongo") == string(BackendRedis) {
		return BackendRedis
	}
	return BackendMongo
}

func (StoreVars) GetMongoURI() string {
	return GetEnv("MONGO_URI", "mongodb://localhost:27017")
}

func (StoreVars) GetMongoDatabase() string {
	return GetEnv("MONGO_DATABASE", "sessions")
}

func (StoreVars) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (StoreVars) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (StoreVars) GetRedisDB() int {
	db, err := strconv.Atoi(GetEnv("REDIS_DB", "0"))
	if err != nil {
		return 0
	}
	return db
}
