package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sweetpotato0/ragline/embedder"
	"github.com/sweetpotato0/ragline/pkg/logging"
)

// Cache implements embedder.Cache backed by Redis, so multiple engine
// instances can share one embedding cache.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Config holds Redis configuration.
type Config struct {
	Addr     string        // Redis server address (e.g., "localhost:6379")
	Password string        // Redis password (if any)
	DB       int           // Redis database number
	Prefix   string        // Key prefix for namespacing
	TTL      time.Duration // Time-to-live for keys (0 means no expiration)
}

// New creates a Redis-backed embedding cache.
func New(config *Config) *Cache {
	if config == nil {
		config = &Config{
			Addr:   "localhost:6379",
			Prefix: "ragline:embedding:",
		}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	return &Cache{
		client: client,
		prefix: config.Prefix,
		ttl:    config.TTL,
	}
}

// NewWithClient wraps an existing Redis client, mainly for tests.
func NewWithClient(client *redis.Client, prefix string, ttl time.Duration) *Cache {
	return &Cache{client: client, prefix: prefix, ttl: ttl}
}

// Get returns the cached embedding for key, if present. Transport errors
// degrade to a miss; a duplicate upstream call is cheaper than a failed
// retrieval.
func (c *Cache) Get(ctx context.Context, key string) (embedder.Embedding, bool) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logging.WithComponent("redis_cache").Warn("cache read failed", "error", err)
		}
		return embedder.Embedding{}, false
	}
	var emb embedder.Embedding
	if err := json.Unmarshal(data, &emb); err != nil {
		logging.WithComponent("redis_cache").Warn("cache entry corrupt, treating as miss", "key", key, "error", err)
		return embedder.Embedding{}, false
	}
	return emb, true
}

// Put stores the embedding under key.
func (c *Cache) Put(ctx context.Context, key string, emb embedder.Embedding) error {
	data, err := json.Marshal(emb)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, data, c.ttl).Err()
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}

var _ embedder.Cache = (*Cache)(nil)
