// Package redis provides a Redis-based implementation of the cache.Cache
// interface so the signing key set survives across processes and restarts.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"
	"github.com/supportal/cognitoauth/cache"
)

// Config contains configuration options for the Redis cache.
type Config struct {
	// RedisAddr like "localhost:6379".
	RedisAddr string
	// KeyPrefix for all Redis keys.
	KeyPrefix string
	// Client, when set, is used instead of dialing RedisAddr.
	Client *redis.Client
}

// envConfig is the envdecode target; kept separate so decoding never touches
// the client field.
type envConfig struct {
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	KeyPrefix string `env:"AUTH_CACHE_KEY_PREFIX,default=auth:cache:"`
}

// Cache implements the cache.Cache interface using Redis.
type Cache struct {
	client    *redis.Client
	keyPrefix string
}

// storedItem is the structure serialized into Redis values.
type storedItem struct {
	Data      []byte     `json:"data"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// New creates a new Redis-backed cache.
func New(cfg Config) (*Cache, error) {
	client := cfg.Client
	if client == nil {
		addr := cfg.RedisAddr
		if addr == "" {
			addr = "localhost:6379"
		}
		client = redis.NewClient(&redis.Options{Addr: addr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "auth:cache:"
	}

	return &Cache{client: client, keyPrefix: prefix}, nil
}

// NewFromEnv builds a Cache using envdecode to populate Config.
func NewFromEnv() (*Cache, error) {
	var env envConfig
	// Defaults are provided via struct tags.
	_ = envdecode.Decode(&env)
	return New(Config{RedisAddr: env.RedisAddr, KeyPrefix: env.KeyPrefix})
}

// Get retrieves the item stored under key.
func (c *Cache) Get(ctx context.Context, key string) (*cache.Item, error) {
	redisKey := c.keyPrefix + key

	result := c.client.Get(ctx, redisKey)
	if result.Err() != nil {
		if result.Err() == redis.Nil {
			return nil, nil // Key doesn't exist
		}
		return nil, fmt.Errorf("failed to get key %s: %w", redisKey, result.Err())
	}

	var item storedItem
	if err := json.Unmarshal([]byte(result.Val()), &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stored data: %w", err)
	}

	cacheItem := &cache.Item{
		Data:      item.Data,
		CreatedAt: item.CreatedAt,
		ExpiresAt: item.ExpiresAt,
	}

	if cacheItem.IsExpired() {
		c.client.Del(ctx, redisKey)
		return nil, nil
	}

	return cacheItem, nil
}

// Set stores data under key.
func (c *Cache) Set(ctx context.Context, key string, data []byte, opts ...cache.Option) error {
	options := &cache.Options{}
	for _, opt := range opts {
		opt(options)
	}

	redisKey := c.keyPrefix + key

	now := time.Now()
	item := storedItem{
		Data:      data,
		CreatedAt: now,
	}

	var redisTTL time.Duration
	if options.TTL != nil {
		expiresAt := now.Add(*options.TTL)
		item.ExpiresAt = &expiresAt
		redisTTL = *options.TTL
	}

	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	if err := c.client.Set(ctx, redisKey, payload, redisTTL).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", redisKey, err)
	}

	return nil
}

// Delete removes the value stored under key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	redisKey := c.keyPrefix + key
	if err := c.client.Del(ctx, redisKey).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", redisKey, err)
	}
	return nil
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
