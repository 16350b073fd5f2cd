// Package memory provides an in-memory implementation of the cache interface
// using github.com/hashicorp/golang-lru/v2 for bounded caching with TTL support.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/supportal/cognitoauth/cache"
)

// Cache implements the cache.Cache interface in process memory.
type Cache struct {
	mu      sync.RWMutex
	entries *lru.Cache[string, *cache.Item]
	done    chan struct{}
}

// New creates a new in-memory cache bounded to maxItems entries.
func New(maxItems int) (*Cache, error) {
	entries, err := lru.New[string, *cache.Item](maxItems)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	c := &Cache{
		entries: entries,
		done:    make(chan struct{}),
	}

	// Background cleanup of expired items
	go c.cleanupExpired()

	return c, nil
}

// Get retrieves the item stored under key.
func (c *Cache) Get(ctx context.Context, key string) (*cache.Item, error) {
	c.mu.RLock()
	item, exists := c.entries.Get(key)
	c.mu.RUnlock()

	if !exists {
		return nil, nil
	}

	if item.IsExpired() {
		c.mu.Lock()
		c.entries.Remove(key)
		c.mu.Unlock()
		return nil, nil
	}

	return item, nil
}

// Set stores data under key.
func (c *Cache) Set(ctx context.Context, key string, data []byte, opts ...cache.Option) error {
	options := &cache.Options{}
	for _, opt := range opts {
		opt(options)
	}

	now := time.Now()
	item := &cache.Item{
		Data:      make([]byte, len(data)),
		CreatedAt: now,
	}
	copy(item.Data, data)

	if options.TTL != nil {
		expiresAt := now.Add(*options.TTL)
		item.ExpiresAt = &expiresAt
	}

	c.mu.Lock()
	c.entries.Add(key, item)
	c.mu.Unlock()

	return nil
}

// Delete removes the value stored under key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	c.entries.Remove(key)
	c.mu.Unlock()
	return nil
}

// Close purges all entries and stops the background cleanup.
func (c *Cache) Close() error {
	c.mu.Lock()
	c.entries.Purge()
	c.mu.Unlock()
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	return nil
}

// cleanupExpired periodically removes expired items so a large cache doesn't
// retain stale payloads between reads.
func (c *Cache) cleanupExpired() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			for _, key := range c.entries.Keys() {
				if item, ok := c.entries.Peek(key); ok && item.IsExpired() {
					c.entries.Remove(key)
				}
			}
			c.mu.Unlock()
		}
	}
}
