// Package cache defines the shared cache contract used to amortize signing
// key fetches across processes. TTL and eviction policy belong to the
// backend; consumers treat the cache as a best-effort read-through layer.
package cache

import (
	"context"
	"time"
)

// Cache is a flat byte-oriented key/value store.
type Cache interface {
	// Get retrieves the item stored under key.
	// Returns a nil Item if the key doesn't exist or has expired.
	// Returns an error only for legitimate backend failures.
	Get(ctx context.Context, key string) (*Item, error)

	// Set stores data under key, replacing any existing value.
	Set(ctx context.Context, key string, data []byte, opts ...Option) error

	// Delete removes the value stored under key, if any.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Item is a stored value with metadata.
type Item struct {
	Data      []byte
	CreatedAt time.Time
	ExpiresAt *time.Time // nil = no expiration
}

// IsExpired checks if the item has expired.
func (it *Item) IsExpired() bool {
	return it.ExpiresAt != nil && time.Now().After(*it.ExpiresAt)
}

// Option configures a Set operation.
type Option func(*Options)

// Options contains configuration for cache operations.
type Options struct {
	TTL *time.Duration
}

// WithTTL sets a time-to-live for the stored value.
func WithTTL(ttl time.Duration) Option {
	return func(o *Options) {
		o.TTL = &ttl
	}
}
