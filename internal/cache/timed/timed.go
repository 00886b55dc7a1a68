// Package timed is a TTL cache that keeps expired entries around as stale
// fallbacks. Freshness is decided on read from the entry's store time, so the
// backend only needs to retain entries, not expire them on schedule.
package timed

import (
	"context"
	"fmt"
	"time"
)

// Entry is a cached value and the instant it was stored.
type Entry[V any] struct {
	Data     V         `json:"data"`
	StoredAt time.Time `json:"stored_at"`
}

// Backend persists entries by already-normalized key.
type Backend[V any] interface {
	Load(ctx context.Context, key string) (Entry[V], bool, error)
	Store(ctx context.Context, key string, e Entry[V]) error
	Delete(ctx context.Context, keys ...string) error
}

// Result of a lookup. Found with Fresh false is a stale entry.
type Result[V any] struct {
	Value V
	Found bool
	Fresh bool
	Age   time.Duration
}

// Cache normalizes lookup values of type K to string keys and stores V.
type Cache[K any, V any] struct {
	name    string
	keyFn   func(K) string
	ttl     time.Duration
	backend Backend[V]
	now     func() time.Time
}

type Option[K any, V any] func(*Cache[K, V])

// WithClock overrides the time source (tests).
func WithClock[K any, V any](now func() time.Time) Option[K, V] {
	return func(c *Cache[K, V]) { c.now = now }
}

func New[K any, V any](name string, keyFn func(K) string, ttl time.Duration, b Backend[V], opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{
		name:    name,
		keyFn:   keyFn,
		ttl:     ttl,
		backend: b,
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Cache[K, V]) Name() string { return c.name }

func (c *Cache[K, V]) TTL() time.Duration { return c.ttl }

// Key returns the normalized key for k.
func (c *Cache[K, V]) Key(k K) string { return c.keyFn(k) }

// Get looks up key and classifies the entry as fresh or stale.
func (c *Cache[K, V]) Get(ctx context.Context, key string) (Result[V], error) {
	e, ok, err := c.backend.Load(ctx, key)
	if err != nil {
		return Result[V]{}, fmt.Errorf("%s cache load %q: %w", c.name, key, err)
	}
	if !ok {
		return Result[V]{}, nil
	}
	age := c.now().Sub(e.StoredAt)
	return Result[V]{
		Value: e.Data,
		Found: true,
		Fresh: age < c.ttl,
		Age:   age,
	}, nil
}

// Put stores v under key stamped with the current time.
func (c *Cache[K, V]) Put(ctx context.Context, key string, v V) error {
	if err := c.backend.Store(ctx, key, Entry[V]{Data: v, StoredAt: c.now()}); err != nil {
		return fmt.Errorf("%s cache store %q: %w", c.name, key, err)
	}
	return nil
}

func (c *Cache[K, V]) Invalidate(ctx context.Context, keys ...string) error {
	if err := c.backend.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("%s cache delete: %w", c.name, err)
	}
	return nil
}
