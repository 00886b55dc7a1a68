package timed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mohammed-shakir/suburb-boundaries/internal/cache/keys"
)

// KV is the subset of redisstore.Client the Redis backend needs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// RedisBackend shares entries between replicas. Entries are JSON encoded and
// kept for retention, which should exceed the cache TTL so stale fallbacks
// survive; opTimeout bounds each call.
type RedisBackend[V any] struct {
	kv        KV
	domain    string
	retention time.Duration
	opTimeout time.Duration
}

func NewRedis[V any](kv KV, domain string, retention, opTimeout time.Duration) *RedisBackend[V] {
	return &RedisBackend[V]{kv: kv, domain: domain, retention: retention, opTimeout: opTimeout}
}

// returns context with timeout if set
func (r *RedisBackend[V]) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.opTimeout)
}

func (r *RedisBackend[V]) Load(ctx context.Context, key string) (Entry[V], bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	b, ok, err := r.kv.Get(ctx, keys.Store(r.domain, key))
	if err != nil || !ok {
		return Entry[V]{}, false, err
	}
	var e Entry[V]
	if err := json.Unmarshal(b, &e); err != nil {
		return Entry[V]{}, false, fmt.Errorf("decode entry: %w", err)
	}
	return e, true, nil
}

func (r *RedisBackend[V]) Store(ctx context.Context, key string, e Entry[V]) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.kv.Set(ctx, keys.Store(r.domain, key), b, r.retention)
}

func (r *RedisBackend[V]) Delete(ctx context.Context, ks ...string) error {
	if len(ks) == 0 {
		return nil
	}
	full := make([]string, 0, len(ks))
	for _, k := range ks {
		full = append(full, keys.Store(r.domain, k))
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.kv.Del(ctx, full...)
}
