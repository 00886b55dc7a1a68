package timed

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMemoryEntries = 1024

// MemoryBackend keeps entries in a bounded in-process LRU. Expired entries stay
// until evicted by size so they can still be served stale.
type MemoryBackend[V any] struct {
	lru *lru.Cache[string, Entry[V]]
}

func NewMemory[V any](size int) (*MemoryBackend[V], error) {
	if size <= 0 {
		size = defaultMemoryEntries
	}
	c, err := lru.New[string, Entry[V]](size)
	if err != nil {
		return nil, fmt.Errorf("memory backend: %w", err)
	}
	return &MemoryBackend[V]{lru: c}, nil
}

func (m *MemoryBackend[V]) Load(_ context.Context, key string) (Entry[V], bool, error) {
	e, ok := m.lru.Get(key)
	return e, ok, nil
}

func (m *MemoryBackend[V]) Store(_ context.Context, key string, e Entry[V]) error {
	m.lru.Add(key, e)
	return nil
}

func (m *MemoryBackend[V]) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.lru.Remove(k)
	}
	return nil
}

func (m *MemoryBackend[V]) Len() int { return m.lru.Len() }
