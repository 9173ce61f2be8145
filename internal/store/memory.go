package store

import (
	"context"
	"sync"
)

// MemoryStore keeps everything in process memory. It backs tests and
// one-shot runs where durability does not matter.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]*memoryBucket
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*memoryBucket)}
}

// Bucket returns the named bucket, creating it on first use.
func (s *MemoryStore) Bucket(name string) Bucket {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[name]
	if !ok {
		b = &memoryBucket{values: make(map[string]string)}
		s.buckets[name] = b
	}
	return b
}

// Close is a no-op for the memory backend.
func (s *MemoryStore) Close() error { return nil }

type memoryBucket struct {
	mu     sync.RWMutex
	values map[string]string
}

func (b *memoryBucket) Get(_ context.Context, key string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[key]
	return v, ok, nil
}

func (b *memoryBucket) Set(_ context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = value
	return nil
}

func (b *memoryBucket) SetMany(_ context.Context, values map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range values {
		b.values[k] = v
	}
	return nil
}

func (b *memoryBucket) Delete(_ context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range keys {
		delete(b.values, k)
	}
	return nil
}

func (b *memoryBucket) Keys(_ context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.values))
	for k := range b.values {
		keys = append(keys, k)
	}
	return keys, nil
}

func (b *memoryBucket) Clear(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values = make(map[string]string)
	return nil
}
