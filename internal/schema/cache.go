package schema

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/spacelift-io/flows-app-aws-resources/internal/store"
)

// MemoryCache is the default process-local cache.
type MemoryCache struct {
	mu   sync.RWMutex
	sets map[string]map[string]struct{}
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{sets: make(map[string]map[string]struct{})}
}

func (c *MemoryCache) Get(_ context.Context, typeName string) (map[string]struct{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys, ok := c.sets[typeName]
	return keys, ok
}

func (c *MemoryCache) Set(_ context.Context, typeName string, keys map[string]struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets[typeName] = keys
}

func (c *MemoryCache) Delete(_ context.Context, typeName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sets, typeName)
}

// BucketCache persists resolved sets in a store bucket so restarts skip the
// schema fetch. Values are JSON arrays of property names. Store trouble is
// logged and treated as a miss.
type BucketCache struct {
	bucket store.Bucket
}

func NewBucketCache(bucket store.Bucket) *BucketCache {
	return &BucketCache{bucket: bucket}
}

func (c *BucketCache) Get(ctx context.Context, typeName string) (map[string]struct{}, bool) {
	raw, ok, err := c.bucket.Get(ctx, typeName)
	if err != nil {
		log.Warn().Err(err).Str("type", typeName).Msg("Schema cache read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		log.Warn().Err(err).Str("type", typeName).Msg("Schema cache entry corrupt, refetching")
		return nil, false
	}
	keys := make(map[string]struct{}, len(names))
	for _, n := range names {
		keys[n] = struct{}{}
	}
	return keys, true
}

func (c *BucketCache) Set(ctx context.Context, typeName string, keys map[string]struct{}) {
	names := make([]string, 0, len(keys))
	for n := range keys {
		names = append(names, n)
	}
	sort.Strings(names)

	data, err := json.Marshal(names)
	if err != nil {
		log.Warn().Err(err).Str("type", typeName).Msg("Schema cache encode failed")
		return
	}
	if err := c.bucket.Set(ctx, typeName, string(data)); err != nil {
		log.Warn().Err(err).Str("type", typeName).Msg("Schema cache write failed")
	}
}

func (c *BucketCache) Delete(ctx context.Context, typeName string) {
	if err := c.bucket.Delete(ctx, typeName); err != nil {
		log.Warn().Err(err).Str("type", typeName).Msg("Schema cache delete failed")
	}
}
