// Package schema resolves which properties of a resource type must never be
// patched: the read-only properties the remote computes and the create-only
// properties that force replacement. The remote registry describes these as
// schema paths; this package reduces them to top-level property names and
// caches the result per type.
package schema

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/spacelift-io/flows-app-aws-resources/internal/remote"
)

const propertyMarker = "/properties/"

// Cache stores resolved immutable-property sets per type name. It is
// best-effort: implementations degrade to a miss instead of returning
// errors.
type Cache interface {
	Get(ctx context.Context, typeName string) (map[string]struct{}, bool)
	Set(ctx context.Context, typeName string, keys map[string]struct{})
	Delete(ctx context.Context, typeName string)
}

// Resolver answers "which properties of this type are immutable", fetching
// the type schema on first use and caching the derived set indefinitely.
type Resolver struct {
	registry remote.Registry
	cache    Cache
}

// NewResolver builds a Resolver on top of the given registry. A nil cache
// gets an in-memory one.
func NewResolver(registry remote.Registry, cache Cache) *Resolver {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Resolver{registry: registry, cache: cache}
}

// Resolve returns the top-level property names that cannot appear in an
// update patch for typeName: the union of the schema's read-only and
// create-only properties. A registry failure degrades to an empty set so
// reconciliation proceeds without exclusions; the miss is not cached, so
// the next call retries the fetch.
func (r *Resolver) Resolve(ctx context.Context, typeName string) map[string]struct{} {
	if keys, ok := r.cache.Get(ctx, typeName); ok {
		return keys
	}

	desc, err := r.registry.DescribeType(ctx, typeName)
	if err != nil {
		log.Warn().Err(err).Str("type", typeName).
			Msg("Schema fetch failed, proceeding without immutable-property exclusions")
		return map[string]struct{}{}
	}

	keys := make(map[string]struct{}, len(desc.ReadOnlyProperties)+len(desc.CreateOnlyProperties))
	for _, p := range desc.ReadOnlyProperties {
		addPropertyName(keys, p)
	}
	for _, p := range desc.CreateOnlyProperties {
		addPropertyName(keys, p)
	}

	r.cache.Set(ctx, typeName, keys)
	return keys
}

// Invalidate drops the cached set for typeName so the next Resolve fetches
// a fresh schema.
func (r *Resolver) Invalidate(ctx context.Context, typeName string) {
	r.cache.Delete(ctx, typeName)
}

// addPropertyName reduces a schema path to the top-level property it roots
// in: the "/properties/" marker is stripped and nested segments are cut, so
// "/properties/Tags/Key" contributes "Tags".
func addPropertyName(keys map[string]struct{}, path string) {
	name := strings.TrimPrefix(path, propertyMarker)
	name = strings.TrimPrefix(name, "/")
	if i := strings.IndexByte(name, '/'); i >= 0 {
		name = name[:i]
	}
	if name != "" {
		keys[name] = struct{}{}
	}
}
