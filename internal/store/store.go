// Package store provides the durable key-value layer underneath resource
// instances. A Store hands out named Buckets; each instance owns one bucket
// and every persisted field is one key in it. Values are opaque strings.
package store

import (
	"context"
	"fmt"
)

// Bucket is a namespaced key-value view, typically scoped to one resource
// instance.
type Bucket interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes a single key.
	Set(ctx context.Context, key, value string) error

	// SetMany writes several keys, atomically where the backend supports
	// it.
	SetMany(ctx context.Context, values map[string]string) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Keys lists every key currently present in the bucket.
	Keys(ctx context.Context) ([]string, error)

	// Clear removes everything in the bucket.
	Clear(ctx context.Context) error
}

// Store hands out buckets and owns whatever connection sits underneath.
type Store interface {
	Bucket(name string) Bucket
	Close() error
}

// Config selects and parameterizes a backend.
type Config struct {
	// Backend is "memory", "sqlite" or "s3".
	Backend string `yaml:"backend"`
	// Path is the database file for the sqlite backend.
	Path string `yaml:"path"`
	// Bucket, Prefix and Region configure the s3 backend.
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
	Region  string `yaml:"region"`
	Profile string `yaml:"profile"`
}

// Open builds a Store from config.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite store requires 'path'")
		}
		return OpenSQLiteStore(ctx, cfg.Path)
	case "s3":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("s3 store requires 'bucket'")
		}
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}
