// Package cachestore provides a small namespaced key/value cache with TTL,
// shared by the classifier score cache, event-id deduplication, and the
// policy provider.
package cachestore

import (
	"context"
)

type CacheStore interface {
	// Get returns the cached value, or empty string on miss.
	Get(ctx context.Context, name, key string) (string, error)
	Set(ctx context.Context, name, key string, val string) error
	Purge(ctx context.Context, name, key string) error
}
