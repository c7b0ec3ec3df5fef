// Package viewcache caches composed public vehicle views keyed by slug.
// The cache is best-effort: a miss or a backend failure always falls
// through to a full resolve-derive-redact cycle.
package viewcache

import (
	"context"
	"strings"
	"time"
)

const (
	slugKeyPrefix = "vehicles:slug:"
	idKeyPrefix   = "vehicles:id:"

	// ListKeyPrefix covers every cached list result. List queries cannot be
	// individually keyed by mutation, so writes invalidate the whole prefix.
	ListKeyPrefix = "vehicles:list:"
)

// Cache stores serialized views with a TTL. Values are opaque bytes so a
// cached entry can never alias a caller-held document.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Invalidate(ctx context.Context, keys ...string)
	InvalidatePrefix(ctx context.Context, prefix string)
}

// SlugKey builds the cache key for a public-by-slug view.
func SlugKey(slug string) string {
	return slugKeyPrefix + strings.ToLower(strings.TrimSpace(slug))
}

// IDKey builds the cache key for an id-keyed view.
func IDKey(id string) string {
	return idKeyPrefix + strings.TrimSpace(id)
}

// ListKey builds the cache key for a list query result.
func ListKey(fingerprint string) string {
	return ListKeyPrefix + fingerprint
}
