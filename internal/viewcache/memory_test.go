package viewcache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	cache.Set(ctx, SlugKey("2023-toyota-rav4"), []byte(`{"id":"1"}`), time.Minute)

	value, ok := cache.Get(ctx, SlugKey("2023-toyota-rav4"))
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(value) != `{"id":"1"}` {
		t.Fatalf("value = %s", value)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	cache.Set(ctx, "k", []byte("v"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if _, ok := cache.Get(ctx, "k"); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestMemoryCacheZeroTTLIsNoop(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	cache.Set(ctx, "k", []byte("v"), 0)

	if _, ok := cache.Get(ctx, "k"); ok {
		t.Fatal("zero ttl must not store")
	}
}

func TestMemoryCacheCopiesValues(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	stored := []byte("original")
	cache.Set(ctx, "k", stored, time.Minute)
	stored[0] = 'X'

	first, _ := cache.Get(ctx, "k")
	if string(first) != "original" {
		t.Fatalf("stored value mutated: %s", first)
	}

	first[0] = 'Y'
	second, _ := cache.Get(ctx, "k")
	if string(second) != "original" {
		t.Fatalf("returned value aliased the store: %s", second)
	}
}

func TestMemoryCacheInvalidatePrefix(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	cache.Set(ctx, ListKey("a"), []byte("1"), time.Minute)
	cache.Set(ctx, ListKey("b"), []byte("2"), time.Minute)
	cache.Set(ctx, SlugKey("kept"), []byte("3"), time.Minute)

	cache.InvalidatePrefix(ctx, ListKeyPrefix)

	if _, ok := cache.Get(ctx, ListKey("a")); ok {
		t.Fatal("list entry a should be gone")
	}
	if _, ok := cache.Get(ctx, ListKey("b")); ok {
		t.Fatal("list entry b should be gone")
	}
	if _, ok := cache.Get(ctx, SlugKey("kept")); !ok {
		t.Fatal("slug entry should survive a list invalidation")
	}
}
