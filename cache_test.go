package rexel

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func testEntry(data string) *CacheEntry {
	return &CacheEntry{Data: &Response{Data: json.RawMessage(data), Status: 200}}
}

func TestNewInMemoryCache(t *testing.T) {
	cache := NewInMemoryCache()

	if cache == nil {
		t.Fatal("NewInMemoryCache() returned nil")
	}

	if len(cache.shards) != cache.numShards {
		t.Errorf("Expected %d shards, got %d", cache.numShards, len(cache.shards))
	}
}

func TestInMemoryCacheGet(t *testing.T) {
	cache := NewInMemoryCache()

	if _, found := cache.Get("nonexistent"); found {
		t.Error("Expected false for non-existent key")
	}

	cache.Set("test-key", testEntry(`"test data"`), time.Hour)

	retrieved, found := cache.Get("test-key")
	if !found {
		t.Fatal("Expected true for existing key")
	}
	if string(retrieved.Data.Data) != `"test data"` {
		t.Errorf("Expected '\"test data\"', got '%s'", string(retrieved.Data.Data))
	}
}

func TestInMemoryCacheExpiration(t *testing.T) {
	clock := newFakeClock()
	cache := NewInMemoryCache()
	cache.now = clock.Now

	cache.Set("key", testEntry(`1`), 5*time.Minute)

	clock.Advance(5*time.Minute - time.Millisecond)
	if _, found := cache.Get("key"); !found {
		t.Error("Expected entry to be live just before expiry")
	}

	clock.Advance(time.Millisecond)
	if _, found := cache.Get("key"); found {
		t.Error("Expected entry to be absent at its expiry time")
	}
	if cache.Len() != 0 {
		t.Errorf("Expected expired entry not to be counted, got %d", cache.Len())
	}
}

func TestInMemoryCacheSetIgnoresCallerExpiry(t *testing.T) {
	clock := newFakeClock()
	cache := NewInMemoryCache()
	cache.now = clock.Now

	entry := testEntry(`1`)
	entry.ExpiresAt = clock.Now().Add(-time.Hour)
	cache.Set("key", entry, time.Minute)

	got, found := cache.Get("key")
	if !found {
		t.Fatal("Expected entry stored with a fresh expiry")
	}
	if want := clock.Now().Add(time.Minute); !got.ExpiresAt.Equal(want) {
		t.Errorf("Expected expiry %v, got %v", want, got.ExpiresAt)
	}
}

func TestInMemoryCacheDeleteAndClear(t *testing.T) {
	cache := NewInMemoryCache()

	for i := 0; i < 10; i++ {
		cache.Set(fmt.Sprintf("key-%d", i), testEntry(`1`), time.Hour)
	}
	if cache.Len() != 10 {
		t.Fatalf("Expected 10 entries, got %d", cache.Len())
	}

	cache.Delete("key-0")
	if _, found := cache.Get("key-0"); found {
		t.Error("Expected deleted key to be absent")
	}
	if cache.Len() != 9 {
		t.Errorf("Expected 9 entries, got %d", cache.Len())
	}

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Expected empty cache after Clear, got %d", cache.Len())
	}
}

func TestInMemoryCacheDeletePrefix(t *testing.T) {
	cache := NewInMemoryCache()
	cache.Set("http://api/v1/secured/products?page=1", testEntry(`1`), time.Hour)
	cache.Set("http://api/v1/secured/users", testEntry(`1`), time.Hour)
	cache.Set("http://api/v1/public/products", testEntry(`1`), time.Hour)

	removed := cache.DeletePrefix("http://api/v1/secured")
	if removed != 2 {
		t.Errorf("Expected 2 entries removed, got %d", removed)
	}
	if _, found := cache.Get("http://api/v1/public/products"); !found {
		t.Error("Expected public entry to survive")
	}
}

func TestInMemoryCacheConcurrentAccess(t *testing.T) {
	cache := NewInMemoryCache()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i%10)
			cache.Set(key, testEntry(`1`), time.Hour)
			cache.Get(key)
			cache.Len()
		}(i)
	}
	wg.Wait()

	if cache.Len() != 10 {
		t.Errorf("Expected 10 entries, got %d", cache.Len())
	}
}

func TestCacheKey(t *testing.T) {
	u, _ := url.Parse("http://localhost:3333/api/v1/public/products?sort=name")

	a := CacheKey(u, url.Values{"page": {"2"}, "limit": {"20"}})
	b := CacheKey(u, url.Values{"limit": {"20"}, "page": {"2"}})
	if a != b {
		t.Errorf("Expected parameter order not to matter: %q vs %q", a, b)
	}

	want := "http://localhost:3333/api/v1/public/products?limit=20&page=2&sort=name"
	if a != want {
		t.Errorf("Expected %q, got %q", want, a)
	}

	if CacheKey(u, url.Values{"page": {"3"}}) == a {
		t.Error("Expected different params to produce different keys")
	}

	bare, _ := url.Parse("http://localhost:3333/health")
	if got := CacheKey(bare, nil); got != "http://localhost:3333/health" {
		t.Errorf("Expected no trailing '?', got %q", got)
	}
}
