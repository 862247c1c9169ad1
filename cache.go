package rexel

import (
	"hash/fnv"
	"net/url"
	"strings"
	"sync"
	"time"
)

// CacheEntry is an immutable cached result. Entries are replaced, never
// mutated; an expired entry counts as absent.
type CacheEntry struct {
	Data      *Response
	ExpiresAt time.Time
}

// Cache stores normalized responses by cache key.
type Cache interface {
	Get(key string) (*CacheEntry, bool)
	Set(key string, entry *CacheEntry, ttl time.Duration)
	Delete(key string)
	DeletePrefix(prefix string) int
	Clear()
	Len() int
}

// InMemoryCache is a sharded, mutex-guarded Cache. It has no eviction
// goroutine: expired entries are ignored on read and overwritten on the
// next store.
type InMemoryCache struct {
	shards    []*cacheShard
	numShards int
	now       func() time.Time
}

type cacheShard struct {
	mu    sync.RWMutex
	store map[string]*CacheEntry
}

func NewInMemoryCache() *InMemoryCache {
	numShards := 16
	shards := make([]*cacheShard, numShards)
	for i := range shards {
		shards[i] = &cacheShard{
			store: make(map[string]*CacheEntry),
		}
	}
	return &InMemoryCache{
		shards:    shards,
		numShards: numShards,
		now:       time.Now,
	}
}

func (c *InMemoryCache) getShard(key string) *cacheShard {
	hash := fnv.New32a()
	hash.Write([]byte(key))
	return c.shards[hash.Sum32()%uint32(c.numShards)]
}

func (c *InMemoryCache) Get(key string) (*CacheEntry, bool) {
	shard := c.getShard(key)
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	entry, exists := shard.store[key]
	if !exists || !c.now().Before(entry.ExpiresAt) {
		return nil, false
	}
	return entry, true
}

// Set stores a copy of entry that expires ttl from now.
func (c *InMemoryCache) Set(key string, entry *CacheEntry, ttl time.Duration) {
	stored := &CacheEntry{
		Data:      entry.Data,
		ExpiresAt: c.now().Add(ttl),
	}

	shard := c.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	shard.store[key] = stored
}

func (c *InMemoryCache) Delete(key string) {
	shard := c.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	delete(shard.store, key)
}

// DeletePrefix removes every entry whose key starts with prefix and reports
// how many were removed.
func (c *InMemoryCache) DeletePrefix(prefix string) int {
	removed := 0
	for _, shard := range c.shards {
		shard.mu.Lock()
		for key := range shard.store {
			if strings.HasPrefix(key, prefix) {
				delete(shard.store, key)
				removed++
			}
		}
		shard.mu.Unlock()
	}
	return removed
}

func (c *InMemoryCache) Clear() {
	for _, shard := range c.shards {
		shard.mu.Lock()
		shard.store = make(map[string]*CacheEntry)
		shard.mu.Unlock()
	}
}

// Len counts live entries.
func (c *InMemoryCache) Len() int {
	now := c.now()
	total := 0
	for _, shard := range c.shards {
		shard.mu.RLock()
		for _, entry := range shard.store {
			if now.Before(entry.ExpiresAt) {
				total++
			}
		}
		shard.mu.RUnlock()
	}
	return total
}

// CacheKey derives the cache key of a GET from its URL and query
// parameters. Parameters are merged with any query already on the URL and
// encoded sorted by name, so their order never changes the key.
func CacheKey(u *url.URL, params url.Values) string {
	if u == nil {
		return ""
	}
	base := *u
	query := base.Query()
	base.RawQuery = ""
	base.Fragment = ""
	for name, values := range params {
		for _, v := range values {
			query.Add(name, v)
		}
	}

	key := base.String()
	if len(query) > 0 {
		key += "?" + query.Encode()
	}
	return key
}
